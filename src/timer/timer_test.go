package timer

import (
	"testing"
	"time"
)

func TestNewIsStopped(t *testing.T) {
	tm := New()
	select {
	case <-tm.C:
		t.Error("New timer fired")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestResetDiscardsStaleExpiry(t *testing.T) {
	tm := time.NewTimer(time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	Reset(tm, 50*time.Millisecond)
	start := time.Now()
	<-tm.C
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Timer fired after %v, expected the old expiry to be dropped", elapsed)
	}
}
