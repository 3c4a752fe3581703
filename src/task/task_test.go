package task

import (
	"sync"
	"testing"
	"time"
)

func TestStopIsOneShot(t *testing.T) {
	tk := New()
	if tk.Stopped() {
		t.Fatal("New task reports stopped")
	}
	tk.Stop()
	tk.Stop()
	if !tk.Stopped() {
		t.Fatal("Task not stopped after Stop")
	}
	select {
	case <-tk.Done():
	default:
		t.Error("Done not closed after Stop")
	}
	if tk.Context().Err() == nil {
		t.Error("Context not cancelled after Stop")
	}
}

func TestManyReadersObserveStop(t *testing.T) {
	tk := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !tk.Stopped() {
				time.Sleep(time.Millisecond)
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	tk.Stop()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Readers did not observe the stop signal")
	}
}
