package timer

import (
	"time"
)

// New returns a stopped timer, ready for Reset.
func New() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

// Reset stops t, discards a pending expiry and starts it again with d.
func Reset(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
