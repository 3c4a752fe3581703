package dispatcher

import (
	"errors"
	"time"

	"liftctl/src/config"
	"liftctl/src/types"
)

var (
	ErrUnsupportedCommand   = errors.New("unsupported command")
	ErrUnsupportedDirection = errors.New("unsupported direction")
)

type Settings struct {
	// WaitTimeout bounds how long the loop sleeps with nothing to do before it
	// checks the stop signal again.
	WaitTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{WaitTimeout: config.DispatchWait}
}

// Pending is a copy of the queued requests.
//   - Current in service order
//   - Up by ascending floor
//   - Down by descending floor
type Pending struct {
	Current []types.Request
	Up      []types.Request
	Down    []types.Request
}

func (p Pending) Len() int {
	return len(p.Current) + len(p.Up) + len(p.Down)
}
