package types

import (
	"fmt"
	"time"
)

var epoch = time.Now()

// NowMillis returns milliseconds on the process monotonic clock.
// Only meaningful for ordering within this process.
func NowMillis() int64 {
	return time.Since(epoch).Milliseconds()
}

// Request is one user command decoded from the wire. It is never mutated after decoding.
type Request struct {
	Node          uint16 // requester address
	CorrelationID uint16 // message id of the frame that carried it
	Timestamp     int64  // NowMillis at decode time
	TimeTag       uint64 // timetag as sent by the requester
	Command       Command
	Floor         uint8
	Direction     Direction
	Valid         bool
}

func (r Request) String() string {
	return fmt.Sprintf("%v(floor=%d, dir=%v, node=0x%04x, id=%d)",
		r.Command, r.Floor, r.Direction, r.Node, r.CorrelationID)
}

// Status is sent back to the requester whose request is being served.
type Status struct {
	Node          uint16
	CorrelationID uint16
	Code          StatusCode
	Floor         uint8
	Motion        Motion
}
