package network

import (
	"errors"
	"fmt"
)

// ErrProtocol is wrapped by every error caused by a malformed inbound frame.
var ErrProtocol = errors.New("protocol error")

var (
	ErrBadMagic   = fmt.Errorf("%w: bad magic", ErrProtocol)
	ErrBadLength  = fmt.Errorf("%w: bad length", ErrProtocol)
	ErrBadClass   = fmt.Errorf("%w: bad class", ErrProtocol)
	ErrShortFrame = fmt.Errorf("%w: short frame", ErrProtocol)
)

// ErrChecksum is returned when a received frame fails its CRC check.
var ErrChecksum = errors.New("checksum mismatch")
