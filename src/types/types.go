package types

import "fmt"

type Command uint8

const (
	Call Command = 1
	Go   Command = 2
)

func (c Command) String() string {
	switch c {
	case Call:
		return "CALL"
	case Go:
		return "GO"
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

type Direction uint8

const (
	Up   Direction = 1
	Down Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

type Motion uint8

const (
	Moving  Motion = 1
	Stopped Motion = 2
)

func (m Motion) String() string {
	switch m {
	case Moving:
		return "MOVING"
	case Stopped:
		return "STOPPED"
	}
	return fmt.Sprintf("Motion(%d)", uint8(m))
}

type Door uint8

const (
	DoorOpen   Door = 1
	DoorClosed Door = 2
)

func (d Door) String() string {
	switch d {
	case DoorOpen:
		return "OPEN"
	case DoorClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("Door(%d)", uint8(d))
}

type StatusCode uint8

const StatusPositionUpdate StatusCode = 3
