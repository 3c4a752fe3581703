package types

// CarState is a point-in-time copy of the car. Only the dispatcher goroutine mutates the live car.
type CarState struct {
	Location  uint8
	Direction Direction
	Motion    Motion
	Door      Door
}

// InitialCarState is the state of the car at startup.
func InitialCarState() CarState {
	return CarState{
		Location:  0,
		Direction: Up,
		Motion:    Stopped,
		Door:      DoorClosed,
	}
}
