package elev

import (
	"log/slog"
	"sync"
	"time"

	"liftctl/lib/driver-go/elevio"
	"liftctl/src/config"
	"liftctl/src/types"
)

type Timing struct {
	FloorTravel time.Duration
	DoorHold    time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		FloorTravel: config.FloorTravelDuration,
		DoorHold:    config.DoorOpenDuration,
	}
}

// Car is the simulated elevator car.
// Only the dispatch goroutine moves it, any goroutine may read it.
type Car struct {
	mu     sync.RWMutex
	state  types.CarState
	driver Driver
	timing Timing
}

func NewCar(driver Driver, timing Timing) *Car {
	if driver == nil {
		driver = LogDriver{}
	}
	car := &Car{
		state:  types.InitialCarState(),
		driver: driver,
		timing: timing,
	}
	driver.SetMotorDirection(elevio.MD_Stop)
	driver.SetDoorOpenLamp(false)
	driver.SetFloorIndicator(0)
	return car
}

// GoToFloor moves the car to target one floor at a time and cycles the door.
//   - report is called with MOVING after every floor passed, target included
//   - report is called once with STOPPED when the door opens
//
// Blocks for the whole trip including the door hold.
func (car *Car) GoToFloor(target uint8, report func(floor uint8, motion types.Motion)) {
	car.mu.Lock()
	car.state.Motion = types.Moving
	from := car.state.Location
	car.mu.Unlock()

	if target != from {
		slog.Debug("Car moving", "from", from, "to", target)
		car.driver.SetMotorDirection(motorTowards(from, target))
	}
	for floor := from; floor != target; {
		if target > floor {
			floor++
		} else {
			floor--
		}
		time.Sleep(car.timing.FloorTravel)

		car.mu.Lock()
		car.state.Location = floor
		car.mu.Unlock()
		car.driver.SetFloorIndicator(int(floor))
		report(floor, types.Moving)
	}

	car.driver.SetMotorDirection(elevio.MD_Stop)
	car.mu.Lock()
	car.state.Location = target
	car.state.Door = types.DoorOpen
	car.state.Motion = types.Stopped
	car.mu.Unlock()
	car.driver.SetDoorOpenLamp(true)
	slog.Debug("Car arrived, door open", "floor", target)
	report(target, types.Stopped)

	for _, btn := range []elevio.ButtonType{elevio.BT_HallUp, elevio.BT_HallDown, elevio.BT_Cab} {
		car.driver.SetButtonLamp(btn, int(target), false)
	}

	time.Sleep(car.timing.DoorHold)
	car.mu.Lock()
	car.state.Door = types.DoorClosed
	car.mu.Unlock()
	car.driver.SetDoorOpenLamp(false)
	slog.Debug("Door closed", "floor", target)
}

func (car *Car) SetDirection(dir types.Direction) {
	car.mu.Lock()
	defer car.mu.Unlock()
	if car.state.Direction != dir {
		slog.Debug("Car direction changed", "from", car.state.Direction, "to", dir)
	}
	car.state.Direction = dir
}

// LightButton turns on the lamp for a pending request.
func (car *Car) LightButton(button elevio.ButtonType, floor uint8) {
	car.driver.SetButtonLamp(button, int(floor), true)
}

func (car *Car) Location() uint8 {
	car.mu.RLock()
	defer car.mu.RUnlock()
	return car.state.Location
}

func (car *Car) Direction() types.Direction {
	car.mu.RLock()
	defer car.mu.RUnlock()
	return car.state.Direction
}

func (car *Car) State() types.CarState {
	car.mu.RLock()
	defer car.mu.RUnlock()
	return car.state
}

func motorTowards(from, to uint8) elevio.MotorDirection {
	if to > from {
		return elevio.MD_Up
	}
	return elevio.MD_Down
}
