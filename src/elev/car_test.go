package elev

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"liftctl/lib/driver-go/elevio"
	"liftctl/src/types"
	"liftctl/src/utils"
)

func init() {
	utils.SilenceLogger()
}

type recordingDriver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingDriver) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingDriver) SetMotorDirection(dir elevio.MotorDirection) {
	r.record("motor %s", formatMotor(dir))
}

func (r *recordingDriver) SetFloorIndicator(floor int) { r.record("floor %d", floor) }

func (r *recordingDriver) SetDoorOpenLamp(on bool) { r.record("door %v", on) }

func (r *recordingDriver) SetButtonLamp(button elevio.ButtonType, floor int, on bool) {
	r.record("lamp %s %v", FormatButton(button, floor), on)
}

func (r *recordingDriver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type event struct {
	floor  uint8
	motion types.Motion
}

var fastTiming = Timing{FloorTravel: time.Millisecond, DoorHold: time.Millisecond}

func goTo(car *Car, target uint8) []event {
	var events []event
	car.GoToFloor(target, func(floor uint8, motion types.Motion) {
		events = append(events, event{floor, motion})
	})
	return events
}

func TestNewCarInitialState(t *testing.T) {
	car := NewCar(nil, fastTiming)
	if car.State() != types.InitialCarState() {
		t.Errorf("Unexpected initial state %+v", car.State())
	}
}

func TestGoToFloorUp(t *testing.T) {
	car := NewCar(&recordingDriver{}, fastTiming)
	events := goTo(car, 3)

	want := []event{{1, types.Moving}, {2, types.Moving}, {3, types.Moving}, {3, types.Stopped}}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Fatalf("Expected %v, got %v", want, events)
	}
	state := car.State()
	if state.Location != 3 || state.Motion != types.Stopped || state.Door != types.DoorClosed {
		t.Errorf("Unexpected final state %+v", state)
	}
}

func TestGoToFloorDown(t *testing.T) {
	car := NewCar(nil, fastTiming)
	goTo(car, 4)
	events := goTo(car, 2)

	want := []event{{3, types.Moving}, {2, types.Moving}, {2, types.Stopped}}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Fatalf("Expected %v, got %v", want, events)
	}
	if car.Location() != 2 {
		t.Errorf("Expected location 2, got %d", car.Location())
	}
}

func TestGoToSameFloorOnlyCyclesDoor(t *testing.T) {
	drv := &recordingDriver{}
	car := NewCar(drv, fastTiming)
	events := goTo(car, 0)

	if len(events) != 1 || events[0] != (event{0, types.Stopped}) {
		t.Fatalf("Expected a single STOPPED event, got %v", events)
	}
	calls := drv.Calls()
	if calls[len(calls)-1] != "door false" {
		t.Errorf("Expected door to close last, got %v", calls)
	}
}

func TestGoToFloorDriverSequence(t *testing.T) {
	drv := &recordingDriver{}
	car := NewCar(drv, fastTiming)
	car.LightButton(elevio.BT_Cab, 1)
	goTo(car, 1)

	want := []string{
		"motor stop", "door false", "floor 0",
		"lamp Cab(1) true",
		"motor up", "floor 1", "motor stop", "door true",
		"lamp HallUp(1) false", "lamp HallDown(1) false", "lamp Cab(1) false",
		"door false",
	}
	if fmt.Sprint(drv.Calls()) != fmt.Sprint(want) {
		t.Errorf("Expected %v\ngot %v", want, drv.Calls())
	}
}

func TestDoorOpenDuringHold(t *testing.T) {
	car := NewCar(nil, Timing{FloorTravel: time.Millisecond, DoorHold: 50 * time.Millisecond})
	stopped := make(chan struct{})
	go car.GoToFloor(1, func(floor uint8, motion types.Motion) {
		if motion == types.Stopped {
			close(stopped)
		}
	})

	<-stopped
	if car.State().Door != types.DoorOpen {
		t.Errorf("Expected door open right after arrival")
	}
	time.Sleep(150 * time.Millisecond)
	if car.State().Door != types.DoorClosed {
		t.Errorf("Expected door closed after hold")
	}
}

func TestSetDirection(t *testing.T) {
	car := NewCar(nil, fastTiming)
	car.SetDirection(types.Down)
	if car.Direction() != types.Down {
		t.Errorf("Expected DOWN, got %v", car.Direction())
	}
}
