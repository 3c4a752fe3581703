package elev

import (
	"fmt"
	"log/slog"

	"liftctl/lib/driver-go/elevio"
)

// Driver is the hardware side of the car. Implementations must not block for long,
// they are called from the dispatch goroutine.
type Driver interface {
	SetMotorDirection(dir elevio.MotorDirection)
	SetFloorIndicator(floor int)
	SetDoorOpenLamp(on bool)
	SetButtonLamp(button elevio.ButtonType, floor int, on bool)
}

// LogDriver has no hardware behind it and only logs what the car would do.
type LogDriver struct{}

func (LogDriver) SetMotorDirection(dir elevio.MotorDirection) {
	slog.Debug("Motor", "direction", formatMotor(dir))
}

func (LogDriver) SetFloorIndicator(floor int) {
	slog.Debug("Floor indicator", "floor", floor)
}

func (LogDriver) SetDoorOpenLamp(on bool) {
	slog.Debug("Door lamp", "on", on)
}

func (LogDriver) SetButtonLamp(button elevio.ButtonType, floor int, on bool) {
	slog.Debug("Button lamp", "button", FormatButton(button, floor), "on", on)
}

// SimDriver mirrors the car onto an elevator server. Lost commands are logged, the
// simulated car keeps running without the mirror.
type SimDriver struct {
	drv *elevio.Driver
}

func NewSimDriver(drv *elevio.Driver) *SimDriver {
	return &SimDriver{drv: drv}
}

func (s *SimDriver) SetMotorDirection(dir elevio.MotorDirection) {
	logErr(s.drv.SetMotorDirection(dir), "motor")
}

func (s *SimDriver) SetFloorIndicator(floor int) {
	logErr(s.drv.SetFloorIndicator(floor), "floor indicator")
}

func (s *SimDriver) SetDoorOpenLamp(on bool) {
	logErr(s.drv.SetDoorOpenLamp(on), "door lamp")
}

func (s *SimDriver) SetButtonLamp(button elevio.ButtonType, floor int, on bool) {
	logErr(s.drv.SetButtonLamp(button, floor, on), "button lamp")
}

func (s *SimDriver) Close() error {
	return s.drv.Close()
}

func logErr(err error, what string) {
	if err != nil {
		slog.Warn("Elevator server command failed", "command", what, "error", err)
	}
}

func formatMotor(dir elevio.MotorDirection) string {
	switch dir {
	case elevio.MD_Up:
		return "up"
	case elevio.MD_Down:
		return "down"
	}
	return "stop"
}

func FormatButton(button elevio.ButtonType, floor int) string {
	switch button {
	case elevio.BT_HallUp:
		return fmt.Sprintf("HallUp(%d)", floor)
	case elevio.BT_HallDown:
		return fmt.Sprintf("HallDown(%d)", floor)
	case elevio.BT_Cab:
		return fmt.Sprintf("Cab(%d)", floor)
	}
	return "Unknown"
}
