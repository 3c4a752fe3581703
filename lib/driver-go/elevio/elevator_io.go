// This file defines types and functions for interfacing with the elevator hardware.
// It establishes a TCP connection with the elevator server
package elevio

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

type MotorDirection int

const (
	MD_Up   MotorDirection = 1
	MD_Down MotorDirection = -1
	MD_Stop MotorDirection = 0
)

type ButtonType int

const (
	BT_HallUp   ButtonType = 0
	BT_HallDown ButtonType = 1
	BT_Cab      ButtonType = 2
)

const ioTimeout = 500 * time.Millisecond

// Driver talks the 4-byte command protocol of the elevator server.
// Commands are serialized, one request on the wire at a time.
type Driver struct {
	mtx  sync.Mutex
	conn net.Conn
}

// Dial opens the TCP connection to the elevator server
func Dial(addr string) (*Driver, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial elevator server %s: %w", addr, err)
	}
	return &Driver{conn: conn}, nil
}

func (d *Driver) Close() error {
	return d.conn.Close()
}

func (d *Driver) SetMotorDirection(dir MotorDirection) error {
	return d.write([4]byte{1, byte(dir), 0, 0})
}

func (d *Driver) SetButtonLamp(button ButtonType, floor int, value bool) error {
	return d.write([4]byte{2, byte(button), byte(floor), toByte(value)})
}

func (d *Driver) SetFloorIndicator(floor int) error {
	return d.write([4]byte{3, byte(floor), 0, 0})
}

func (d *Driver) SetDoorOpenLamp(value bool) error {
	return d.write([4]byte{4, toByte(value), 0, 0})
}

func (d *Driver) SetStopLamp(value bool) error {
	return d.write([4]byte{5, toByte(value), 0, 0})
}

// GetFloor returns the floor the sensor reports, or -1 between floors.
func (d *Driver) GetFloor() (int, error) {
	a, err := d.read([4]byte{7, 0, 0, 0})
	if err != nil {
		return -1, err
	}
	if a[1] != 0 {
		return int(a[2]), nil
	}
	return -1, nil
}

func (d *Driver) read(in [4]byte) ([4]byte, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	var out [4]byte
	d.conn.SetDeadline(time.Now().Add(ioTimeout))
	if _, err := d.conn.Write(in[:]); err != nil {
		return out, fmt.Errorf("lost connection to elevator server: %w", err)
	}
	if _, err := io.ReadFull(d.conn, out[:]); err != nil {
		return out, fmt.Errorf("lost connection to elevator server: %w", err)
	}
	return out, nil
}

func (d *Driver) write(in [4]byte) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	d.conn.SetWriteDeadline(time.Now().Add(ioTimeout))
	if _, err := d.conn.Write(in[:]); err != nil {
		return fmt.Errorf("lost connection to elevator server: %w", err)
	}
	return nil
}

func toByte(a bool) byte {
	var b byte = 0
	if a {
		b = 1
	}
	return b
}
