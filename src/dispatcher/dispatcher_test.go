package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"liftctl/src/bus"
	"liftctl/src/elev"
	"liftctl/src/task"
	"liftctl/src/types"
	"liftctl/src/utils"
)

func init() {
	utils.SilenceLogger()
}

var fastTiming = elev.Timing{FloorTravel: 2 * time.Millisecond, DoorHold: 5 * time.Millisecond}

type collector struct {
	mu       sync.Mutex
	statuses []types.Status
	stopped  chan types.Status
}

func newCollector(statusBus *bus.Bus[types.Status]) *collector {
	c := &collector{stopped: make(chan types.Status, 16)}
	statusBus.Subscribe(func(s types.Status) error {
		c.mu.Lock()
		c.statuses = append(c.statuses, s)
		c.mu.Unlock()
		if s.Motion == types.Stopped {
			c.stopped <- s
		}
		return nil
	})
	return c
}

func (c *collector) all() []types.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Status(nil), c.statuses...)
}

func newTestDispatcher() (*Dispatcher, *elev.Car, *collector) {
	statusBus := bus.New[types.Status]()
	car := elev.NewCar(nil, fastTiming)
	d := New(Settings{WaitTimeout: 10 * time.Millisecond}, car, statusBus)
	return d, car, newCollector(statusBus)
}

func call(floor uint8, dir types.Direction, ts int64) types.Request {
	return types.Request{Command: types.Call, Floor: floor, Direction: dir, Timestamp: ts, Valid: true}
}

func floors(reqs []types.Request) string {
	out := make([]uint8, len(reqs))
	for i, req := range reqs {
		out[i] = req.Floor
	}
	return fmt.Sprint(out)
}

func mustSubmit(t *testing.T, d *Dispatcher, reqs ...types.Request) {
	t.Helper()
	for _, req := range reqs {
		if err := d.Submit(req); err != nil {
			t.Fatalf("Submit %v: %v", req, err)
		}
	}
}

func TestSubmitClassification(t *testing.T) {
	d, car, _ := newTestDispatcher()
	car.GoToFloor(4, func(uint8, types.Motion) {})

	mustSubmit(t, d,
		call(2, types.Up, 1),
		call(6, types.Up, 2),
		call(4, types.Up, 3),
		call(1, types.Down, 4),
		call(7, types.Down, 5),
		call(4, types.Down, 6),
	)

	p := d.Pending()
	if got := floors(p.Current); got != "[6 4 1 4]" {
		t.Errorf("Expected current [6 4 1 4] in arrival order, got %s", got)
	}
	if got := floors(p.Up); got != "[2]" {
		t.Errorf("Expected up [2], got %s", got)
	}
	if got := floors(p.Down); got != "[7]" {
		t.Errorf("Expected down [7], got %s", got)
	}
}

func TestSubmitRejects(t *testing.T) {
	d, _, _ := newTestDispatcher()

	err := d.Submit(types.Request{Command: types.Command(9), Floor: 3, Direction: types.Up})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Errorf("Expected ErrUnsupportedCommand, got %v", err)
	}
	err = d.Submit(types.Request{Command: types.Call, Floor: 3, Direction: types.Direction(0)})
	if !errors.Is(err, ErrUnsupportedDirection) {
		t.Errorf("Expected ErrUnsupportedDirection, got %v", err)
	}
	if n := d.Pending().Len(); n != 0 {
		t.Errorf("Expected nothing queued, got %d", n)
	}
}

func TestGoTakesCarDirection(t *testing.T) {
	d, car, _ := newTestDispatcher()
	mustSubmit(t, d, types.Request{Command: types.Go, Floor: 3, Direction: types.Down})

	p := d.Pending()
	if len(p.Current) != 1 || p.Current[0].Direction != types.Up {
		t.Fatalf("Expected GO queued as UP in current, got %+v", p)
	}

	car.SetDirection(types.Down)
	mustSubmit(t, d, types.Request{Command: types.Go, Floor: 2, Direction: types.Up})
	p = d.Pending()
	if floors(p.Down) != "[2]" || p.Down[0].Direction != types.Down {
		t.Errorf("Expected GO queued as DOWN in down, got %+v", p)
	}
}

func TestSubmitStampsTimestamp(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mustSubmit(t, d, call(1, types.Up, 0))
	if d.Pending().Current[0].Timestamp == 0 {
		t.Error("Expected a timestamp to be stamped")
	}
}

func TestPromotion(t *testing.T) {
	tests := []struct {
		name        string
		reqs        []types.Request
		wantDir     types.Direction
		wantCurrent string
		wantUp      string
		wantDown    string
	}{
		{
			name:        "oldest down wins",
			reqs:        []types.Request{call(2, types.Up, 10), call(1, types.Up, 20), call(6, types.Down, 15), call(8, types.Down, 5)},
			wantDir:     types.Down,
			wantCurrent: "[8 6]",
			wantUp:      "[1 2]",
			wantDown:    "[]",
		},
		{
			name:        "oldest up wins",
			reqs:        []types.Request{call(3, types.Up, 30), call(0, types.Up, 1), call(6, types.Down, 2)},
			wantDir:     types.Up,
			wantCurrent: "[0 3]",
			wantUp:      "[]",
			wantDown:    "[6]",
		},
		{
			name:        "tie goes up",
			reqs:        []types.Request{call(6, types.Down, 7), call(1, types.Up, 7)},
			wantDir:     types.Up,
			wantCurrent: "[1]",
			wantUp:      "[]",
			wantDown:    "[6]",
		},
		{
			name:        "only down",
			reqs:        []types.Request{call(9, types.Down, 3), call(5, types.Down, 4)},
			wantDir:     types.Down,
			wantCurrent: "[9 5]",
			wantUp:      "[]",
			wantDown:    "[]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, car, _ := newTestDispatcher()
			car.GoToFloor(4, func(uint8, types.Motion) {})
			mustSubmit(t, d, tt.reqs...)

			d.mu.Lock()
			d.promote()
			d.mu.Unlock()

			if car.Direction() != tt.wantDir {
				t.Errorf("Expected direction %v, got %v", tt.wantDir, car.Direction())
			}
			p := d.Pending()
			if got := floors(p.Current); got != tt.wantCurrent {
				t.Errorf("Expected current %s, got %s", tt.wantCurrent, got)
			}
			if got := floors(p.Up); got != tt.wantUp {
				t.Errorf("Expected up %s, got %s", tt.wantUp, got)
			}
			if got := floors(p.Down); got != tt.wantDown {
				t.Errorf("Expected down %s, got %s", tt.wantDown, got)
			}
		})
	}
}

func TestPromoteEmptyDoesNothing(t *testing.T) {
	d, car, _ := newTestDispatcher()
	car.SetDirection(types.Down)
	d.mu.Lock()
	d.promote()
	d.mu.Unlock()
	if car.Direction() != types.Down || d.Pending().Len() != 0 {
		t.Errorf("Expected no change, got %v %+v", car.Direction(), d.Pending())
	}
}

func run(t *testing.T, d *Dispatcher) *task.Task {
	t.Helper()
	tk := task.New()
	done := make(chan struct{})
	go func() {
		d.Run(tk)
		close(done)
	}()
	t.Cleanup(func() {
		tk.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Dispatcher did not stop")
		}
	})
	return tk
}

func TestIdleCarNeverMoves(t *testing.T) {
	d, _, c := newTestDispatcher()
	run(t, d)
	time.Sleep(50 * time.Millisecond)
	if got := c.all(); len(got) != 0 {
		t.Errorf("Expected no status events, got %v", got)
	}
	if d.State() != types.InitialCarState() {
		t.Errorf("Expected car untouched, got %+v", d.State())
	}
}

func TestCallUpToFifthFloor(t *testing.T) {
	d, _, c := newTestDispatcher()
	run(t, d)

	req := call(5, types.Up, 0)
	req.Node, req.CorrelationID = 0x0001, 7
	mustSubmit(t, d, req)

	select {
	case <-c.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Car never stopped")
	}

	var want []types.Status
	for floor := uint8(1); floor <= 5; floor++ {
		want = append(want, types.Status{Node: 1, CorrelationID: 7, Code: types.StatusPositionUpdate, Floor: floor, Motion: types.Moving})
	}
	want = append(want, types.Status{Node: 1, CorrelationID: 7, Code: types.StatusPositionUpdate, Floor: 5, Motion: types.Stopped})
	if fmt.Sprint(c.all()) != fmt.Sprint(want) {
		t.Errorf("Expected %v\ngot %v", want, c.all())
	}

	deadline := time.Now().Add(time.Second)
	for d.State().Door != types.DoorClosed && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if state := d.State(); state.Location != 5 || state.Door != types.DoorClosed {
		t.Errorf("Expected car at 5 with door closed, got %+v", state)
	}
}

func TestSweepServesFloorsInOrder(t *testing.T) {
	d, car, c := newTestDispatcher()
	car.GoToFloor(5, func(uint8, types.Motion) {})
	mustSubmit(t, d, call(3, types.Up, 1), call(1, types.Up, 2), call(2, types.Up, 3))
	run(t, d)

	var stops []uint8
	for i := 0; i < 3; i++ {
		select {
		case s := <-c.stopped:
			stops = append(stops, s.Floor)
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out, stops so far %v", stops)
		}
	}
	if fmt.Sprint(stops) != "[1 2 3]" {
		t.Errorf("Expected stops [1 2 3], got %v", stops)
	}
}

func TestStopWhileIdle(t *testing.T) {
	statusBus := bus.New[types.Status]()
	d := New(Settings{WaitTimeout: time.Hour}, elev.NewCar(nil, fastTiming), statusBus)
	tk := task.New()
	done := make(chan struct{})
	go func() {
		d.Run(tk)
		close(done)
	}()
	tk.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not interrupt the idle wait")
	}
}
