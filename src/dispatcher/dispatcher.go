package dispatcher

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"liftctl/lib/driver-go/elevio"
	"liftctl/src/bus"
	"liftctl/src/elev"
	"liftctl/src/task"
	"liftctl/src/timer"
	"liftctl/src/types"
)

// Dispatcher decides the order in which floors are served and drives the car.
//   - requests reachable in the current sweep are served first, in arrival order
//   - the rest wait in the up or down queue until that sweep starts
type Dispatcher struct {
	settings Settings
	car      *elev.Car
	status   *bus.Bus[types.Status]

	mu      sync.Mutex
	current []types.Request
	up      *floorHeap
	down    *floorHeap
	wake    chan struct{}
	idle    *time.Timer // only used by the dispatch goroutine
}

func New(settings Settings, car *elev.Car, status *bus.Bus[types.Status]) *Dispatcher {
	if settings.WaitTimeout <= 0 {
		settings.WaitTimeout = DefaultSettings().WaitTimeout
	}
	return &Dispatcher{
		settings: settings,
		car:      car,
		status:   status,
		up:       newFloorHeap(false),
		down:     newFloorHeap(true),
		wake:     make(chan struct{}, 1),
		idle:     timer.New(),
	}
}

// Submit classifies req against the car position and queues it. Safe for concurrent use.
//   - GO takes the current car direction, whatever the frame carried
//   - unknown commands and CALL without UP/DOWN are rejected and nothing is queued
func (d *Dispatcher) Submit(req types.Request) error {
	if req.Timestamp == 0 {
		req.Timestamp = types.NowMillis()
	}

	var button elevio.ButtonType
	d.mu.Lock()
	switch req.Command {
	case types.Call:
		switch req.Direction {
		case types.Up:
			button = elevio.BT_HallUp
		case types.Down:
			button = elevio.BT_HallDown
		default:
			d.mu.Unlock()
			return fmt.Errorf("%w: %d", ErrUnsupportedDirection, req.Direction)
		}
	case types.Go:
		req.Direction = d.car.Direction()
		button = elevio.BT_Cab
	default:
		d.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnsupportedCommand, req.Command)
	}

	queue := d.enqueue(req, d.car.Location())
	d.mu.Unlock()

	slog.Info("Request queued", "request", req, "queue", queue)
	d.car.LightButton(button, req.Floor)

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// enqueue must be called with d.mu held.
func (d *Dispatcher) enqueue(req types.Request, location uint8) string {
	switch {
	case req.Direction == types.Up && req.Floor >= location,
		req.Direction == types.Down && req.Floor <= location:
		d.current = append(d.current, req)
		return "current"
	case req.Direction == types.Up:
		heap.Push(d.up, req)
		return "up"
	default:
		heap.Push(d.down, req)
		return "down"
	}
}

// Run is the dispatch loop. It returns once t is stopped, after the trip in progress.
func (d *Dispatcher) Run(t *task.Task) {
	slog.Info("Dispatcher started", "wait_timeout", d.settings.WaitTimeout)
	for !t.Stopped() {
		d.step(t)
	}
	slog.Info("Dispatcher stopped", "pending", d.Pending().Len())
}

func (d *Dispatcher) step(t *task.Task) {
	if !d.await(t) {
		return
	}

	d.mu.Lock()
	if len(d.current) > 0 {
		req := d.current[0]
		d.current = d.current[1:]
		d.mu.Unlock()
		d.serve(req)
		return
	}
	d.promote()
	d.mu.Unlock()
}

// await blocks until a request is pending, the wait times out or t is stopped.
func (d *Dispatcher) await(t *task.Task) bool {
	timer.Reset(d.idle, d.settings.WaitTimeout)
	defer d.idle.Stop()
	for {
		if d.hasPending() {
			return true
		}
		select {
		case <-d.wake:
		case <-d.idle.C:
			return d.hasPending()
		case <-t.Done():
			return false
		}
	}
}

func (d *Dispatcher) hasPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.current)+d.up.Len()+d.down.Len() > 0
}

// promote starts the next sweep with whichever deferred queue holds the oldest request,
// UP on ties. Must be called with d.mu held.
func (d *Dispatcher) promote() {
	upOldest := earliest(d.up.snapshot())
	downOldest := earliest(d.down.snapshot())
	if d.up.Len() == 0 && d.down.Len() == 0 {
		return
	}

	if upOldest <= downOldest {
		d.car.SetDirection(types.Up)
		d.current = d.up.drainInto(d.current)
	} else {
		d.car.SetDirection(types.Down)
		d.current = d.down.drainInto(d.current)
	}
	slog.Debug("Sweep promoted", "direction", d.car.Direction(), "current", len(d.current))
}

func (d *Dispatcher) serve(req types.Request) {
	slog.Info("Serving request", "request", req)
	d.car.GoToFloor(req.Floor, func(floor uint8, motion types.Motion) {
		d.publish(types.Status{
			Node:          req.Node,
			CorrelationID: req.CorrelationID,
			Code:          types.StatusPositionUpdate,
			Floor:         floor,
			Motion:        motion,
		})
	})
}

func (d *Dispatcher) publish(status types.Status) {
	if err := d.status.Publish(status); err != nil {
		slog.Warn("Status delivery failed", "node", status.Node, "id", status.CorrelationID, "error", err)
	}
}

// Pending returns a copy of every queued request.
func (d *Dispatcher) Pending() Pending {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Pending{
		Current: append([]types.Request(nil), d.current...),
		Up:      d.up.sorted(),
		Down:    d.down.sorted(),
	}
}

func (d *Dispatcher) State() types.CarState {
	return d.car.State()
}
