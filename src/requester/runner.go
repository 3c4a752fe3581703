package requester

import (
	"fmt"
	"log/slog"
	"time"

	"liftctl/src/types"
)

// Result is the outcome of one scenario step.
type Result struct {
	Step    Step
	State   State
	Sent    time.Time
	Acked   time.Duration // since Sent
	Reached time.Duration // since Sent
}

type item struct {
	Result
	cmd types.Command
	dir types.Direction
}

// Run sends the steps of sc one at a time and waits for each to be acknowledged.
// A step is reached when the controller reports the car stopped at its floor for it.
// Steps waiting on another step are released once that one is reached.
//
// A NAK or a timeout ends the run. Nothing is ever sent twice.
func (c *Client) Run(sc Scenario) ([]Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	items := make([]*item, len(sc.Steps))
	byID := make(map[uint16]*item, len(sc.Steps))
	for i, step := range sc.Steps {
		cmd, _ := step.command()
		dir, _ := step.direction()
		it := &item{Result: Result{Step: step, State: ReadyToGo}, cmd: cmd, dir: dir}
		if step.After != 0 {
			it.State = Reset
		}
		items[i] = it
		byID[step.ID] = it
	}

	results := func() []Result {
		out := make([]Result, len(items))
		for i, it := range items {
			out[i] = it.Result
		}
		return out
	}

	var inFlight *item
	for reached := 0; reached < len(items); {
		if inFlight == nil {
			if inFlight = nextReady(items); inFlight != nil {
				if err := c.send(inFlight.Step.ID, inFlight.Step.TimeTag, inFlight.cmd, inFlight.Step.Floor, inFlight.dir); err != nil {
					return results(), err
				}
				inFlight.State = InProgress
				inFlight.Sent = time.Now()
			}
		}

		reply, err := c.next()
		if err != nil {
			return results(), fmt.Errorf("%d of %d steps reached: %w", reached, len(items), err)
		}
		h := reply.Header

		switch {
		case h.IsAck() || h.IsNak():
			if inFlight == nil || h.MsgID != inFlight.Step.ID {
				slog.Warn("Unexpected reply", "header", h)
				continue
			}
			if h.IsNak() {
				inFlight.State = Nacked
				return results(), fmt.Errorf("step %d: %w", h.MsgID, ErrNacked)
			}
			inFlight.State = Acked
			inFlight.Acked = time.Since(inFlight.Sent)
			slog.Info("Request acknowledged", "id", h.MsgID)
			inFlight = nil

		case h.IsData():
			s := reply.Status
			slog.Info("Car status", "id", s.CorrelationID, "floor", s.Floor, "motion", s.Motion)
			it, ok := byID[s.CorrelationID]
			if !ok || it.State != Acked || s.Motion != types.Stopped || s.Floor != it.Step.Floor {
				continue
			}
			it.State = Reached
			it.Reached = time.Since(it.Sent)
			reached++
			slog.Info("Request reached", "id", it.Step.ID, "floor", s.Floor, "after", it.Reached)
			for _, waiting := range items {
				if waiting.State == Reset && waiting.Step.After == it.Step.ID {
					waiting.State = ReadyToGo
				}
			}
		}
	}
	return results(), nil
}

func nextReady(items []*item) *item {
	for _, it := range items {
		if it.State == ReadyToGo {
			return it
		}
	}
	return nil
}

// Call sends one CALL and waits until the car stops at floor for it.
func (c *Client) Call(id uint16, floor uint8, dir types.Direction) (Result, error) {
	direction := "up"
	if dir == types.Down {
		direction = "down"
	}
	return c.single(Step{ID: id, Command: "call", Floor: floor, Direction: direction})
}

// Go sends one GO and waits until the car stops at floor for it.
func (c *Client) Go(id uint16, floor uint8) (Result, error) {
	return c.single(Step{ID: id, Command: "go", Floor: floor})
}

func (c *Client) single(step Step) (Result, error) {
	results, err := c.Run(Scenario{Steps: []Step{step}})
	if len(results) == 0 {
		return Result{Step: step}, err
	}
	return results[0], err
}
