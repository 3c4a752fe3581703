package requester

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"liftctl/src/network"
	"liftctl/src/types"
	"liftctl/src/utils"
)

func init() {
	utils.SilenceLogger()
}

// fakeController answers every request with ACK (or NAK when nak is set), then
// reports the car moving and stopping at the requested floor.
type fakeController struct {
	mu   sync.Mutex
	seen []types.Request
	nak  bool
}

func (f *fakeController) start(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			frame := make([]byte, network.WireSize)
			if _, err := io.ReadFull(conn, frame); err != nil {
				return
			}
			if f.nak {
				frame[0] = 0
			}
			req, err := network.Decode(conn, frame)
			if err != nil {
				continue
			}
			f.mu.Lock()
			f.seen = append(f.seen, req)
			f.mu.Unlock()
			for _, motion := range []types.Motion{types.Moving, types.Stopped} {
				conn.Write(network.EncodeStatus(network.NodeAddress, types.Status{
					Node: req.Node, CorrelationID: req.CorrelationID,
					Code: types.StatusPositionUpdate, Floor: req.Floor, Motion: motion,
				}))
			}
		}
	}()
	return ln.Addr().String()
}

func (f *fakeController) ids() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint16
	for _, req := range f.seen {
		ids = append(ids, req.CorrelationID)
	}
	return ids
}

func dialFake(t *testing.T, f *fakeController) *Client {
	t.Helper()
	c, err := Dial(f.start(t), Options{Node: 0x0001, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRunReleasesLinkedGo(t *testing.T) {
	f := &fakeController{}
	c := dialFake(t, f)

	results, err := c.Run(Scenario{Steps: []Step{
		{ID: 2, Command: "go", Floor: 1, After: 1},
		{ID: 1, Command: "call", Floor: 3, Direction: "up"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.State != Reached {
			t.Errorf("Step %d ended in %v", r.Step.ID, r.State)
		}
	}
	if ids := f.ids(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Expected CALL before GO, got %v", ids)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[0].Direction != types.Up || f.seen[1].Command != types.Go {
		t.Errorf("Unexpected requests %v", f.seen)
	}
}

func TestRunStopsOnNak(t *testing.T) {
	f := &fakeController{nak: true}
	c := dialFake(t, f)

	result, err := c.Call(4, 2, types.Down)
	if !errors.Is(err, ErrNacked) {
		t.Fatalf("Expected ErrNacked, got %v", err)
	}
	if result.State != Nacked {
		t.Errorf("Expected NACKED, got %v", result.State)
	}
}

func TestRunTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			io.Copy(io.Discard, conn)
		}
	}()

	c, err := Dial(ln.Addr().String(), Options{Node: 1, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Go(1, 3); !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	os.WriteFile(path, []byte(`
node: 0x0002
steps:
  - {id: 1, command: call, floor: 5, direction: up}
  - {id: 2, command: go, floor: 2, after: 1}
`), 0o644)

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Node != 2 || len(sc.Steps) != 2 || sc.Steps[1].After != 1 {
		t.Errorf("Unexpected scenario %+v", sc)
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
	}{
		{"empty", nil},
		{"duplicate id", []Step{{ID: 1, Command: "go"}, {ID: 1, Command: "go"}}},
		{"unknown command", []Step{{ID: 1, Command: "jump"}}},
		{"call without direction", []Step{{ID: 1, Command: "call", Floor: 2}}},
		{"unknown after", []Step{{ID: 1, Command: "go", After: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := (Scenario{Steps: tt.steps}).Validate(); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}
