package requester

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"liftctl/src/types"
)

// Scenario is a list of requests sent one at a time.
//
//	node: 0x0001
//	steps:
//	  - {id: 1, command: call, floor: 5, direction: up}
//	  - {id: 2, command: go, floor: 2, after: 1}
type Scenario struct {
	Node       uint16 `yaml:"node"`
	Controller uint16 `yaml:"controller"`
	Steps      []Step `yaml:"steps"`
}

// Step is one request. A step with After set waits until that step has reached its floor.
type Step struct {
	ID        uint16 `yaml:"id"`
	Command   string `yaml:"command"`
	Floor     uint8  `yaml:"floor"`
	Direction string `yaml:"direction"`
	TimeTag   uint64 `yaml:"timetag"`
	After     uint16 `yaml:"after"`
}

func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	return sc, sc.Validate()
}

func (sc Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	ids := make(map[uint16]bool, len(sc.Steps))
	var errs []error
	for _, step := range sc.Steps {
		if ids[step.ID] {
			errs = append(errs, fmt.Errorf("step %d: duplicate id", step.ID))
		}
		ids[step.ID] = true
		if _, err := step.command(); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", step.ID, err))
		}
		if _, err := step.direction(); err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", step.ID, err))
		}
	}
	for _, step := range sc.Steps {
		if step.After != 0 && (!ids[step.After] || step.After == step.ID) {
			errs = append(errs, fmt.Errorf("step %d: waits for unknown step %d", step.ID, step.After))
		}
	}
	return errors.Join(errs...)
}

func (s Step) command() (types.Command, error) {
	switch strings.ToLower(s.Command) {
	case "call":
		return types.Call, nil
	case "go":
		return types.Go, nil
	}
	return 0, fmt.Errorf("unknown command %q", s.Command)
}

// direction is zero for GO, the controller picks it.
func (s Step) direction() (types.Direction, error) {
	switch strings.ToLower(s.Direction) {
	case "up":
		return types.Up, nil
	case "down":
		return types.Down, nil
	case "":
		if strings.EqualFold(s.Command, "go") {
			return 0, nil
		}
	}
	return 0, fmt.Errorf("bad direction %q for %s", s.Direction, s.Command)
}
