//go:build unix

// Package system assembles the controller: car, dispatcher, listener and protocol
// joined by a request bus and a status bus.
package system

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"liftctl/lib/network-go/tcp"
	"liftctl/src/bus"
	"liftctl/src/config"
	"liftctl/src/dispatcher"
	"liftctl/src/elev"
	"liftctl/src/network"
	"liftctl/src/task"
	"liftctl/src/types"
)

type System struct {
	cfg        config.Config
	task       *task.Task
	dispatcher *dispatcher.Dispatcher
	listener   *tcp.Listener
	protocol   *network.Protocol

	loops sync.WaitGroup
	mu    sync.Mutex
	err   error
}

// New wires the components without starting anything. A nil driver logs only.
func New(cfg config.Config, driver elev.Driver) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	requests := bus.New[types.Request]()
	status := bus.New[types.Status]()

	car := elev.NewCar(driver, elev.Timing{
		FloorTravel: cfg.Car.FloorTravel,
		DoorHold:    cfg.Car.DoorHold,
	})
	d := dispatcher.New(dispatcher.Settings{WaitTimeout: cfg.Dispatch.WaitTimeout}, car, status)
	requests.Subscribe(d.Submit)

	listener := tcp.New(cfg.ListenAddr(), cfg.Network.PollTimeout)
	return &System{
		cfg:        cfg,
		task:       task.New(),
		dispatcher: d,
		listener:   listener,
		protocol:   network.NewProtocol(cfg.Network.NodeAddress, listener, requests, status),
	}, nil
}

// Start binds the listening socket, then runs the dispatch and listener loops.
func (s *System) Start() error {
	if err := s.listener.Listen(); err != nil {
		return err
	}

	s.loops.Add(2)
	go func() {
		defer s.loops.Done()
		s.dispatcher.Run(s.task)
	}()
	go func() {
		defer s.loops.Done()
		if err := s.protocol.Run(s.task); err != nil {
			slog.Error("Listener failed", "error", err)
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.task.Stop()
		}
	}()
	slog.Info("Controller started", "addr", s.Addr(), "node", fmt.Sprintf("0x%04X", s.cfg.Network.NodeAddress))
	return nil
}

// Stop asks both loops to finish. Wait blocks until they have.
func (s *System) Stop() {
	s.task.Stop()
}

// Wait returns the listener error that stopped the system, if any.
func (s *System) Wait() error {
	s.loops.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *System) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *System) Dispatcher() *dispatcher.Dispatcher {
	return s.dispatcher
}
