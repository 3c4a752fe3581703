//go:build unix

package network

import (
	"errors"
	"log/slog"
	"sync"

	"liftctl/lib/network-go/tcp"
	"liftctl/src/bus"
	"liftctl/src/task"
	"liftctl/src/types"
)

// Protocol joins the listener to the buses.
//   - decoded requests are published on the request bus
//   - status values are framed and sent to the connection the request came from
type Protocol struct {
	node     uint16
	listener *tcp.Listener
	requests *bus.Bus[types.Request]

	mu     sync.Mutex
	routes map[uint16]*tcp.Conn
	last   *tcp.Conn
}

func NewProtocol(node uint16, listener *tcp.Listener, requests *bus.Bus[types.Request], status *bus.Bus[types.Status]) *Protocol {
	p := &Protocol{
		node:     node,
		listener: listener,
		requests: requests,
		routes:   make(map[uint16]*tcp.Conn),
	}
	listener.OnAccept(p.accept)
	listener.OnRead(p.read)
	listener.OnClose(p.close)
	status.Subscribe(p.sendStatus)
	return p
}

// Run serves connections until t is stopped.
func (p *Protocol) Run(t *task.Task) error {
	return p.listener.Serve(t)
}

func (p *Protocol) accept(c *tcp.Conn) {
	slog.Info("Requester connected", "conn", c)
	p.mu.Lock()
	p.last = c
	p.mu.Unlock()
}

func (p *Protocol) read(c *tcp.Conn) {
	data, err := c.Read()
	if err != nil {
		slog.Debug("Read failed", "conn", c, "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	req, err := Decode(c, data)
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			slog.Warn("Frame rejected", "conn", c, "error", err)
		} else {
			slog.Error("Reply failed", "conn", c, "error", err)
		}
		return
	}

	p.mu.Lock()
	p.routes[req.Node] = c
	p.mu.Unlock()

	slog.Debug("Request received", "conn", c, "request", req)
	if err := p.requests.Publish(req); err != nil {
		slog.Warn("Request refused", "request", req, "id", req.CorrelationID, "error", err)
	}
}

func (p *Protocol) close(c *tcp.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for node, conn := range p.routes {
		if conn == c {
			delete(p.routes, node)
		}
	}
	if p.last == c {
		p.last = nil
	}
	slog.Info("Requester disconnected", "conn", c)
}

// route prefers the connection the node last sent from, then the newest connection.
func (p *Protocol) route(node uint16) *tcp.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.routes[node]; ok {
		return c
	}
	return p.last
}

func (p *Protocol) sendStatus(s types.Status) error {
	c := p.route(s.Node)
	if c == nil {
		slog.Debug("No route for status", "node", s.Node, "floor", s.Floor, "motion", s.Motion)
		return nil
	}
	if _, err := c.Write(EncodeStatus(p.node, s)); err != nil {
		return err
	}
	slog.Debug("Status sent", "conn", c, "floor", s.Floor, "motion", s.Motion)
	return nil
}
