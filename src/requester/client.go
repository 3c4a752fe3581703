// Package requester is the client side of the controller protocol. It sends CALL and GO
// requests and follows each one until the car stops at its floor.
package requester

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"liftctl/src/network"
	"liftctl/src/types"
)

var (
	ErrNacked  = errors.New("request rejected by controller")
	ErrTimeout = errors.New("timed out waiting for controller")
)

type State int

const (
	Reset State = iota
	ReadyToGo
	InProgress
	Acked
	Nacked
	Reached
)

func (s State) String() string {
	switch s {
	case Reset:
		return "RESET"
	case ReadyToGo:
		return "READY2GO"
	case InProgress:
		return "IN_PROGRESS"
	case Acked:
		return "ACKED"
	case Nacked:
		return "NACKED"
	case Reached:
		return "REACHED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Client holds one connection to the controller. It is not safe for concurrent use.
type Client struct {
	conn       net.Conn
	node       uint16
	controller uint16
	timeout    time.Duration

	replies chan network.Reply
	readErr error // set before replies is closed
}

type Options struct {
	Node       uint16
	Controller uint16
	// Timeout bounds each wait for an ACK or a status frame.
	Timeout time.Duration
}

func Dial(addr string, opts Options) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial controller %s: %w", addr, err)
	}
	if opts.Controller == 0 {
		opts.Controller = network.NodeAddress
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{
		conn:       conn,
		node:       opts.Node,
		controller: opts.Controller,
		timeout:    opts.Timeout,
		replies:    make(chan network.Reply, 64),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readLoop() {
	r := bufio.NewReader(c.conn)
	for {
		reply, err := network.ReadFrame(r)
		if err != nil {
			c.readErr = err
			close(c.replies)
			return
		}
		c.replies <- reply
	}
}

// next waits for the next frame from the controller.
func (c *Client) next() (network.Reply, error) {
	select {
	case reply, ok := <-c.replies:
		if !ok {
			return network.Reply{}, fmt.Errorf("connection lost: %w", c.readErr)
		}
		return reply, nil
	case <-time.After(c.timeout):
		return network.Reply{}, ErrTimeout
	}
}

func (c *Client) send(id uint16, timeTag uint64, cmd types.Command, floor uint8, dir types.Direction) error {
	frame := network.EncodeRequest(network.RequestFrame{
		Tx:        c.node,
		Rx:        c.controller,
		MsgID:     id,
		TimeTag:   timeTag,
		Command:   cmd,
		Floor:     floor,
		Direction: dir,
	})
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("send request %d: %w", id, err)
	}
	slog.Debug("Request sent", "id", id, "command", cmd, "floor", floor, "direction", dir)
	return nil
}
