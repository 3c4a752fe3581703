//go:build unix

// Package tcp multiplexes many TCP connections on one goroutine with poll(2)
// and hands ready connections to callbacks running on their own goroutines.
package tcp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/libp2p/go-reuseport"
	"golang.org/x/sys/unix"
)

var ErrClosed = errors.New("connection closed")

// Stopper is polled once per loop iteration.
type Stopper interface {
	Stopped() bool
}

type Callback func(*Conn)

type Listener struct {
	addr        string
	pollTimeout time.Duration

	ln   *net.TCPListener
	lnFd int

	onAccept Callback
	onRead   Callback
	onClose  Callback

	peers   *peerSet
	staleMu sync.Mutex
	stale   []*Conn

	callbacks sync.WaitGroup
}

func New(addr string, pollTimeout time.Duration) *Listener {
	return &Listener{
		addr:        addr,
		pollTimeout: pollTimeout,
		lnFd:        -1,
		peers:       newPeerSet(),
	}
}

// Callbacks must be set before Serve.
func (l *Listener) OnAccept(fn Callback) { l.onAccept = fn }
func (l *Listener) OnRead(fn Callback)   { l.onRead = fn }
func (l *Listener) OnClose(fn Callback)  { l.onClose = fn }

// Listen binds the address with SO_REUSEADDR and SO_REUSEPORT set.
func (l *Listener) Listen() error {
	ln, err := reuseport.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return fmt.Errorf("listen %s: not a TCP listener", l.addr)
	}
	raw, err := tcpLn.SyscallConn()
	if err != nil {
		tcpLn.Close()
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	if err := raw.Control(func(fd uintptr) { l.lnFd = int(fd) }); err != nil {
		tcpLn.Close()
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	l.ln = tcpLn
	slog.Info("Listening", "addr", tcpLn.Addr())
	return nil
}

// Addr is the bound address, nil before Listen.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Live is the number of registered connections.
func (l *Listener) Live() int {
	return l.peers.len()
}

// Serve runs the poll loop until stopper is stopped.
//   - waits for every callback still running
//   - then closes all connections and the listening socket
func (l *Listener) Serve(stopper Stopper) error {
	if l.ln == nil {
		return errors.New("serve before listen")
	}
	defer l.shutdown()

	timeoutMs := int(l.pollTimeout.Milliseconds())
	for !stopper.Stopped() {
		conns := l.peers.pollable()
		fds := make([]unix.PollFd, 0, len(conns)+1)
		fds = append(fds, unix.PollFd{Fd: int32(l.lnFd), Events: unix.POLLIN})
		for _, c := range conns {
			fds = append(fds, unix.PollFd{Fd: int32(c.fd), Events: unix.POLLIN})
		}

		n, err := unix.Poll(fds, timeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n > 0 {
			if fds[0].Revents&unix.POLLIN != 0 {
				l.accept()
			}
			for i, c := range conns {
				if fds[i+1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
					l.readable(c)
				}
			}
		}
		l.reap()
	}
	return nil
}

func (l *Listener) accept() {
	tcpConn, err := l.ln.AcceptTCP()
	if err != nil {
		slog.Warn("Accept failed", "error", err)
		return
	}
	c, err := newConn(l, tcpConn)
	if err != nil {
		slog.Warn("Dropping connection", "remote", tcpConn.RemoteAddr(), "error", err)
		tcpConn.Close()
		return
	}
	l.peers.add(c)
	slog.Debug("Connection accepted", "conn", c, "live", l.peers.len())
	l.dispatch(l.onAccept, c)
}

func (l *Listener) readable(c *Conn) {
	alive, hasData := c.peek()
	switch {
	case !alive:
		c.markStale()
	case hasData && l.onRead != nil:
		c.busy.Store(true)
		l.callbacks.Add(1)
		go func() {
			defer l.callbacks.Done()
			defer c.busy.Store(false)
			l.onRead(c)
		}()
	}
}

func (l *Listener) dispatch(fn Callback, c *Conn) {
	if fn == nil {
		return
	}
	l.callbacks.Add(1)
	go func() {
		defer l.callbacks.Done()
		fn(c)
	}()
}

func (l *Listener) queueStale(c *Conn) {
	l.staleMu.Lock()
	defer l.staleMu.Unlock()
	l.stale = append(l.stale, c)
}

// reap tears down connections marked stale since the last iteration.
func (l *Listener) reap() {
	l.staleMu.Lock()
	stale := l.stale
	l.stale = nil
	l.staleMu.Unlock()

	for _, c := range stale {
		l.peers.remove(c)
		if c.close() {
			slog.Debug("Connection closed", "conn", c, "live", l.peers.len())
			l.dispatch(l.onClose, c)
		}
	}
}

func (l *Listener) shutdown() {
	l.callbacks.Wait()
	l.reap()
	for _, c := range l.peers.drain() {
		if c.close() {
			l.dispatch(l.onClose, c)
		}
	}
	l.callbacks.Wait()
	l.Close()
	slog.Info("Listener stopped", "addr", l.addr)
}

// Close releases the listening socket. Serve closes it on return.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
