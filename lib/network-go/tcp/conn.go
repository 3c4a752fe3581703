//go:build unix

package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const readChunk = 4096

// Conn is one accepted connection. Reads never block, writes do.
type Conn struct {
	id   uuid.UUID
	conn *net.TCPConn
	raw  syscall.RawConn
	fd   int
	l    *Listener

	busy      atomic.Bool
	stale     atomic.Bool
	closeOnce sync.Once
}

func newConn(l *Listener, conn *net.TCPConn) (*Conn, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	c := &Conn{id: uuid.New(), conn: conn, raw: raw, l: l, fd: -1}
	if err := raw.Control(func(fd uintptr) { c.fd = int(fd) }); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) ID() uuid.UUID { return c.id }

func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Conn) String() string {
	return fmt.Sprintf("%s(%s)", c.id.String()[:8], c.conn.RemoteAddr())
}

// Read returns every byte currently buffered for the connection, possibly none.
// End of stream or a socket error marks the connection stale.
func (c *Conn) Read() ([]byte, error) {
	if c.stale.Load() {
		return nil, ErrClosed
	}

	var (
		out     []byte
		readErr error
	)
	buf := make([]byte, readChunk)
	err := c.raw.Control(func(fd uintptr) {
		for {
			n, err := unix.Read(int(fd), buf)
			switch {
			case errors.Is(err, unix.EINTR):
				continue
			case errors.Is(err, unix.EAGAIN):
				return
			case err != nil:
				readErr = err
				return
			case n == 0:
				readErr = io.EOF
				return
			}
			out = append(out, buf[:n]...)
		}
	})
	if err == nil {
		err = readErr
	}
	if err != nil {
		c.markStale()
		if len(out) > 0 {
			return out, nil
		}
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	return out, nil
}

// Write sends b in full. On failure the connection is torn down by the listener.
func (c *Conn) Write(b []byte) (int, error) {
	if c.stale.Load() {
		return 0, ErrClosed
	}
	n, err := c.conn.Write(b)
	if err != nil {
		c.markStale()
		return n, fmt.Errorf("write %s: %w", c, err)
	}
	return n, nil
}

// peek reports whether the peer is still there. EAGAIN counts as alive with no data.
func (c *Conn) peek() (alive, readable bool) {
	var buf [1]byte
	var n int
	var peekErr error
	if err := c.raw.Control(func(fd uintptr) {
		n, _, peekErr = unix.Recvfrom(int(fd), buf[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
	}); err != nil {
		return false, false
	}
	switch {
	case errors.Is(peekErr, unix.EAGAIN):
		return true, false
	case peekErr != nil, n == 0:
		return false, false
	}
	return true, true
}

func (c *Conn) markStale() {
	if c.stale.CompareAndSwap(false, true) {
		c.l.queueStale(c)
	}
}

// close reports whether this call closed the connection.
func (c *Conn) close() bool {
	closed := false
	c.closeOnce.Do(func() {
		c.stale.Store(true)
		c.conn.Close()
		closed = true
	})
	return closed
}
