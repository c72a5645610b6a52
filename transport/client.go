package transport

import (
	"net"
	"time"

	"github.com/benbjohnson/clock"
)

type client struct {
	conn    net.Conn
	clock   clock.Clock
	buff    []byte
	pending []byte
	timeout time.Duration
}

// NewClient wraps the connection. Every read must complete within the timeout, the deadline is
// derived from the clock.
func NewClient(conn net.Conn, clk clock.Clock, timeout time.Duration, buff []byte) Client {
	return &client{
		conn:    conn,
		clock:   clk,
		buff:    buff,
		timeout: timeout,
	}
}

// Read reads data into the internal buffer and returns a piece of it back. Timeouts are also
// handled automatically.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if err := c.conn.SetReadDeadline(c.clock.Now().Add(c.timeout)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

// Pushback preserves a chunk of data from previous read for the next read.
func (c *client) Pushback(b []byte) {
	c.pending = b
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

// Write writes data into the underlying connection. Sockets are blocking, so ErrWouldBlock is
// never returned.
func (c *client) Write(b []byte) (int, error) {
	return c.conn.Write(b)
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}
