package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/wire/transport"
)

var _ transport.Client = new(Client)

// Client returns the data it was initialised with piece by piece, once or in loop. It also
// tracks all the written data and may simulate a full outbound buffer, making it thereby
// a universal mock suitable for most of the tests.
type Client struct {
	closed     bool
	loop       bool
	journaling bool
	pointer    int
	capacity   int
	tmp        []byte
	written    []byte
	data       [][]byte
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data:       data,
		journaling: true,
		capacity:   -1,
	}
}

// NewNopClient returns a client reading nothing and discarding everything written.
func NewNopClient() *Client {
	return NewMockClient().Journaling(false)
}

func (c *Client) Read() (data []byte, err error) {
	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		if !c.loop || len(c.data) == 0 {
			return nil, io.EOF
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

// Write accepts the data, unless the client is closed. If the capacity is limited, only that
// many bytes are accepted and transport.ErrWouldBlock is returned.
func (c *Client) Write(p []byte) (int, error) {
	if c.closed {
		return 0, net.ErrClosed
	}

	n := len(p)
	if c.capacity >= 0 && n > c.capacity {
		n = c.capacity
	}

	if c.journaling {
		c.written = append(c.written, p[:n]...)
	}

	if c.capacity >= 0 {
		c.capacity -= n
		if n < len(p) {
			return n, transport.ErrWouldBlock
		}
	}

	return n, nil
}

func (c *Client) Conn() net.Conn {
	return Conn{}
}

func (*Client) Remote() net.Addr {
	return Addr
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

// Closed tells whether the client was closed.
func (c *Client) Closed() bool {
	return c.closed
}

// LoopReads makes the client start over once all the data is read.
func (c *Client) LoopReads() *Client {
	c.loop = true
	return c
}

func (c *Client) Journaling(flag bool) *Client {
	c.journaling = flag
	return c
}

// Capacity limits how many bytes will be accepted by writes from now on. Negative value removes
// the limit.
func (c *Client) Capacity(n int) *Client {
	c.capacity = n
	return c
}

func (c *Client) Written() string {
	if !c.journaling {
		panic("mock client: cannot access written data: journaling is disabled!")
	}

	return string(c.written)
}

// Reset forgets the written data.
func (c *Client) Reset() {
	c.written = c.written[:0]
}
