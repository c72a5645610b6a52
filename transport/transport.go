package transport

import (
	"errors"
	"io"
	"net"
)

// ErrWouldBlock is returned by writes, when the outbound buffer of the connection is full. The
// returned count tells how much was accepted nevertheless. The rest must be retried as soon as
// the connection becomes writable again.
var ErrWouldBlock = errors.New("transport: write would block")

// Conn is the outbound side of a connection, as the protocol sees it.
type Conn interface {
	io.WriteCloser
	Remote() net.Addr
}

// Client is a connection, reads from which are driven by the owner. Read returns a piece of an
// internal buffer, which is valid until the next call.
type Client interface {
	Conn
	Read() ([]byte, error)
	Pushback([]byte)
	Conn() net.Conn
}
