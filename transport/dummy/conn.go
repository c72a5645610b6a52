package dummy

import (
	"io"
	"net"
	"time"
)

// Conn is a net.Conn, reading nothing and discarding everything written.
type Conn struct{}

func (Conn) Read([]byte) (n int, err error) {
	return 0, io.EOF
}

func (Conn) Write(b []byte) (n int, err error) {
	return len(b), nil
}

func (Conn) Close() error {
	return nil
}

func (Conn) LocalAddr() net.Addr {
	return Addr
}

func (Conn) RemoteAddr() net.Addr {
	return Addr
}

func (Conn) SetDeadline(time.Time) error {
	return nil
}

func (Conn) SetReadDeadline(time.Time) error {
	return nil
}

func (Conn) SetWriteDeadline(time.Time) error {
	return nil
}

// Addr is the address all dummy connections report.
var Addr net.Addr = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
