package transport

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/indigo-web/wire/config"
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

type TCP struct {
	l     net.Listener
	clock clock.Clock
	wg    *sync.WaitGroup
	stop  *atomic.Bool
}

func NewTCP(clk clock.Clock) *TCP {
	return &TCP{
		clock: clk,
		wg:    new(sync.WaitGroup),
		stop:  new(atomic.Bool),
	}
}

// NewTCPFromListener returns a transport serving an already bound listener. If the listener
// doesn't support deadlines, Stop closes it in order to interrupt the pending Accept.
func NewTCPFromListener(l net.Listener, clk clock.Clock) *TCP {
	t := NewTCP(clk)
	t.l = l
	return t
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = net.Listen("tcp", addr)
	return err
}

// Addr returns the address the transport is bound to.
func (t *TCP) Addr() net.Addr {
	return t.l.Addr()
}

func (t *TCP) Listen(cfg config.NET, cb func(conn net.Conn)) error {
	dl, interruptible := t.l.(deadliner)

	for !t.stop.Load() {
		if interruptible {
			err := dl.SetDeadline(t.clock.Now().Add(cfg.AcceptLoopInterruptPeriod))
			if err != nil {
				return err
			}
		}

		conn, err := t.l.Accept()
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
				continue
			case t.stop.Load() && errors.Is(err, net.ErrClosed):
				return nil
			}

			return err
		}

		t.wg.Add(1)
		go func(conn net.Conn) {
			defer t.wg.Done()
			cb(conn)
			_ = conn.Close()
		}(conn)
	}

	return nil
}

func (t *TCP) Stop() {
	t.stop.Store(true)

	if _, ok := t.l.(deadliner); !ok {
		t.Close()
	}
}

func (t *TCP) Close() {
	_ = t.l.Close()
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
