package transport

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/indigo-web/wire/config"
)

type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, cb func(conn net.Conn)) error
	Stop()
	Close()
	Wait()
}

// Supervisor runs a group of transports. As soon as one of them fails or the context is
// done, all the others are stopped too.
type Supervisor struct {
	stopped *atomic.Bool
	onStop  func()
	ts      []boundTransport
}

func NewSupervisor() Supervisor {
	return Supervisor{
		stopped: new(atomic.Bool),
	}
}

// Add binds the transport. If binding fails, all previously added transports are closed.
func (s *Supervisor) Add(addr string, transport Transport, cb func(net.Conn)) error {
	if err := transport.Bind(addr); err != nil {
		s.close()
		return err
	}

	s.ts = append(s.ts, boundTransport{
		cb: cb,
		t:  transport,
	})

	return nil
}

// OnStop sets the callback, called once transports stopped accepting, but before their
// connections are waited for. It's the place to interrupt connections blocked on reads.
func (s *Supervisor) OnStop(cb func()) {
	s.onStop = cb
}

// AddBound registers a transport, which is already bound.
func (s *Supervisor) AddBound(transport Transport, cb func(net.Conn)) {
	s.ts = append(s.ts, boundTransport{
		cb: cb,
		t:  transport,
	})
}

// Run blocks until either the context is done or any of the transports fails. Transports are
// stopped and all their connections are waited for before returning.
func (s *Supervisor) Run(ctx context.Context, cfg config.NET) error {
	if len(s.ts) == 0 {
		return nil
	}

	errch := make(chan error, len(s.ts))

	for _, t := range s.ts {
		go func(t boundTransport) {
			errch <- t.t.Listen(cfg, t.cb)
		}(t)
	}

	select {
	case err := <-errch:
		s.stop()
		drain(errch, len(s.ts)-1)

		return err
	case <-ctx.Done():
		s.stop()
		drain(errch, len(s.ts))

		return nil
	}
}

func (s *Supervisor) stop() {
	if s.stopped.Swap(true) {
		return
	}

	for _, t := range s.ts {
		t.t.Stop()
	}

	if s.onStop != nil {
		s.onStop()
	}

	for _, t := range s.ts {
		t.t.Wait()
		t.t.Close()
	}
}

func (s *Supervisor) close() {
	for _, t := range s.ts {
		t.t.Close()
	}
}

type boundTransport struct {
	cb func(conn net.Conn)
	t  Transport
}

func drain(ch <-chan error, n int) {
	for range n {
		<-ch
	}
}
