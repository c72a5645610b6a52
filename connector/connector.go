package connector

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/protocol/http1"
	"github.com/indigo-web/wire/lifecycle"
	"github.com/indigo-web/wire/transport"
	"github.com/pkg/errors"
)

// Upgrader takes over a connection, whose exchange switched protocols. It's called on the
// connection's own goroutine and the connection is closed as soon as it returns. For TCP
// connections, conn is a transport.Client, so the underlying net.Conn is reachable.
type Upgrader func(request *http.Request, conn transport.Conn, rest []byte)

// Connector instantiates connection engines and dispatches their requests to the service.
// Without a service, channels are left to the caller to be driven manually.
type Connector struct {
	cfg      *config.Config
	service  http.Service
	upgrader Upgrader
	logger   *slog.Logger
	clock    clock.Clock
	events   lifecycle.Support

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
}

func New(cfg *config.Config) *Connector {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Connector{
		cfg:    cfg,
		logger: slog.Default(),
		clock:  clock.New(),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Service installs the handler, called for every fully received request.
func (c *Connector) Service(service http.Service) *Connector {
	c.service = service
	return c
}

// Upgrade installs the handler for connections switching protocols.
func (c *Connector) Upgrade(upgrader Upgrader) *Connector {
	c.upgrader = upgrader
	return c
}

func (c *Connector) Logger(logger *slog.Logger) *Connector {
	c.logger = logger
	return c
}

// Clock replaces the clock used for read and accept deadlines.
func (c *Connector) Clock(clk clock.Clock) *Connector {
	c.clock = clk
	return c
}

// Lifecycle returns the registry of lifecycle listeners.
func (c *Connector) Lifecycle() *lifecycle.Support {
	return &c.events
}

// Open creates an engine writing into out. The connector becomes its dispatcher.
func (c *Connector) Open(out transport.Conn) *http1.Conn {
	return http1.New(c.cfg, out, c, c.logger.With("remote", out.Remote()))
}

// Active returns the channel of the connection currently being processed, or nil.
func (c *Connector) Active(conn *http1.Conn) *http.Channel {
	return conn.Active()
}

// Created implements http1.Dispatcher.
func (c *Connector) Created(ch *http.Channel) {
	if c.service == nil {
		return
	}

	ch.OnRequestCompleted(func(ch *http.Channel, err error) {
		if err != nil {
			c.logger.Debug("exchange failed", "error", err)
		}

		if c.handsOver(ch, err) {
			// released after the hand-off
			return
		}

		ch.Release()
	})
}

// Ready implements http1.Dispatcher.
func (c *Connector) Ready(ch *http.Channel) {
	if c.service == nil {
		return
	}

	if err := c.call(ch); err != nil {
		ch.Fail(err)
		ch.Response().ResetToError(err)
	}

	if err := ch.Finish(); err != nil {
		c.logger.Debug("failed to send response", "error", err)
		return
	}

	if c.handsOver(ch, ch.Err()) && ch.State() == http.Done {
		c.handOver(ch)
	}
}

func (c *Connector) handsOver(ch *http.Channel, err error) bool {
	return err == nil && c.upgrader != nil && ch.Response().Code == status.SwitchingProtocols
}

func (c *Connector) handOver(ch *http.Channel) {
	defer ch.Release()

	out, rest, err := ch.Hijack()
	if err != nil {
		c.logger.Warn("failed to hand the connection over", "error", err)
		return
	}

	c.upgrader(ch.Request(), out, rest)
}

func (c *Connector) call(ch *http.Channel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("service panicked", "panic", r)
			err = errors.Errorf("service panicked: %v", r)
		}
	}()

	return c.service(ch.Request(), ch.Response())
}

// Handle drives the connection until it's closed by either side or hijacked. Reading errors
// caused by the peer closing the connection or timing out are not reported.
func (c *Connector) Handle(client transport.Client) error {
	remote := client.Remote()
	conn := c.Open(client)
	c.events.Fire(lifecycle.ConnOpen, remote)
	defer c.events.Fire(lifecycle.ConnClose, remote)

	for !conn.Closed() && !conn.Hijacked() {
		data, err := client.Read()
		if len(data) > 0 {
			conn.Feed(data)
		}

		if err == nil {
			continue
		}

		conn.CloseInput()
		if !conn.Closed() && !conn.Hijacked() {
			conn.Close()
		}

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, os.ErrDeadlineExceeded):
			return nil
		default:
			return errors.Wrap(err, "read")
		}
	}

	return nil
}

// Serve binds all the addresses and serves them until the context is done or any of them
// fails. Connections are closed before returning.
func (c *Connector) Serve(ctx context.Context, addrs ...string) error {
	sv := transport.NewSupervisor()

	for _, addr := range addrs {
		if err := sv.Add(addr, transport.NewTCP(c.clock), c.onConn); err != nil {
			return errors.Wrapf(err, "bind %s", addr)
		}
	}

	return c.run(ctx, &sv)
}

// ServeListener is like Serve, but for already bound listeners.
func (c *Connector) ServeListener(ctx context.Context, listeners ...net.Listener) error {
	sv := transport.NewSupervisor()

	for _, l := range listeners {
		sv.AddBound(transport.NewTCPFromListener(l, c.clock), c.onConn)
	}

	return c.run(ctx, &sv)
}

func (c *Connector) run(ctx context.Context, sv *transport.Supervisor) error {
	c.mu.Lock()
	c.closing = false
	c.mu.Unlock()

	sv.OnStop(c.closeConns)
	c.events.Fire(lifecycle.BeforeStart, nil)
	c.events.Fire(lifecycle.Start, nil)
	err := sv.Run(ctx, c.cfg.NET)
	c.events.Fire(lifecycle.Stop, nil)

	return err
}

func (c *Connector) onConn(conn net.Conn) {
	if !c.track(conn) {
		return
	}

	defer c.untrack(conn)

	client := transport.NewClient(conn, c.clock, c.cfg.NET.ReadTimeout, make([]byte, c.cfg.NET.ReadBufferSize))
	if err := c.Handle(client); err != nil {
		c.logger.Warn("connection failed", "remote", conn.RemoteAddr(), "error", err)
	}
}

func (c *Connector) track(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return false
	}

	c.conns[conn] = struct{}{}
	return true
}

func (c *Connector) untrack(conn net.Conn) {
	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
}

// closeConns interrupts all the connections. They're untracked by their own goroutines.
func (c *Connector) closeConns() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	for conn := range c.conns {
		_ = conn.Close()
	}
}
