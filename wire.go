package wire

import (
	"context"
	"log/slog"
	"net"
	"slices"

	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/connector"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/internal/strutil"
	"github.com/indigo-web/wire/lifecycle"
	"github.com/pkg/errors"
)

// App is the entrypoint. It binds the addresses and serves every connection with its own
// engine, dispatching fully received requests to the service.
type App struct {
	addrs     []string
	listeners []net.Listener
	cfg       *config.Config
	logger    *slog.Logger
	upgrader  connector.Upgrader
	hooks     []hook
}

type hook struct {
	event lifecycle.Event
	cb    func()
}

// New returns a new App instance. At least one address or listener must be provided before
// serving.
func New(addrs ...string) *App {
	normalized := make([]string, len(addrs))
	for i, addr := range addrs {
		normalized[i] = strutil.NormalizeAddress(addr)
	}

	return &App{
		addrs:  normalized,
		cfg:    config.Default(),
		logger: slog.Default(),
	}
}

// Tune replaces the default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

func (a *App) Logger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// Listener adds an already bound listener to serve on.
func (a *App) Listener(l net.Listener) *App {
	a.listeners = append(a.listeners, l)
	return a
}

// Upgrade sets the handler taking over connections which switched protocols.
func (a *App) Upgrade(upgrader connector.Upgrader) *App {
	a.upgrader = upgrader
	return a
}

// NotifyOnStart calls the callback at the moment, when all the listeners are started. However,
// it isn't strongly guaranteed that they'll be able to accept new connections immediately.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks = append(a.hooks, hook{event: lifecycle.Start, cb: cb})
	return a
}

// NotifyOnStop calls the callback at the moment, when all the listeners are down and all the
// clients are disconnected.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks = append(a.hooks, hook{event: lifecycle.Stop, cb: cb})
	return a
}

// Serve runs the application until the context is done.
func (a *App) Serve(ctx context.Context, service http.Service) error {
	c := connector.New(a.cfg).
		Service(service).
		Upgrade(a.upgrader).
		Logger(a.logger)

	for _, h := range a.hooks {
		c.Lifecycle().Add(func(event lifecycle.Event, _ any) {
			if event == h.event {
				h.cb()
			}
		})
	}

	if len(a.listeners) == 0 {
		return c.Serve(ctx, a.addrs...)
	}

	bound := make([]net.Listener, 0, len(a.addrs))
	for _, addr := range a.addrs {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			closeAll(bound)
			return errors.Wrapf(err, "bind %s", addr)
		}

		bound = append(bound, l)
	}

	return c.ServeListener(ctx, append(slices.Clip(a.listeners), bound...)...)
}

func closeAll(listeners []net.Listener) {
	for _, l := range listeners {
		_ = l.Close()
	}
}
