package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/indigo-web/wire"
	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/status"
)

func echo(request *http.Request, response *http.Response) error {
	switch request.Path {
	case "/":
		response.String("Hello, world!")
	case "/echo":
		response.
			Header("Content-Type", request.Headers.Value("content-type")).
			Bytes(request.Body.Bytes())
	case "/params":
		params, err := request.Params()
		if err != nil {
			return err
		}

		values := make(map[string][]string, params.Len())
		for key, value := range params.Iter() {
			values[key] = append(values[key], value)
		}

		return response.JSON(values)
	default:
		return status.ErrNotFound
	}

	return nil
}

func main() {
	addr := flag.String("addr", "localhost:8080", "address to listen on")
	cfgPath := flag.String("config", "", "path to a JSON config")
	debug := flag.Bool("debug", false, "enable debug logs")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := wire.New(*addr).
		Tune(cfg).
		Logger(logger).
		NotifyOnStart(func() {
			logger.Info("listening", "addr", *addr)
		}).
		NotifyOnStop(func() {
			logger.Info("stopped")
		}).
		Serve(ctx, echo)
	if err != nil {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}
