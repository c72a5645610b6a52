package wire

import (
	"context"
	"io"
	"log/slog"
	"net"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestApp(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.NET.AcceptLoopInterruptPeriod = 20 * time.Millisecond
	cfg.Headers.Default["Server"] = "wire"

	started := make(chan struct{})
	var stopped bool

	app := New().
		Listener(l).
		Tune(cfg).
		Logger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		NotifyOnStart(func() {
			close(started)
		}).
		NotifyOnStop(func() {
			stopped = true
		})

	ctx, cancel := context.WithCancel(context.Background())
	errch := make(chan error, 1)
	go func() {
		errch <- app.Serve(ctx, func(request *http.Request, response *http.Response) error {
			response.String(request.Method.String() + " " + request.Path + " " + request.Body.String())
			return nil
		})
	}()

	<-started

	transport := &stdhttp.Transport{}
	client := &stdhttp.Client{Transport: transport}
	url := "http://" + l.Addr().String()

	resp, err := client.Post(url+"/echo", "text/plain", strings.NewReader("Hello"))
	require.NoError(t, err)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	require.Equal(t, "wire", resp.Header.Get("Server"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "POST /echo Hello", string(body))

	resp, err = client.Get(url + "/")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "GET / ", string(body))

	transport.CloseIdleConnections()
	cancel()
	require.NoError(t, <-errch)
	require.True(t, stopped)
}

func TestAppBindFailure(t *testing.T) {
	passed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = passed.Close()
	}()

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = occupied.Close()
	}()

	app := New(occupied.Addr().String()).
		Listener(passed).
		Logger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	err = app.Serve(context.Background(), func(*http.Request, *http.Response) error {
		return nil
	})
	require.Error(t, err)
	require.Len(t, app.listeners, 1)

	// the listener passed by the caller must stay open
	conn, err := net.Dial("tcp", passed.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
