package http1

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/method"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/buffer"
	"github.com/indigo-web/wire/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest() *http.Request {
	return http.NewRequest(kv.NewInsensitive(), http.NewStream(0))
}

func parse(t *testing.T, cfg *config.Config, head string) (*http.Request, *buffer.Buffer, error) {
	t.Helper()

	request := newRequest()
	raw := buffer.Wrap(head)
	err := NewParser(cfg).Parse(request, raw)

	return request, raw, err
}

func BenchmarkParser(b *testing.B) {
	parser := NewParser(config.Default())
	request := newRequest()
	data := "GET /" + strings.Repeat("a", 500) + " HTTP/1.1\r\n" + generateHeaders(10) + "\r\n"
	head := buffer.New(len(data))
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		head.Reset()
		head.AppendString(data)
		_ = parser.Parse(request, head)
		request.Reset()
	}
}

func generateHeaders(n int) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "Header-%d: %s\r\n", i, uniuri.NewLen(16))
	}

	return b.String()
}

func TestParser(t *testing.T) {
	t.Run("request line", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET /hello?a=b&c=d HTTP/1.1\r\nHost: localhost\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, method.GET, request.Method)
		assert.Equal(t, "/hello", request.Path)
		assert.Equal(t, "a=b&c=d", request.Query)
		assert.Equal(t, proto.HTTP11, request.Protocol)
		assert.Equal(t, "localhost", request.Headers.Value("host"))
	})

	t.Run("no headers", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "HEAD / HTTP/1.0\n\n")
		require.NoError(t, err)
		assert.Equal(t, method.HEAD, request.Method)
		assert.Equal(t, "/", request.Path)
		assert.Empty(t, request.Query)
		assert.Equal(t, proto.HTTP10, request.Protocol)
		assert.True(t, request.Headers.Empty())
	})

	t.Run("empty query", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET /path? HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, "/path", request.Path)
		assert.Empty(t, request.Query)
	})

	t.Run("bare CR terminators", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET / HTTP/1.1\rHost: x\r\r")
		require.NoError(t, err)
		assert.Equal(t, "x", request.Headers.Value("host"))
	})

	t.Run("header values are trimmed", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET / HTTP/1.1\r\nAccept: \t text/plain  \r\nEmpty:\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", request.Headers.Value("accept"))
		assert.True(t, request.Headers.Has("empty"))
		assert.Empty(t, request.Headers.Value("empty"))
	})

	t.Run("repeated headers preserve order", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET / HTTP/1.1\r\nX-A: 1\r\nx-a: 2\r\nX-A: 3\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, request.Headers.Values("X-A"))
		assert.Equal(t, 3, request.Headers.Count())
	})

	t.Run("folded header", func(t *testing.T) {
		request, raw, err := parse(t, config.Default(), "GET / HTTP/1.1\r\nCookie: 1234\n  456 \n\n")
		require.NoError(t, err)
		assert.Equal(t, "1234 456", request.Headers.Value("cookie"))
		assert.Equal(t, "GET / HTTP/1.1\r\nCookie: 1234 456   \n\n", raw.String())
		assert.Equal(t, raw.String(), string(request.Raw()))
	})

	t.Run("multiple continuation lines", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET / HTTP/1.1\r\nX-List: a,\r\n\tb,\r\n c\r\nHost: x\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, "a, b, c", request.Headers.Value("x-list"))
		assert.Equal(t, "x", request.Headers.Value("host"))
	})

	t.Run("randomized headers", func(t *testing.T) {
		values := make([]string, 10)
		var b strings.Builder
		b.WriteString("POST /upload HTTP/1.1\r\n")
		for i := range values {
			values[i] = uniuri.NewLen(32)
			fmt.Fprintf(&b, "Header-%d: %s\r\n", i, values[i])
		}
		b.WriteString("\r\n")

		request, _, err := parse(t, config.Default(), b.String())
		require.NoError(t, err)
		for i, value := range values {
			require.Equal(t, value, request.Headers.Value(fmt.Sprintf("header-%d", i)))
		}
	})

	t.Run("connection", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "GET / HTTP/1.0\r\nConnection: Keep-Alive\r\nConnection: Upgrade\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, "keep-alive, upgrade", request.Connection)
		assert.Equal(t, "Keep-Alive", request.Headers.Value("connection"))
	})

	t.Run("content length", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "POST / HTTP/1.1\r\nContent-Length: 13\r\ncontent-length: 13\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, int64(13), request.ContentLength)

		for _, head := range []string{
			"POST / HTTP/1.1\r\nContent-Length: 13\r\nContent-Length: 14\r\n\r\n",
			"POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n",
			"POST / HTTP/1.1\r\nContent-Length: 1a\r\n\r\n",
		} {
			_, _, err = parse(t, config.Default(), head)
			require.ErrorIs(t, err, status.ErrBadContentLength, head)
		}
	})

	t.Run("transfer encoding", func(t *testing.T) {
		request, _, err := parse(t, config.Default(), "POST / HTTP/1.1\r\nTransfer-Encoding: gzip, Chunked\r\n\r\n")
		require.NoError(t, err)
		assert.True(t, request.Chunked)

		request, _, err = parse(t, config.Default(), "POST / HTTP/1.0\r\nTransfer-Encoding: chunked\r\n\r\n")
		require.NoError(t, err)
		assert.False(t, request.Chunked)
	})

	t.Run("malformed", func(t *testing.T) {
		tcs := []struct {
			Name string
			Head string
			Err  error
		}{
			{"unknown method", "BREW /pot HTTP/1.1\r\n\r\n", status.ErrMethodNotImplemented},
			{"unsupported protocol", "GET / HTTP/2.0\r\n\r\n", status.ErrUnsupportedProtocol},
			{"garbage protocol", "GET / HTTP/1\r\n\r\n", status.ErrUnsupportedProtocol},
			{"no path", "GET  HTTP/1.1\r\n\r\n", status.ErrMalformedRequestLine},
			{"no protocol", "GET /\r\n\r\n", status.ErrMalformedRequestLine},
			{"extra tokens", "GET / HTTP/1.1 extra\r\n\r\n", status.ErrMalformedRequestLine},
			{"leading space", " GET / HTTP/1.1\r\n\r\n", status.ErrMalformedRequestLine},
			{"no colon", "GET / HTTP/1.1\r\nHost\r\n\r\n", status.ErrMalformedHeader},
			{"empty key", "GET / HTTP/1.1\r\n: value\r\n\r\n", status.ErrMalformedHeader},
			{"space in key", "GET / HTTP/1.1\r\nHo st: x\r\n\r\n", status.ErrMalformedHeader},
			{"leading continuation", "GET / HTTP/1.1\r\n folded\r\n\r\n", status.ErrMalformedHeader},
		}

		for _, tc := range tcs {
			t.Run(tc.Name, func(t *testing.T) {
				_, _, err := parse(t, config.Default(), tc.Head)
				require.ErrorIs(t, err, tc.Err)
			})
		}
	})

	t.Run("too many headers", func(t *testing.T) {
		cfg := config.Default()
		cfg.Headers.Number.Maximal = 3

		_, _, err := parse(t, cfg, "GET / HTTP/1.1\r\n"+generateHeaders(3)+"\r\n")
		require.NoError(t, err)
		_, _, err = parse(t, cfg, "GET / HTTP/1.1\r\n"+generateHeaders(4)+"\r\n")
		require.ErrorIs(t, err, status.ErrTooManyHeaders)
	})

	t.Run("too long request line", func(t *testing.T) {
		cfg := config.Default()
		cfg.URI.RequestLineSize.Maximal = 32

		_, _, err := parse(t, cfg, "GET /"+strings.Repeat("a", 32)+" HTTP/1.1\r\n\r\n")
		require.ErrorIs(t, err, status.ErrURITooLong)
	})
}
