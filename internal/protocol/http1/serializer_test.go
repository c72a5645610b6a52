package http1

import (
	"bufio"
	"bytes"
	"io"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponse() *http.Response {
	return http.NewResponse(kv.NewInsensitive(), http.NewStream(0))
}

func readResponse(t *testing.T, data []byte) *stdhttp.Response {
	t.Helper()

	resp, err := stdhttp.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	require.NoError(t, err)

	return resp
}

func TestSerializer(t *testing.T) {
	t.Run("status line and headers", func(t *testing.T) {
		s := NewSerializer(config.Default())
		response := newResponse().
			WithCode(status.Created).
			Header("Content-Length", "5").
			Header("X-Multi", "a", "b")
		s.Head(proto.HTTP11, response, "keep-alive")
		s.Plain([]byte("Hello"))

		want := "HTTP/1.1 201 Created\r\n" +
			"Content-Length: 5\r\n" +
			"X-Multi: a\r\n" +
			"X-Multi: b\r\n" +
			"connection:keep-alive\r\n" +
			"\r\n" +
			"Hello"
		require.Equal(t, want, string(s.Bytes()))

		resp := readResponse(t, s.Bytes())
		require.Equal(t, 201, resp.StatusCode)
		require.Equal(t, []string{"a", "b"}, resp.Header.Values("X-Multi"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "Hello", string(body))
	})

	t.Run("protocol of the request", func(t *testing.T) {
		s := NewSerializer(config.Default())
		s.Head(proto.HTTP10, newResponse(), "close")
		require.True(t, strings.HasPrefix(string(s.Bytes()), "HTTP/1.0 200 OK\r\n"))

		s.Reset()
		s.Head(proto.Unknown, newResponse(), "close")
		require.True(t, strings.HasPrefix(string(s.Bytes()), "HTTP/1.1 200 OK\r\n"))
	})

	t.Run("custom reason", func(t *testing.T) {
		s := NewSerializer(config.Default())
		response := newResponse().WithCode(status.NotFound)
		response.Status = "Nothing Here"
		s.Head(proto.HTTP11, response, "close")
		require.True(t, strings.HasPrefix(string(s.Bytes()), "HTTP/1.1 404 Nothing Here\r\n"))

		s.Reset()
		response.Status = "Evil\r\nSet-Cookie: x"
		s.Head(proto.HTTP11, response, "close")
		require.True(t, strings.HasPrefix(string(s.Bytes()), "HTTP/1.1 404 Not Found\r\n"))
	})

	t.Run("user connection header", func(t *testing.T) {
		s := NewSerializer(config.Default())
		response := newResponse().Header("Connection", "close")
		s.Head(proto.HTTP11, response, "close")
		require.Equal(t, "HTTP/1.1 200 OK\r\nconnection:close\r\n\r\n", string(s.Bytes()))

		s.Reset()
		response = newResponse().
			WithCode(status.SwitchingProtocols).
			Header("Connection", "Upgrade").
			Header("Upgrade", "echo")
		s.Head(proto.HTTP11, response, "")
		require.Equal(t,
			"HTTP/1.1 101 Switching Protocols\r\nConnection: Upgrade\r\nUpgrade: echo\r\n\r\n",
			string(s.Bytes()),
		)
	})

	t.Run("unsafe headers are skipped", func(t *testing.T) {
		s := NewSerializer(config.Default())
		response := newResponse().
			Header("X-Good", "value").
			Header("X-Bad", "value\r\nInjected: yes").
			Header("Bad\nKey", "value")
		s.Head(proto.HTTP11, response, "close")

		resp := readResponse(t, s.Bytes())
		require.Equal(t, "value", resp.Header.Get("X-Good"))
		require.Empty(t, resp.Header.Get("X-Bad"))
		require.Empty(t, resp.Header.Get("Injected"))
	})

	t.Run("default headers", func(t *testing.T) {
		cfg := config.Default()
		cfg.Headers.Default = map[string]string{
			"Server":        "wire",
			"Accept-Ranges": "none",
		}
		s := NewSerializer(cfg)
		s.Head(proto.HTTP11, newResponse().Header("server", "custom"), "close")

		want := "HTTP/1.1 200 OK\r\n" +
			"server: custom\r\n" +
			"Accept-Ranges: none\r\n" +
			"connection:close\r\n" +
			"\r\n"
		require.Equal(t, want, string(s.Bytes()))
	})

	t.Run("chunked", func(t *testing.T) {
		s := NewSerializer(config.Default())
		s.Chunk([]byte("Hello, "))
		s.Chunk(nil)
		s.Chunk([]byte("world!"))
		s.LastChunk()
		require.Equal(t, "7\r\nHello, \r\n6\r\nworld!\r\n0\r\n\r\n", string(s.Bytes()))

		parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
		data := s.Bytes()
		var body []byte

		for len(data) > 0 {
			chunk, extra, err := parser.Parse(data, false)
			if err != nil {
				require.EqualError(t, err, io.EOF.Error())
				break
			}

			body = append(body, chunk...)
			data = extra
		}

		assert.Equal(t, "Hello, world!", string(body))
	})

	t.Run("large buffers are not retained", func(t *testing.T) {
		cfg := config.Default()
		s := NewSerializer(cfg)
		s.Plain(make([]byte, cfg.NET.WriteBufferSize.Maximal+1))
		s.Reset()
		require.Empty(t, s.Bytes())
		require.LessOrEqual(t, cap(s.Bytes()), cfg.NET.WriteBufferSize.Maximal)
	})
}
