package http1

import (
	"io"
	"math"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/buffer"
	"github.com/pkg/errors"
)

type bodyFraming uint8

const (
	noBody bodyFraming = iota
	lengthBody
	chunkedBody
	closeDelimitedBody
)

// body moves the request body from the inbound buffer into the request body stream,
// according to the framing of the request.
type body struct {
	framing   bodyFraming
	remaining int64
	received  uint64
	maxSize   uint64
	chunked   *chunkedbody.Parser
}

func newBody(maxSize uint64) *body {
	return &body{
		maxSize: maxSize,
	}
}

// Init chooses the framing of the request body. Chunked encoding is honored for HTTP/1.1 only,
// HTTP/1.0 requests without declared length are close-delimited, unless their method doesn't
// imply a body.
func (b *body) Init(request *http.Request) error {
	b.received = 0
	b.remaining = 0

	switch {
	case request.Chunked:
		b.framing = chunkedBody
		b.chunked = chunkedbody.NewParser(chunkedbody.DefaultSettings())
	case request.Headers.Has("content-length"):
		if uint64(request.ContentLength) > b.maxSize {
			return status.ErrBodyTooLarge
		}

		b.framing = lengthBody
		b.remaining = request.ContentLength
		if b.remaining == 0 {
			b.framing = noBody
		}
	case request.Protocol == proto.HTTP10 && request.Method.ImpliesBody():
		b.framing = closeDelimitedBody
	default:
		b.framing = noBody
	}

	return nil
}

// Framing is exposed for the keep-alive decision: close-delimited request bodies leave no
// chance to keep the connection alive.
func (b *body) Framing() bodyFraming {
	return b.framing
}

// Read moves as much as possible from the inbound buffer into the stream. It returns the
// number of body bytes moved and whether the body is complete.
func (b *body) Read(inbound *buffer.Buffer, stream *http.Stream) (n int, done bool, err error) {
	switch b.framing {
	case noBody:
		return 0, true, nil
	case lengthBody:
		n = int(min(int64(inbound.Len()), b.remaining))
		if n > 0 {
			_, _ = stream.Write(inbound.Bytes()[:n])
			inbound.Consume(n)
			b.remaining -= int64(n)
		}

		return n, b.remaining == 0, nil
	case closeDelimitedBody:
		n = inbound.Len()
		if err = b.account(n); err != nil {
			return 0, true, err
		}

		_, _ = stream.Write(inbound.Bytes())
		inbound.Consume(n)

		return n, inbound.Closed(), nil
	case chunkedBody:
		return b.readChunked(inbound, stream)
	default:
		panic("unreachable code")
	}
}

func (b *body) readChunked(inbound *buffer.Buffer, stream *http.Stream) (n int, done bool, err error) {
	for inbound.Len() > 0 {
		data := inbound.Bytes()
		chunk, extra, perr := b.chunked.Parse(data, false)
		if perr != nil && perr != io.EOF {
			return n, true, errors.Wrap(status.ErrBadChunk, perr.Error())
		}

		if err = b.account(len(chunk)); err != nil {
			return n, true, err
		}

		_, _ = stream.Write(chunk)
		n += len(chunk)
		consumed := len(data) - len(extra)
		inbound.Consume(consumed)

		if perr == io.EOF {
			return n, true, nil
		}

		if consumed == 0 {
			break
		}
	}

	return n, false, nil
}

func (b *body) account(n int) error {
	if uint64(n) > math.MaxUint64-b.received || b.received+uint64(n) > b.maxSize {
		return status.ErrBodyTooLarge
	}

	b.received += uint64(n)
	return nil
}
