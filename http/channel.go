package http

import (
	"errors"
	"log/slog"

	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/internal/buffer"
	"github.com/indigo-web/wire/kv"
	"github.com/indigo-web/wire/transport"
)

// Service populates the response to the request. A returned error (as well as a panic) results
// in an error outcome of the exchange with an empty response.
type Service func(request *Request, response *Response) error

type State uint8

const (
	AwaitingRequestLine State = iota
	ReadingHeaders
	ReadingBody
	ReadyToRespond
	SendingResponse
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingRequestLine:
		return "awaiting request line"
	case ReadingHeaders:
		return "reading headers"
	case ReadingBody:
		return "reading body"
	case ReadyToRespond:
		return "ready to respond"
	case SendingResponse:
		return "sending response"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

var (
	ErrNotReady       = errors.New("channel: request is not fully received yet")
	ErrAlreadySending = errors.New("channel: response is already being sent")
	ErrNotSending     = errors.New("channel: response is not started")
	ErrDone           = errors.New("channel: exchange is done")
)

// Link is a handle onto the connection the channel belongs to. The connection owns its channels,
// so the link must never be used to keep the connection alive, only to reach it.
type Link interface {
	// Send transmits the response of the channel, starting it if it wasn't yet.
	Send(ch *Channel) error
	// Release returns a done channel to the connection for re-use.
	Release(ch *Channel)
	// Hijack detaches the transport from the connection. Already received but not yet processed
	// bytes are returned as well.
	Hijack(ch *Channel) (transport.Conn, []byte, error)
}

// Channel is a single request-response exchange. It's created by the connection as soon as
// a new request begins and is done when the request is consumed and the response is fully
// handed to the transport.
//
// Each callback slot holds at most one callback. Callbacks run synchronously on state transitions,
// their errors and panics are logged and never interrupt the exchange.
type Channel struct {
	request     *Request
	response    *Response
	head        *buffer.Buffer
	link        Link
	logger      *slog.Logger
	state       State
	err         error
	onCompleted func(*Channel, error)
	onReceived  func(*Channel) error
	onFlushed   func(*Channel) error
	received    bool
	flushed     bool
	completed   bool
	released    bool
}

func NewChannel(cfg *config.Config, link Link, logger *slog.Logger) *Channel {
	return &Channel{
		request: NewRequest(
			kv.NewPrealloc(cfg.Headers.Number.Default).Insensitive(),
			NewStream(0),
		),
		response: NewResponse(
			kv.NewPrealloc(cfg.Headers.Number.Default).Insensitive(),
			NewStream(cfg.NET.WriteBufferSize.Default),
		),
		head:   buffer.New(cfg.Headers.Space.Default),
		link:   link,
		logger: logger,
	}
}

func (c *Channel) Request() *Request {
	return c.request
}

func (c *Channel) Response() *Response {
	return c.response
}

// In is the request body stream.
func (c *Channel) In() *Stream {
	return c.request.Body
}

// Out is the response body stream.
func (c *Channel) Out() *Stream {
	return c.response.Body
}

func (c *Channel) State() State {
	return c.state
}

// Err returns the error the exchange failed with, if any.
func (c *Channel) Err() error {
	return c.err
}

// OnRequestCompleted sets the callback, called exactly once when the exchange is done, both
// successfully and not. The error is nil in the former case.
func (c *Channel) OnRequestCompleted(cb func(*Channel, error)) *Channel {
	c.onCompleted = cb
	return c
}

// OnDataReceived sets the callback, called every time request body data arrives and once
// more when the request body stream is closed.
func (c *Channel) OnDataReceived(cb func(*Channel) error) *Channel {
	c.onReceived = cb
	return c
}

// OnDataFlushed sets the callback, called every time response data is handed to the transport
// and once more when the response body stream is closed and fully transmitted.
func (c *Channel) OnDataFlushed(cb func(*Channel) error) *Channel {
	c.onFlushed = cb
	return c
}

// StartSending writes the response head and whatever is already in the response body. If the
// body is closed at this moment, its length is known and is used as the Content-Length.
func (c *Channel) StartSending() error {
	switch c.state {
	case ReadyToRespond:
		return c.link.Send(c)
	case SendingResponse:
		return ErrAlreadySending
	case Done:
		return ErrDone
	default:
		return ErrNotReady
	}
}

// Flush transmits the response body written since the previous flush. When the body is closed,
// the response is completed.
func (c *Channel) Flush() error {
	switch c.state {
	case SendingResponse:
		return c.link.Send(c)
	case Done:
		return ErrDone
	default:
		return ErrNotSending
	}
}

// Finish closes the response body and transmits the rest of the response.
func (c *Channel) Finish() error {
	switch c.state {
	case ReadyToRespond, SendingResponse:
		c.response.Body.Close()
		return c.link.Send(c)
	case Done:
		return nil
	default:
		return ErrNotReady
	}
}

// Hijack hands the underlying transport over. The connection stops processing it, so no more
// requests are parsed and no keep-alive is maintained. The exchange is done right away. A channel,
// whose response switched protocols, can be hijacked after it's done as well.
func (c *Channel) Hijack() (transport.Conn, []byte, error) {
	if c.released {
		return nil, nil, ErrDone
	}

	return c.link.Hijack(c)
}

// Fail records the error the exchange resulted in. Only the first error is kept.
func (c *Channel) Fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Release returns the channel to the connection so it can be re-used for a next request.
// The channel and everything it holds must not be used afterward. Not done channels can't be
// released.
func (c *Channel) Release() {
	if c.state != Done || c.released {
		return
	}

	c.released = true
	c.link.Release(c)
}

// Head is the buffer the request head is stored in. Parsed request strings reference it.
func (c *Channel) Head() *buffer.Buffer {
	return c.head
}

// SetState is used by the protocol implementation to advance the exchange.
func (c *Channel) SetState(state State) {
	c.state = state
}

// DataReceived notifies the data-received callback. The terminal notification (the one after
// the request body is closed) is delivered exactly once.
func (c *Channel) DataReceived() {
	if c.received {
		return
	}

	c.received = c.In().Closed()
	c.invoke("data received", c.onReceived)
}

// DataFlushed notifies the data-flushed callback. The terminal notification is delivered
// exactly once.
func (c *Channel) DataFlushed(final bool) {
	if c.flushed {
		return
	}

	c.flushed = final
	c.invoke("data flushed", c.onFlushed)
}

// Complete finishes the exchange. Calling it more than once has no effect.
func (c *Channel) Complete(err error) {
	if c.completed {
		return
	}

	c.Fail(err)
	c.completed = true
	c.state = Done

	if c.onCompleted == nil {
		return
	}

	defer c.recover("request completed")
	c.onCompleted(c, c.err)
}

// Reset prepares the channel for a next exchange.
func (c *Channel) Reset() {
	c.request.Reset()
	c.response.Reset()
	c.head.Reset()
	c.state = AwaitingRequestLine
	c.err = nil
	c.onCompleted, c.onReceived, c.onFlushed = nil, nil, nil
	c.received, c.flushed, c.completed, c.released = false, false, false, false
}

func (c *Channel) invoke(event string, cb func(*Channel) error) {
	if cb == nil {
		return
	}

	defer c.recover(event)

	if err := cb(c); err != nil {
		c.logger.Warn("channel callback failed", "event", event, "error", err)
	}
}

func (c *Channel) recover(event string) {
	if r := recover(); r != nil {
		c.logger.Error("channel callback panicked", "event", event, "panic", r)
	}
}
