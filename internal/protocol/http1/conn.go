package http1

import (
	"log/slog"
	"slices"
	"strconv"

	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/method"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/buffer"
	"github.com/indigo-web/wire/internal/pool"
	"github.com/indigo-web/wire/transport"
	"github.com/pkg/errors"
)

var (
	ErrClosed        = errors.New("http1: connection is closed")
	ErrHijacked      = errors.New("http1: connection is hijacked")
	ErrNotActive     = errors.New("http1: channel is not the active one")
	ErrPendingWrites = errors.New("http1: response is still being written")
)

// Dispatcher is notified about exchanges of a connection.
type Dispatcher interface {
	// Created is called as soon as a new exchange begins, before its request is parsed. It's
	// the place to register channel callbacks.
	Created(ch *http.Channel)
	// Ready is called once the request is fully received, so the response may be sent.
	Ready(ch *http.Channel)
}

type responseFraming uint8

const (
	lengthResponse responseFraming = iota
	chunkedResponse
	closeDelimitedResponse
	bodilessResponse
)

// Conn is an HTTP/1.x connection engine. It's event-driven: inbound bytes are fed via Feed,
// end of the inbound stream is signaled via CloseInput and the readiness of the transport
// to accept more data via Writable. None of them blocks.
//
// Exchanges are processed strictly one after another: while there's an active channel, the
// rest of pipelined requests wait in the inbound buffer. As soon as the active channel is
// done, the next request is parsed immediately.
//
// Conn isn't thread-safe. All the calls, including ones made by channels, must happen from
// a single goroutine at a time.
type Conn struct {
	cfg        *config.Config
	out        transport.Conn
	logger     *slog.Logger
	dispatcher Dispatcher
	parser     *Parser
	serializer *Serializer
	body       *body
	inbound    *buffer.Buffer
	pending    []byte
	channels   pool.Pool[*http.Channel]
	active     *http.Channel
	upgraded   *http.Channel
	framing    responseFraming
	bodiless   bool
	keepAlive  bool
	// inputClosed is set when the peer won't send anything anymore
	inputClosed  bool
	closeOnFlush bool
	closed       bool
	hijacked     bool
	processing   bool
	again        bool
}

func New(cfg *config.Config, out transport.Conn, dispatcher Dispatcher, logger *slog.Logger) *Conn {
	c := &Conn{
		cfg:        cfg,
		out:        out,
		logger:     logger,
		dispatcher: dispatcher,
		parser:     NewParser(cfg),
		serializer: NewSerializer(cfg),
		body:       newBody(cfg.Body.MaxSize),
		inbound:    buffer.New(cfg.NET.ReadBufferSize),
		keepAlive:  true,
	}

	c.channels = pool.New(cfg.HTTP.ChannelsPool, func() *http.Channel {
		return http.NewChannel(cfg, c, logger)
	})

	return c
}

// Feed appends inbound bytes and advances the processing as far as they allow.
func (c *Conn) Feed(data []byte) {
	if c.closed || c.hijacked || c.inputClosed {
		return
	}

	c.inbound.Compact()
	c.inbound.Append(data)
	c.process()
}

// CloseInput signals that the peer closed its side of the stream. A request in the middle of
// parsing is finalized as truncated, already received ones are still served. Keep-alive is
// off from now on.
func (c *Conn) CloseInput() {
	if c.inputClosed {
		return
	}

	c.inputClosed = true
	c.keepAlive = false
	c.inbound.Close()
	c.process()
}

// Writable notifies that the transport is ready to accept data again after it refused to
// with transport.ErrWouldBlock.
func (c *Conn) Writable() error {
	if len(c.pending) == 0 || c.closed || c.hijacked {
		return nil
	}

	n, err := c.out.Write(c.pending)
	c.pending = c.pending[:copy(c.pending, c.pending[n:])]
	if err != nil && !errors.Is(err, transport.ErrWouldBlock) {
		err = errors.Wrap(status.ErrWriteFailure, err.Error())
		c.writeFailed(c.active, err)
		return err
	}

	switch {
	case len(c.pending) > 0:
	case c.closeOnFlush:
		c.shutdown()
	case c.active != nil && c.active.State() == http.SendingResponse:
		c.transmitted(c.active)
	}

	return nil
}

// Close tears the connection down. The active exchange, if any, is completed with
// status.ErrCloseConnection. Hijacked connections are left untouched.
func (c *Conn) Close() {
	if c.hijacked {
		return
	}

	c.inputClosed = true
	c.inbound.Close()

	if ch := c.active; ch != nil {
		c.active = nil
		if !ch.In().Closed() {
			ch.In().CloseWithError(status.ErrCloseConnection)
			ch.DataReceived()
		}

		ch.Complete(status.ErrCloseConnection)
	}

	c.pending = nil
	c.closeOnFlush = false
	c.shutdown()
}

// Active returns the channel, which is either still receiving its request or awaiting its
// response being sent. Returns nil if there's none.
func (c *Conn) Active() *http.Channel {
	return c.active
}

// KeepAlive tells whether the connection is going to be kept alive after the active exchange.
func (c *Conn) KeepAlive() bool {
	return c.keepAlive
}

func (c *Conn) Closed() bool {
	return c.closed
}

func (c *Conn) Hijacked() bool {
	return c.hijacked
}

// Pending returns the number of outbound bytes the transport didn't accept yet.
func (c *Conn) Pending() int {
	return len(c.pending)
}

// Send implements http.Link.
func (c *Conn) Send(ch *http.Channel) error {
	switch {
	case c.hijacked:
		return ErrHijacked
	case c.closed:
		return ErrClosed
	case ch != c.active:
		return ErrNotActive
	}

	if ch.State() == http.ReadyToRespond {
		c.commit(ch)
		ch.SetState(http.SendingResponse)
	}

	return c.flush(ch)
}

// Release implements http.Link.
func (c *Conn) Release(ch *http.Channel) {
	if ch == c.upgraded {
		// protocol was switched, but nobody took the connection over
		c.upgraded = nil
		c.shutdown()
	}

	ch.Reset()
	c.channels.Release(ch)
}

// Hijack implements http.Link.
func (c *Conn) Hijack(ch *http.Channel) (transport.Conn, []byte, error) {
	switch {
	case c.hijacked:
		return nil, nil, ErrHijacked
	case c.closed:
		return nil, nil, ErrClosed
	case ch != c.active && ch != c.upgraded:
		return nil, nil, ErrNotActive
	case len(c.pending) > 0:
		return nil, nil, ErrPendingWrites
	}

	c.hijacked = true
	c.keepAlive = false
	rest := slices.Clone(c.inbound.Bytes())
	c.inbound.Consume(len(rest))

	if ch == c.active {
		c.active = nil
		ch.Complete(nil)
	}

	c.upgraded = nil

	return c.out, rest, nil
}

func (c *Conn) process() {
	if c.processing {
		c.again = true
		return
	}

	c.processing = true
	defer func() {
		c.processing = false
	}()

	for {
		c.again = false
		c.advance()
		if !c.again {
			return
		}
	}
}

func (c *Conn) advance() {
	for !c.closed && !c.hijacked && !c.closeOnFlush && c.upgraded == nil {
		ch := c.active
		if ch == nil {
			if !c.keepAlive {
				c.shutdown()
				return
			}

			skipBlankLines(c.inbound)
			if c.inbound.Len() == 0 {
				return
			}

			ch = c.begin()
		}

		var progressed bool

		switch ch.State() {
		case http.AwaitingRequestLine, http.ReadingHeaders:
			progressed = c.readHead(ch)
		case http.ReadingBody:
			progressed = c.readBody(ch)
		}

		if !progressed {
			// either waiting for more data, or for the response
			return
		}
	}
}

func (c *Conn) begin() *http.Channel {
	ch := c.channels.Acquire()
	ch.Request().Remote = c.out.Remote()
	c.active = ch
	c.dispatcher.Created(ch)

	return ch
}

func (c *Conn) readHead(ch *http.Channel) bool {
	if ch.State() == http.AwaitingRequestLine {
		if _, termLen := buffer.Terminator(c.inbound.Bytes(), 0); termLen == 0 {
			switch {
			case c.inbound.Len() > c.cfg.URI.RequestLineSize.Maximal:
				c.reject(ch, status.ErrURITooLong)
			case c.inputClosed:
				c.truncate(ch)
			}

			return false
		}

		ch.SetState(http.ReadingHeaders)
	}

	end := c.inbound.IndexLFLF()
	if end == -1 || end > c.cfg.Headers.Space.Maximal {
		switch {
		case c.inbound.Len() > c.cfg.Headers.Space.Maximal:
			c.reject(ch, status.ErrHeaderFieldsTooLarge)
		case c.inputClosed:
			c.truncate(ch)
		}

		return false
	}

	if end == c.inbound.Len() && c.inbound.Get(end-1) == '\r' && !c.inputClosed {
		// the blank line ends with a bare CR, which is complete only if no LF follows
		return false
	}

	ch.Head().Append(c.inbound.Bytes()[:end])
	c.inbound.Consume(end)

	request := ch.Request()
	if err := c.parser.Parse(request, ch.Head()); err != nil {
		c.reject(ch, err)
		return false
	}

	if err := c.body.Init(request); err != nil {
		c.reject(ch, err)
		return false
	}

	if c.body.Framing() == noBody {
		request.Body.Close()
		c.ready(ch)
		return true
	}

	ch.SetState(http.ReadingBody)
	return true
}

func (c *Conn) readBody(ch *http.Channel) bool {
	n, done, err := c.body.Read(c.inbound, ch.In())
	if err != nil {
		c.reject(ch, err)
		return false
	}

	if n > 0 && !done {
		ch.DataReceived()
	}

	if !done {
		if c.inputClosed {
			c.truncate(ch)
		}

		return false
	}

	ch.In().Close()
	c.ready(ch)

	return true
}

func (c *Conn) ready(ch *http.Channel) {
	ch.SetState(http.ReadyToRespond)
	ch.DataReceived()
	c.dispatcher.Ready(ch)
}

// commit decides on the framing and keep-alive and renders the response head.
func (c *Conn) commit(ch *http.Channel) {
	request, response := ch.Request(), ch.Response()
	keepAlive := c.keepAlive &&
		request.KeepAliveRequested() &&
		!response.ClosesConnection() &&
		c.body.Framing() != closeDelimitedBody

	c.bodiless = request.Method == method.HEAD
	_, explicit := response.ContentLength()

	switch code := response.Code; {
	case code < status.OK || code == status.NoContent || code == status.NotModified:
		c.framing = bodilessResponse
		c.bodiless = true
	case explicit:
		c.framing = lengthResponse
	case response.Body.Closed():
		c.framing = lengthResponse
		response.Headers.Remove("transfer-encoding")
		response.Headers.Set("Content-Length", strconv.Itoa(response.Body.Len()))
	case request.Protocol == proto.HTTP11:
		c.framing = chunkedResponse
		response.Headers.Set("Transfer-Encoding", "chunked")
	default:
		// HTTP/1.0 knows nothing about chunked encoding, so the only way left to tell
		// the end of the body is closing the connection
		c.framing = closeDelimitedResponse
		keepAlive = false
	}

	c.keepAlive = keepAlive

	connection := "close"
	if keepAlive {
		connection = "keep-alive"
	}

	if response.Code == status.SwitchingProtocols {
		connection = ""
		c.upgraded = ch
	}

	c.serializer.Head(request.Protocol, response, connection)
}

func (c *Conn) flush(ch *http.Channel) error {
	out := ch.Out()

	if data := out.Bytes(); len(data) > 0 {
		switch {
		case c.bodiless:
		case c.framing == chunkedResponse:
			c.serializer.Chunk(data)
		default:
			c.serializer.Plain(data)
		}

		out.Consume(len(data))
	}

	if out.Closed() && c.framing == chunkedResponse && !c.bodiless {
		c.serializer.LastChunk()
	}

	rendered := len(c.serializer.Bytes()) > 0
	err := c.transmit(c.serializer.Bytes())
	c.serializer.Reset()

	if err != nil {
		c.writeFailed(ch, err)
		return err
	}

	if rendered || out.Closed() {
		c.transmitted(ch)
	}

	return nil
}

func (c *Conn) transmit(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if len(c.pending) > 0 {
		c.pending = append(c.pending, data...)
		return nil
	}

	n, err := c.out.Write(data)
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrWouldBlock):
		c.pending = append(c.pending, data[n:]...)
	default:
		return errors.Wrap(status.ErrWriteFailure, err.Error())
	}

	return nil
}

// transmitted is called when everything rendered so far might be handed to the transport.
func (c *Conn) transmitted(ch *http.Channel) {
	if len(c.pending) > 0 {
		return
	}

	final := ch.Out().Closed() && ch.Out().Len() == 0
	ch.DataFlushed(final)
	if final {
		c.complete(ch)
	}
}

func (c *Conn) complete(ch *http.Channel) {
	c.active = nil
	ch.Complete(nil)

	switch {
	case c.upgraded != nil:
		// the rest belongs to whoever is going to hijack the connection
	case !c.keepAlive:
		c.shutdown()
	default:
		c.process()
	}
}

// reject answers protocol errors with a minimal response and closes the connection.
func (c *Conn) reject(ch *http.Channel, err error) {
	c.keepAlive = false
	c.active = nil

	if !ch.In().Closed() {
		ch.In().CloseWithError(err)
	}

	ch.DataReceived()

	response := ch.Response()
	response.ResetToError(err)
	response.Headers.Set("Content-Length", "0")
	c.serializer.Head(ch.Request().Protocol, response, "close")
	if werr := c.transmit(c.serializer.Bytes()); werr != nil {
		c.logger.Debug("failed to write error response", "error", werr)
		c.pending = nil
	}

	c.serializer.Reset()
	ch.Complete(err)
	c.shutdown()
}

func (c *Conn) truncate(ch *http.Channel) {
	c.keepAlive = false
	c.active = nil
	ch.In().CloseWithError(status.ErrTruncatedRequest)
	ch.DataReceived()
	ch.Complete(status.ErrTruncatedRequest)
	c.shutdown()
}

func (c *Conn) writeFailed(ch *http.Channel, err error) {
	c.keepAlive = false
	c.pending = nil
	c.closeOnFlush = false

	if ch != nil && ch == c.active {
		c.active = nil
		ch.Complete(err)
	}

	c.shutdown()
}

// shutdown closes the transport as soon as everything pending is written.
func (c *Conn) shutdown() {
	c.keepAlive = false
	if c.closed || c.hijacked {
		return
	}

	if len(c.pending) > 0 {
		c.closeOnFlush = true
		return
	}

	c.closed = true
	c.closeOnFlush = false
	if err := c.out.Close(); err != nil {
		c.logger.Debug("failed to close transport", "error", err)
	}
}

// skipBlankLines drops empty lines preceding a request.
func skipBlankLines(b *buffer.Buffer) {
	n := 0
	for n < b.Len() && (b.Get(n) == '\r' || b.Get(n) == '\n') {
		n++
	}

	b.Consume(n)
}
