package http

import (
	"net"

	"github.com/indigo-web/wire/http/method"
	"github.com/indigo-web/wire/http/mime"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/query"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/strutil"
	"github.com/indigo-web/wire/kv"
	json "github.com/json-iterator/go"
)

type Headers = *kv.Storage

// Request represents HTTP request. All the strings may reference the raw head of the request,
// so they stay valid only until the channel is released.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path is the request target up to the question mark.
	Path string
	// Query is everything after the question mark, not including it. Empty if there was none.
	Query string
	// Protocol is the enum of a protocol used for the request.
	Protocol proto.Protocol
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive. Folded
	// values are joined with a single space.
	Headers Headers
	// ContentLength obtains the value from Content-Length header. It holds the value of 0
	// if isn't presented.
	ContentLength int64
	// Chunked tells whether the body is transferred using chunked transfer encoding.
	Chunked bool
	// Connection holds the lower-cased Connection header value.
	Connection string
	// Remote holds the remote address, if the transport knows it.
	Remote net.Addr
	// Body is the stream of the request body. It's closed as soon as the body is fully received.
	Body   *Stream
	params *query.Query
	raw    []byte
}

func NewRequest(headers Headers, body *Stream) *Request {
	return &Request{
		Method:   method.Unknown,
		Protocol: proto.HTTP11,
		Headers:  headers,
		Body:     body,
		params:   query.New(kv.New()),
	}
}

// Raw returns the request head (request line and headers) as it was received, with folded
// headers normalized in place.
func (r *Request) Raw() []byte {
	return r.raw
}

// SetRaw is used by the protocol implementation to expose the head it parsed the request from.
func (r *Request) SetRaw(raw []byte) {
	r.raw = raw
}

// Params returns decoded query parameters. They are parsed at the first call.
func (r *Request) Params() (query.Params, error) {
	if r.params.Raw() != r.Query {
		r.params.Set(r.Query)
	}

	return r.params.Unwrap()
}

// JSON decodes the fully received body into the model. ErrPending is returned if the body
// isn't received completely yet.
func (r *Request) JSON(model any) error {
	if !mime.Complies(mime.JSON, r.Headers.Value("content-type")) {
		return status.ErrUnsupportedMediaType
	}

	if !r.Body.Closed() {
		return ErrPending
	}

	if err := r.Body.Err(); err != nil {
		return err
	}

	iterator := json.ConfigDefault.BorrowIterator(r.Body.Bytes())
	iterator.ReadVal(model)
	err := iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)

	return err
}

// KeepAliveRequested tells whether the client asked to keep the connection alive, considering
// the protocol defaults.
func (r *Request) KeepAliveRequested() bool {
	switch r.Protocol {
	case proto.HTTP10:
		return strutil.HasToken(r.Connection, "keep-alive")
	default:
		return !strutil.HasToken(r.Connection, "close")
	}
}

// Upgrading tells whether the client asks to switch the protocol.
func (r *Request) Upgrading() bool {
	return strutil.HasToken(r.Connection, "upgrade") && r.Headers.Has("upgrade")
}

// Reset the request
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	r.Query = ""
	r.Protocol = proto.HTTP11
	r.Headers.Clear()
	r.ContentLength = 0
	r.Chunked = false
	r.Connection = ""
	r.Body.Reset()
	r.params.Set("")
	r.raw = nil
}
