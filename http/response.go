package http

import (
	"strconv"
	"strings"

	"github.com/indigo-web/wire/http/mime"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/strutil"
	json "github.com/json-iterator/go"
)

type Response struct {
	// Code is the status code, 200 OK by default.
	Code status.Code
	// Status is a custom reason phrase. If empty or unsafe to be put on the wire, the standard
	// one is used.
	Status string
	// Headers are rendered in order of their insertion. Connection header is always set by
	// the protocol itself, so setting it here matters only for the Connection: close.
	Headers Headers
	// Body is written by the service. Closing it before the response is started lets the
	// length to be computed automatically.
	Body *Stream
}

func NewResponse(headers Headers, body *Stream) *Response {
	return &Response{
		Code:    status.OK,
		Headers: headers,
		Body:    body,
	}
}

// Header adds header values to a key. In case it already exists the values will be appended.
func (r *Response) Header(key string, values ...string) *Response {
	for _, value := range values {
		r.Headers.Add(key, value)
	}

	return r
}

// WithCode sets the status code.
func (r *Response) WithCode(code status.Code) *Response {
	r.Code = code
	return r
}

// String appends the string to the body
func (r *Response) String(body string) *Response {
	_, _ = r.Body.WriteString(body)
	return r
}

// Bytes appends the data to the body
func (r *Response) Bytes(body []byte) *Response {
	_, _ = r.Body.Write(body)
	return r
}

// JSON serializes the model into the body and sets the Content-Type.
func (r *Response) JSON(model any) error {
	stream := json.ConfigDefault.BorrowStream(r.Body)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	r.Headers.Set("Content-Type", mime.JSON)
	return err
}

// Error sets the status code matching the error. Passing nil does nothing.
func (r *Response) Error(err error) *Response {
	if err == nil {
		return r
	}

	r.Code = status.CodeOf(err)
	return r
}

// ContentLength returns the explicitly set Content-Length. The second value is false if
// there is none or it cannot be parsed.
func (r *Response) ContentLength() (int64, bool) {
	value, found := r.Headers.Get("content-length")
	if !found {
		return 0, false
	}

	length, err := strconv.ParseInt(value, 10, 64)
	if err != nil || length < 0 {
		return 0, false
	}

	return length, true
}

// Reason returns the reason phrase to be put on the wire.
func (r *Response) Reason() string {
	if len(r.Status) > 0 && status.IsSafeInHeader(r.Status) {
		return r.Status
	}

	return status.Text(r.Code)
}

// Reset discards everything was done with Response object before
func (r *Response) Reset() {
	r.Code = status.OK
	r.Status = ""
	r.Headers.Clear()
	r.Body.Reset()
}

// ResetToError discards headers and the body, leaving the code of the error only.
func (r *Response) ResetToError(err error) {
	r.Reset()
	r.Error(err)
	if r.Code < 400 {
		r.Code = status.InternalServerError
	}
}

// ClosesConnection reports whether the response asks to close the connection.
func (r *Response) ClosesConnection() bool {
	for _, value := range r.Headers.Values("connection") {
		if strutil.HasToken(strings.ToLower(value), "close") {
			return true
		}
	}

	return false
}
