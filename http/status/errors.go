package status

// HTTPError is an error carrying the status code of the response it must result in.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrCloseConnection = NewError(BadRequest, "actively closing the connection")

	// ErrTruncatedRequest is reported when the peer closes the inbound stream in the middle
	// of a request line, headers or a body shorter than declared.
	ErrTruncatedRequest     = NewError(BadRequest, "request is truncated")
	ErrMalformedRequestLine = NewError(BadRequest, "malformed request line")
	ErrMalformedHeader      = NewError(BadRequest, "malformed header")
	ErrBadContentLength     = NewError(BadRequest, "bad content length")
	ErrBadChunk             = NewError(BadRequest, "malformed chunk-encoded data")
	// ErrWriteFailure is reported when the transport rejects outbound bytes. Usually it is
	// wrapped around the transport error.
	ErrWriteFailure = NewError(InternalServerError, "failed to write the response")

	ErrBadRequest           = NewError(BadRequest, "bad request")
	ErrBadQuery             = NewError(BadRequest, "bad URL query")
	ErrInternalServerError  = NewError(InternalServerError, "internal server error")
	ErrMethodNotImplemented = NewError(NotImplemented, "request method is not supported")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "request body is too large")
	ErrHeaderFieldsTooLarge = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders       = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrURITooLong           = NewError(RequestURITooLong, "request URI too long")
	ErrUnsupportedProtocol  = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrUnsupportedMediaType = NewError(UnsupportedMediaType, "unsupported media type")
	ErrNotFound             = NewError(NotFound, "not found")
)

// CodeOf returns the status code an error must be answered with. Errors not carrying
// a code are internal server errors.
func CodeOf(err error) Code {
	for err != nil {
		if httpErr, ok := err.(HTTPError); ok {
			return httpErr.Code
		}

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			if causer, ok := err.(interface{ Cause() error }); ok {
				err = causer.Cause()
				continue
			}

			break
		}

		err = unwrapper.Unwrap()
	}

	return InternalServerError
}
