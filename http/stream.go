package http

import (
	"errors"
	"io"

	"github.com/indigo-web/wire/internal/buffer"
)

var (
	// ErrPending is returned by reads, when the stream is empty but still open. More data is
	// about to come, so the caller should wait for the next notification.
	ErrPending = errors.New("stream: no data yet")
	// ErrClosedStream is returned on attempts to write into a closed stream.
	ErrClosedStream = errors.New("stream: write to closed stream")
)

// Stream is a queue of bytes with explicit end-of-stream signaling. It is used both for request
// bodies, where the connection writes and the service reads, and response bodies, where it's
// vice versa. Reads never block: ErrPending is returned when there's nothing to read yet.
type Stream struct {
	buff *buffer.Buffer
	line *buffer.Buffer
	err  error
}

func NewStream(initialSize int) *Stream {
	return &Stream{
		buff: buffer.New(initialSize),
		line: buffer.New(0),
	}
}

// Write enqueues the data. Writing into a closed stream results in ErrClosedStream.
func (s *Stream) Write(b []byte) (n int, err error) {
	if s.buff.Closed() {
		return 0, ErrClosedStream
	}

	s.buff.Append(b)
	return len(b), nil
}

func (s *Stream) WriteString(str string) (n int, err error) {
	if s.buff.Closed() {
		return 0, ErrClosedStream
	}

	s.buff.AppendString(str)
	return len(str), nil
}

// Read implements io.Reader. When the stream is drained, io.EOF (or an error the stream was
// closed with) is returned if it's closed, otherwise ErrPending.
func (s *Stream) Read(b []byte) (n int, err error) {
	if s.buff.Len() == 0 {
		return 0, s.drained()
	}

	n = copy(b, s.buff.Bytes())
	s.Consume(n)

	return n, nil
}

// ReadLine returns the next line of the stream without its terminator. Terminators are the
// same as in the request head: CRLF, LF or a bare CR. The last line of a closed stream doesn't
// need to be terminated. The returned string is valid until the next call.
func (s *Stream) ReadLine() (string, error) {
	data := s.buff.Bytes()
	pos, length := buffer.Terminator(data, 0)
	if !s.buff.Closed() && length == 1 && pos == len(data)-1 && data[pos] == '\r' {
		// might be the first half of CRLF
		return "", ErrPending
	}

	if s.buff.ReadLine(s.line) == -1 {
		if s.buff.Len() == 0 || !s.buff.Closed() {
			return "", s.drained()
		}

		s.line.Reset()
		s.line.Append(s.buff.Bytes())
		s.buff.Consume(s.buff.Len())
	}

	if s.buff.Len() == 0 {
		s.buff.Compact()
	}

	return s.line.String(), nil
}

// Close marks the end of the stream. Already enqueued data is still readable.
func (s *Stream) Close() {
	s.buff.Close()
}

// CloseWithError closes the stream. The error is returned to the reader instead of io.EOF.
func (s *Stream) CloseWithError(err error) {
	s.err = err
	s.buff.Close()
}

func (s *Stream) Closed() bool {
	return s.buff.Closed()
}

// Err returns the error the stream was closed with.
func (s *Stream) Err() error {
	return s.err
}

// Len returns the number of enqueued bytes.
func (s *Stream) Len() int {
	return s.buff.Len()
}

// Bytes returns enqueued bytes without consuming them.
func (s *Stream) Bytes() []byte {
	return s.buff.Bytes()
}

func (s *Stream) String() string {
	return s.buff.String()
}

// Consume drops n enqueued bytes.
func (s *Stream) Consume(n int) {
	s.buff.Consume(n)
	if s.buff.Len() == 0 {
		s.buff.Compact()
	}
}

// Reset empties and reopens the stream.
func (s *Stream) Reset() {
	s.buff.Reset()
	s.line.Reset()
	s.err = nil
}

func (s *Stream) drained() error {
	switch {
	case !s.buff.Closed():
		return ErrPending
	case s.err != nil:
		return s.err
	default:
		return io.EOF
	}
}
