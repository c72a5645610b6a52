package http1

import (
	"maps"
	"slices"
	"strconv"

	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/status"
)

const (
	crlf          = "\r\n"
	colonsp       = ": "
	connectionKey = "connection:"
)

var chunkedFinalizer = []byte("0\r\n\r\n")

// Serializer renders responses into a buffer, which is then handed to the transport as is.
type Serializer struct {
	buff           []byte
	maxRetained    int
	defaultHeaders []defaultHeader
}

func NewSerializer(cfg *config.Config) *Serializer {
	return &Serializer{
		buff:           make([]byte, 0, cfg.NET.WriteBufferSize.Default),
		maxRetained:    cfg.NET.WriteBufferSize.Maximal,
		defaultHeaders: processDefaultHeaders(cfg.Headers.Default),
	}
}

// Head renders the status line and the headers. The Connection header is always rendered in
// its compact form, e.g. connection:close. User-set Connection headers are omitted in this
// case. If connection is empty, no compact header is rendered and user-set ones are kept
// instead, which is the case for protocol switching.
func (s *Serializer) Head(protocol proto.Protocol, response *http.Response, connection string) {
	if protocol == proto.Unknown {
		protocol = proto.HTTP11
	}

	s.buff = append(s.buff, protocol.String()...)
	s.sp()
	s.buff = strconv.AppendUint(s.buff, uint64(response.Code), 10)
	s.sp()
	s.buff = append(s.buff, response.Reason()...)
	s.crlf()

	for _, entry := range response.Headers.Expose() {
		if len(connection) > 0 && strcomp.EqualFold(entry.Key, "connection") {
			continue
		}

		if !status.IsSafeInHeader(entry.Key) {
			continue
		}

		for _, value := range entry.Values {
			if status.IsSafeInHeader(value) {
				s.renderHeader(entry.Key, value)
			}
		}
	}

	for _, header := range s.defaultHeaders {
		if !response.Headers.Has(header.Key) {
			s.buff = append(s.buff, header.Full...)
		}
	}

	if len(connection) > 0 {
		s.buff = append(s.buff, connectionKey...)
		s.buff = append(s.buff, connection...)
		s.crlf()
	}

	s.crlf()
}

// Plain renders the body data as is.
func (s *Serializer) Plain(data []byte) {
	s.buff = append(s.buff, data...)
}

// Chunk renders the data as a single chunk. Empty data renders nothing, as the zero-length
// chunk terminates the body.
func (s *Serializer) Chunk(data []byte) {
	if len(data) == 0 {
		return
	}

	s.buff = strconv.AppendUint(s.buff, uint64(len(data)), 16)
	s.crlf()
	s.buff = append(s.buff, data...)
	s.crlf()
}

// LastChunk renders the chunked body terminator.
func (s *Serializer) LastChunk() {
	s.buff = append(s.buff, chunkedFinalizer...)
}

// Bytes returns everything rendered since the last Reset.
func (s *Serializer) Bytes() []byte {
	return s.buff
}

// Reset discards rendered data. Buffers which grew too large are released.
func (s *Serializer) Reset() {
	if cap(s.buff) > s.maxRetained {
		s.buff = make([]byte, 0, s.maxRetained)
		return
	}

	s.buff = s.buff[:0]
}

func (s *Serializer) renderHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, colonsp...)
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *Serializer) sp() {
	s.buff = append(s.buff, ' ')
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

type defaultHeader struct {
	Key  string
	Full string
}

// processDefaultHeaders pre-renders default headers, sorted by their keys so the output
// is stable.
func processDefaultHeaders(hdrs map[string]string) []defaultHeader {
	processed := make([]defaultHeader, 0, len(hdrs))

	for _, key := range slices.Sorted(maps.Keys(hdrs)) {
		full := key + colonsp + hdrs[key] + crlf
		processed = append(processed, defaultHeader{
			// we let the GC release all the values of the map, as here we're using only
			// the brand-new line without keeping the original string
			Key:  full[:len(key)],
			Full: full,
		})
	}

	return processed
}
