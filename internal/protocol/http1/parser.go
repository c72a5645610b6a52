package http1

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	"github.com/indigo-web/wire/config"
	"github.com/indigo-web/wire/http"
	"github.com/indigo-web/wire/http/method"
	"github.com/indigo-web/wire/http/proto"
	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/internal/buffer"
)

// Parser parses a complete request head: the request line and headers, terminated by a blank
// line. All the parsed strings reference the head buffer.
//
// The head buffer is mutated while parsing folded headers: the joined value is written over the
// raw head starting at the value's beginning, and the rest of the folded span up to its final
// line terminator is filled with spaces. So "Cookie: 1234\n  456 \n" becomes
// "Cookie: 1234 456   \n", with the value being "1234 456".
type Parser struct {
	cfg   *config.Config
	line  *buffer.Buffer
	token *buffer.Buffer
}

func NewParser(cfg *config.Config) *Parser {
	return &Parser{
		cfg:   cfg,
		line:  buffer.New(cfg.URI.RequestLineSize.Default),
		token: buffer.New(cfg.URI.RequestLineSize.Default),
	}
}

// Parse fills the request from the unread bytes of the head.
func (p *Parser) Parse(request *http.Request, head *buffer.Buffer) error {
	raw := head.Bytes()
	end, termLen := buffer.Terminator(raw, 0)
	if termLen == 0 {
		return status.ErrMalformedRequestLine
	}

	if end > p.cfg.URI.RequestLineSize.Maximal {
		return status.ErrURITooLong
	}

	if err := p.requestLine(request, raw[:end]); err != nil {
		return err
	}

	if err := p.headers(request, raw, end+termLen); err != nil {
		return err
	}

	request.SetRaw(raw)
	return nil
}

func (p *Parser) requestLine(request *http.Request, line []byte) error {
	l := p.line
	l.Reset()
	l.Append(line)
	offset := func() int {
		return len(line) - l.Len()
	}

	if l.ReadToSpace(p.token) == 0 {
		return status.ErrMalformedRequestLine
	}

	request.Method = method.Parse(uf.B2S(p.token.Bytes()))
	if request.Method == method.Unknown {
		return status.ErrMethodNotImplemented
	}

	if l.SkipSpace() == 0 {
		return status.ErrMalformedRequestLine
	}

	start := offset()
	n := l.ReadToDelimOrSpace('?', p.token)
	if n == 0 {
		return status.ErrMalformedRequestLine
	}

	request.Path = uf.B2S(line[start : start+n])

	if l.Len() > 0 && l.Get(0) == '?' {
		l.Consume(1)
		start = offset()
		n = l.ReadToSpace(p.token)
		request.Query = uf.B2S(line[start : start+n])
	}

	if l.SkipSpace() == 0 || l.ReadToSpace(p.token) == 0 {
		return status.ErrMalformedRequestLine
	}

	if l.SkipSpace(); l.Len() > 0 {
		return status.ErrMalformedRequestLine
	}

	request.Protocol = proto.FromBytes(p.token.Bytes())
	if request.Protocol == proto.Unknown {
		return status.ErrUnsupportedProtocol
	}

	return nil
}

// header describes a header being parsed by its offsets in the raw head.
type header struct {
	keyStart, keyEnd int
	valStart, valEnd int
	// spanEnd is the position of the line terminator of the last line of the header
	spanEnd int
	folded  bool
}

func (p *Parser) headers(request *http.Request, raw []byte, offset int) error {
	var (
		h    header
		open bool
	)

	for {
		pos, termLen := buffer.Terminator(raw, offset)
		if termLen == 0 {
			return status.ErrMalformedHeader
		}

		line := raw[offset:pos]

		switch {
		case len(line) == 0:
			if open {
				return p.emit(request, raw, h)
			}

			return nil
		case isWS(line[0]):
			if !open {
				return status.ErrMalformedHeader
			}

			fold(raw, &h, offset, pos)
		default:
			if open {
				if err := p.emit(request, raw, h); err != nil {
					return err
				}
			}

			colon := bytes.IndexByte(line, ':')
			if colon <= 0 || bytes.IndexAny(line[:colon], " \t") != -1 {
				return status.ErrMalformedHeader
			}

			valStart, valEnd := trimWS(raw, offset+colon+1, pos)
			h = header{
				keyStart: offset,
				keyEnd:   offset + colon,
				valStart: valStart,
				valEnd:   valEnd,
				spanEnd:  pos,
			}
			open = true
		}

		offset = pos + termLen
	}
}

// fold appends the continuation line to the current value of the header.
func fold(raw []byte, h *header, lineStart, lineEnd int) {
	start, end := trimWS(raw, lineStart, lineEnd)
	if start < end {
		if h.valEnd > h.valStart {
			raw[h.valEnd] = ' '
			h.valEnd++
		}

		h.valEnd += copy(raw[h.valEnd:], raw[start:end])
	}

	h.spanEnd = lineEnd
	h.folded = true
}

func (p *Parser) emit(request *http.Request, raw []byte, h header) error {
	if h.folded {
		for i := h.valEnd; i < h.spanEnd; i++ {
			raw[i] = ' '
		}
	}

	if request.Headers.Count() >= p.cfg.Headers.Number.Maximal {
		return status.ErrTooManyHeaders
	}

	key := uf.B2S(raw[h.keyStart:h.keyEnd])
	value := uf.B2S(raw[h.valStart:h.valEnd])
	request.Headers.Add(key, value)

	switch {
	case strcomp.EqualFold(key, "content-length"):
		length, err := strconv.ParseInt(value, 10, 64)
		if err != nil || length < 0 {
			return status.ErrBadContentLength
		}

		if len(request.Headers.Values(key)) > 1 && length != request.ContentLength {
			return status.ErrBadContentLength
		}

		request.ContentLength = length
	case strcomp.EqualFold(key, "transfer-encoding"):
		request.Chunked = request.Protocol == proto.HTTP11 && strcomp.EqualFold(lastToken(value), "chunked")
	case strcomp.EqualFold(key, "connection"):
		value = strings.ToLower(value)
		if len(request.Connection) > 0 {
			value = request.Connection + ", " + value
		}

		request.Connection = value
	}

	return nil
}

func lastToken(list string) string {
	if i := strings.LastIndexByte(list, ','); i != -1 {
		list = list[i+1:]
	}

	return strings.TrimSpace(list)
}

func trimWS(raw []byte, start, end int) (int, int) {
	for start < end && isWS(raw[start]) {
		start++
	}

	for end > start && isWS(raw[end-1]) {
		end--
	}

	return start, end
}

func isWS(c byte) bool {
	return c == ' ' || c == '\t'
}
