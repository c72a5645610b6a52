package buffer

import (
	"bytes"

	"github.com/indigo-web/utils/uf"
)

const (
	sp = ' '
	cr = '\r'
	lf = '\n'
)

// Buffer is a growable slice of bytes with a read cursor. Bytes are appended at the tail and
// consumed from the cursor, consumed bytes are never re-read. Once the buffer is closed, no more
// appends are expected, so callers may treat missing data as truncation.
type Buffer struct {
	memory []byte
	begin  int
	closed bool
}

func New(initialSize int) *Buffer {
	return &Buffer{
		memory: make([]byte, 0, initialSize),
	}
}

// Wrap returns a buffer holding a copy of the string.
func Wrap(s string) *Buffer {
	b := New(len(s))
	b.AppendString(s)
	return b
}

// Append writes data at the tail of the buffer.
func (b *Buffer) Append(data []byte) {
	b.memory = append(b.memory, data...)
}

func (b *Buffer) AppendString(s string) {
	b.memory = append(b.memory, s...)
}

func (b *Buffer) AppendByte(c byte) {
	b.memory = append(b.memory, c)
}

// Close marks the end of the stream. Appends are still possible technically, however
// nobody is expected to do so.
func (b *Buffer) Close() {
	b.closed = true
}

func (b *Buffer) Closed() bool {
	return b.closed
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.memory) - b.begin
}

// Bytes returns the unread bytes. The slice aliases the buffer memory and stays valid until
// the next call to Compact or Reset.
func (b *Buffer) Bytes() []byte {
	return b.memory[b.begin:]
}

// Raw returns the whole content, including already consumed bytes.
func (b *Buffer) Raw() []byte {
	return b.memory
}

func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Get returns the byte at index i relative to the cursor. Indexing past the available length
// panics with the runtime bounds error, just like slices do.
func (b *Buffer) Get(i int) byte {
	return b.Bytes()[i]
}

// Consume moves the cursor n bytes forward.
func (b *Buffer) Consume(n int) {
	if n > b.Len() {
		n = b.Len()
	}

	b.begin += n
}

// Compact drops the consumed bytes, moving the unread ones to the beginning of the memory.
func (b *Buffer) Compact() {
	if b.begin == 0 {
		return
	}

	n := copy(b.memory, b.memory[b.begin:])
	b.memory = b.memory[:n]
	b.begin = 0
}

// Reset empties the buffer and reopens it.
func (b *Buffer) Reset() {
	b.memory = b.memory[:0]
	b.begin = 0
	b.closed = false
}

// ReadToSpace copies bytes up to the first space into dest, consuming them. The space itself
// stays in the buffer. Returns the number of copied bytes.
func (b *Buffer) ReadToSpace(dest *Buffer) int {
	return b.readUntil(dest, func(c byte) bool {
		return c == sp
	})
}

// ReadToDelimOrSpace behaves like ReadToSpace, except it also stops at delim.
func (b *Buffer) ReadToDelimOrSpace(delim byte, dest *Buffer) int {
	return b.readUntil(dest, func(c byte) bool {
		return c == sp || c == delim
	})
}

func (b *Buffer) readUntil(dest *Buffer, stop func(byte) bool) int {
	data := b.Bytes()
	n := 0
	for n < len(data) && !stop(data[n]) {
		n++
	}

	dest.Reset()
	dest.Append(data[:n])
	b.begin += n

	return n
}

// SkipSpace consumes consecutive spaces and returns how many were skipped.
func (b *Buffer) SkipSpace() int {
	data := b.Bytes()
	n := 0
	for n < len(data) && data[n] == sp {
		n++
	}

	b.begin += n
	return n
}

// ReadLine consumes a single line and copies its content without the terminator into dest.
// Terminators are, in order of priority: CRLF, LF and a bare CR. A bare CR at the very end
// of the buffered data is a terminator as well, so callers reading a stream must make sure
// the whole line is available first (see IndexLFLF). Returns -1 if no terminator is buffered.
func (b *Buffer) ReadLine(dest *Buffer) int {
	data := b.Bytes()
	end, termLen := Terminator(data, 0)
	dest.Reset()
	if termLen == 0 {
		return -1
	}

	dest.Append(data[:end])
	b.begin += end + termLen

	return end
}

// Terminator looks for the first line terminator in data starting at from. It returns the
// position of the terminator and its length, which is 0 if there is none.
func Terminator(data []byte, from int) (pos, length int) {
	i := bytes.IndexAny(data[from:], "\r\n")
	if i == -1 {
		return len(data), 0
	}

	pos = from + i
	if data[pos] == lf {
		return pos, 1
	}

	if pos+1 < len(data) && data[pos+1] == lf {
		return pos, 2
	}

	return pos, 1
}

// HasLFLF reports whether the unread bytes contain a blank line, that is two consecutive line
// terminators with nothing in between. The buffer is left untouched.
func (b *Buffer) HasLFLF() bool {
	return b.IndexLFLF() != -1
}

// IndexLFLF returns the offset (relative to the cursor) right after the blank line terminating
// the headers section, or -1 if it isn't buffered yet.
//
// A CR at the very end of the data is ambiguous, as it might be a beginning of CRLF. It closes
// the blank line only if the terminator before it was a bare CR as well, so "\r\r" completes
// the section, but "\r\n\r" does not.
func (b *Buffer) IndexLFLF() int {
	data := b.Bytes()

	for offset := 0; offset < len(data); {
		pos, termLen := Terminator(data, offset)
		if termLen == 0 {
			return -1
		}

		next := pos + termLen
		if next >= len(data) {
			return -1
		}

		switch data[next] {
		case lf:
			return next + 1
		case cr:
			if next+1 < len(data) {
				if data[next+1] == lf {
					return next + 2
				}

				return next + 1
			}

			if termLen == 1 && data[pos] == cr {
				return next + 1
			}

			return -1
		}

		offset = next
	}

	return -1
}

// Hash returns the 31-based polynomial hash of the unread bytes. For ASCII content it equals
// HashString of the same text.
func (b *Buffer) Hash() int32 {
	return hash(b.Bytes())
}

func HashString(s string) int32 {
	return hash(uf.S2B(s))
}

func hash(data []byte) (h int32) {
	for _, c := range data {
		h = 31*h + int32(c)
	}

	return h
}
