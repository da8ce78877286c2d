package png

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure. Every Kind is fatal to the decode that
// produced it; a Kind is itself an error so callers can match with errors.Is.
type Kind int

const (
	BadSignature Kind = iota + 1
	TruncatedChunk
	TruncatedStream
	ChecksumMismatch
	UnexpectedChunkOrder
	MissingChunk
	MalformedPalette
	MissingPalette
	PaletteIndexOutOfRange
	UnsupportedFormat
	UnknownFilterType
	InvalidHuffmanCode
	MalformedChunk
	CorruptStream
	LimitExceeded
)

var kindNames = map[Kind]string{
	BadSignature:           "bad signature",
	TruncatedChunk:         "truncated chunk",
	TruncatedStream:        "truncated stream",
	ChecksumMismatch:       "checksum mismatch",
	UnexpectedChunkOrder:   "unexpected chunk order",
	MissingChunk:           "missing chunk",
	MalformedPalette:       "malformed palette",
	MissingPalette:         "missing palette",
	PaletteIndexOutOfRange: "palette index out of range",
	UnsupportedFormat:      "unsupported format",
	UnknownFilterType:      "unknown filter type",
	InvalidHuffmanCode:     "invalid huffman code",
	MalformedChunk:         "malformed chunk",
	CorruptStream:          "corrupt stream",
	LimitExceeded:          "limit exceeded",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Error() string { return "png: " + k.String() }

// Error is the error type returned by every decode stage.
// Chunk and Offset are -1 when they do not apply.
type Error struct {
	Kind   Kind
	Chunk  int
	Offset int64
	Msg    string
}

func (e *Error) Error() string {
	s := "png: " + e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Chunk >= 0 {
		s += fmt.Sprintf(" (chunk %d)", e.Chunk)
	}
	if e.Offset >= 0 {
		s += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Kind }

// KindOf returns the Kind carried by err, or 0 if err did not come from this
// package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Chunk: -1, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

// at attaches a chunk index and a file offset.
func (e *Error) at(chunk int, offset int64) *Error {
	e.Chunk = chunk
	e.Offset = offset
	return e
}
