package png

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// ColorType is the pixel composition declared in IHDR.
type ColorType uint8

const (
	Grayscale      ColorType = 0
	TrueColor      ColorType = 2
	Indexed        ColorType = 3
	GrayscaleAlpha ColorType = 4
	TrueColorAlpha ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case Grayscale:
		return "grayscale"
	case TrueColor:
		return "truecolor"
	case Indexed:
		return "indexed"
	case GrayscaleAlpha:
		return "grayscale+alpha"
	case TrueColorAlpha:
		return "truecolor+alpha"
	}
	return fmt.Sprintf("colortype(%d)", uint8(c))
}

// Channels returns the number of samples per pixel in the encoded data.
func (c ColorType) Channels() int {
	switch c {
	case Grayscale, Indexed:
		return 1
	case GrayscaleAlpha:
		return 2
	case TrueColor:
		return 3
	case TrueColorAlpha:
		return 4
	}
	return 0
}

// A cb is a combination of color type and bit depth.
type cb int

const (
	cbInvalid cb = iota
	cbG1
	cbG2
	cbG4
	cbG8
	cbG16
	cbTC8
	cbTC16
	cbP1
	cbP2
	cbP4
	cbP8
	cbGA8
	cbGA16
	cbTCA8
	cbTCA16
)

func combination(ct ColorType, depth uint8) cb {
	switch ct {
	case Grayscale:
		switch depth {
		case 1:
			return cbG1
		case 2:
			return cbG2
		case 4:
			return cbG4
		case 8:
			return cbG8
		case 16:
			return cbG16
		}
	case TrueColor:
		switch depth {
		case 8:
			return cbTC8
		case 16:
			return cbTC16
		}
	case Indexed:
		switch depth {
		case 1:
			return cbP1
		case 2:
			return cbP2
		case 4:
			return cbP4
		case 8:
			return cbP8
		}
	case GrayscaleAlpha:
		switch depth {
		case 8:
			return cbGA8
		case 16:
			return cbGA16
		}
	case TrueColorAlpha:
		switch depth {
		case 8:
			return cbTCA8
		case 16:
			return cbTCA16
		}
	}
	return cbInvalid
}

const headerLength = 13

// Header is the decoded IHDR payload. It is immutable once parsed.
type Header struct {
	Width             uint32
	Height            uint32
	BitDepth          uint8
	ColorType         ColorType
	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   uint8
}

// ParseHeader decodes a 13-byte IHDR payload and checks that it describes a
// format this package can decode.
func ParseHeader(b []byte) (Header, error) {
	if len(b) != headerLength {
		return Header{}, newError(MalformedChunk, "IHDR length %d", len(b))
	}
	h := Header{
		Width:             binary.BigEndian.Uint32(b[0:4]),
		Height:            binary.BigEndian.Uint32(b[4:8]),
		BitDepth:          b[8],
		ColorType:         ColorType(b[9]),
		CompressionMethod: b[10],
		FilterMethod:      b[11],
		InterlaceMethod:   b[12],
	}
	if h.Width == 0 || h.Height == 0 {
		return Header{}, newError(MalformedChunk, "non-positive dimension %dx%d", h.Width, h.Height)
	}
	// PNG limits dimensions to 2^31-1.
	if h.Width > 1<<31-1 || h.Height > 1<<31-1 {
		return Header{}, newError(MalformedChunk, "dimension overflow %dx%d", h.Width, h.Height)
	}
	if combination(h.ColorType, h.BitDepth) == cbInvalid {
		return Header{}, newError(UnsupportedFormat, "bit depth %d, color type %d", h.BitDepth, uint8(h.ColorType))
	}
	if h.CompressionMethod != 0 {
		return Header{}, newError(UnsupportedFormat, "compression method %d", h.CompressionMethod)
	}
	if h.FilterMethod != 0 {
		return Header{}, newError(UnsupportedFormat, "filter method %d", h.FilterMethod)
	}
	switch h.InterlaceMethod {
	case 0:
	case 1:
		return Header{}, newError(UnsupportedFormat, "Adam7 interlacing")
	default:
		return Header{}, newError(UnsupportedFormat, "interlace method %d", h.InterlaceMethod)
	}
	return h, nil
}

// BitsPerPixel is bit depth times channel count.
func (h Header) BitsPerPixel() int {
	return int(h.BitDepth) * h.ColorType.Channels()
}

// BytesPerPixel is the filter stride: whole bytes per pixel, at least 1.
func (h Header) BytesPerPixel() int {
	return (h.BitsPerPixel() + 7) / 8
}

// RowBytes is the width of one unfiltered scanline, without the filter byte.
func (h Header) RowBytes() int {
	return int((int64(h.BitsPerPixel())*int64(h.Width) + 7) / 8)
}

// FilteredSize is the exact decompressed size of the image data:
// one filter byte plus RowBytes per row. It saturates at math.MaxInt64.
func (h Header) FilteredSize() int64 {
	rowBytes := (uint64(h.BitsPerPixel())*uint64(h.Width) + 7) / 8
	hi, lo := bits.Mul64(uint64(h.Height), rowBytes+1)
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%d %s %d-bit", h.Width, h.Height, h.ColorType, h.BitDepth)
}
