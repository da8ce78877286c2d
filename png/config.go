package png

import "github.com/rs/zerolog"

const (
	defaultMaxPixels      = 1 << 26
	defaultMaxChunkLength = 1<<31 - 1
)

// Config controls a decode. The zero value decodes with default limits and
// strict checksum policy. A Config holds no per-decode state and may be shared
// between goroutines.
type Config struct {
	// MaxPixels caps width*height. Zero means 1<<26.
	MaxPixels int64
	// MaxChunkLength caps a single chunk's declared length and the combined
	// length of all IDAT payloads. Zero means 2^31-1.
	MaxChunkLength uint32

	// LenientAncillaryCRC skips ancillary chunks whose CRC does not match
	// instead of failing. Critical chunks are always checked.
	LenientAncillaryCRC bool
	// IgnoreAdler32 disables the zlib trailer check.
	IgnoreAdler32 bool

	// Truncate16 narrows 16-bit samples to their high byte.
	Truncate16 bool
	// IgnoreTransparency leaves tRNS unapplied; every pixel of an opaque
	// color type gets full alpha.
	IgnoreTransparency bool

	// Logger receives debug traces of the decode. Nil disables logging.
	Logger *zerolog.Logger
}

var nopLogger = zerolog.Nop()

func (c Config) logger() *zerolog.Logger {
	if c.Logger == nil {
		return &nopLogger
	}
	return c.Logger
}

func (c Config) maxPixels() int64 {
	if c.MaxPixels <= 0 {
		return defaultMaxPixels
	}
	return c.MaxPixels
}

func (c Config) maxChunkLength() uint32 {
	if c.MaxChunkLength == 0 || c.MaxChunkLength > defaultMaxChunkLength {
		return defaultMaxChunkLength
	}
	return c.MaxChunkLength
}
