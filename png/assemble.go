package png

import (
	"image/color"
	"io"
	"math"
	"math/bits"

	"github.com/rs/zerolog"
)

// Palette is the PLTE table. Alpha comes from tRNS and defaults to opaque.
type Palette []color.NRGBA

// Decoding stage. IHDR, PLTE (if present) and tRNS (if present) must come
// before the first IDAT; IEND ends the stream.
const (
	dsStart = iota
	dsSeenIHDR
	dsSeenPLTE
	dsSeenIDAT
	dsSeenIEND
)

// session is the state of one decode. Each field is written once while the
// chunks are assembled and only read afterwards.
type session struct {
	cfg Config
	log *zerolog.Logger

	header  Header
	palette Palette

	// Transparent sample for color types 0 and 2, raw (unscaled) values.
	useTransparent bool
	transparent    [3]uint16

	idat    []byte
	nIDAT   int
	nChunks int
	stage   int
}

func newSession(cfg Config) *session {
	return &session{cfg: cfg, log: cfg.logger()}
}

// assemble consumes the chunk sequence. It parses IHDR, PLTE and tRNS, and
// appends every IDAT payload to s.idat in encounter order.
func (s *session) assemble(r *ChunkReader) error {
	for {
		c, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		s.nChunks++
		s.log.Debug().Str("chunk", c.Type.String()).Int("index", c.Index).Uint32("length", c.Length).Msg("chunk")

		switch c.Type {
		case typeIHDR:
			h, err := ParseHeader(c.Data)
			if err != nil {
				return err.(*Error).at(c.Index, c.Offset)
			}
			if err := s.checkLimits(h); err != nil {
				return err.at(c.Index, c.Offset)
			}
			s.header = h
			s.stage = dsSeenIHDR
		case typePLTE:
			if s.stage != dsSeenIHDR {
				return newError(UnexpectedChunkOrder, "PLTE after %s", stageName(s.stage)).at(c.Index, c.Offset)
			}
			if err := s.parsePLTE(c.Data); err != nil {
				return err.at(c.Index, c.Offset)
			}
			s.stage = dsSeenPLTE
		case typeTRNS:
			if s.stage >= dsSeenIDAT {
				return newError(UnexpectedChunkOrder, "tRNS after IDAT").at(c.Index, c.Offset)
			}
			if err := s.parseTRNS(c.Data); err != nil {
				return err.at(c.Index, c.Offset)
			}
		case typeIDAT:
			if s.stage == dsSeenIHDR && s.header.ColorType == Indexed {
				return newError(MissingPalette, "IDAT before PLTE").at(c.Index, c.Offset)
			}
			if int64(len(s.idat))+int64(len(c.Data)) > int64(s.cfg.maxChunkLength()) {
				return newError(LimitExceeded, "image data exceeds %d bytes", s.cfg.maxChunkLength()).at(c.Index, c.Offset)
			}
			s.idat = append(s.idat, c.Data...)
			s.nIDAT++
			s.stage = dsSeenIDAT
		case typeIEND:
			s.stage = dsSeenIEND
		default:
			if c.Type.Critical() {
				return newError(UnsupportedFormat, "critical chunk %s", c.Type).at(c.Index, c.Offset)
			}
			s.log.Debug().Str("chunk", c.Type.String()).Int("index", c.Index).Msg("skipping ancillary chunk")
		}
	}

	switch {
	case s.nChunks == 0:
		return newError(MissingChunk, "no IHDR")
	case s.nIDAT == 0:
		return newError(MissingChunk, "no IDAT")
	case s.stage != dsSeenIEND:
		return newError(MissingChunk, "no IEND")
	}
	s.log.Debug().Int("idat_chunks", s.nIDAT).Int("compressed_bytes", len(s.idat)).
		Int("skipped_ancillary", r.skipped).Msg("assembled image data")
	return nil
}

func (s *session) checkLimits(h Header) *Error {
	if n := int64(h.Width) * int64(h.Height); n > s.cfg.maxPixels() {
		return newError(LimitExceeded, "%dx%d is more than %d pixels", h.Width, h.Height, s.cfg.maxPixels())
	}
	// The filtered stream and the output buffer must both fit in an int.
	rowBytes := (uint64(h.BitsPerPixel())*uint64(h.Width) + 7) / 8
	if hi, lo := bits.Mul64(uint64(h.Height), rowBytes+1); hi != 0 || lo > math.MaxInt {
		return newError(LimitExceeded, "%dx%d: filtered data size overflows", h.Width, h.Height)
	}
	pixelBytes := uint64(Channels)
	if h.BitDepth == 16 && !s.cfg.Truncate16 {
		pixelBytes *= 2
	}
	if hi, lo := bits.Mul64(uint64(h.Width)*uint64(h.Height), pixelBytes); hi != 0 || lo > math.MaxInt {
		return newError(LimitExceeded, "%dx%d: pixel buffer size overflows", h.Width, h.Height)
	}
	return nil
}

func (s *session) parsePLTE(b []byte) *Error {
	if len(b)%3 != 0 || len(b) == 0 {
		return newError(MalformedPalette, "PLTE length %d", len(b))
	}
	n := len(b) / 3
	if n > 256 {
		return newError(MalformedPalette, "%d palette entries", n)
	}
	switch s.header.ColorType {
	case Indexed:
		if n > 1<<s.header.BitDepth {
			return newError(MalformedPalette, "%d palette entries for bit depth %d", n, s.header.BitDepth)
		}
	case TrueColor, TrueColorAlpha:
		// A suggested palette for truecolor images; decoding does not use it.
	default:
		s.log.Debug().Stringer("color_type", s.header.ColorType).Msg("ignoring PLTE")
		return nil
	}
	p := make(Palette, n)
	for i := range p {
		p[i] = color.NRGBA{R: b[3*i], G: b[3*i+1], B: b[3*i+2], A: 0xff}
	}
	s.palette = p
	return nil
}

func (s *session) parseTRNS(b []byte) *Error {
	if s.cfg.IgnoreTransparency {
		return nil
	}
	switch s.header.ColorType {
	case Grayscale:
		if len(b) != 2 {
			return newError(MalformedChunk, "tRNS length %d for grayscale", len(b))
		}
		s.useTransparent = true
		s.transparent[0] = uint16(b[0])<<8 | uint16(b[1])
	case TrueColor:
		if len(b) != 6 {
			return newError(MalformedChunk, "tRNS length %d for truecolor", len(b))
		}
		s.useTransparent = true
		for i := range s.transparent {
			s.transparent[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
		}
	case Indexed:
		if s.stage != dsSeenPLTE {
			return newError(UnexpectedChunkOrder, "tRNS before PLTE")
		}
		if len(b) > len(s.palette) {
			return newError(MalformedChunk, "tRNS has %d entries for %d palette colors", len(b), len(s.palette))
		}
		for i, a := range b {
			s.palette[i].A = a
		}
	default:
		s.log.Debug().Stringer("color_type", s.header.ColorType).Msg("ignoring tRNS")
	}
	return nil
}

func stageName(stage int) string {
	switch stage {
	case dsStart:
		return "start"
	case dsSeenIHDR:
		return "IHDR"
	case dsSeenPLTE:
		return "PLTE"
	case dsSeenIDAT:
		return "IDAT"
	}
	return "IEND"
}
