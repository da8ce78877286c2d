package png

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"iter"

	"github.com/rs/zerolog"
)

const pngHeader = "\x89PNG\r\n\x1a\n"

// ChunkType is the 4-byte ASCII tag of a chunk.
type ChunkType [4]byte

var (
	typeIHDR = ChunkType{'I', 'H', 'D', 'R'}
	typePLTE = ChunkType{'P', 'L', 'T', 'E'}
	typeIDAT = ChunkType{'I', 'D', 'A', 'T'}
	typeIEND = ChunkType{'I', 'E', 'N', 'D'}
	typeTRNS = ChunkType{'t', 'R', 'N', 'S'}
)

func (t ChunkType) String() string { return string(t[:]) }

// Critical reports whether the chunk must be understood to decode the image.
// The case of the first letter carries this bit.
func (t ChunkType) Critical() bool { return t[0]&0x20 == 0 }

// Chunk is one length-delimited, checksum-verified record of the stream.
// Data aliases the input buffer.
type Chunk struct {
	Type   ChunkType
	Data   []byte
	Length uint32
	CRC    uint32
	Index  int
	Offset int64
}

// A ChunkReader walks the chunks that follow the signature. It yields chunks
// until IEND, after which Next returns io.EOF. Next also returns io.EOF when
// the input ends exactly on a chunk boundary before IEND; the caller decides
// whether that is an error.
type ChunkReader struct {
	data []byte
	pos  int
	n    int
	done bool

	maxLength uint32
	lenient   bool
	log       *zerolog.Logger
	// skipped counts ancillary chunks dropped by the lenient CRC policy.
	skipped int
}

// NewChunkReader checks the signature and positions the reader on the first
// chunk.
func NewChunkReader(data []byte) (*ChunkReader, error) {
	return newChunkReader(data, Config{})
}

func newChunkReader(data []byte, cfg Config) (*ChunkReader, error) {
	if len(data) < len(pngHeader) || string(data[:len(pngHeader)]) != pngHeader {
		return nil, newError(BadSignature, "not a PNG file").at(-1, 0)
	}
	return &ChunkReader{
		data:      data,
		pos:       len(pngHeader),
		maxLength: cfg.maxChunkLength(),
		lenient:   cfg.LenientAncillaryCRC,
		log:       cfg.logger(),
	}, nil
}

// Reset rewinds the reader to the first chunk.
func (r *ChunkReader) Reset() {
	r.pos = len(pngHeader)
	r.n = 0
	r.done = false
	r.skipped = 0
}

// Next returns the next chunk.
func (r *ChunkReader) Next() (Chunk, error) {
	for {
		c, err := r.next()
		if err == errSkipChunk {
			r.skipped++
			continue
		}
		return c, err
	}
}

// errSkipChunk is internal: an ancillary chunk with a bad CRC under the
// lenient policy.
var errSkipChunk = &Error{Kind: ChecksumMismatch, Chunk: -1, Offset: -1}

func (r *ChunkReader) next() (Chunk, error) {
	if r.done {
		return Chunk{}, io.EOF
	}
	remaining := len(r.data) - r.pos
	if remaining == 0 {
		r.done = true
		return Chunk{}, io.EOF
	}
	offset := int64(r.pos)
	index := r.n
	if remaining < 8 {
		return Chunk{}, newError(TruncatedChunk, "%d bytes left for chunk header", remaining).at(index, offset)
	}

	length := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	var typ ChunkType
	copy(typ[:], r.data[r.pos+4:r.pos+8])
	remaining -= 8
	if int64(remaining) < int64(length) {
		return Chunk{}, newError(TruncatedChunk, "%s wants %d data bytes, %d left", typ, length, remaining).at(index, offset)
	}
	if remaining-int(length) < 4 {
		return Chunk{}, newError(TruncatedChunk, "%s has no CRC", typ).at(index, offset)
	}
	if length > r.maxLength {
		return Chunk{}, newError(LimitExceeded, "%s chunk length %d", typ, length).at(index, offset)
	}

	start := r.pos + 8
	end := start + int(length)
	stored := binary.BigEndian.Uint32(r.data[end : end+4])
	r.pos = end + 4
	r.n++

	if computed := crc32.ChecksumIEEE(r.data[start-4 : end]); computed != stored {
		if r.lenient && index > 0 && !typ.Critical() {
			r.log.Warn().Str("chunk", typ.String()).Int("index", index).Int64("offset", offset).
				Msg("skipping ancillary chunk with bad CRC")
			return Chunk{}, errSkipChunk
		}
		return Chunk{}, newError(ChecksumMismatch, "%s stored %08x, computed %08x", typ, stored, computed).at(index, offset)
	}

	switch {
	case index == 0 && typ != typeIHDR:
		return Chunk{}, newError(UnexpectedChunkOrder, "first chunk is %s, not IHDR", typ).at(index, offset)
	case index > 0 && typ == typeIHDR:
		return Chunk{}, newError(UnexpectedChunkOrder, "repeated IHDR").at(index, offset)
	case typ == typeIEND:
		if length != 0 {
			return Chunk{}, newError(MalformedChunk, "IEND carries %d bytes", length).at(index, offset)
		}
		r.done = true
	}

	return Chunk{
		Type:   typ,
		Data:   r.data[start:end:end],
		Length: length,
		CRC:    stored,
		Index:  index,
		Offset: offset,
	}, nil
}

// All returns the chunk sequence from the first chunk, independent of the
// reader's current position. Iteration stops after the first error.
func (r *ChunkReader) All() iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		c := *r
		c.Reset()
		for {
			chunk, err := c.Next()
			if err == io.EOF {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}
