// Package png decodes PNG byte streams into an RGBA pixel buffer without
// going through image/png. The pipeline reads and verifies chunks, joins the
// IDAT payloads, inflates them, reverses the scanline filters and unpacks the
// samples. Each stage finishes before the next starts and the first error
// aborts the decode.
package png

import (
	"io"
)

// Decode decodes a complete PNG file held in memory using the default Config.
func Decode(data []byte) (*Image, error) {
	return Config{}.Decode(data)
}

// DecodeReader reads r to the end and decodes it.
func DecodeReader(r io.Reader) (*Image, error) {
	return Config{}.DecodeReader(r)
}

// DecodeConfig returns the header without decoding the image data.
func DecodeConfig(data []byte) (Header, error) {
	r, err := NewChunkReader(data)
	if err != nil {
		return Header{}, err
	}
	c, err := r.Next()
	if err == io.EOF {
		return Header{}, newError(MissingChunk, "no IHDR")
	}
	if err != nil {
		return Header{}, err
	}
	h, err := ParseHeader(c.Data)
	if err != nil {
		return Header{}, err.(*Error).at(c.Index, c.Offset)
	}
	return h, nil
}

// DecodeReader reads r to the end and decodes it.
func (c Config) DecodeReader(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

// Decode runs the whole pipeline on data. No partial image is returned on
// failure.
func (c Config) Decode(data []byte) (*Image, error) {
	s := newSession(c)

	r, err := newChunkReader(data, c)
	if err != nil {
		return nil, err
	}
	if err := s.assemble(r); err != nil {
		return nil, err
	}

	raw, err := inflate(s.idat, int(s.header.FilteredSize()), !c.IgnoreAdler32, s.log)
	if err != nil {
		return nil, err
	}
	rows, err := reconstruct(raw, s.header)
	if err != nil {
		return nil, err
	}
	img, err := s.unpack(rows)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Stringer("header", s.header).Int("depth", img.Depth).Msg("decoded")
	return img, nil
}

// ChunkInfo describes one chunk for listings.
type ChunkInfo struct {
	Type     string
	Index    int
	Offset   int64
	Length   uint32
	CRC      uint32
	Critical bool
}

// Inspect lists the chunks of data up to IEND, verifying each one. On error
// the chunks read so far are returned with it.
func Inspect(data []byte) ([]ChunkInfo, error) {
	r, err := NewChunkReader(data)
	if err != nil {
		return nil, err
	}
	var infos []ChunkInfo
	for c, err := range r.All() {
		if err != nil {
			return infos, err
		}
		infos = append(infos, ChunkInfo{
			Type:     c.Type.String(),
			Index:    c.Index,
			Offset:   c.Offset,
			Length:   c.Length,
			CRC:      c.CRC,
			Critical: c.Type.Critical(),
		})
	}
	if len(infos) == 0 || infos[len(infos)-1].Type != typeIEND.String() {
		return infos, newError(MissingChunk, "no IEND")
	}
	return infos, nil
}
