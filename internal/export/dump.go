package export

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/svanichkin/pngview/internal/oops"
	"github.com/svanichkin/pngview/png"
)

// DumpMagic starts every pixel dump. The header that follows is big-endian:
// width u32, height u32, depth u8, channels u8. The rest of the file is a
// single zstd frame holding Pix row by row.
const DumpMagic = "PXZ1"

const dumpHeaderSize = len(DumpMagic) + 4 + 4 + 1 + 1

// MaxDumpPixels bounds the size a dump may claim.
const MaxDumpPixels = 1 << 26

var ErrInvalidDump = errors.New("export: invalid pixel dump")

// WriteDump writes img as a zstd-compressed raw pixel dump.
func WriteDump(w io.Writer, img *png.Image) error {
	var hdr [dumpHeaderSize]byte
	copy(hdr[:], DumpMagic)
	binary.BigEndian.PutUint32(hdr[4:], uint32(img.Width))
	binary.BigEndian.PutUint32(hdr[8:], uint32(img.Height))
	hdr[12] = uint8(img.Depth)
	hdr[13] = png.Channels
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(img.Pix); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadDump reads a dump written by WriteDump.
func ReadDump(r io.Reader) (*png.Image, error) {
	br := bufio.NewReader(r)
	var hdr [dumpHeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, oops.New(ErrInvalidDump, "reading header: %v", err)
	}
	if !bytes.Equal(hdr[:4], []byte(DumpMagic)) {
		return nil, oops.New(ErrInvalidDump, "bad magic %q", hdr[:4])
	}
	width := binary.BigEndian.Uint32(hdr[4:])
	height := binary.BigEndian.Uint32(hdr[8:])
	depth := int(hdr[12])
	if depth != 8 && depth != 16 {
		return nil, oops.New(ErrInvalidDump, "depth %d", depth)
	}
	if hdr[13] != png.Channels {
		return nil, oops.New(ErrInvalidDump, "%d channels", hdr[13])
	}
	if width == 0 || height == 0 || uint64(width)*uint64(height) > MaxDumpPixels {
		return nil, oops.New(ErrInvalidDump, "size %dx%d", width, height)
	}

	stride := int(width) * png.Channels * depth / 8
	pix := make([]byte, stride*int(height))

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	if _, err := io.ReadFull(dec, pix); err != nil {
		return nil, oops.New(ErrInvalidDump, "pixel data: %v", err)
	}
	var extra [1]byte
	if n, err := dec.Read(extra[:]); n != 0 || err != io.EOF {
		return nil, oops.New(ErrInvalidDump, "after pixel data: %d bytes, %v", n, err)
	}

	return &png.Image{
		Header: png.Header{
			Width:     width,
			Height:    height,
			BitDepth:  uint8(depth),
			ColorType: png.TrueColorAlpha,
		},
		Width:  int(width),
		Height: int(height),
		Depth:  depth,
		Stride: stride,
		Pix:    pix,
	}, nil
}
