package png

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// bitWriter writes bits LSB-first, the order deflate reads them.
type bitWriter struct {
	buf  bytes.Buffer
	acc  byte
	nbit uint8
}

// writeBits writes the low n bits of v, least significant first.
func (bw *bitWriter) writeBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		if v&(1<<i) != 0 {
			bw.acc |= 1 << bw.nbit
		}
		bw.nbit++
		if bw.nbit == 8 {
			bw.buf.WriteByte(bw.acc)
			bw.acc = 0
			bw.nbit = 0
		}
	}
}

// writeCode writes an n-bit Huffman code, most significant bit first.
func (bw *bitWriter) writeCode(code uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		bw.writeBits(code>>i&1, 1)
	}
}

func (bw *bitWriter) flush() []byte {
	if bw.nbit > 0 {
		bw.buf.WriteByte(bw.acc)
		bw.acc = 0
		bw.nbit = 0
	}
	return bw.buf.Bytes()
}

// fixedLiteral writes literal/length symbol v with the fixed code.
func (bw *bitWriter) fixedLiteral(v int) {
	switch {
	case v < 144:
		bw.writeCode(uint32(0x30+v), 8)
	case v < 256:
		bw.writeCode(uint32(0x190+v-144), 9)
	case v < 280:
		bw.writeCode(uint32(v-256), 7)
	default:
		bw.writeCode(uint32(0xc0+v-280), 8)
	}
}

// zlibWrap puts a zlib header and the Adler-32 of plain around a raw deflate
// stream.
func zlibWrap(deflate, plain []byte) []byte {
	out := []byte{0x78, 0x01}
	out = append(out, deflate...)
	return binary.BigEndian.AppendUint32(out, adler32.Checksum(plain))
}

func compress(t *testing.T, raw []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	require.NoError(t, err)
	_, err = w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func chunk(typ string, data []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[4:]))
}

func ihdr(width, height uint32, depth uint8, ct ColorType) []byte {
	b := binary.BigEndian.AppendUint32(nil, width)
	b = binary.BigEndian.AppendUint32(b, height)
	return append(b, depth, uint8(ct), 0, 0, 0)
}

// file concatenates the signature and the given chunks.
func file(chunks ...[]byte) []byte {
	out := []byte(pngHeader)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// simpleFile builds a complete file from a header and already filtered data.
func simpleFile(t *testing.T, h []byte, filtered []byte, extra ...[]byte) []byte {
	t.Helper()
	chunks := [][]byte{chunk("IHDR", h)}
	chunks = append(chunks, extra...)
	chunks = append(chunks, chunk("IDAT", compress(t, filtered, zlib.DefaultCompression)), chunk("IEND", nil))
	return file(chunks...)
}

// filterRows applies filter ft to every row of unfiltered and returns the
// filtered stream with filter bytes.
func filterRows(unfiltered []byte, rowBytes, bpp int, ft FilterType) []byte {
	var out []byte
	prev := make([]byte, rowBytes)
	for y := 0; y*rowBytes < len(unfiltered); y++ {
		cur := unfiltered[y*rowBytes : (y+1)*rowBytes]
		out = append(out, byte(ft))
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			var pred byte
			switch ft {
			case FilterSub:
				pred = left
			case FilterUp:
				pred = up
			case FilterAverage:
				pred = byte((int(left) + int(up)) / 2)
			case FilterPaeth:
				pred = paeth(left, up, upLeft)
			}
			out = append(out, cur[i]-pred)
		}
		prev = cur
	}
	return out
}
