package png

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInflate(src []byte, limit int) ([]byte, error) {
	return inflate(src, limit, true, &nopLogger)
}

func corpus() []byte {
	rng := rand.New(rand.NewSource(1))
	var buf bytes.Buffer
	for buf.Len() < 100_000 {
		switch rng.Intn(3) {
		case 0:
			buf.WriteString("the quick brown fox jumps over the lazy dog ")
		case 1:
			n := rng.Intn(300)
			for i := 0; i < n; i++ {
				buf.WriteByte(byte(rng.Intn(256)))
			}
		default:
			buf.Write(bytes.Repeat([]byte{byte(rng.Intn(4))}, rng.Intn(600)))
		}
	}
	return buf.Bytes()
}

func TestInflateMatchesReference(t *testing.T) {
	plain := corpus()
	levels := []int{zlib.NoCompression, zlib.BestSpeed, 3, zlib.DefaultCompression, 7, zlib.BestCompression, zlib.HuffmanOnly}
	for _, level := range levels {
		got, err := testInflate(compress(t, plain, level), len(plain))
		require.NoError(t, err, "level %d", level)
		require.True(t, bytes.Equal(plain, got), "level %d", level)
	}
}

func TestInflateFixedOverlappingCopy(t *testing.T) {
	var bw bitWriter
	bw.writeBits(1, 1) // final
	bw.writeBits(1, 2) // fixed Huffman
	bw.fixedLiteral('a')
	bw.fixedLiteral(264) // length 10
	bw.writeCode(0, 5)   // distance 1
	bw.fixedLiteral(endBlockMarker)

	want := bytes.Repeat([]byte("a"), 11)
	got, err := testInflate(zlibWrap(bw.flush(), want), len(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInflateBackReferenceAcrossBlocks(t *testing.T) {
	var bw bitWriter
	bw.writeBits(0, 1)
	bw.writeBits(1, 2)
	for _, c := range []byte("abc") {
		bw.fixedLiteral(int(c))
	}
	bw.fixedLiteral(endBlockMarker)
	bw.writeBits(1, 1)
	bw.writeBits(1, 2)
	bw.fixedLiteral(258) // length 4
	bw.writeCode(2, 5)   // distance 3
	bw.fixedLiteral(endBlockMarker)

	want := []byte("abcabca")
	got, err := testInflate(zlibWrap(bw.flush(), want), len(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInflateDistanceBeyondOutput(t *testing.T) {
	var bw bitWriter
	bw.writeBits(1, 1)
	bw.writeBits(1, 2)
	bw.fixedLiteral('a')
	bw.fixedLiteral(257) // length 3
	bw.writeCode(1, 5)   // distance 2
	bw.fixedLiteral(endBlockMarker)

	_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
	assert.ErrorIs(t, err, TruncatedStream)
}

func TestInflateStoredBlock(t *testing.T) {
	var bw bitWriter
	bw.writeBits(1, 1)
	bw.writeBits(0, 2)
	stream := bw.flush()
	payload := []byte("stored bytes")
	stream = binary.LittleEndian.AppendUint16(stream, uint16(len(payload)))
	stream = binary.LittleEndian.AppendUint16(stream, ^uint16(len(payload)))
	stream = append(stream, payload...)

	got, err := testInflate(zlibWrap(stream, payload), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	bad := append([]byte(nil), stream...)
	bad[3] ^= 0x01
	_, err = testInflate(zlibWrap(bad, payload), len(payload))
	assert.ErrorIs(t, err, CorruptStream)
}

func TestInflateInvalidSymbols(t *testing.T) {
	t.Run("reserved block type", func(t *testing.T) {
		var bw bitWriter
		bw.writeBits(1, 1)
		bw.writeBits(3, 2)
		_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
		assert.ErrorIs(t, err, CorruptStream)
	})
	t.Run("length symbol 286", func(t *testing.T) {
		var bw bitWriter
		bw.writeBits(1, 1)
		bw.writeBits(1, 2)
		bw.fixedLiteral(286)
		_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
		assert.ErrorIs(t, err, CorruptStream)
	})
	t.Run("distance symbol 30", func(t *testing.T) {
		var bw bitWriter
		bw.writeBits(1, 1)
		bw.writeBits(1, 2)
		bw.fixedLiteral('a')
		bw.fixedLiteral(257)
		bw.writeCode(30, 5)
		_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
		assert.ErrorIs(t, err, CorruptStream)
	})
}

func TestInflateBadDynamicTables(t *testing.T) {
	header := func(bw *bitWriter) {
		bw.writeBits(1, 1)
		bw.writeBits(2, 2)
		bw.writeBits(0, 5) // 257 literal/length codes
		bw.writeBits(0, 5) // 1 distance code
		bw.writeBits(0, 4) // 4 code length codes: 16, 17, 18, 0
	}

	t.Run("over-subscribed", func(t *testing.T) {
		var bw bitWriter
		header(&bw)
		for i := 0; i < 4; i++ {
			bw.writeBits(1, 3)
		}
		_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
		assert.ErrorIs(t, err, InvalidHuffmanCode)
	})
	t.Run("under-subscribed", func(t *testing.T) {
		var bw bitWriter
		header(&bw)
		bw.writeBits(2, 3)
		bw.writeBits(0, 3)
		bw.writeBits(0, 3)
		bw.writeBits(0, 3)
		_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
		assert.ErrorIs(t, err, InvalidHuffmanCode)
	})
	t.Run("repeat without previous length", func(t *testing.T) {
		var bw bitWriter
		header(&bw)
		// Symbols 0 and 16 get one-bit codes: 0 is "0", 16 is "1".
		bw.writeBits(1, 3)
		bw.writeBits(0, 3)
		bw.writeBits(0, 3)
		bw.writeBits(1, 3)
		bw.writeCode(1, 1) // 16 as the very first length
		bw.writeBits(0, 2)
		_, err := testInflate(zlibWrap(bw.flush(), nil), 16)
		assert.ErrorIs(t, err, InvalidHuffmanCode)
	})
}

func TestInflateTruncated(t *testing.T) {
	plain := corpus()[:20_000]
	for _, level := range []int{zlib.NoCompression, zlib.BestSpeed, zlib.BestCompression} {
		full := compress(t, plain, level)
		for _, n := range []int{0, 1, 2, 3, len(full) / 3, len(full) / 2, len(full) - 5, len(full) - 1} {
			_, err := testInflate(full[:n], len(plain))
			require.Error(t, err, "level %d cut %d", level, n)
			assert.Equal(t, TruncatedStream, KindOf(err), "level %d cut %d: %v", level, n, err)
		}
	}
}

func TestInflateChecks(t *testing.T) {
	plain := []byte("some pixel rows")
	good := compress(t, plain, zlib.DefaultCompression)

	t.Run("excess data", func(t *testing.T) {
		_, err := testInflate(good, len(plain)-1)
		assert.ErrorIs(t, err, CorruptStream)
	})
	t.Run("adler mismatch", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[len(bad)-1] ^= 0xff
		_, err := testInflate(bad, len(plain))
		assert.ErrorIs(t, err, ChecksumMismatch)

		got, err := inflate(bad, len(plain), false, &nopLogger)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})
	t.Run("header check", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[1] ^= 0x01
		_, err := testInflate(bad, len(plain))
		assert.ErrorIs(t, err, CorruptStream)
	})
	t.Run("compression method", func(t *testing.T) {
		_, err := testInflate([]byte{0x77, 0x01, 0, 0}, 4)
		assert.ErrorIs(t, err, UnsupportedFormat)
	})
	t.Run("preset dictionary", func(t *testing.T) {
		_, err := testInflate([]byte{0x78, 0xbb, 0, 0, 0, 0}, 4)
		assert.ErrorIs(t, err, UnsupportedFormat)
	})
}
