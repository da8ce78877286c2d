package png

import (
	"encoding/binary"
	"hash/adler32"
	"sync"

	"github.com/rs/zerolog"
)

const (
	maxNumLit      = 286
	maxNumDist     = 30
	numCodes       = 19
	endBlockMarker = 256
	windowSize     = 1 << 15

	// initialOutCap bounds the up-front allocation of the output buffer.
	initialOutCap = 1 << 20
)

var codeOrder = [numCodes]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

var (
	lengthBase  = [...]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
	lengthExtra = [...]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}
	distBase    = [...]int{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
	distExtra   = [...]uint{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}
)

var (
	fixedOnce          sync.Once
	fixedLit, fixedDst huffman
)

func initFixed() {
	var lengths [288]uint8
	for i := range lengths {
		switch {
		case i < 144:
			lengths[i] = 8
		case i < 256:
			lengths[i] = 9
		case i < 280:
			lengths[i] = 7
		default:
			lengths[i] = 8
		}
	}
	fixedLit.build(lengths[:])
	// Distance symbols 30 and 31 have codes but no meaning.
	var dist [32]uint8
	for i := range dist {
		dist[i] = 5
	}
	fixedDst.build(dist[:])
}

// inflater decodes one zlib stream into out. The whole output is kept, so the
// 32 KiB window is simply the tail of out.
type inflater struct {
	br    *bitReader
	out   []byte
	limit int
	log   *zerolog.Logger

	lit, dist huffman
	blocks    int
}

// inflate decompresses a zlib-wrapped deflate stream. limit is the exact
// number of bytes the image needs; producing more is an error.
func inflate(src []byte, limit int, verifyAdler bool, log *zerolog.Logger) ([]byte, error) {
	if len(src) < 2 {
		return nil, newError(TruncatedStream, "missing zlib header").at(-1, 0)
	}
	cmf, flg := src[0], src[1]
	if cmf&0x0f != 8 {
		return nil, newError(UnsupportedFormat, "zlib compression method %d", cmf&0x0f)
	}
	if cmf>>4 > 7 {
		return nil, newError(CorruptStream, "zlib window size %d", cmf>>4).at(-1, 0)
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return nil, newError(CorruptStream, "zlib header check").at(-1, 0)
	}
	if flg&0x20 != 0 {
		return nil, newError(UnsupportedFormat, "zlib preset dictionary")
	}

	f := &inflater{
		br:    newBitReader(src[2:]),
		out:   make([]byte, 0, min(limit, initialOutCap)),
		limit: limit,
		log:   log,
	}
	if err := f.run(); err != nil {
		if e, ok := err.(*Error); ok && e.Offset >= 0 {
			e.Offset += 2
		}
		return nil, err
	}
	log.Debug().Int("blocks", f.blocks).Int("bytes", len(f.out)).Msg("inflated image data")

	f.br.alignByte()
	trailer, err := f.br.readBytes(4)
	if err != nil {
		if verifyAdler {
			return nil, newError(TruncatedStream, "missing zlib checksum").at(-1, f.br.offset()+2)
		}
		return f.out, nil
	}
	if verifyAdler {
		stored := binary.BigEndian.Uint32(trailer)
		if computed := adler32.Checksum(f.out); computed != stored {
			return nil, newError(ChecksumMismatch, "adler-32 stored %08x, computed %08x", stored, computed)
		}
	}
	return f.out, nil
}

func (f *inflater) run() error {
	for {
		final, err := f.br.bit()
		if err != nil {
			return err
		}
		typ, err := f.br.bits(2)
		if err != nil {
			return err
		}
		f.blocks++
		switch typ {
		case 0:
			err = f.storedBlock()
		case 1:
			fixedOnce.Do(initFixed)
			err = f.huffmanBlock(&fixedLit, &fixedDst)
		case 2:
			if err = f.readHuffman(); err == nil {
				err = f.huffmanBlock(&f.lit, &f.dist)
			}
		default:
			err = newError(CorruptStream, "reserved block type 3").at(-1, f.br.offset())
		}
		if err != nil {
			return err
		}
		if final == 1 {
			return nil
		}
	}
}

func (f *inflater) storedBlock() error {
	f.br.alignByte()
	hdr, err := f.br.readBytes(4)
	if err != nil {
		return err
	}
	n := int(binary.LittleEndian.Uint16(hdr[0:2]))
	nn := binary.LittleEndian.Uint16(hdr[2:4])
	if uint16(^n) != nn {
		return newError(CorruptStream, "stored block length %d does not match its complement", n).at(-1, f.br.offset()-4)
	}
	data, err := f.br.readBytes(n)
	if err != nil {
		return err
	}
	if err := f.grow(n); err != nil {
		return err
	}
	f.out = append(f.out, data...)
	return nil
}

// readHuffman reads the code length description of a dynamic block.
func (f *inflater) readHuffman() error {
	nlit, err := f.br.bits(5)
	if err != nil {
		return err
	}
	nlit += 257
	if nlit > maxNumLit {
		return newError(CorruptStream, "%d literal/length codes", nlit).at(-1, f.br.offset())
	}
	ndist, err := f.br.bits(5)
	if err != nil {
		return err
	}
	ndist++
	if ndist > maxNumDist {
		return newError(CorruptStream, "%d distance codes", ndist).at(-1, f.br.offset())
	}
	nclen, err := f.br.bits(4)
	if err != nil {
		return err
	}
	nclen += 4

	var codebits [numCodes]uint8
	for i := 0; i < nclen; i++ {
		v, err := f.br.bits(3)
		if err != nil {
			return err
		}
		codebits[codeOrder[i]] = uint8(v)
	}
	var clen huffman
	if err := clen.init(codebits[:]); err != nil {
		return err.(*Error).at(-1, f.br.offset())
	}

	var lengths [maxNumLit + maxNumDist]uint8
	for i, n := 0, nlit+ndist; i < n; {
		x, err := clen.decode(f.br)
		if err != nil {
			return err
		}
		if x < 16 {
			lengths[i] = uint8(x)
			i++
			continue
		}
		var rep int
		var nb uint
		var b uint8
		switch x {
		case 16:
			if i == 0 {
				return newError(InvalidHuffmanCode, "repeat with no previous length").at(-1, f.br.offset())
			}
			rep, nb, b = 3, 2, lengths[i-1]
		case 17:
			rep, nb = 3, 3
		default:
			rep, nb = 11, 7
		}
		extra, err := f.br.bits(nb)
		if err != nil {
			return err
		}
		rep += extra
		if i+rep > n {
			return newError(InvalidHuffmanCode, "code lengths overflow by %d", i+rep-n).at(-1, f.br.offset())
		}
		for j := 0; j < rep; j++ {
			lengths[i] = b
			i++
		}
	}

	if lengths[endBlockMarker] == 0 {
		return newError(InvalidHuffmanCode, "no end-of-block code").at(-1, f.br.offset())
	}
	if err := f.lit.init(lengths[:nlit]); err != nil {
		return err.(*Error).at(-1, f.br.offset())
	}
	if err := f.dist.init(lengths[nlit : nlit+ndist]); err != nil {
		return err.(*Error).at(-1, f.br.offset())
	}
	return nil
}

func (f *inflater) huffmanBlock(lit, dist *huffman) error {
	for {
		v, err := lit.decode(f.br)
		if err != nil {
			return err
		}
		switch {
		case v < 256:
			if err := f.grow(1); err != nil {
				return err
			}
			f.out = append(f.out, byte(v))
			continue
		case v == endBlockMarker:
			return nil
		case v >= maxNumLit:
			return newError(CorruptStream, "length symbol %d", v).at(-1, f.br.offset())
		}

		v -= 257
		extra, err := f.br.bits(lengthExtra[v])
		if err != nil {
			return err
		}
		length := lengthBase[v] + extra

		d, err := dist.decode(f.br)
		if err != nil {
			return err
		}
		if d >= maxNumDist {
			return newError(CorruptStream, "distance symbol %d", d).at(-1, f.br.offset())
		}
		extra, err = f.br.bits(distExtra[d])
		if err != nil {
			return err
		}
		distance := distBase[d] + extra
		if distance > len(f.out) || distance > windowSize {
			return newError(TruncatedStream, "distance %d with only %d bytes of history", distance, len(f.out)).at(-1, f.br.offset())
		}
		if err := f.grow(length); err != nil {
			return err
		}
		// Byte by byte, so a distance shorter than the length repeats the
		// bytes this copy has just written.
		from := len(f.out) - distance
		for i := 0; i < length; i++ {
			f.out = append(f.out, f.out[from+i])
		}
	}
}

func (f *inflater) grow(n int) error {
	if len(f.out)+n > f.limit {
		return newError(CorruptStream, "more than %d bytes of image data", f.limit).at(-1, f.br.offset())
	}
	return nil
}
