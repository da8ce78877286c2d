package png

// bitReader reads bits LSB-first from a byte slice, as deflate stores them.
type bitReader struct {
	data []byte
	pos  int    // index of the next unread byte
	acc  uint32 // buffered bits, next bit in the low position
	nbit uint   // number of valid bits in acc
}

func newBitReader(b []byte) *bitReader {
	return &bitReader{data: b}
}

// need makes sure at least n bits (n <= 24) are buffered.
func (br *bitReader) need(n uint) error {
	for br.nbit < n {
		if br.pos >= len(br.data) {
			return newError(TruncatedStream, "compressed data ended mid-symbol").at(-1, int64(br.pos))
		}
		br.acc |= uint32(br.data[br.pos]) << br.nbit
		br.pos++
		br.nbit += 8
	}
	return nil
}

// bits reads an n-bit little-endian field.
func (br *bitReader) bits(n uint) (int, error) {
	if n == 0 {
		return 0, nil
	}
	if err := br.need(n); err != nil {
		return 0, err
	}
	v := br.acc & (1<<n - 1)
	br.acc >>= n
	br.nbit -= n
	return int(v), nil
}

// bit reads a single bit.
func (br *bitReader) bit() (int, error) {
	return br.bits(1)
}

// alignByte drops the bits left in the current byte. need never buffers a
// whole spare byte, so whatever remains in acc belongs to that byte.
func (br *bitReader) alignByte() {
	br.acc = 0
	br.nbit = 0
}

// readBytes returns the next n whole bytes. The reader must be aligned.
func (br *bitReader) readBytes(n int) ([]byte, error) {
	if len(br.data)-br.pos < n {
		return nil, newError(TruncatedStream, "wanted %d bytes, %d left", n, len(br.data)-br.pos).at(-1, int64(br.pos))
	}
	b := br.data[br.pos : br.pos+n]
	br.pos += n
	return b, nil
}

// offset is the byte position for error reports.
func (br *bitReader) offset() int64 {
	return int64(br.pos)
}
