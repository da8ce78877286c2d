package png

const maxCodeLen = 15

// huffman is a canonical Huffman code: the number of codes of each length
// and the symbols ordered by code.
type huffman struct {
	count  [maxCodeLen + 1]uint16
	symbol []uint16
}

// init builds the code from per-symbol code lengths. A code that is
// over-subscribed, or incomplete with more than a single one-bit code, is
// rejected. A table with no codes at all is accepted; decoding with it fails.
func (h *huffman) init(lengths []uint8) error {
	if err := h.build(lengths); err != nil {
		return err
	}
	left := 1
	var total, longest int
	for n := 1; n <= maxCodeLen; n++ {
		left <<= 1
		left -= int(h.count[n])
		if left < 0 {
			return newError(InvalidHuffmanCode, "over-subscribed code of length %d", n)
		}
		total += int(h.count[n])
		if h.count[n] > 0 {
			longest = n
		}
	}
	if left > 0 && total > 0 && !(total == 1 && longest == 1) {
		return newError(InvalidHuffmanCode, "incomplete code with %d symbols", total)
	}
	return nil
}

// build fills count and symbol without checking completeness; the fixed
// distance code relies on that.
func (h *huffman) build(lengths []uint8) error {
	h.count = [maxCodeLen + 1]uint16{}
	for _, n := range lengths {
		if n > maxCodeLen {
			return newError(InvalidHuffmanCode, "code length %d", n)
		}
		h.count[n]++
	}
	h.count[0] = 0

	var offs [maxCodeLen + 2]uint16
	for n := 1; n <= maxCodeLen; n++ {
		offs[n+1] = offs[n] + h.count[n]
	}
	h.symbol = make([]uint16, offs[maxCodeLen+1])
	for sym, n := range lengths {
		if n != 0 {
			h.symbol[offs[n]] = uint16(sym)
			offs[n]++
		}
	}
	return nil
}

// decode reads one symbol, a bit at a time. Codes are stored MSB-first within
// the LSB-first bitstream, so each new bit extends the code on the right.
func (h *huffman) decode(br *bitReader) (int, error) {
	var code, first, index int
	for n := 1; n <= maxCodeLen; n++ {
		b, err := br.bit()
		if err != nil {
			return 0, err
		}
		code |= b
		count := int(h.count[n])
		if code-first < count {
			return int(h.symbol[index+code-first]), nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, newError(InvalidHuffmanCode, "no symbol for code").at(-1, br.offset())
}
