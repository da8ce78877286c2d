package png

import "fmt"

// FilterType is the per-scanline filter byte.
type FilterType uint8

const (
	FilterNone FilterType = iota
	FilterSub
	FilterUp
	FilterAverage
	FilterPaeth
	nFilter
)

func (f FilterType) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterSub:
		return "sub"
	case FilterUp:
		return "up"
	case FilterAverage:
		return "average"
	case FilterPaeth:
		return "paeth"
	}
	return fmt.Sprintf("filter(%d)", uint8(f))
}

// reconstruct undoes the scanline filters of raw, a sequence of
// (filter byte, row) records, and returns the rows back to back without
// filter bytes. Row y is reconstructed from row y-1 only; row 0 sees an
// all-zero previous row.
func reconstruct(raw []byte, h Header) ([]byte, error) {
	rowBytes := h.RowBytes()
	height := int(h.Height)
	if want := h.FilteredSize(); int64(len(raw)) < want {
		return nil, newError(TruncatedStream, "%d bytes of image data, want %d", len(raw), want)
	}
	bpp := h.BytesPerPixel()

	out := make([]byte, height*rowBytes)
	prev := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		rec := raw[y*(rowBytes+1) : (y+1)*(rowBytes+1)]
		cur := out[y*rowBytes : (y+1)*rowBytes]
		ft := FilterType(rec[0])
		if ft >= nFilter {
			return nil, newError(UnknownFilterType, "row %d: filter type %d", y, rec[0])
		}
		copy(cur, rec[1:])
		if err := unfilterRow(ft, cur, prev, bpp); err != nil {
			return nil, err
		}
		prev = cur
	}
	return out, nil
}

// unfilterRow reverses filter ft in place on cur, given the reconstructed
// previous row and the byte stride of one pixel.
func unfilterRow(ft FilterType, cur, prev []byte, bpp int) error {
	switch ft {
	case FilterNone:
		// No-op.
	case FilterSub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case FilterUp:
		for i, p := range prev {
			cur[i] += p
		}
	case FilterAverage:
		// The first pixel has no left neighbour.
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prev[i] / 2
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += uint8((int(cur[i-bpp]) + int(prev[i])) / 2)
		}
	case FilterPaeth:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += paeth(0, prev[i], 0)
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	default:
		return newError(UnknownFilterType, "filter type %d", uint8(ft))
	}
	return nil
}

// paeth returns whichever of a (left), b (up), c (upper left) is closest to
// a+b-c, preferring a, then b.
func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
