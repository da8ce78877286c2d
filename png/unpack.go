package png

// unpack turns unfiltered rows into the canonical RGBA buffer. Gray is
// broadcast to RGB, palette indices are resolved, and opaque color types get
// full alpha unless tRNS marks a pixel transparent.
func (s *session) unpack(data []byte) (*Image, error) {
	h := s.header
	c := combination(h.ColorType, h.BitDepth)
	if c == cbInvalid {
		return nil, newError(UnsupportedFormat, "bit depth %d, color type %d", h.BitDepth, uint8(h.ColorType))
	}
	if h.ColorType == Indexed && len(s.palette) == 0 {
		return nil, newError(MissingPalette, "indexed image without PLTE")
	}

	img := newImage(h, h.BitDepth == 16 && !s.cfg.Truncate16)
	wide := img.Depth == 16
	width := int(h.Width)
	rowBytes := h.RowBytes()
	t := s.transparent
	useT := s.useTransparent

	for y := 0; y < int(h.Height); y++ {
		row := data[y*rowBytes : (y+1)*rowBytes]
		dst := img.Pix[y*img.Stride : (y+1)*img.Stride]

		switch c {
		case cbG1, cbG2, cbG4, cbG8:
			scale := grayScale[h.BitDepth]
			for x := 0; x < width; x++ {
				v := sampleAt(row, x, h.BitDepth)
				a := uint16(0xffff)
				if useT && uint16(v) == t[0] {
					a = 0
				}
				g := uint16(v*scale) * 0x101
				put(dst, x, wide, g, g, g, a)
			}
		case cbG16:
			for x := 0; x < width; x++ {
				v := be16(row, 2*x)
				a := uint16(0xffff)
				if useT && v == t[0] {
					a = 0
				}
				put(dst, x, wide, v, v, v, a)
			}
		case cbTC8:
			for x := 0; x < width; x++ {
				r, g, b := uint16(row[3*x]), uint16(row[3*x+1]), uint16(row[3*x+2])
				a := uint16(0xffff)
				if useT && r == t[0] && g == t[1] && b == t[2] {
					a = 0
				}
				put(dst, x, wide, r*0x101, g*0x101, b*0x101, a)
			}
		case cbTC16:
			for x := 0; x < width; x++ {
				r, g, b := be16(row, 6*x), be16(row, 6*x+2), be16(row, 6*x+4)
				a := uint16(0xffff)
				if useT && r == t[0] && g == t[1] && b == t[2] {
					a = 0
				}
				put(dst, x, wide, r, g, b, a)
			}
		case cbP1, cbP2, cbP4, cbP8:
			for x := 0; x < width; x++ {
				idx := int(sampleAt(row, x, h.BitDepth))
				if idx >= len(s.palette) {
					return nil, newError(PaletteIndexOutOfRange, "index %d at (%d,%d), palette has %d colors", idx, x, y, len(s.palette))
				}
				p := s.palette[idx]
				put(dst, x, wide, uint16(p.R)*0x101, uint16(p.G)*0x101, uint16(p.B)*0x101, uint16(p.A)*0x101)
			}
		case cbGA8:
			for x := 0; x < width; x++ {
				g, a := uint16(row[2*x])*0x101, uint16(row[2*x+1])*0x101
				put(dst, x, wide, g, g, g, a)
			}
		case cbGA16:
			for x := 0; x < width; x++ {
				g, a := be16(row, 4*x), be16(row, 4*x+2)
				put(dst, x, wide, g, g, g, a)
			}
		case cbTCA8:
			for x := 0; x < width; x++ {
				i := 4 * x
				put(dst, x, wide, uint16(row[i])*0x101, uint16(row[i+1])*0x101, uint16(row[i+2])*0x101, uint16(row[i+3])*0x101)
			}
		case cbTCA16:
			for x := 0; x < width; x++ {
				i := 8 * x
				put(dst, x, wide, be16(row, i), be16(row, i+2), be16(row, i+4), be16(row, i+6))
			}
		default:
			return nil, newError(UnsupportedFormat, "bit depth %d, color type %d", h.BitDepth, uint8(h.ColorType))
		}
	}
	return img, nil
}

// grayScale widens a sub-byte gray sample to the full 8-bit range.
var grayScale = map[uint8]uint8{1: 0xff, 2: 0x55, 4: 0x11, 8: 0x01}

// sampleAt returns sample x of a row packed at depth bits per sample, most
// significant bits first. Depth 8 is a plain byte.
func sampleAt(row []byte, x int, depth uint8) uint8 {
	if depth == 8 {
		return row[x]
	}
	bit := x * int(depth)
	shift := 8 - int(depth) - bit%8
	return row[bit/8] >> uint(shift) & (1<<depth - 1)
}

func be16(b []byte, i int) uint16 {
	return uint16(b[i])<<8 | uint16(b[i+1])
}

// put stores one pixel given in 16-bit scale. Narrow images keep the high
// byte, which is exact for 8-bit sources and truncates 16-bit ones.
func put(dst []byte, x int, wide bool, r, g, b, a uint16) {
	if wide {
		i := 8 * x
		dst[i+0], dst[i+1] = uint8(r>>8), uint8(r)
		dst[i+2], dst[i+3] = uint8(g>>8), uint8(g)
		dst[i+4], dst[i+5] = uint8(b>>8), uint8(b)
		dst[i+6], dst[i+7] = uint8(a>>8), uint8(a)
		return
	}
	i := 4 * x
	dst[i+0] = uint8(r >> 8)
	dst[i+1] = uint8(g >> 8)
	dst[i+2] = uint8(b >> 8)
	dst[i+3] = uint8(a >> 8)
}
