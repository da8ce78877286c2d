package export

import (
	"bufio"
	"encoding/binary"
	"image"
	"io"

	"github.com/xfmoulet/qoi"

	"github.com/svanichkin/pngview/internal/oops"
	"github.com/svanichkin/pngview/png"
)

// QOIMagic starts every QOI file.
const QOIMagic = "qoif"

const (
	qoiIndex byte = 0b00_000000
	qoiDiff  byte = 0b01_000000
	qoiLuma  byte = 0b10_000000
	qoiRun   byte = 0b11_000000
	qoiRGB   byte = 0b1111_1110
	qoiRGBA  byte = 0b1111_1111
)

type qoiPixel [4]byte

func qoiHash(p qoiPixel) byte {
	return (p[0]*3 + p[1]*5 + p[2]*7 + p[3]*11) % 64
}

// WriteQOI encodes img in the Quite OK Image format. QOI stores 8-bit
// straight-alpha samples, so 16-bit images keep their high bytes only.
// The samples are read from Pix directly: qoi.Encode goes through
// color.Color.RGBA and would store premultiplied values for partially
// transparent pixels.
func WriteQOI(w io.Writer, img *png.Image) error {
	out := bufio.NewWriter(w)

	var hdr [14]byte
	copy(hdr[:], QOIMagic)
	binary.BigEndian.PutUint32(hdr[4:], uint32(img.Width))
	binary.BigEndian.PutUint32(hdr[8:], uint32(img.Height))
	hdr[12] = png.Channels
	hdr[13] = 0 // sRGB with linear alpha
	if _, err := out.Write(hdr[:]); err != nil {
		return err
	}

	var index [64]qoiPixel
	prev := qoiPixel{0, 0, 0, 255}
	run := 0
	step := png.Channels * img.Depth / 8
	last := img.Width*img.Height - 1

	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < img.Width; x++ {
			var px qoiPixel
			for c := range px {
				px[c] = row[x*step+c*img.Depth/8]
			}

			if px == prev {
				run++
				if run == 62 || y*img.Width+x == last {
					out.WriteByte(qoiRun | byte(run-1))
					run = 0
				}
				continue
			}
			if run > 0 {
				out.WriteByte(qoiRun | byte(run-1))
				run = 0
			}

			h := qoiHash(px)
			switch {
			case index[h] == px:
				out.WriteByte(qoiIndex | h)
			case px[3] != prev[3]:
				index[h] = px
				out.WriteByte(qoiRGBA)
				out.Write(px[:])
			default:
				index[h] = px
				vr := int8(px[0] - prev[0])
				vg := int8(px[1] - prev[1])
				vb := int8(px[2] - prev[2])
				vgr := vr - vg
				vgb := vb - vg
				switch {
				case vr > -3 && vr < 2 && vg > -3 && vg < 2 && vb > -3 && vb < 2:
					out.WriteByte(qoiDiff | byte(vr+2)<<4 | byte(vg+2)<<2 | byte(vb+2))
				case vgr > -9 && vgr < 8 && vg > -33 && vg < 32 && vgb > -9 && vgb < 8:
					out.WriteByte(qoiLuma | byte(vg+32))
					out.WriteByte(byte(vgr+8)<<4 | byte(vgb+8))
				default:
					out.WriteByte(qoiRGB)
					out.Write(px[:3])
				}
			}
			prev = px
		}
	}

	out.Write([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	return out.Flush()
}

// ReadQOI decodes a QOI file into an 8-bit image.
func ReadQOI(r io.Reader) (*png.Image, error) {
	m, err := qoi.Decode(r)
	if err != nil {
		return nil, oops.New(err, "decoding QOI")
	}
	nrgba, ok := m.(*image.NRGBA)
	if !ok {
		return nil, oops.New(nil, "QOI decoder returned %T", m)
	}
	b := nrgba.Bounds()
	return &png.Image{
		Header: png.Header{
			Width:     uint32(b.Dx()),
			Height:    uint32(b.Dy()),
			BitDepth:  8,
			ColorType: png.TrueColorAlpha,
		},
		Width:  b.Dx(),
		Height: b.Dy(),
		Depth:  8,
		Stride: nrgba.Stride,
		Pix:    nrgba.Pix,
	}, nil
}
