// Package export writes decoded images out of the process: netpbm files, QOI,
// a zstd-compressed raw pixel dump, and a truecolor terminal preview.
package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"

	"github.com/svanichkin/pngview/png"
)

// WritePPM writes img as a binary PPM (P6). PPM has no alpha channel, so every
// pixel is composited over bg. 16-bit images keep 16-bit samples.
func WritePPM(w io.Writer, img *png.Image, bg color.NRGBA) error {
	bw := bufio.NewWriter(w)
	maxval := 255
	if img.Depth == 16 {
		maxval = 65535
	}
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n%d\n", img.Width, img.Height, maxval); err != nil {
		return err
	}

	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Stride : (y+1)*img.Stride]
		for x := 0; x < img.Width; x++ {
			if img.Depth == 16 {
				i := 8 * x
				a := uint32(row[i+6])<<8 | uint32(row[i+7])
				for c, b := range [3]uint8{bg.R, bg.G, bg.B} {
					v := uint32(row[i+2*c])<<8 | uint32(row[i+2*c+1])
					out := over16(v, a, uint32(b)*0x101)
					bw.WriteByte(uint8(out >> 8))
					bw.WriteByte(uint8(out))
				}
				continue
			}
			i := 4 * x
			a := uint32(row[i+3])
			for c, b := range [3]uint8{bg.R, bg.G, bg.B} {
				bw.WriteByte(uint8(over8(uint32(row[i+c]), a, uint32(b))))
			}
		}
	}
	return bw.Flush()
}

// WritePAM writes img as a P7 RGB_ALPHA tuple file, keeping alpha.
func WritePAM(w io.Writer, img *png.Image) error {
	bw := bufio.NewWriter(w)
	maxval := 255
	if img.Depth == 16 {
		maxval = 65535
	}
	_, err := fmt.Fprintf(bw, "P7\nWIDTH %d\nHEIGHT %d\nDEPTH %d\nMAXVAL %d\nTUPLTYPE RGB_ALPHA\nENDHDR\n",
		img.Width, img.Height, png.Channels, maxval)
	if err != nil {
		return err
	}
	// Pix rows are already RGBA with big-endian 16-bit samples, the PAM layout.
	for y := 0; y < img.Height; y++ {
		if _, err := bw.Write(img.Pix[y*img.Stride : y*img.Stride+img.Width*png.Channels*img.Depth/8]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func over8(v, a, bg uint32) uint32 {
	return (v*a + bg*(255-a) + 127) / 255
}

func over16(v, a, bg uint32) uint32 {
	return uint32((uint64(v)*uint64(a) + uint64(bg)*uint64(65535-a) + 32767) / 65535)
}
