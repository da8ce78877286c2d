package export

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/draw"

	"github.com/svanichkin/pngview/png"
)

// DefaultPreviewColumns is the preview width used when the caller gives none.
const DefaultPreviewColumns = 80

// WritePreview renders img to a 24-bit color terminal. Each character cell is
// an upper half block whose foreground is one pixel and whose background is
// the pixel below it, so cells come out square. The image is scaled to cols
// columns and composited over bg.
func WritePreview(w io.Writer, img *png.Image, cols int, bg color.NRGBA) error {
	if cols <= 0 {
		cols = DefaultPreviewColumns
		if img.Width < cols {
			cols = img.Width
		}
	}
	rows := (img.Height*cols + img.Width/2) / img.Width
	if rows < 1 {
		rows = 1
	}
	if rows%2 == 1 {
		rows++
	}

	dst := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img.Image(), image.Rect(0, 0, img.Width, img.Height), draw.Src, nil)

	bw := bufio.NewWriter(w)
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := flatten(dst.NRGBAAt(x, y), bg)
			bottom := flatten(dst.NRGBAAt(x, y+1), bg)
			fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		bw.WriteString("\x1b[0m\n")
	}
	return bw.Flush()
}

func flatten(c, bg color.NRGBA) color.NRGBA {
	a := uint32(c.A)
	return color.NRGBA{
		R: uint8(over8(uint32(c.R), a, uint32(bg.R))),
		G: uint8(over8(uint32(c.G), a, uint32(bg.G))),
		B: uint8(over8(uint32(c.B), a, uint32(bg.B))),
		A: 0xff,
	}
}
