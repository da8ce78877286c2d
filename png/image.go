package png

import "image"

// Channels is the number of samples per pixel in an Image: R, G, B, A.
const Channels = 4

// Image is the canonical pixel buffer: non-premultiplied RGBA rows, each
// sample 8 bits, or 16 bits big-endian when Depth is 16. The layout matches
// image.NRGBA and image.NRGBA64. Display code owns any reordering it needs.
type Image struct {
	Header Header

	Width  int
	Height int
	Depth  int
	Stride int
	Pix    []byte
}

func newImage(h Header, wide bool) *Image {
	depth := 8
	if wide {
		depth = 16
	}
	w, ht := int(h.Width), int(h.Height)
	stride := w * Channels * depth / 8
	return &Image{
		Header: h,
		Width:  w,
		Height: ht,
		Depth:  depth,
		Stride: stride,
		Pix:    make([]byte, stride*ht),
	}
}

// Image returns an *image.NRGBA or *image.NRGBA64 sharing m's pixels.
func (m *Image) Image() image.Image {
	r := image.Rect(0, 0, m.Width, m.Height)
	if m.Depth == 16 {
		return &image.NRGBA64{Pix: m.Pix, Stride: m.Stride, Rect: r}
	}
	return &image.NRGBA{Pix: m.Pix, Stride: m.Stride, Rect: r}
}

// PixOffset is the index of the first byte of pixel (x, y) in Pix.
func (m *Image) PixOffset(x, y int) int {
	return y*m.Stride + x*Channels*m.Depth/8
}
