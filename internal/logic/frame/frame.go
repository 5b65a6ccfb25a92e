// Package frame holds the immutable raster type passed between the
// camera, the capture sequencer and the strip compositor.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // register GIF decoder for uploads
	_ "image/jpeg" // register JPEG decoder (camera output, uploads)
	_ "image/png"  // register PNG decoder
	"io"

	_ "golang.org/x/image/bmp"  // register BMP decoder for uploads
	_ "golang.org/x/image/webp" // register WebP decoder for uploads
)

// ErrEmpty is returned when an image has no pixels.
var ErrEmpty = errors.New("frame: empty image")

// Frame is an RGBA pixel buffer with its dimensions.
// A Frame never changes after construction: constructors copy their
// input and accessors hand out copies.
type Frame struct {
	width  int
	height int
	pix    []uint8 // 4 bytes per pixel, row-major, non-premultiplied RGBA
}

// New creates a frame from raw RGBA bytes (len must be w*h*4).
func New(width, height int, pix []uint8) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmpty
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("frame: pixel buffer is %d bytes, want %d", len(pix), width*height*4)
	}
	buf := make([]uint8, len(pix))
	copy(buf, pix)
	return &Frame{width: width, height: height, pix: buf}, nil
}

// FromImage copies any image into a new frame.
func FromImage(img image.Image) (*Frame, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmpty
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Frame{width: b.Dx(), height: b.Dy(), pix: dst.Pix}, nil
}

// Decode reads an encoded image (PNG, JPEG, GIF, WebP or BMP).
func Decode(r io.Reader) (*Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	f, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}
	return f, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Bounds returns the frame rectangle anchored at the origin.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.width, f.height) }

// Pix returns a copy of the raw pixel buffer.
func (f *Frame) Pix() []uint8 {
	buf := make([]uint8, len(f.pix))
	copy(buf, f.pix)
	return buf
}

// At returns the color of pixel (x, y).
func (f *Frame) At(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return color.NRGBA{}
	}
	i := (y*f.width + x) * 4
	return color.NRGBA{R: f.pix[i], G: f.pix[i+1], B: f.pix[i+2], A: f.pix[i+3]}
}

// Image returns a standard library copy of the frame.
func (f *Frame) Image() *image.NRGBA {
	return &image.NRGBA{Pix: f.Pix(), Stride: f.width * 4, Rect: f.Bounds()}
}

// Equal reports whether two frames have the same size and pixels.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.width != o.width || f.height != o.height {
		return false
	}
	for i := range f.pix {
		if f.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}
