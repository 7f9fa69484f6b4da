// Package pixel defines the canonical pixel buffer shared by every decoder and
// the direct (uncompressed) pixel formats that unpack into it.
//
// A Buffer stores packed 32-bit ARGB values (0xAARRGGBB) in row-major order.
// Its Pix slice always has exactly Width*Height elements; operations that
// change the dimensions allocate a new Buffer instead of mutating in place.
package pixel

import (
	"image"
	"image/color"
)

// MaxDimension is the largest accepted width or height.
const MaxDimension = 65535

// Buffer is a width×height grid of packed ARGB pixels.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint32
}

// CheckDimensions validates a declared width and height before anything is
// allocated for them.
func CheckDimensions(op string, width, height int) error {
	if width <= 0 || width > MaxDimension {
		return Errorf(ErrInvalidDimension, op, "width", int64(width))
	}
	if height <= 0 || height > MaxDimension {
		return Errorf(ErrInvalidDimension, op, "height", int64(height))
	}
	return nil
}

// NewBuffer allocates a zeroed (fully transparent) buffer.
func NewBuffer(width, height int) (*Buffer, error) {
	if err := CheckDimensions("pixel", width, height); err != nil {
		return nil, err
	}
	return &Buffer{Width: width, Height: height, Pix: make([]uint32, width*height)}, nil
}

// Len returns the number of pixels.
func (b *Buffer) Len() int { return len(b.Pix) }

// ARGBAt returns the packed pixel at (x, y), or 0 outside the buffer.
func (b *Buffer) ARGBAt(x, y int) uint32 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0
	}
	return b.Pix[y*b.Width+x]
}

// SetARGB stores a packed pixel at (x, y). Coordinates outside the buffer
// are ignored.
func (b *Buffer) SetARGB(x, y int, argb uint32) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Width+x] = argb
}

// Resize returns a new buffer of the given size holding the overlapping
// top-left region of b. The receiver is left untouched.
func (b *Buffer) Resize(width, height int) (*Buffer, error) {
	dst, err := NewBuffer(width, height)
	if err != nil {
		return nil, err
	}
	w := min(width, b.Width)
	h := min(height, b.Height)
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*width:y*width+w], b.Pix[y*b.Width:y*b.Width+w])
	}
	return dst, nil
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{Width: b.Width, Height: b.Height, Pix: make([]uint32, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color { return ToNRGBA(b.ARGBAt(x, y)) }

// NRGBA converts the buffer into a standard library image.
func (b *Buffer) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(b.Bounds())
	for i, c := range b.Pix {
		o := i * 4
		img.Pix[o+0] = uint8(c >> 16)
		img.Pix[o+1] = uint8(c >> 8)
		img.Pix[o+2] = uint8(c)
		img.Pix[o+3] = uint8(c >> 24)
	}
	return img
}

// FromImage converts any image into a Buffer. Non-NRGBA sources go through
// color.NRGBAModel.
func FromImage(src image.Image) (*Buffer, error) {
	r := src.Bounds()
	dst, err := NewBuffer(r.Dx(), r.Dy())
	if err != nil {
		return nil, err
	}
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < dst.Height; y++ {
			row := n.Pix[n.PixOffset(r.Min.X, r.Min.Y+y):]
			for x := 0; x < dst.Width; x++ {
				o := x * 4
				dst.Pix[y*dst.Width+x] = Pack(row[o+3], row[o], row[o+1], row[o+2])
			}
		}
		return dst, nil
	}
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			c := color.NRGBAModel.Convert(src.At(r.Min.X+x, r.Min.Y+y)).(color.NRGBA)
			dst.Pix[y*dst.Width+x] = FromNRGBA(c)
		}
	}
	return dst, nil
}

// Pack assembles a packed ARGB value.
func Pack(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Unpack splits a packed ARGB value into its channels.
func Unpack(c uint32) (a, r, g, b uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// ToNRGBA converts a packed ARGB value to color.NRGBA.
func ToNRGBA(c uint32) color.NRGBA {
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(c >> 24)}
}

// FromNRGBA converts color.NRGBA to a packed ARGB value.
func FromNRGBA(c color.NRGBA) uint32 {
	return Pack(c.A, c.R, c.G, c.B)
}
