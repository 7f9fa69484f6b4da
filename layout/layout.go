// Package layout converts between the native storage order of GPU and
// console textures and plain row-major order.
//
// A layout maps the row-major position of every element to its position in
// native storage. An element is whatever the texture stores per cell: a
// pixel of a direct format, a byte of 4/8-bit indexed data, or a whole
// compressed block, in which case width and height count blocks.
//
// ToLinear and ToNative are exact inverses. Dimensions that are not a
// multiple of the layout's granularity are rejected.
package layout

import (
	"math/bits"

	"github.com/deepteams/assetpix/pixel"
)

// Layout is a bijective element order. The zero Linear layout is the
// identity.
type Layout interface {
	// ElemSize returns the number of bytes moved as one element.
	ElemSize() int
	// Check validates the dimensions (in elements).
	Check(width, height int) error
	// Offset returns the native index of element (x, y).
	Offset(x, y, width, height int) int
	String() string
}

// Linear is row-major storage.
type Linear struct{ Elem int }

func (l Linear) ElemSize() int { return elemOrOne(l.Elem) }

func (Linear) Check(width, height int) error { return nil }

func (Linear) Offset(x, y, width, height int) int { return y*width + x }

func (Linear) String() string { return "linear" }

// Tile stores Size×Size element tiles contiguously, tiles in row-major
// order and elements row-major within a tile.
type Tile struct {
	Size int
	Elem int
}

func (t Tile) ElemSize() int { return elemOrOne(t.Elem) }

func (t Tile) Check(width, height int) error {
	if t.Size <= 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "tile", "size", int64(t.Size))
	}
	if width%t.Size != 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "tile", "width", int64(width))
	}
	if height%t.Size != 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "tile", "height", int64(height))
	}
	return nil
}

func (t Tile) Offset(x, y, width, height int) int {
	s := t.Size
	tile := (y/s)*(width/s) + x/s
	return tile*s*s + (y%s)*s + x%s
}

func (t Tile) String() string { return "tile" }

// Morton stores elements in Z-order: x bits in the even positions and y bits
// in the odd positions. For a rectangle the excess high bits of the longer
// side follow the interleaved part. With Tile set, Z-order applies inside
// Tile×Tile tiles that are themselves stored row-major.
type Morton struct {
	Tile int
	Elem int
}

func (m Morton) ElemSize() int { return elemOrOne(m.Elem) }

func (m Morton) Check(width, height int) error {
	if m.Tile > 0 {
		if !isPow2(m.Tile) {
			return pixel.Errorf(pixel.ErrInvalidDimension, "morton", "tile", int64(m.Tile))
		}
		return Tile{Size: m.Tile}.Check(width, height)
	}
	if !isPow2(width) {
		return pixel.Errorf(pixel.ErrInvalidDimension, "morton", "width", int64(width))
	}
	if !isPow2(height) {
		return pixel.Errorf(pixel.ErrInvalidDimension, "morton", "height", int64(height))
	}
	return nil
}

func (m Morton) Offset(x, y, width, height int) int {
	if m.Tile > 0 {
		s := m.Tile
		tile := (y/s)*(width/s) + x/s
		return tile*s*s + zorder(x%s, y%s, s, s)
	}
	return zorder(x, y, width, height)
}

func (Morton) String() string { return "morton" }

func zorder(x, y, width, height int) int {
	k := bits.Len(uint(min(width, height))) - 1
	z := 0
	for i := 0; i < k; i++ {
		z |= (x>>i&1)<<(2*i) | (y>>i&1)<<(2*i+1)
	}
	switch {
	case width > height:
		z |= (x >> k) << (2 * k)
	case height > width:
		z |= (y >> k) << (2 * k)
	}
	return z
}

// PSP is the PlayStation Portable swizzle: 16-byte by 8-row blocks stored
// contiguously in row-major block order. Width is the row pitch in bytes.
type PSP struct{}

func (PSP) ElemSize() int { return 1 }

func (PSP) Check(width, height int) error {
	if width%16 != 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "psp", "pitch", int64(width))
	}
	if height%8 != 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "psp", "height", int64(height))
	}
	return nil
}

func (PSP) Offset(x, y, width, height int) int {
	block := (y/8)*(width/16) + x/16
	return block*128 + (y%8)*16 + x%16
}

func (PSP) String() string { return "psp" }

// Xbox360 is the Xenos 2D tiling of 32×32 element macro tiles. Elements of
// 4, 8 or 16 bytes are supported, which covers 32-bit pixels and DXT/BC
// blocks.
type Xbox360 struct{ Elem int }

func (x Xbox360) ElemSize() int { return x.Elem }

func (x Xbox360) Check(width, height int) error {
	switch x.Elem {
	case 4, 8, 16:
	default:
		return pixel.Unsupported("xbox360", "elem", int64(x.Elem))
	}
	if width%32 != 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "xbox360", "width", int64(width))
	}
	if height%32 != 0 {
		return pixel.Errorf(pixel.ErrInvalidDimension, "xbox360", "height", int64(height))
	}
	return nil
}

func (x Xbox360) Offset(px, py, width, height int) int {
	bpp := x.Elem
	logBpp := (bpp >> 2) + ((bpp >> 1) >> (bpp >> 2))
	aligned := (width + 31) &^ 31
	macro := ((px >> 5) + (py>>5)*(aligned>>5)) << (logBpp + 7)
	micro := ((px & 7) + ((py & 0xe) << 2)) << logBpp
	off := macro + ((micro &^ 0xf) << 1) + (micro & 0xf) + ((py & 1) << 4)
	addr := ((off &^ 0x1ff) << 3) + ((py & 16) << 7) + ((off & 0x1c0) << 2) +
		((((py&8)>>2)+(px>>3))&3)<<6 + (off & 0x3f)
	return addr >> logBpp
}

func (Xbox360) String() string { return "xbox360" }

func elemOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }
