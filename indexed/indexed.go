// Package indexed decodes palette-indexed pixel data.
//
// Indices can be resolved immediately against a palette, or kept in an
// IndexBuffer when the palette is only known later (for example when a
// companion palette resource follows the pixel block, or several palettes
// have to be tried).
package indexed

import (
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
)

// Order selects the nibble order of 4-bit data.
type Order uint8

const (
	// HighNibbleFirst stores the left pixel of each pair in bits 7..4.
	HighNibbleFirst Order = iota
	// LowNibbleFirst stores the left pixel in bits 3..0 (PS2 PSMT4).
	LowNibbleFirst
)

// Buffer keeps raw palette indices for deferred resolution.
type Buffer struct {
	Width   int
	Height  int
	Depth   int // 4 or 8 bits per index
	Indices []uint8
}

// DataSize returns the number of bytes width×height indices of the given
// depth occupy. Rows are not padded; an odd 4-bit pixel count rounds up.
func DataSize(width, height, depth int) int {
	if depth == 4 {
		return (width*height + 1) / 2
	}
	return width * height
}

// Unpack reads width×height indices of depth 4 or 8.
func Unpack(data []byte, width, height, depth int, order Order) (*Buffer, error) {
	if depth != 4 && depth != 8 {
		return nil, pixel.Unsupported("indexed", "depth", int64(depth))
	}
	if err := pixel.CheckDimensions("indexed", width, height); err != nil {
		return nil, err
	}
	need := DataSize(width, height, depth)
	if len(data) < need {
		return nil, pixel.Truncated("indexed", need, len(data))
	}
	n := width * height
	idx := make([]uint8, n)
	if depth == 8 {
		copy(idx, data[:n])
	} else {
		for i := 0; i < n; i++ {
			b := data[i>>1]
			first := i&1 == 0
			if first == (order == HighNibbleFirst) {
				idx[i] = b >> 4
			} else {
				idx[i] = b & 0x0f
			}
		}
	}
	return &Buffer{Width: width, Height: height, Depth: depth, Indices: idx}, nil
}

// Resolve looks every index up in p. An index past the end of the palette
// is a MalformedBlock error, never a guessed color.
func (b *Buffer) Resolve(p *palette.Palette) (*pixel.Buffer, error) {
	if p == nil {
		return nil, pixel.Errorf(pixel.ErrMissingPalette, "indexed", "", 0)
	}
	n := p.Len()
	dst := &pixel.Buffer{Width: b.Width, Height: b.Height, Pix: make([]uint32, len(b.Indices))}
	for i, v := range b.Indices {
		if int(v) >= n {
			return nil, pixel.Errorf(pixel.ErrMalformedBlock, "indexed", "index", int64(v))
		}
		dst.Pix[i] = p.At(int(v))
	}
	return dst, nil
}

// ResolveBank resolves against the bank's current palette.
func (b *Buffer) ResolveBank(bank *palette.Bank) (*pixel.Buffer, error) {
	p, err := bank.Current()
	if err != nil {
		return nil, err
	}
	return b.Resolve(p)
}

// Decode unpacks and resolves in one step.
func Decode(data []byte, width, height, depth int, order Order, p *palette.Palette) (*pixel.Buffer, error) {
	if p == nil {
		return nil, pixel.Errorf(pixel.ErrMissingPalette, "indexed", "", 0)
	}
	b, err := Unpack(data, width, height, depth, order)
	if err != nil {
		return nil, err
	}
	return b.Resolve(p)
}

// Pack writes indices back in their storage form.
func (b *Buffer) Pack(order Order) []byte {
	if b.Depth == 8 {
		out := make([]byte, len(b.Indices))
		copy(out, b.Indices)
		return out
	}
	out := make([]byte, DataSize(b.Width, b.Height, 4))
	for i, v := range b.Indices {
		v &= 0x0f
		first := i&1 == 0
		if first == (order == HighNibbleFirst) {
			out[i>>1] |= v << 4
		} else {
			out[i>>1] |= v
		}
	}
	return out
}

// Quantize maps every pixel of src to its nearest palette entry, producing
// an index buffer of the given depth for write-back.
func Quantize(src *pixel.Buffer, p *palette.Palette, depth int) (*Buffer, error) {
	if depth != 4 && depth != 8 {
		return nil, pixel.Unsupported("indexed", "depth", int64(depth))
	}
	if p.Len() > 1<<depth {
		return nil, pixel.Errorf(pixel.ErrUnsupportedVariant, "indexed", "colors", int64(p.Len()))
	}
	idx := make([]uint8, len(src.Pix))
	cache := make(map[uint32]uint8)
	for i, c := range src.Pix {
		v, ok := cache[c]
		if !ok {
			v = uint8(p.Nearest(c))
			cache[c] = v
		}
		idx[i] = v
	}
	return &Buffer{Width: src.Width, Height: src.Height, Depth: depth, Indices: idx}, nil
}

// Crop returns the top-left width×height region, used to drop the padding
// of textures stored at power-of-two size.
func (b *Buffer) Crop(width, height int) *Buffer {
	w, h := min(width, b.Width), min(height, b.Height)
	out := &Buffer{Width: w, Height: h, Depth: b.Depth, Indices: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		copy(out.Indices[y*w:(y+1)*w], b.Indices[y*b.Width:])
	}
	return out
}
