// Package texture describes a raw texture resource and runs the shared
// decode pipeline over it: layout linearization, pixel codec, then color
// filters.
//
// Format readers only parse headers. Everything after "these bytes are a
// W×H texture of encoding E stored in layout L" happens here.
package texture

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/block"
	"github.com/deepteams/assetpix/indexed"
	"github.com/deepteams/assetpix/internal/pool"
	"github.com/deepteams/assetpix/layout"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
)

// Encoding is the pixel encoding of a texture: exactly one of Direct,
// Indexed or Compressed.
type Encoding interface {
	encoding()
	String() string
}

// Direct is an uncompressed pixel format.
type Direct struct {
	Format    pixel.Format
	BigEndian bool // byte order of packed 16-bit fields
}

// Indexed is 4- or 8-bit palette indices.
type Indexed struct {
	Depth int
	Order indexed.Order
}

// Compressed is a 4×4 block format.
type Compressed struct {
	Format block.Format
}

func (Direct) encoding()     {}
func (Indexed) encoding()    {}
func (Compressed) encoding() {}

func (d Direct) String() string {
	if d.BigEndian {
		return d.Format.String() + "be"
	}
	return d.Format.String()
}

func (i Indexed) String() string {
	s := fmt.Sprintf("P%d", i.Depth)
	if i.Depth == 4 && i.Order == indexed.LowNibbleFirst {
		s += "LE"
	}
	return s
}

func (c Compressed) String() string { return c.Format.String() }

// ParseEncoding accepts pixel format names (RGB565, BGRA8888, ...), block
// format names (DXT1, BC7, ...) and P4, P4LE, P8.
func ParseEncoding(name string) (Encoding, bool) {
	up := strings.ToUpper(name)
	switch up {
	case "P4":
		return Indexed{Depth: 4}, true
	case "P4LE":
		return Indexed{Depth: 4, Order: indexed.LowNibbleFirst}, true
	case "P8":
		return Indexed{Depth: 8}, true
	}
	if f, ok := block.ParseFormat(up); ok {
		return Compressed{Format: f}, true
	}
	if base, ok := strings.CutSuffix(up, "BE"); ok {
		if f, ok := pixel.ParseFormat(base); ok {
			return Direct{Format: f, BigEndian: true}, true
		}
	}
	if f, ok := pixel.ParseFormat(up); ok {
		return Direct{Format: f}, true
	}
	return nil, false
}

// Texture is one raw texture resource.
type Texture struct {
	Width    int
	Height   int
	Encoding Encoding
	// Layout is the storage order of the encoded elements. Nil means
	// row-major. The element size is set from the encoding.
	Layout layout.Layout
	// Filters run after decoding. For indexed textures they are applied
	// to the palette, so a later re-resolution sees the same colors.
	Filters []pixel.Filter
}

// grid returns the element grid the layout operates on.
func (t *Texture) grid() (gw, gh int, l layout.Layout, err error) {
	if err := pixel.CheckDimensions("texture", t.Width, t.Height); err != nil {
		return 0, 0, nil, err
	}
	elem := 1
	gw, gh = t.Width, t.Height
	switch e := t.Encoding.(type) {
	case Direct:
		if !e.Format.Valid() {
			return 0, 0, nil, pixel.Unsupported("texture", "format", int64(e.Format))
		}
		elem = e.Format.BytesPerPixel()
	case Indexed:
		switch e.Depth {
		case 8:
		case 4:
			if t.Width%2 != 0 {
				if !isLinear(t.Layout) {
					return 0, 0, nil, pixel.Errorf(pixel.ErrInvalidDimension, "texture", "width", int64(t.Width))
				}
				gw, gh = indexed.DataSize(t.Width, t.Height, 4), 1
			} else {
				gw = t.Width / 2
			}
		default:
			return 0, 0, nil, pixel.Unsupported("texture", "depth", int64(e.Depth))
		}
	case Compressed:
		if !e.Format.Valid() {
			return 0, 0, nil, pixel.Unsupported("texture", "block format", int64(e.Format))
		}
		gw, gh = block.BlocksAcross(t.Width), block.BlocksAcross(t.Height)
		elem = e.Format.BlockBytes()
	default:
		return 0, 0, nil, fmt.Errorf("texture: %w: encoding %T", pixel.ErrUnsupportedVariant, t.Encoding)
	}
	l = layout.WithElem(t.Layout, elem)
	if es := l.ElemSize(); es != elem {
		// byte-addressed layout: widen the grid
		gw = gw * elem / es
	}
	return gw, gh, l, nil
}

func isLinear(l layout.Layout) bool {
	if l == nil {
		return true
	}
	_, ok := l.(layout.Linear)
	return ok
}

// DataSize returns the number of encoded bytes the texture occupies.
func (t *Texture) DataSize() (int, error) {
	gw, gh, l, err := t.grid()
	if err != nil {
		return 0, err
	}
	return layout.Size(gw, gh, l), nil
}

// Decode decodes data, which must hold at least DataSize bytes. p is
// required for indexed textures and ignored otherwise.
func (t *Texture) Decode(data []byte, p *palette.Palette) (*animation.Image, error) {
	gw, gh, l, err := t.grid()
	if err != nil {
		return nil, err
	}
	need := layout.Size(gw, gh, l)
	if len(data) < need {
		return nil, pixel.Truncated("texture", need, len(data))
	}
	if _, ok := t.Encoding.(Indexed); ok && p == nil {
		return nil, pixel.Errorf(pixel.ErrMissingPalette, "texture", "", 0)
	}
	lin := data[:need]
	if !isLinear(t.Layout) {
		scratch := pool.Get(need)
		defer pool.Put(scratch)
		if err := layout.ToLinearInto(scratch, data[:need], gw, gh, l); err != nil {
			return nil, err
		}
		lin = scratch
	}

	switch e := t.Encoding.(type) {
	case Direct:
		var bo binary.ByteOrder = binary.LittleEndian
		if e.BigEndian {
			bo = binary.BigEndian
		}
		buf, err := pixel.DecodeOrder(lin, t.Width, t.Height, e.Format, bo)
		if err != nil {
			return nil, err
		}
		buf.Apply(t.Filters...)
		return animation.New(buf), nil
	case Indexed:
		ib, err := indexed.Unpack(lin, t.Width, t.Height, e.Depth, e.Order)
		if err != nil {
			return nil, err
		}
		if len(t.Filters) > 0 {
			p = p.Map(t.Filters...)
		}
		buf, err := ib.Resolve(p)
		if err != nil {
			return nil, err
		}
		return &animation.Image{Pixels: buf, Palette: p, Indices: ib}, nil
	case Compressed:
		buf, err := block.Decode(lin, t.Width, t.Height, e.Format)
		if err != nil {
			return nil, err
		}
		buf.Apply(t.Filters...)
		return animation.New(buf), nil
	}
	return nil, fmt.Errorf("texture: %w: encoding %T", pixel.ErrUnsupportedVariant, t.Encoding)
}

// Encode is the inverse of Decode without filters: it encodes src, which
// must match the texture size, and stores the result in the texture's
// layout. p is the target palette of indexed textures.
func (t *Texture) Encode(src *pixel.Buffer, p *palette.Palette) ([]byte, error) {
	gw, gh, l, err := t.grid()
	if err != nil {
		return nil, err
	}
	if src.Width != t.Width || src.Height != t.Height {
		return nil, fmt.Errorf("texture: %w: source is %dx%d, texture %dx%d",
			pixel.ErrInvalidDimension, src.Width, src.Height, t.Width, t.Height)
	}
	var lin []byte
	switch e := t.Encoding.(type) {
	case Direct:
		var bo binary.ByteOrder = binary.LittleEndian
		if e.BigEndian {
			bo = binary.BigEndian
		}
		lin, err = pixel.EncodeOrder(src, e.Format, bo)
	case Indexed:
		if p == nil {
			return nil, pixel.Errorf(pixel.ErrMissingPalette, "texture", "", 0)
		}
		var ib *indexed.Buffer
		if ib, err = indexed.Quantize(src, p, e.Depth); err == nil {
			lin = ib.Pack(e.Order)
		}
	case Compressed:
		lin, err = block.Encode(src, e.Format)
	}
	if err != nil {
		return nil, err
	}
	if isLinear(t.Layout) {
		return lin, nil
	}
	return layout.ToNative(lin, gw, gh, l)
}
