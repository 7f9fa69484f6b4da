// Package palette holds indexed color tables and the per-session bank that
// tracks which table is current.
//
// A Palette is immutable once built: transforms such as striping or color
// correction return a new Palette. A Bank belongs to exactly one decode
// session and is never shared between concurrent sessions.
package palette

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deepteams/assetpix/pixel"
)

// MaxColors is the largest palette accepted.
const MaxColors = 256

var (
	ErrTooManyColors = errors.New("palette: more than 256 colors")
	ErrEmpty         = errors.New("palette: no colors")
)

// Palette is an ordered, immutable table of packed ARGB colors.
type Palette struct {
	colors  []uint32
	striped bool
}

// New copies colors into a new Palette.
func New(colors []uint32) (*Palette, error) {
	if len(colors) == 0 {
		return nil, ErrEmpty
	}
	if len(colors) > MaxColors {
		return nil, fmt.Errorf("%w: %d", ErrTooManyColors, len(colors))
	}
	c := make([]uint32, len(colors))
	copy(c, colors)
	return &Palette{colors: c}, nil
}

// Len returns the number of entries, which doubles as the depth tag
// (16 for 4-bit formats, 256 for 8-bit formats).
func (p *Palette) Len() int { return len(p.colors) }

// At returns entry i. Callers must keep i within [0, Len).
func (p *Palette) At(i int) uint32 { return p.colors[i] }

// Colors returns a copy of the entries.
func (p *Palette) Colors() []uint32 {
	c := make([]uint32, len(p.colors))
	copy(c, p.colors)
	return c
}

// Striped reports whether the entries are still in the console-native
// striped order.
func (p *Palette) Striped() bool { return p.striped }

// Map returns a new palette with f applied to every entry.
func (p *Palette) Map(filters ...pixel.Filter) *Palette {
	f := pixel.Chain(filters...)
	c := make([]uint32, len(p.colors))
	for i, v := range p.colors {
		c[i] = f(v)
	}
	return &Palette{colors: c, striped: p.striped}
}

// Equal reports whether both palettes hold the same entries in the same
// order.
func (p *Palette) Equal(o *Palette) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.colors) != len(o.colors) {
		return false
	}
	for i := range p.colors {
		if p.colors[i] != o.colors[i] {
			return false
		}
	}
	return true
}

// Layout describes how palette entries are stored on disk.
type Layout struct {
	// Format is the per-entry encoding: typically RGB888, BGR888, RGBA8888,
	// BGRA8888, RGBA5551/ABGR1555 or RGB565.
	Format pixel.Format

	// BigEndian selects the byte order of 16-bit entries.
	BigEndian bool

	// Striped marks entries stored in the PS2 CSM1 order. Load de-stripes
	// them so the returned palette is in linear index order.
	Striped bool
}

// Load builds a palette of count entries from data.
func Load(data []byte, count int, l Layout) (*Palette, error) {
	if count <= 0 {
		return nil, ErrEmpty
	}
	if count > MaxColors {
		return nil, fmt.Errorf("%w: %d", ErrTooManyColors, count)
	}
	if !l.Format.Valid() {
		return nil, pixel.Unsupported("palette", "format", int64(l.Format))
	}
	size := l.Format.BytesPerPixel()
	if len(data) < count*size {
		return nil, pixel.Truncated("palette", count*size, len(data))
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if l.BigEndian {
		bo = binary.BigEndian
	}
	c := make([]uint32, count)
	for i := range c {
		c[i] = l.Format.ReadARGB(data[i*size:], bo)
	}
	p := &Palette{colors: c}
	if l.Striped {
		return Destripe(p), nil
	}
	return p, nil
}

// Encode writes the palette back in the given layout, re-striping when the
// layout asks for it.
func (p *Palette) Encode(l Layout) ([]byte, error) {
	if !l.Format.Valid() {
		return nil, pixel.Unsupported("palette", "format", int64(l.Format))
	}
	src := p
	if l.Striped {
		src = Stripe(p)
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if l.BigEndian {
		bo = binary.BigEndian
	}
	size := l.Format.BytesPerPixel()
	out := make([]byte, len(src.colors)*size)
	for i, c := range src.colors {
		l.Format.WriteARGB(out[i*size:], c, bo)
	}
	return out, nil
}

// Nearest returns the index of the entry closest to c, weighting alpha like
// a fourth color channel.
func (p *Palette) Nearest(c uint32) int {
	a, r, g, b := pixel.Unpack(c)
	best, bestDist := 0, -1
	for i, e := range p.colors {
		if e == c {
			return i
		}
		ea, er, eg, eb := pixel.Unpack(e)
		dr := int(r) - int(er)
		dg := int(g) - int(eg)
		db := int(b) - int(eb)
		da := int(a) - int(ea)
		d := dr*dr + dg*dg + db*db + da*da
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
