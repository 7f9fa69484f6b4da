// Package gxt decodes PlayStation Vita GXT texture containers.
//
// Swizzled textures are stored in Morton order at power-of-two size and
// cropped to their logical size after decoding. P4 and P8 palettes live
// after the last texture, so they are read with a late seek once the
// texture table is known.
package gxt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math/bits"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/block"
	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/indexed"
	"github.com/deepteams/assetpix/layout"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
	"github.com/deepteams/assetpix/texture"
)

const (
	Magic    = "GXT\x00"
	Version3 = 0x10000003
)

var (
	ErrNotGXT    = errors.New("gxt: not a GXT file")
	ErrNoPalette = errors.New("gxt: palette index out of range")
)

// Texture types.
const (
	typeSwizzled      = 0x00000000
	typeCube          = 0x40000000
	typeLinear        = 0x60000000
	typeTiled         = 0x80000000
	typeLinearStrided = 0xc0000000
)

// Base formats (bits 31..24 of the texture format) and component orders
// (bits 15..12).
const (
	baseU8       = 0x00
	baseU4x4     = 0x02
	baseU1U5U5U5 = 0x04
	baseU5U6U5   = 0x05
	baseU8x4     = 0x0c
	baseUBC1     = 0x85
	baseUBC2     = 0x86
	baseUBC3     = 0x87
	baseP4       = 0x94
	baseP8       = 0x95

	swizzleABGR = 0x0
	swizzleARGB = 0x1
	swizzleRGBA = 0x2
	swizzleBGRA = 0x3
	swizzle1BGR = 0x4
	swizzle1RGB = 0x5
)

const (
	headerSize      = 32
	textureInfoSize = 32
	p4Bytes         = 16 * 4
	p8Bytes         = 256 * 4
)

type header struct {
	Magic       [4]byte
	Version     uint32
	NumTextures uint32
	DataOffset  uint32
	DataSize    uint32
	NumP4       uint32
	NumP8       uint32
	Pad         uint32
}

type textureInfo struct {
	DataOffset   uint32
	DataSize     uint32
	PaletteIndex int32
	Flags        uint32
	Type         uint32
	Format       uint32
	Width        uint16
	Height       uint16
	MipMaps      uint16
	Pad          uint16
}

// Entry is one texture of a GXT file.
type Entry struct {
	Width, Height int
	Encoding      texture.Encoding
	Layout        layout.Layout
	Filters       []pixel.Filter
	MipCount      int
	PaletteIndex  int
	palLayout     palette.Layout
	offset        int64
	size          int64
}

// paddedSize returns the storage size of a swizzled texture.
func (e *Entry) paddedSize(level int) (int, int) {
	w, h := max(1, e.Width>>level), max(1, e.Height>>level)
	if _, ok := e.Layout.(layout.Morton); ok {
		return nextPow2(w), nextPow2(h)
	}
	return w, h
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// componentFormat picks the direct pixel format for a 4-component order.
func componentFormat(swz uint32) (pixel.Format, bool, bool) {
	switch swz {
	case swizzleABGR:
		return pixel.RGBA8888, false, true
	case swizzleARGB:
		return pixel.BGRA8888, false, true
	case swizzleRGBA:
		return pixel.ABGR8888, false, true
	case swizzleBGRA:
		return pixel.ARGB8888, false, true
	case swizzle1BGR:
		return pixel.RGBA8888, true, true
	case swizzle1RGB:
		return pixel.BGRA8888, true, true
	}
	return 0, false, false
}

func parseEntry(ti *textureInfo) (*Entry, error) {
	if err := pixel.CheckDimensions("gxt", int(ti.Width), int(ti.Height)); err != nil {
		return nil, err
	}
	e := &Entry{
		Width:        int(ti.Width),
		Height:       int(ti.Height),
		MipCount:     max(1, int(ti.MipMaps)),
		PaletteIndex: int(ti.PaletteIndex),
		offset:       int64(ti.DataOffset),
		size:         int64(ti.DataSize),
	}
	e.MipCount = min(e.MipCount, animation.MipCount(e.Width, e.Height))
	switch ti.Type {
	case typeSwizzled:
		e.Layout = layout.Morton{}
	case typeLinear, typeLinearStrided:
		e.Layout = nil
	default:
		return nil, pixel.Unsupported("gxt", "texture type", int64(ti.Type))
	}

	base, swz := ti.Format>>24, ti.Format>>12&0xf
	unsupported := pixel.Unsupported("gxt", "format", int64(ti.Format))
	switch base {
	case baseUBC1:
		e.Encoding = texture.Compressed{Format: block.DXT1}
	case baseUBC2:
		e.Encoding = texture.Compressed{Format: block.DXT3}
	case baseUBC3:
		e.Encoding = texture.Compressed{Format: block.DXT5}
	case baseP4, baseP8:
		f, opaque, ok := componentFormat(swz)
		if !ok {
			return nil, unsupported
		}
		e.palLayout = palette.Layout{Format: f}
		if opaque {
			e.Filters = []pixel.Filter{pixel.OpaqueAlpha()}
		}
		if base == baseP4 {
			// the first pixel of each pair is in the low nibble
			e.Encoding = texture.Indexed{Depth: 4, Order: indexed.LowNibbleFirst}
		} else {
			e.Encoding = texture.Indexed{Depth: 8}
		}
	case baseU8x4:
		f, opaque, ok := componentFormat(swz)
		if !ok {
			return nil, unsupported
		}
		e.Encoding = texture.Direct{Format: f}
		if opaque {
			e.Filters = []pixel.Filter{pixel.OpaqueAlpha()}
		}
	case baseU5U6U5:
		f := pixel.BGR565
		if swz == swizzleARGB {
			f = pixel.RGB565
		}
		e.Encoding = texture.Direct{Format: f}
	case baseU1U5U5U5:
		switch swz {
		case swizzleABGR:
			e.Encoding = texture.Direct{Format: pixel.ABGR1555}
		case swizzleARGB:
			e.Encoding = texture.Direct{Format: pixel.ARGB1555}
		default:
			return nil, unsupported
		}
	case baseU4x4:
		switch swz {
		case swizzleARGB:
			e.Encoding = texture.Direct{Format: pixel.ARGB4444}
		case swizzleRGBA:
			e.Encoding = texture.Direct{Format: pixel.RGBA4444}
		default:
			return nil, unsupported
		}
	case baseU8:
		e.Encoding = texture.Direct{Format: pixel.L8}
	default:
		return nil, unsupported
	}
	return e, nil
}

// File is a parsed GXT header and texture table.
type File struct {
	Entries []*Entry
	p4Off   int64
	p8Off   int64
	numP4   int
	numP8   int
}

// ReadFile parses the header and texture table.
func ReadFile(r *source.Reader) (*File, error) {
	var h header
	if err := r.Fields(&h); err != nil {
		return nil, err
	}
	if string(h.Magic[:]) != Magic {
		return nil, ErrNotGXT
	}
	if h.Version != Version3 {
		return nil, pixel.Unsupported("gxt", "version", int64(h.Version))
	}
	if h.NumTextures == 0 {
		return nil, fmt.Errorf("%w: no textures", ErrNotGXT)
	}
	if err := r.Require(int64(h.NumTextures) * textureInfoSize); err != nil {
		return nil, err
	}
	f := &File{numP4: int(h.NumP4), numP8: int(h.NumP8)}
	for i := 0; i < int(h.NumTextures); i++ {
		var ti textureInfo
		if err := r.Fields(&ti); err != nil {
			return nil, err
		}
		e, err := parseEntry(&ti)
		if err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
		f.Entries = append(f.Entries, e)
	}
	end := int64(h.DataOffset) + int64(h.DataSize)
	f.p4Off = end - int64(f.numP4)*p4Bytes - int64(f.numP8)*p8Bytes
	f.p8Off = f.p4Off + int64(f.numP4)*p4Bytes
	return f, nil
}

// readPalette reads the palette of an indexed entry.
func (f *File) readPalette(r *source.Reader, e *Entry) (*palette.Palette, error) {
	ix := e.Encoding.(texture.Indexed)
	off, count, n := f.p8Off, 256, f.numP8
	if ix.Depth == 4 {
		off, count, n = f.p4Off, 16, f.numP4
	}
	if e.PaletteIndex < 0 || e.PaletteIndex >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoPalette, e.PaletteIndex, n)
	}
	pos := off + int64(e.PaletteIndex*count*4)
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := r.ReadN(count * 4)
	if err != nil {
		return nil, err
	}
	return palette.Load(data, count, e.palLayout)
}

// decodeEntry decodes every mip level of e.
func (f *File) decodeEntry(r *source.Reader, e *Entry) ([]*animation.Image, error) {
	var p *palette.Palette
	if _, ok := e.Encoding.(texture.Indexed); ok {
		var err error
		if p, err = f.readPalette(r, e); err != nil {
			return nil, err
		}
	}
	if _, err := r.Seek(e.offset, io.SeekStart); err != nil {
		return nil, err
	}
	var levels []*animation.Image
	for i := 0; i < e.MipCount; i++ {
		pw, ph := e.paddedSize(i)
		tex := texture.Texture{Width: pw, Height: ph, Encoding: e.Encoding, Layout: e.Layout, Filters: e.Filters}
		img, err := decodeLevel(r, &tex, p)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			break
		}
		w, h := max(1, e.Width>>i), max(1, e.Height>>i)
		if pw != w || ph != h {
			if img.Pixels, err = img.Pixels.Resize(w, h); err != nil {
				return nil, err
			}
			if img.Indices != nil {
				img.Indices = img.Indices.Crop(w, h)
			}
		}
		levels = append(levels, img)
	}
	return levels, nil
}

func decodeLevel(r *source.Reader, tex *texture.Texture, p *palette.Palette) (*animation.Image, error) {
	n, err := tex.DataSize()
	if err != nil {
		return nil, err
	}
	data, err := r.ReadN(n)
	if err != nil {
		return nil, err
	}
	return tex.Decode(data, p)
}

// Candidate detects and decodes GXT files.
type Candidate struct{}

func (Candidate) Name() string { return "gxt" }

func (Candidate) Score(p *detect.Probe, ctx detect.Context) int {
	var s detect.Scorer
	s.Require(p.Match(0, Magic))
	s.Magic(true)
	s.Container(ctx, "psarc")
	s.Extension(ctx, "gxt")
	v, _ := p.U32(4, binary.LittleEndian)
	s.Check(v>>24 == 0x10)
	n, _ := p.U32(8, binary.LittleEndian)
	s.Check(n > 0 && n < 4096)
	return s.Score()
}

// Decode decodes every texture. One texture yields its mip chain; several
// yield a sequence of their top levels.
func (Candidate) Decode(r *source.Reader, _ detect.Context, s *detect.Session) (*animation.Image, error) {
	f, err := ReadFile(r)
	if err != nil {
		return nil, err
	}
	log := s.Log().Named("gxt")
	var tops []*animation.Image
	for i, e := range f.Entries {
		log.Debug("texture", "index", i, "width", e.Width, "height", e.Height,
			"encoding", e.Encoding, "layout", e.Layout, "mips", e.MipCount)
		levels, err := f.decodeEntry(r, e)
		if err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
		if len(f.Entries) == 1 {
			return animation.Mipmaps(levels)
		}
		tops = append(tops, levels[0])
	}
	return animation.Sequence(tops, false)
}

// DecodeConfig reports the size of the first texture.
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := make([]byte, headerSize+textureInfoSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return image.Config{}, err
	}
	if string(buf[:4]) != Magic {
		return image.Config{}, ErrNotGXT
	}
	w := binary.LittleEndian.Uint16(buf[headerSize+24:])
	h := binary.LittleEndian.Uint16(buf[headerSize+26:])
	return image.Config{ColorModel: color.NRGBAModel, Width: int(w), Height: int(h)}, nil
}

// Decode decodes the first texture of a GXT file.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, nil)
	if err != nil {
		return nil, err
	}
	return img.Pixels, nil
}
