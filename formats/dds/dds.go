// Package dds reads and writes DirectDraw Surface textures: DXT1/3/5 and
// BC7 (through the DX10 extension header) block data, uncompressed
// bit-mask formats, and full mipmap chains.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/block"
	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
	"github.com/deepteams/assetpix/texture"
)

const (
	Magic      = "DDS "
	headerSize = 124
	pfSize     = 32
	dx10Size   = 20

	// file offset of the pixel format FourCC: magic, seven header words,
	// eleven reserved words, then the pixel format size and flags
	fourCCOffset = 4 + 18*4 + 8
)

var (
	ErrNotDDS    = errors.New("dds: not a DDS file")
	ErrBadHeader = errors.New("dds: bad header size")
)

// Header flags.
const (
	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPitch       = 0x8
	flagPixelFormat = 0x1000
	flagMipMapCount = 0x20000
	flagLinearSize  = 0x80000
)

// Pixel format flags.
const (
	pfAlphaPixels = 0x1
	pfAlpha       = 0x2
	pfFourCC      = 0x4
	pfRGB         = 0x40
	pfLuminance   = 0x20000
)

const (
	capsComplex = 0x8
	capsTexture = 0x1000
	capsMipMap  = 0x400000

	caps2Cubemap = 0x200
	caps2Volume  = 0x200000

	dimTexture2D = 3
)

type pixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type header struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       pixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

type dx10Header struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

// maskFormat maps DDS channel bit masks onto a direct pixel format.
type maskFormat struct {
	bits       uint32
	r, g, b, a uint32
	format     pixel.Format
}

var maskFormats = []maskFormat{
	{32, 0x00ff0000, 0x0000ff00, 0x000000ff, 0xff000000, pixel.BGRA8888},
	{32, 0x000000ff, 0x0000ff00, 0x00ff0000, 0xff000000, pixel.RGBA8888},
	{24, 0xff0000, 0x00ff00, 0x0000ff, 0, pixel.BGR888},
	{24, 0x0000ff, 0x00ff00, 0xff0000, 0, pixel.RGB888},
	{16, 0xf800, 0x07e0, 0x001f, 0, pixel.RGB565},
	{16, 0x001f, 0x07e0, 0xf800, 0, pixel.BGR565},
	{16, 0x7c00, 0x03e0, 0x001f, 0x8000, pixel.ARGB1555},
	{16, 0x0f00, 0x00f0, 0x000f, 0xf000, pixel.ARGB4444},
	{16, 0x00ff, 0, 0, 0xff00, pixel.LA88},
	{8, 0xff, 0, 0, 0, pixel.L8},
	{8, 0, 0, 0, 0xff, pixel.A8},
}

type dxgiFormat struct {
	enc    texture.Encoding
	opaque bool
}

var dxgiFormats = map[uint32]dxgiFormat{
	28:  {enc: texture.Direct{Format: pixel.RGBA8888}},
	29:  {enc: texture.Direct{Format: pixel.RGBA8888}},
	61:  {enc: texture.Direct{Format: pixel.L8}},
	65:  {enc: texture.Direct{Format: pixel.A8}},
	71:  {enc: texture.Compressed{Format: block.DXT1}},
	72:  {enc: texture.Compressed{Format: block.DXT1}},
	74:  {enc: texture.Compressed{Format: block.DXT3}},
	75:  {enc: texture.Compressed{Format: block.DXT3}},
	77:  {enc: texture.Compressed{Format: block.DXT5}},
	78:  {enc: texture.Compressed{Format: block.DXT5}},
	85:  {enc: texture.Direct{Format: pixel.RGB565}},
	86:  {enc: texture.Direct{Format: pixel.ARGB1555}},
	87:  {enc: texture.Direct{Format: pixel.BGRA8888}},
	88:  {enc: texture.Direct{Format: pixel.BGRA8888}, opaque: true},
	91:  {enc: texture.Direct{Format: pixel.BGRA8888}},
	98:  {enc: texture.Compressed{Format: block.BC7}},
	99:  {enc: texture.Compressed{Format: block.BC7}},
	115: {enc: texture.Direct{Format: pixel.ARGB4444}},
}

// Info is the parsed header of a DDS file.
type Info struct {
	Width, Height int
	MipCount      int
	Encoding      texture.Encoding
	Filters       []pixel.Filter
}

// Texture returns the descriptor of mip level i.
func (in *Info) Texture(level int) texture.Texture {
	return texture.Texture{
		Width:    max(1, in.Width>>level),
		Height:   max(1, in.Height>>level),
		Encoding: in.Encoding,
		Filters:  in.Filters,
	}
}

// ReadInfo parses the magic and headers, leaving r at the first texel.
func ReadInfo(r *source.Reader) (*Info, error) {
	m, err := r.ReadN(4)
	if err != nil {
		return nil, err
	}
	if string(m) != Magic {
		return nil, ErrNotDDS
	}
	var h header
	if err := r.Fields(&h); err != nil {
		return nil, err
	}
	if h.Size != headerSize || h.PixelFormat.Size != pfSize {
		return nil, fmt.Errorf("%w: %d/%d", ErrBadHeader, h.Size, h.PixelFormat.Size)
	}
	if h.Caps2&(caps2Cubemap|caps2Volume) != 0 {
		return nil, pixel.Unsupported("dds", "caps2", int64(h.Caps2))
	}
	if err := pixel.CheckDimensions("dds", int(h.Width), int(h.Height)); err != nil {
		return nil, err
	}
	in := &Info{Width: int(h.Width), Height: int(h.Height), MipCount: 1}
	if h.Flags&flagMipMapCount != 0 && h.MipMapCount > 1 {
		in.MipCount = min(int(h.MipMapCount), animation.MipCount(in.Width, in.Height))
	}

	pf := h.PixelFormat
	switch {
	case pf.Flags&pfFourCC != 0 && string(pf.FourCC[:]) == "DX10":
		var x dx10Header
		if err := r.Fields(&x); err != nil {
			return nil, err
		}
		if x.ResourceDimension != dimTexture2D {
			return nil, pixel.Unsupported("dds", "dimension", int64(x.ResourceDimension))
		}
		if x.ArraySize > 1 {
			return nil, pixel.Unsupported("dds", "array size", int64(x.ArraySize))
		}
		f, ok := dxgiFormats[x.DXGIFormat]
		if !ok {
			return nil, pixel.Unsupported("dds", "dxgi format", int64(x.DXGIFormat))
		}
		in.Encoding = f.enc
		if f.opaque {
			in.Filters = []pixel.Filter{pixel.OpaqueAlpha()}
		}
	case pf.Flags&pfFourCC != 0:
		f, ok := block.ParseFormat(string(pf.FourCC[:]))
		if !ok {
			return nil, pixel.Unsupported("dds", "fourcc", int64(fourCC(pf.FourCC)))
		}
		in.Encoding = texture.Compressed{Format: f}
	default:
		f, opaque, ok := lookupMasks(pf)
		if !ok {
			return nil, pixel.Unsupported("dds", "bit count", int64(pf.RGBBitCount))
		}
		in.Encoding = texture.Direct{Format: f}
		if opaque {
			in.Filters = []pixel.Filter{pixel.OpaqueAlpha()}
		}
	}
	return in, nil
}

func fourCC(b [4]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// lookupMasks finds the direct format for an uncompressed pixel format.
// A format with an alpha mask also matches files that leave alpha unused
// (X8R8G8B8 and friends); those decode as opaque.
func lookupMasks(pf pixelFormat) (pixel.Format, bool, bool) {
	alpha := uint32(0)
	if pf.Flags&(pfAlphaPixels|pfAlpha) != 0 {
		alpha = pf.ABitMask
	}
	for _, m := range maskFormats {
		if m.bits != pf.RGBBitCount || m.r != pf.RBitMask || m.g != pf.GBitMask || m.b != pf.BBitMask {
			continue
		}
		switch {
		case m.a == alpha:
			return m.format, false, true
		case alpha == 0 && m.a != 0 && m.r|m.g|m.b != 0:
			return m.format, true, true
		}
	}
	return 0, false, false
}

// Candidate detects and decodes DDS files.
type Candidate struct{}

func (Candidate) Name() string { return "dds" }

func (Candidate) Score(p *detect.Probe, ctx detect.Context) int {
	var s detect.Scorer
	s.Require(p.Match(0, Magic))
	s.Magic(true)
	s.Extension(ctx, "dds")
	size, _ := p.U32(4, binary.LittleEndian)
	s.Check(size == headerSize)
	pfs, _ := p.U32(76, binary.LittleEndian)
	s.Check(pfs == pfSize)
	return s.Score()
}

func (Candidate) Decode(r *source.Reader, _ detect.Context, s *detect.Session) (*animation.Image, error) {
	in, err := ReadInfo(r)
	if err != nil {
		return nil, err
	}
	log := s.Log().Named("dds")
	log.Debug("header", "width", in.Width, "height", in.Height, "encoding", in.Encoding, "mips", in.MipCount)
	levels := make([]*animation.Image, 0, in.MipCount)
	for i := 0; i < in.MipCount; i++ {
		tex := in.Texture(i)
		n, err := tex.DataSize()
		if err != nil {
			return nil, err
		}
		if i > 0 && r.Remaining() < int64(n) {
			log.Debug("mip chain ends early", "level", i, "need", n, "have", r.Remaining())
			break
		}
		data, err := r.ReadN(n)
		if err != nil {
			return nil, err
		}
		img, err := tex.Decode(data, nil)
		if err != nil {
			return nil, fmt.Errorf("mip %d: %w", i, err)
		}
		levels = append(levels, img)
	}
	return animation.Mipmaps(levels)
}

// DecodeConfig reads the dimensions from a DDS header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := make([]byte, 4+headerSize+dx10Size)
	n := 4 + headerSize
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return image.Config{}, err
	}
	if string(buf[fourCCOffset:fourCCOffset+4]) == "DX10" {
		if _, err := io.ReadFull(r, buf[n:]); err != nil {
			return image.Config{}, err
		}
		n = len(buf)
	}
	in, err := ReadInfo(source.FromBytes(buf[:n]))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: in.Width, Height: in.Height}, nil
}

// Decode decodes the top mip level of a DDS file.
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
