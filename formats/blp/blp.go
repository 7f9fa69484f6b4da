// Package blp decodes Blizzard BLP2 textures: 8-bit palettized with a
// separate 0/1/4/8-bit alpha plane, DXT1/3/5, and raw BGRA, each with an
// optional mip chain of up to sixteen levels.
package blp

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
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
	"github.com/deepteams/assetpix/texture"
)

var (
	ErrBadBLP    = errors.New("blp: bad file")
	ErrBadOffset = errors.New("blp: mip offset outside file")
)

// Color encodings.
const (
	EncodingPalette = 1
	EncodingDXT     = 2
	EncodingARGB    = 3
)

// Preferred pixel formats of DXT files.
const (
	formatDXT1 = 0
	formatDXT3 = 1
	formatDXT5 = 7
)

// HeaderSize is the fixed BLP2 header including the 256-entry palette.
const HeaderSize = 1172

type header struct {
	Magic         [4]byte
	Version       uint32
	ColorEncoding uint8
	AlphaDepth    uint8
	Format        uint8
	HasMips       uint8
	Width         uint32
	Height        uint32
	Offsets       [16]uint32
	Sizes         [16]uint32
}

// Info is the parsed BLP2 header.
type Info struct {
	Width, Height int
	ColorEncoding int
	AlphaDepth    int
	Encoding      texture.Encoding
	Palette       *palette.Palette // set for palettized files
	Mips          []Level
}

// Level locates one mip level.
type Level struct {
	Offset, Size int64
}

// ReadInfo parses the header and palette.
func ReadInfo(r *source.Reader) (*Info, error) {
	var h header
	if err := r.Fields(&h); err != nil {
		return nil, err
	}
	switch string(h.Magic[:]) {
	case "BLP2":
	case "BLP0", "BLP1":
		return nil, pixel.Unsupported("blp", "version", int64(h.Magic[3]-'0'))
	default:
		return nil, fmt.Errorf("%w: magic %q", ErrBadBLP, h.Magic)
	}
	if err := pixel.CheckDimensions("blp", int(h.Width), int(h.Height)); err != nil {
		return nil, err
	}
	in := &Info{
		Width:         int(h.Width),
		Height:        int(h.Height),
		ColorEncoding: int(h.ColorEncoding),
		AlphaDepth:    int(h.AlphaDepth),
	}
	palData, err := r.ReadN(256 * 4)
	if err != nil {
		return nil, err
	}
	switch h.ColorEncoding {
	case EncodingPalette:
		switch h.AlphaDepth {
		case 0, 1, 4, 8:
		default:
			return nil, pixel.Unsupported("blp", "alpha depth", int64(h.AlphaDepth))
		}
		p, err := palette.Load(palData, 256, palette.Layout{Format: pixel.BGRA8888})
		if err != nil {
			return nil, err
		}
		// palette alpha is unused; the alpha plane carries it
		in.Palette = p.Map(pixel.OpaqueAlpha())
		in.Encoding = texture.Indexed{Depth: 8}
	case EncodingDXT:
		f := block.DXT1
		switch {
		case h.Format == formatDXT5:
			f = block.DXT5
		case h.Format == formatDXT3 || h.AlphaDepth > 1:
			f = block.DXT3
		}
		in.Encoding = texture.Compressed{Format: f}
	case EncodingARGB:
		in.Encoding = texture.Direct{Format: pixel.BGRA8888}
	default:
		return nil, pixel.Unsupported("blp", "color encoding", int64(h.ColorEncoding))
	}

	n := 1
	if h.HasMips != 0 {
		n = min(16, animation.MipCount(in.Width, in.Height))
	}
	for i := 0; i < n; i++ {
		if h.Offsets[i] == 0 || h.Sizes[i] == 0 {
			if i == 0 {
				return nil, fmt.Errorf("%w: level 0 has no data", ErrBadBLP)
			}
			break
		}
		in.Mips = append(in.Mips, Level{Offset: int64(h.Offsets[i]), Size: int64(h.Sizes[i])})
	}
	return in, nil
}

// alphaPlaneSize returns the bytes of alpha data that follow the indices.
func alphaPlaneSize(depth, pixels int) int {
	switch depth {
	case 1:
		return (pixels + 7) / 8
	case 4:
		return (pixels + 1) / 2
	case 8:
		return pixels
	}
	return 0
}

// applyAlpha overwrites the alpha of every pixel from a packed plane. Bits
// and nibbles are consumed least significant first.
func applyAlpha(buf *pixel.Buffer, plane []byte, depth int) error {
	n := len(buf.Pix)
	if need := alphaPlaneSize(depth, n); len(plane) < need {
		return pixel.Truncated("blp alpha", need, len(plane))
	}
	for i, c := range buf.Pix {
		var a uint8
		switch depth {
		case 1:
			a = pixel.Expand1(uint32(plane[i>>3] >> (i & 7)))
		case 4:
			a = pixel.Expand4(uint32(plane[i>>1] >> ((i & 1) * 4)))
		case 8:
			a = plane[i]
		default:
			return nil
		}
		buf.Pix[i] = uint32(a)<<24 | c&0x00ffffff
	}
	return nil
}

// decodeLevel decodes mip level i.
func decodeLevel(r *source.Reader, in *Info, i int) (*animation.Image, error) {
	lv := in.Mips[i]
	if lv.Offset < HeaderSize || lv.Offset > r.Len() {
		return nil, fmt.Errorf("%w: level %d at %d", ErrBadOffset, i, lv.Offset)
	}
	if _, err := r.Seek(lv.Offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := r.ReadN(int(lv.Size))
	if err != nil {
		return nil, err
	}
	tex := texture.Texture{
		Width:    max(1, in.Width>>i),
		Height:   max(1, in.Height>>i),
		Encoding: in.Encoding,
	}
	img, err := tex.Decode(data, in.Palette)
	if err != nil {
		return nil, err
	}
	if in.ColorEncoding == EncodingPalette && in.AlphaDepth > 0 {
		n := tex.Width * tex.Height
		if err := applyAlpha(img.Pixels, data[min(n, len(data)):], in.AlphaDepth); err != nil {
			return nil, err
		}
		// Per-pixel alpha has no palette form, so the picture can no
		// longer be re-resolved.
		img.Palette, img.Indices = nil, nil
	}
	return img, nil
}

// Candidate detects and decodes BLP files.
type Candidate struct{}

func (Candidate) Name() string { return "blp" }

func (Candidate) Score(p *detect.Probe, ctx detect.Context) int {
	var s detect.Scorer
	s.Require(p.Match(0, "BLP0") || p.Match(0, "BLP1") || p.Match(0, "BLP2"))
	s.Magic(true)
	s.Container(ctx, "mpq", "casc")
	s.Extension(ctx, "blp")
	enc, _ := p.U8(8)
	s.Check(enc >= EncodingPalette && enc <= EncodingARGB)
	ad, _ := p.U8(9)
	s.Check(ad == 0 || ad == 1 || ad == 4 || ad == 8)
	off, _ := p.U32(20, binary.LittleEndian)
	s.Check(off >= HeaderSize)
	return s.Score()
}

func (Candidate) Decode(r *source.Reader, _ detect.Context, s *detect.Session) (*animation.Image, error) {
	in, err := ReadInfo(r)
	if err != nil {
		return nil, err
	}
	log := s.Log().Named("blp")
	log.Debug("header", "width", in.Width, "height", in.Height, "encoding", in.Encoding,
		"alpha", in.AlphaDepth, "mips", len(in.Mips))
	levels := make([]*animation.Image, 0, len(in.Mips))
	for i := range in.Mips {
		img, err := decodeLevel(r, in, i)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			log.Debug("dropping damaged mip levels", "level", i, "error", err)
			break
		}
		levels = append(levels, img)
	}
	return animation.Mipmaps(levels)
}

// DecodeConfig reads the dimensions from a BLP2 header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return image.Config{}, err
	}
	in, err := ReadInfo(source.FromBytes(buf))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: in.Width, Height: in.Height}, nil
}

// Decode decodes the top mip level of a BLP2 file.
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
