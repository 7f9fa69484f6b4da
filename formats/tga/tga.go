// Package tga decodes Truevision TGA images: color-mapped, true-color and
// grayscale, raw or run-length encoded.
//
// TGA has no magic number, so its Score is built from header plausibility
// checks alone and stays below any format that matched a magic.
package tga

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
	"github.com/deepteams/assetpix/texture"
)

// Image types.
const (
	TypeColorMapped    = 1
	TypeTrueColor      = 2
	TypeGray           = 3
	TypeRLEColorMapped = 9
	TypeRLETrueColor   = 10
	TypeRLEGray        = 11
)

const (
	headerSize = 18

	descAlphaBits = 0x0f
	descRightLeft = 0x10
	descTopDown   = 0x20
)

var ErrBadRLE = errors.New("tga: run-length packet overruns image")

type header struct {
	IDLength     uint8
	ColorMapType uint8
	ImageType    uint8
	MapFirst     uint16
	MapLength    uint16
	MapDepth     uint8
	XOrigin      uint16
	YOrigin      uint16
	Width        uint16
	Height       uint16
	Depth        uint8
	Descriptor   uint8
}

func (h *header) base() uint8 { return h.ImageType &^ 8 }

// Info is the parsed TGA header.
type Info struct {
	Width, Height int
	ImageType     int
	Depth         int
	AlphaBits     int
	TopDown       bool
	RightToLeft   bool
	Encoding      texture.Encoding
	Filters       []pixel.Filter
	Palette       *palette.Palette
}

// depthFormat maps a true-color or color-map entry depth to its format.
func depthFormat(depth int) (pixel.Format, bool) {
	switch depth {
	case 15, 16:
		return pixel.ARGB1555, true
	case 24:
		return pixel.BGR888, true
	case 32:
		return pixel.BGRA8888, true
	}
	return 0, false
}

// opaque reports whether stored alpha must be ignored: 15-bit data has no
// alpha bit and a zero alpha-bit count in the descriptor disowns the rest.
func opaque(depth, alphaBits int) bool {
	return depth == 15 || alphaBits == 0 && depth != 24
}

// ReadInfo parses the header and color map and leaves r at the pixel data.
func ReadInfo(r *source.Reader) (*Info, error) {
	var h header
	if err := r.Fields(&h); err != nil {
		return nil, err
	}
	if err := pixel.CheckDimensions("tga", int(h.Width), int(h.Height)); err != nil {
		return nil, err
	}
	in := &Info{
		Width:       int(h.Width),
		Height:      int(h.Height),
		ImageType:   int(h.ImageType),
		Depth:       int(h.Depth),
		AlphaBits:   int(h.Descriptor & descAlphaBits),
		TopDown:     h.Descriptor&descTopDown != 0,
		RightToLeft: h.Descriptor&descRightLeft != 0,
	}
	if err := r.Skip(int64(h.IDLength)); err != nil {
		return nil, err
	}

	var mapData []byte
	if h.ColorMapType == 1 {
		n := int(h.MapLength) * ((int(h.MapDepth) + 7) / 8)
		var err error
		if mapData, err = r.ReadN(n); err != nil {
			return nil, err
		}
	}

	switch h.base() {
	case TypeColorMapped:
		if h.ColorMapType != 1 || h.Depth != 8 {
			return nil, pixel.Unsupported("tga", "color-mapped depth", int64(h.Depth))
		}
		p, err := loadMap(mapData, int(h.MapFirst), int(h.MapLength), int(h.MapDepth), in.AlphaBits)
		if err != nil {
			return nil, err
		}
		in.Palette = p
		in.Encoding = texture.Indexed{Depth: 8}
	case TypeTrueColor:
		f, ok := depthFormat(in.Depth)
		if !ok {
			return nil, pixel.Unsupported("tga", "depth", int64(in.Depth))
		}
		in.Encoding = texture.Direct{Format: f}
		if opaque(in.Depth, in.AlphaBits) {
			in.Filters = []pixel.Filter{pixel.OpaqueAlpha()}
		}
	case TypeGray:
		switch in.Depth {
		case 8:
			in.Encoding = texture.Direct{Format: pixel.L8}
		case 16:
			in.Encoding = texture.Direct{Format: pixel.LA88}
		default:
			return nil, pixel.Unsupported("tga", "gray depth", int64(in.Depth))
		}
	default:
		return nil, pixel.Unsupported("tga", "image type", int64(h.ImageType))
	}
	return in, nil
}

// loadMap builds the palette. Pixel values index the map from first, so
// the entries before it are left transparent black.
func loadMap(data []byte, first, length, depth, alphaBits int) (*palette.Palette, error) {
	if first+length > palette.MaxColors {
		return nil, pixel.Unsupported("tga", "color map length", int64(first+length))
	}
	f, ok := depthFormat(depth)
	if !ok {
		return nil, pixel.Unsupported("tga", "color map depth", int64(depth))
	}
	p, err := palette.Load(data, length, palette.Layout{Format: f})
	if err != nil {
		return nil, err
	}
	if opaque(depth, alphaBits) {
		p = p.Map(pixel.OpaqueAlpha())
	}
	if first == 0 {
		return p, nil
	}
	return palette.New(append(make([]uint32, first), p.Colors()...))
}

// unpackRLE expands run-length packets of elem-byte pixels until n pixels
// have been produced.
func unpackRLE(r *source.Reader, n, elem int) ([]byte, error) {
	// a packet expands at most 128-fold
	out := make([]byte, 0, min(n*elem, int(r.Remaining()+1)*128))
	for len(out) < n*elem {
		hdr, err := r.U8()
		if err != nil {
			return nil, err
		}
		count := int(hdr&0x7f) + 1
		if len(out)+count*elem > n*elem {
			return nil, fmt.Errorf("%w: %d pixels at %d of %d", ErrBadRLE, count, len(out)/elem, n)
		}
		if hdr&0x80 != 0 {
			px, err := r.ReadN(elem)
			if err != nil {
				return nil, err
			}
			for i := 0; i < count; i++ {
				out = append(out, px...)
			}
			continue
		}
		raw, err := r.ReadN(count * elem)
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out, nil
}

// orient rewrites rows and columns of a packed image into top-down,
// left-to-right order.
func orient(data []byte, w, h, elem int, flipV, flipH bool) {
	stride := w * elem
	if flipV {
		tmp := make([]byte, stride)
		for y := 0; y < h/2; y++ {
			a, b := data[y*stride:(y+1)*stride], data[(h-1-y)*stride:(h-y)*stride]
			copy(tmp, a)
			copy(a, b)
			copy(b, tmp)
		}
	}
	if flipH {
		for y := 0; y < h; y++ {
			row := data[y*stride : (y+1)*stride]
			for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
				for k := 0; k < elem; k++ {
					row[l*elem+k], row[r*elem+k] = row[r*elem+k], row[l*elem+k]
				}
			}
		}
	}
}

func elemSize(e texture.Encoding) int {
	if d, ok := e.(texture.Direct); ok {
		return d.Format.BytesPerPixel()
	}
	return 1
}

// Candidate detects and decodes TGA files.
type Candidate struct{}

func (Candidate) Name() string { return "tga" }

func (Candidate) Score(p *detect.Probe, ctx detect.Context) int {
	var s detect.Scorer
	hd, ok := p.Bytes(0, headerSize)
	s.Require(ok)
	if !ok {
		return 0
	}
	cmapType, typ, depth, desc := hd[1], hd[2], hd[16], hd[17]
	base := typ &^ 8
	s.Require(cmapType <= 1)
	s.Require(base >= TypeColorMapped && base <= TypeGray)
	s.Require(base != TypeColorMapped || cmapType == 1)
	w := binary.LittleEndian.Uint16(hd[12:])
	h := binary.LittleEndian.Uint16(hd[14:])
	s.Require(w > 0 && h > 0)
	s.Require(depth == 8 || depth == 15 || depth == 16 || depth == 24 || depth == 32)
	s.Extension(ctx, "tga", "vda", "icb", "vst")
	s.Check(desc&0xc0 == 0)
	s.Check(int(desc&descAlphaBits) <= int(depth))
	if cmapType == 1 {
		md := hd[7]
		s.Check(md == 15 || md == 16 || md == 24 || md == 32)
	}
	if typ < TypeRLEColorMapped {
		// raw data must fit
		need := int64(headerSize) + int64(hd[0]) + int64(w)*int64(h)*int64((depth+7)/8)
		s.Check(p.StreamLength() >= need)
	}
	return s.Score()
}

func (Candidate) Decode(r *source.Reader, _ detect.Context, s *detect.Session) (*animation.Image, error) {
	in, err := ReadInfo(r)
	if err != nil {
		return nil, err
	}
	s.Log().Named("tga").Debug("header", "width", in.Width, "height", in.Height,
		"type", in.ImageType, "depth", in.Depth, "encoding", in.Encoding)
	elem := elemSize(in.Encoding)
	n := in.Width * in.Height
	var data []byte
	if in.ImageType >= TypeRLEColorMapped {
		data, err = unpackRLE(r, n, elem)
	} else {
		data, err = r.ReadN(n * elem)
	}
	if err != nil {
		return nil, err
	}
	orient(data, in.Width, in.Height, elem, !in.TopDown, in.RightToLeft)
	tex := texture.Texture{Width: in.Width, Height: in.Height, Encoding: in.Encoding, Filters: in.Filters}
	return tex.Decode(data, in.Palette)
}

// DecodeConfig reads the dimensions from a TGA header.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: int(h.Width), Height: int(h.Height)}, nil
}

// Decode decodes a TGA image.
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
