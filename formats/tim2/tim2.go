// Package tim2 decodes PlayStation 2 TIM2 (.tm2) texture files.
//
// A TIM2 file holds one or more pictures. Each picture is 16, 24 or 32-bit
// direct color or 4/8-bit indexed with one or more CLUTs. The GS stores
// alpha in the range 0..128 and 256-color CLUTs in CSM1 block order; both
// are normalized here.
package tim2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/indexed"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
	"github.com/deepteams/assetpix/texture"
)

const Magic = "TIM2"

var (
	ErrNotTIM2     = errors.New("tim2: not a TIM2 file")
	ErrNoPictures  = errors.New("tim2: file has no pictures")
	ErrPictureSize = errors.New("tim2: picture sizes are inconsistent")
)

// Image types. The CLUT type uses the same codes for its entries.
const (
	TypeNone   = 0
	TypeRGBA16 = 1
	TypeRGB24  = 2
	TypeRGBA32 = 3
	TypeIndex4 = 4
	TypeIndex8 = 5
)

const (
	fileHeaderSize    = 16
	pictureHeaderSize = 48
	alignedStart      = 128

	clutCSM2     = 0x80
	clutTypeMask = 0x3f
)

type fileHeader struct {
	Magic    [4]byte
	Version  uint8
	Format   uint8 // 1: pictures aligned to 128 bytes
	Pictures uint16
	Reserved [8]byte
}

type pictureHeader struct {
	TotalSize  uint32
	ClutSize   uint32
	ImageSize  uint32
	HeaderSize uint16
	ClutColors uint16
	PictFormat uint8
	MipMaps    uint8
	ClutType   uint8
	ImageType  uint8
	Width      uint16
	Height     uint16
	GsTex0     uint64
	GsTex1     uint64
	GsRegs     uint32
	GsTexClut  uint32
}

type mipHeader struct {
	Miptbp1 uint64
	Miptbp2 uint64
	Sizes   [8]uint32
}

// entryEncoding maps an image or CLUT type to its direct pixel format.
// 32-bit entries carry GS alpha and need AlphaDouble.
func entryEncoding(typ uint8) (pixel.Format, []pixel.Filter, bool) {
	switch typ {
	case TypeRGBA16:
		return pixel.ABGR1555, nil, true
	case TypeRGB24:
		return pixel.RGB888, nil, true
	case TypeRGBA32:
		return pixel.RGBA8888, []pixel.Filter{pixel.AlphaDouble()}, true
	}
	return 0, nil, false
}

// Picture describes one picture of a file. For indexed pictures Filters
// apply to the CLUT.
type Picture struct {
	Width, Height int
	Encoding      texture.Encoding
	Filters       []pixel.Filter
	ClutType      uint8
	ClutColors    int
	LevelSizes    []int
	imageOff      int64
	clutOff       int64
	clutSize      int64
}

func readPicture(r *source.Reader, start int64) (*Picture, *pictureHeader, error) {
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, nil, err
	}
	var ph pictureHeader
	if err := r.Fields(&ph); err != nil {
		return nil, nil, err
	}
	if ph.HeaderSize < pictureHeaderSize ||
		int64(ph.TotalSize) < int64(ph.HeaderSize)+int64(ph.ImageSize)+int64(ph.ClutSize) {
		return nil, nil, fmt.Errorf("%w: total %d, header %d, image %d, clut %d",
			ErrPictureSize, ph.TotalSize, ph.HeaderSize, ph.ImageSize, ph.ClutSize)
	}
	if err := pixel.CheckDimensions("tim2", int(ph.Width), int(ph.Height)); err != nil {
		return nil, nil, err
	}
	pic := &Picture{
		Width:      int(ph.Width),
		Height:     int(ph.Height),
		ClutType:   ph.ClutType,
		ClutColors: int(ph.ClutColors),
		imageOff:   start + int64(ph.HeaderSize),
		clutOff:    start + int64(ph.HeaderSize) + int64(ph.ImageSize),
		clutSize:   int64(ph.ClutSize),
	}
	switch ph.ImageType {
	case TypeIndex4:
		pic.Encoding = texture.Indexed{Depth: 4, Order: indexed.LowNibbleFirst}
		_, pic.Filters, _ = entryEncoding(ph.ClutType & clutTypeMask)
	case TypeIndex8:
		pic.Encoding = texture.Indexed{Depth: 8}
		_, pic.Filters, _ = entryEncoding(ph.ClutType & clutTypeMask)
	default:
		f, filters, ok := entryEncoding(ph.ImageType)
		if !ok {
			return nil, nil, pixel.Unsupported("tim2", "image type", int64(ph.ImageType))
		}
		pic.Encoding = texture.Direct{Format: f}
		pic.Filters = filters
	}
	pic.LevelSizes = []int{int(ph.ImageSize)}
	if ph.MipMaps > 1 {
		var mh mipHeader
		if ph.HeaderSize < pictureHeaderSize+uint16(binary.Size(mh)) {
			return nil, nil, fmt.Errorf("%w: mip header does not fit", ErrPictureSize)
		}
		if err := r.Fields(&mh); err != nil {
			return nil, nil, err
		}
		n := min(int(ph.MipMaps), len(mh.Sizes), animation.MipCount(pic.Width, pic.Height))
		pic.LevelSizes = pic.LevelSizes[:0]
		for i := 0; i < n; i++ {
			pic.LevelSizes = append(pic.LevelSizes, int(mh.Sizes[i]))
		}
	}
	return pic, &ph, nil
}

// loadCLUTs reads the picture's CLUTs with the picture filters already
// applied, so a later re-resolution against them matches the decode.
func loadCLUTs(r *source.Reader, pic *Picture) ([]*palette.Palette, error) {
	ix := pic.Encoding.(texture.Indexed)
	f, _, ok := entryEncoding(pic.ClutType & clutTypeMask)
	if !ok {
		return nil, pixel.Unsupported("tim2", "clut type", int64(pic.ClutType))
	}
	if pic.ClutColors == 0 {
		return nil, pixel.Errorf(pixel.ErrMissingPalette, "tim2", "clut colors", 0)
	}
	if _, err := r.Seek(pic.clutOff, io.SeekStart); err != nil {
		return nil, err
	}
	size := f.BytesPerPixel()
	if int64(pic.ClutColors*size) > pic.clutSize {
		return nil, fmt.Errorf("%w: %d colors in a %d byte CLUT", ErrPictureSize, pic.ClutColors, pic.clutSize)
	}
	data, err := r.ReadN(pic.ClutColors * size)
	if err != nil {
		return nil, err
	}
	per := 1 << ix.Depth
	l := palette.Layout{
		Format:  f,
		Striped: ix.Depth == 8 && pic.ClutType&clutCSM2 == 0,
	}
	var cluts []*palette.Palette
	for off := 0; off < pic.ClutColors; off += per {
		n := min(per, pic.ClutColors-off)
		p, err := palette.Load(data[off*size:], n, l)
		if err != nil {
			return nil, err
		}
		if len(pic.Filters) > 0 {
			p = p.Map(pic.Filters...)
		}
		cluts = append(cluts, p)
	}
	return cluts, nil
}

// decodePicture decodes the levels of one picture. The CLUTs of indexed
// pictures are appended to bank and the first one is selected.
func decodePicture(r *source.Reader, pic *Picture, bank *palette.Bank, log hclog.Logger) ([]*animation.Image, error) {
	var p *palette.Palette
	filters := pic.Filters
	if _, ok := pic.Encoding.(texture.Indexed); ok {
		cluts, err := loadCLUTs(r, pic)
		if err != nil {
			return nil, err
		}
		first := bank.Len()
		bank.Add(cluts...)
		if err := bank.Select(first); err != nil {
			return nil, err
		}
		if p, err = bank.Current(); err != nil {
			return nil, err
		}
		filters = nil
	}

	var levels []*animation.Image
	off := pic.imageOff
	for i, size := range pic.LevelSizes {
		tex := texture.Texture{
			Width:    max(1, pic.Width>>i),
			Height:   max(1, pic.Height>>i),
			Encoding: pic.Encoding,
			Filters:  filters,
		}
		if _, err := r.Seek(off, io.SeekStart); err != nil {
			return nil, err
		}
		data, err := r.ReadN(size)
		if err == nil {
			var img *animation.Image
			if img, err = tex.Decode(data, p); err == nil {
				levels = append(levels, img)
				off += int64(size)
				continue
			}
		}
		if i == 0 {
			return nil, err
		}
		log.Debug("dropping damaged mip levels", "level", i, "error", err)
		break
	}
	return levels, nil
}

// Candidate detects and decodes TIM2 files.
type Candidate struct{}

func (Candidate) Name() string { return "tim2" }

func (Candidate) Score(p *detect.Probe, ctx detect.Context) int {
	var s detect.Scorer
	s.Require(p.Match(0, Magic))
	s.Magic(true)
	s.Container(ctx, "afs", "pak")
	s.Extension(ctx, "tm2", "tim2")
	v, _ := p.U8(4)
	s.Check(v == 3 || v == 4)
	n, _ := p.U16(6, binary.LittleEndian)
	s.Check(n > 0)
	format, _ := p.U8(5)
	pic := fileHeaderSize
	if format == 1 {
		pic = alignedStart
	}
	typ, ok := p.U8(pic + 19)
	s.Check(ok && typ >= TypeRGBA16 && typ <= TypeIndex8)
	return s.Score()
}

// ReadPictures parses the file header and every picture header.
func ReadPictures(r *source.Reader) ([]*Picture, error) {
	var fh fileHeader
	if err := r.Fields(&fh); err != nil {
		return nil, err
	}
	if string(fh.Magic[:]) != Magic {
		return nil, ErrNotTIM2
	}
	if fh.Pictures == 0 {
		return nil, ErrNoPictures
	}
	start := int64(fileHeaderSize)
	if fh.Format == 1 {
		start = alignedStart
	}
	pics := make([]*Picture, 0, fh.Pictures)
	for i := 0; i < int(fh.Pictures); i++ {
		pic, ph, err := readPicture(r, start)
		if err != nil {
			return nil, fmt.Errorf("picture %d: %w", i, err)
		}
		pics = append(pics, pic)
		start += int64(ph.TotalSize)
	}
	return pics, nil
}

// Decode decodes every picture. A single picture with mipmaps yields a mip
// chain; several pictures yield a sequence of their top levels. Once every
// picture has decoded, the CLUTs are appended to the session bank with the
// first CLUT of the last indexed picture selected, so a host can pick
// another CLUT and re-resolve. A failed decode leaves the bank untouched.
func (Candidate) Decode(r *source.Reader, _ detect.Context, s *detect.Session) (*animation.Image, error) {
	pics, err := ReadPictures(r)
	if err != nil {
		return nil, err
	}
	log := s.Log().Named("tim2")
	local := palette.NewBank()
	var levels, tops []*animation.Image
	for i, pic := range pics {
		log.Debug("picture", "index", i, "width", pic.Width, "height", pic.Height,
			"encoding", pic.Encoding, "levels", len(pic.LevelSizes))
		if levels, err = decodePicture(r, pic, local, log); err != nil {
			return nil, fmt.Errorf("picture %d: %w", i, err)
		}
		tops = append(tops, levels[0])
	}
	var img *animation.Image
	if len(pics) == 1 {
		img, err = animation.Mipmaps(levels)
	} else {
		img, err = animation.Sequence(tops, false)
	}
	if err != nil {
		return nil, err
	}
	if s != nil && s.Bank != nil && local.Len() > 0 {
		base := s.Bank.Len()
		for i := 0; i < local.Len(); i++ {
			p, _ := local.At(i)
			s.Bank.Add(p)
		}
		if err := s.Bank.Select(base + local.CurrentIndex()); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// DecodeConfig reports the size of the first picture.
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := make([]byte, alignedStart+pictureHeaderSize)
	n, err := io.ReadAtLeast(r, buf, fileHeaderSize+pictureHeaderSize)
	if err != nil {
		return image.Config{}, err
	}
	src := source.FromBytes(buf[:n])
	var fh fileHeader
	if err := src.Fields(&fh); err != nil {
		return image.Config{}, err
	}
	if string(fh.Magic[:]) != Magic {
		return image.Config{}, ErrNotTIM2
	}
	start := int64(fileHeaderSize)
	if fh.Format == 1 {
		start = alignedStart
	}
	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return image.Config{}, err
	}
	var ph pictureHeader
	if err := src.Fields(&ph); err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: int(ph.Width), Height: int(ph.Height)}, nil
}

// Decode decodes the first picture of a TIM2 file.
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
