package palette

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"

	"golang.org/x/image/bmp"

	"github.com/deepteams/assetpix/pixel"
)

var ErrNoPalette = errors.New("palette: no palette data found")

// Import reads a companion palette file: a paletted BMP, PNG or GIF, or a
// raw Adobe Color Table (768 or 772 bytes).
func Import(rs io.ReadSeeker) (*Palette, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(rs, hdr[:]); err != nil {
		return nil, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch {
	case string(hdr[:2]) == "BM":
		return importConfig(rs, bmp.DecodeConfig, bmp.Decode)
	case string(hdr[1:4]) == "PNG":
		return importConfig(rs, png.DecodeConfig, png.Decode)
	case string(hdr[:3]) == "GIF":
		return importConfig(rs, gif.DecodeConfig, gif.Decode)
	}
	return importACT(rs)
}

func importConfig(rs io.ReadSeeker,
	config func(io.Reader) (image.Config, error),
	decode func(io.Reader) (image.Image, error)) (*Palette, error) {
	cfg, err := config(rs)
	if err != nil {
		return nil, err
	}
	if p, ok := cfg.ColorModel.(color.Palette); ok {
		return FromColors(p)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := decode(rs)
	if err != nil {
		return nil, err
	}
	if pm, ok := img.(*image.Paletted); ok {
		return FromColors(pm.Palette)
	}
	return nil, ErrNoPalette
}

func importACT(rs io.ReadSeeker) (*Palette, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if size != 768 && size != 772 {
		return nil, ErrNoPalette
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return nil, err
	}
	count, trans := 256, -1
	if size == 772 {
		count = int(binary.BigEndian.Uint16(buf[768:]))
		trans = int(binary.BigEndian.Uint16(buf[770:]))
		if count == 0 || count > 256 {
			count = 256
		}
	}
	p, err := Load(buf, count, Layout{Format: pixel.RGB888})
	if err != nil {
		return nil, err
	}
	if trans >= 0 && trans < count {
		p.colors[trans] &= 0x00ffffff
	}
	return p, nil
}

// FromColors converts a standard library palette.
func FromColors(cp color.Palette) (*Palette, error) {
	c := make([]uint32, len(cp))
	for i, v := range cp {
		c[i] = pixel.FromNRGBA(color.NRGBAModel.Convert(v).(color.NRGBA))
	}
	return New(c)
}

// ToColors converts the palette to a standard library palette.
func (p *Palette) ToColors() color.Palette {
	cp := make(color.Palette, len(p.colors))
	for i, v := range p.colors {
		cp[i] = pixel.ToNRGBA(v)
	}
	return cp
}

// ImportBytes is Import over an in-memory file.
func ImportBytes(data []byte) (*Palette, error) {
	return Import(bytes.NewReader(data))
}
