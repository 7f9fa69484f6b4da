package dds

import (
	"encoding/binary"
	"image"
	"io"

	"github.com/nfnt/resize"

	"github.com/deepteams/assetpix/block"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/texture"
)

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// Encoding is the texel encoding. Compressed DXT1/3/5 and BC7 and the
	// direct formats that have a DDS bit-mask form are accepted.
	Encoding texture.Encoding
	// Mipmaps writes a full chain down to 1×1.
	Mipmaps bool
	// Interpolation is the filter used to shrink mip levels.
	Interpolation resize.InterpolationFunction
}

// DefaultEncodeOptions returns DXT5 with a Lanczos-filtered mip chain.
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{
		Encoding:      texture.Compressed{Format: block.DXT5},
		Mipmaps:       true,
		Interpolation: resize.Lanczos3,
	}
}

// Encode writes img as a DDS file.
func Encode(w io.Writer, img image.Image, o *EncodeOptions) error {
	if o == nil {
		o = DefaultEncodeOptions()
	}
	src, err := pixel.FromImage(img)
	if err != nil {
		return err
	}
	levels := []*pixel.Buffer{src}
	if o.Mipmaps {
		levels, err = mipChain(src, o.Interpolation)
		if err != nil {
			return err
		}
	}

	h, x10, err := buildHeader(src.Width, src.Height, len(levels), o.Encoding)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, Magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	if x10 != nil {
		if err := binary.Write(w, binary.LittleEndian, x10); err != nil {
			return err
		}
	}
	for _, lv := range levels {
		tex := texture.Texture{Width: lv.Width, Height: lv.Height, Encoding: o.Encoding}
		data, err := tex.Encode(lv, nil)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// mipChain shrinks src level by level down to 1×1.
func mipChain(src *pixel.Buffer, interp resize.InterpolationFunction) ([]*pixel.Buffer, error) {
	levels := []*pixel.Buffer{src}
	w, h := src.Width, src.Height
	base := src.NRGBA()
	for w > 1 || h > 1 {
		w, h = max(1, w/2), max(1, h/2)
		lv, err := pixel.FromImage(resize.Resize(uint(w), uint(h), base, interp))
		if err != nil {
			return nil, err
		}
		levels = append(levels, lv)
	}
	return levels, nil
}

func buildHeader(width, height, mips int, enc texture.Encoding) (*header, *dx10Header, error) {
	h := &header{
		Size:   headerSize,
		Flags:  flagCaps | flagHeight | flagWidth | flagPixelFormat,
		Height: uint32(height),
		Width:  uint32(width),
		Caps:   capsTexture,
	}
	h.PixelFormat.Size = pfSize
	if mips > 1 {
		h.Flags |= flagMipMapCount
		h.MipMapCount = uint32(mips)
		h.Caps |= capsComplex | capsMipMap
	}
	var x10 *dx10Header
	switch e := enc.(type) {
	case texture.Compressed:
		h.Flags |= flagLinearSize
		h.PitchOrLinearSize = uint32(block.DataSize(e.Format, width, height))
		h.PixelFormat.Flags = pfFourCC
		switch e.Format {
		case block.DXT1, block.DXT3, block.DXT5:
			copy(h.PixelFormat.FourCC[:], e.Format.String())
		case block.BC7:
			copy(h.PixelFormat.FourCC[:], "DX10")
			x10 = &dx10Header{DXGIFormat: 98, ResourceDimension: dimTexture2D, ArraySize: 1}
		default:
			return nil, nil, pixel.Unsupported("dds", "block format", int64(e.Format))
		}
	case texture.Direct:
		var m *maskFormat
		for i := range maskFormats {
			if maskFormats[i].format == e.Format {
				m = &maskFormats[i]
				break
			}
		}
		if m == nil || e.BigEndian {
			return nil, nil, pixel.Unsupported("dds", "pixel format", int64(e.Format))
		}
		h.Flags |= flagPitch
		h.PitchOrLinearSize = uint32(width * e.Format.BytesPerPixel())
		pf := &h.PixelFormat
		pf.RGBBitCount = m.bits
		pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask = m.r, m.g, m.b, m.a
		switch {
		case m.r|m.g|m.b == 0:
			pf.Flags = pfAlpha
		case e.Format == pixel.L8 || e.Format == pixel.LA88:
			pf.Flags = pfLuminance
		default:
			pf.Flags = pfRGB
		}
		if m.a != 0 && m.r|m.g|m.b != 0 {
			pf.Flags |= pfAlphaPixels
		}
	default:
		return nil, nil, pixel.Unsupported("dds", "encoding", 0)
	}
	return h, x10, nil
}
