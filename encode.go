package assetpix

import (
	"image"
	"io"

	"github.com/nfnt/resize"

	"github.com/deepteams/assetpix/block"
	"github.com/deepteams/assetpix/formats/dds"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
)

// EncoderOptions controls Encode.
type EncoderOptions struct {
	// Encoding is the texel encoding of the DDS file. Nil means
	// DefaultEncoding.
	Encoding Encoding

	// NoMipmaps writes only the top level.
	NoMipmaps bool

	// Interpolation shrinks mip levels. The zero value is nearest
	// neighbor.
	Interpolation resize.InterpolationFunction
}

// DefaultEncoderOptions returns DXT5 with a Lanczos-filtered mip chain.
func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{Encoding: DefaultEncoding, Interpolation: resize.Lanczos3}
}

// Encode writes img as a DDS texture. A nil o uses DefaultEncoderOptions.
func Encode(w io.Writer, img image.Image, o *EncoderOptions) error {
	if o == nil {
		o = DefaultEncoderOptions()
	}
	enc := o.Encoding
	if enc == nil {
		enc = DefaultEncoding
	}
	return dds.Encode(w, img, &dds.EncodeOptions{
		Encoding:      enc,
		Mipmaps:       !o.NoMipmaps,
		Interpolation: o.Interpolation,
	})
}

// EncodeTexture returns img in t's native encoding and layout, ready to be
// written back into an asset. t's size must match img. Indexed textures
// quantize to the nearest entry of p.
func EncodeTexture(img image.Image, t *Texture, p *palette.Palette) ([]byte, error) {
	src, err := pixel.FromImage(img)
	if err != nil {
		return nil, err
	}
	if src.Width != t.Width || src.Height != t.Height {
		return nil, pixel.Errorf(pixel.ErrInvalidDimension, "assetpix", "width", int64(src.Width))
	}
	return t.Encode(src, p)
}

// DefaultEncoding is the encoding Encode uses when none is given.
var DefaultEncoding Encoding = Compressed{Format: block.DXT5}
