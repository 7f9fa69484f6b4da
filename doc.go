// Package assetpix decodes the pixel data of game assets into images.
//
// Game engines and consoles store textures in many shapes: direct pixel
// formats of every channel order, 4- and 8-bit indices into palettes that
// may live in another file, DXT and BC7 block compression, and console
// specific memory layouts (tiled, Morton, PSP and Xbox 360 swizzles). This
// package turns any of them into 32-bit ARGB images, and assembles mipmap
// chains and frame sequences.
//
// The package supports:
//   - DDS (DXT1/3/5, BC7, uncompressed bit masks, mipmaps) read and write
//   - Blizzard BLP2 (palettized with alpha planes, DXT, ARGB)
//   - PlayStation 2 TIM2 (indexed with CLUT banks, direct color)
//   - PlayStation Vita GXT (swizzled, palettized, block compressed)
//   - TGA (color-mapped, true-color, gray, RLE)
//   - zlib, zstd and bzip2 wrapped payloads of any of the above
//
// Basic usage, identifying the format from the bytes and their context:
//
//	s := assetpix.NewSession(nil)
//	img, format, err := s.Decode(f, assetpix.Context{Extension: "blp"})
//
// Raw texture data whose shape is known from elsewhere:
//
//	tex := &assetpix.Texture{Width: 64, Height: 64,
//		Encoding: assetpix.Compressed{Format: block.DXT5}}
//	img, err := s.DecodeTexture(tex, data)
//
// The self-describing formats also register with the image package, so
// image.Decode reads their first level.
package assetpix
