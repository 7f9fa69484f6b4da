// Package block decodes and encodes 4×4 block-compressed textures:
// DXT1 (BC1), DXT3 (BC2), DXT5 (BC3) and BC7.
//
// Images whose dimensions are not a multiple of four are stored as whole
// blocks; the decoders clip the partial right and bottom blocks.
package block

import (
	"strings"

	"github.com/deepteams/assetpix/pixel"
)

// Format identifies a block compression scheme.
type Format uint8

const (
	DXT1 Format = iota + 1
	DXT3
	DXT5
	BC7
)

// Info describes the storage geometry of a block format.
type Info struct {
	Name        string
	BlockWidth  int
	BlockHeight int
	BlockBytes  int
	Alpha       bool
}

var infos = [...]Info{
	DXT1: {"DXT1", 4, 4, 8, true},
	DXT3: {"DXT3", 4, 4, 16, true},
	DXT5: {"DXT5", 4, 4, 16, true},
	BC7:  {"BC7", 4, 4, 16, true},
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool { return f >= DXT1 && f <= BC7 }

// Info returns the descriptor of f. It panics on an invalid format.
func (f Format) Info() Info { return infos[f] }

func (f Format) String() string {
	if !f.Valid() {
		return "unknown"
	}
	return infos[f].Name
}

// BlockBytes returns the size of one compressed block, 0 if f is invalid.
func (f Format) BlockBytes() int {
	if !f.Valid() {
		return 0
	}
	return infos[f].BlockBytes
}

// ParseFormat accepts the common names of each format, case-insensitively.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToUpper(name) {
	case "DXT1", "BC1":
		return DXT1, true
	case "DXT2", "DXT3", "BC2":
		return DXT3, true
	case "DXT4", "DXT5", "BC3":
		return DXT5, true
	case "BC7":
		return BC7, true
	}
	return 0, false
}

// BlocksAcross returns the number of blocks covering n pixels.
func BlocksAcross(n int) int { return (n + 3) / 4 }

// DataSize returns the compressed size of a width×height image.
func DataSize(f Format, width, height int) int {
	return BlocksAcross(width) * BlocksAcross(height) * f.BlockBytes()
}

// Decode decompresses a width×height image. The input must hold every block
// of the image; the check happens before any pixel is written.
func Decode(data []byte, width, height int, f Format) (*pixel.Buffer, error) {
	if !f.Valid() {
		return nil, pixel.Unsupported("block", "format", int64(f))
	}
	if err := pixel.CheckDimensions(f.String(), width, height); err != nil {
		return nil, err
	}
	need := DataSize(f, width, height)
	if len(data) < need {
		return nil, pixel.Truncated(f.String(), need, len(data))
	}
	dst := &pixel.Buffer{Width: width, Height: height, Pix: make([]uint32, width*height)}
	bw, bh := BlocksAcross(width), BlocksAcross(height)
	size := f.BlockBytes()
	var texels [16]uint32
	var br bc7Reader
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			off := (by*bw + bx) * size
			blk := data[off : off+size]
			switch f {
			case DXT1:
				decodeColor(blk, &texels, true)
			case DXT3:
				decodeColor(blk[8:], &texels, false)
				decodeExplicitAlpha(blk, &texels)
			case DXT5:
				decodeColor(blk[8:], &texels, false)
				decodeInterpolatedAlpha(blk, &texels)
			case BC7:
				if err := br.decode(blk, &texels); err != nil {
					return nil, err
				}
			}
			storeBlock(dst, bx*4, by*4, &texels)
		}
	}
	return dst, nil
}

// DecodeBlock decodes a single block into 16 texels in row-major order.
func DecodeBlock(blk []byte, f Format, texels *[16]uint32) error {
	if !f.Valid() {
		return pixel.Unsupported("block", "format", int64(f))
	}
	if len(blk) < f.BlockBytes() {
		return pixel.Truncated(f.String(), f.BlockBytes(), len(blk))
	}
	switch f {
	case DXT1:
		decodeColor(blk, texels, true)
	case DXT3:
		decodeColor(blk[8:], texels, false)
		decodeExplicitAlpha(blk, texels)
	case DXT5:
		decodeColor(blk[8:], texels, false)
		decodeInterpolatedAlpha(blk, texels)
	case BC7:
		var br bc7Reader
		return br.decode(blk, texels)
	}
	return nil
}

// storeBlock copies the visible part of a block into dst.
func storeBlock(dst *pixel.Buffer, x0, y0 int, texels *[16]uint32) {
	for y := 0; y < 4 && y0+y < dst.Height; y++ {
		row := (y0+y)*dst.Width + x0
		for x := 0; x < 4 && x0+x < dst.Width; x++ {
			dst.Pix[row+x] = texels[y*4+x]
		}
	}
}

// loadBlock gathers a 4×4 block from src, repeating edge pixels for the part
// outside the image.
func loadBlock(src *pixel.Buffer, x0, y0 int, texels *[16]uint32) {
	for y := 0; y < 4; y++ {
		sy := min(y0+y, src.Height-1)
		for x := 0; x < 4; x++ {
			sx := min(x0+x, src.Width-1)
			texels[y*4+x] = src.Pix[sy*src.Width+sx]
		}
	}
}
