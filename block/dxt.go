package block

import (
	"encoding/binary"

	"github.com/deepteams/assetpix/pixel"
)

// rgb565 expands a 5-6-5 color to 8-bit channels.
func rgb565(c uint16) (r, g, b uint32) {
	return uint32(pixel.Expand5(uint32(c >> 11))),
		uint32(pixel.Expand6(uint32(c >> 5))),
		uint32(pixel.Expand5(uint32(c)))
}

func argb(a, r, g, b uint32) uint32 { return a<<24 | r<<16 | g<<8 | b }

// dxtPalette builds the four colors of a color block. When punch is set and
// c0 <= c1, the block is in three-color mode: color 2 is the midpoint and
// color 3 is transparent black.
func dxtPalette(c0, c1 uint16, punch bool) [4]uint32 {
	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)
	var pal [4]uint32
	pal[0] = argb(0xff, r0, g0, b0)
	pal[1] = argb(0xff, r1, g1, b1)
	if c0 > c1 || !punch {
		pal[2] = argb(0xff, (2*r0+r1)/3, (2*g0+g1)/3, (2*b0+b1)/3)
		pal[3] = argb(0xff, (r0+2*r1)/3, (g0+2*g1)/3, (b0+2*b1)/3)
	} else {
		pal[2] = argb(0xff, (r0+r1)/2, (g0+g1)/2, (b0+b1)/2)
		pal[3] = 0
	}
	return pal
}

// decodeColor decodes the 8-byte color half of a DXT block. DXT3 and DXT5
// always use four-color mode.
func decodeColor(blk []byte, texels *[16]uint32, punch bool) {
	c0 := binary.LittleEndian.Uint16(blk[0:])
	c1 := binary.LittleEndian.Uint16(blk[2:])
	idx := binary.LittleEndian.Uint32(blk[4:])
	pal := dxtPalette(c0, c1, punch)
	for i := 0; i < 16; i++ {
		texels[i] = pal[idx>>(2*uint(i))&3]
	}
}

// decodeExplicitAlpha applies the 4-bit alpha of a DXT3 block.
func decodeExplicitAlpha(blk []byte, texels *[16]uint32) {
	a := binary.LittleEndian.Uint64(blk)
	for i := 0; i < 16; i++ {
		v := uint32(pixel.Expand4(uint32(a >> (4 * uint(i)))))
		texels[i] = texels[i]&0x00ffffff | v<<24
	}
}

// alphaRamp returns the eight alpha levels of a DXT5 alpha block.
// a0 > a1 selects the eight-step ramp, otherwise six steps plus 0 and 255.
// Interpolated levels round to nearest.
func alphaRamp(a0, a1 uint32) [8]uint32 {
	var lv [8]uint32
	lv[0], lv[1] = a0, a1
	if a0 > a1 {
		for i := uint32(2); i < 8; i++ {
			lv[i] = ((8-i)*a0 + (i-1)*a1 + 3) / 7
		}
	} else {
		for i := uint32(2); i < 6; i++ {
			lv[i] = ((6-i)*a0 + (i-1)*a1 + 2) / 5
		}
		lv[6], lv[7] = 0, 255
	}
	return lv
}

// decodeInterpolatedAlpha applies the alpha half of a DXT5 block.
func decodeInterpolatedAlpha(blk []byte, texels *[16]uint32) {
	lv := alphaRamp(uint32(blk[0]), uint32(blk[1]))
	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(blk[2+i]) << (8 * uint(i))
	}
	for i := 0; i < 16; i++ {
		texels[i] = texels[i]&0x00ffffff | lv[bits>>(3*uint(i))&7]<<24
	}
}
