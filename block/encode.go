package block

import (
	"encoding/binary"

	"github.com/deepteams/assetpix/internal/bitio"
	"github.com/deepteams/assetpix/pixel"
)

// Encode compresses src. DXT1 output uses punch-through blocks wherever a
// texel has alpha below 128. BC7 output is written in mode 6.
func Encode(src *pixel.Buffer, f Format) ([]byte, error) {
	if !f.Valid() {
		return nil, pixel.Unsupported("block", "format", int64(f))
	}
	if err := pixel.CheckDimensions(f.String(), src.Width, src.Height); err != nil {
		return nil, err
	}
	bw, bh := BlocksAcross(src.Width), BlocksAcross(src.Height)
	size := f.BlockBytes()
	out := make([]byte, bw*bh*size)
	var texels [16]uint32
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			loadBlock(src, bx*4, by*4, &texels)
			off := (by*bw + bx) * size
			EncodeBlock(out[off:off+size], f, &texels)
		}
	}
	return out, nil
}

// EncodeBlock compresses 16 row-major texels into dst, which must hold
// f.BlockBytes() bytes.
func EncodeBlock(dst []byte, f Format, texels *[16]uint32) {
	switch f {
	case DXT1:
		encodeColor(dst, texels, true)
	case DXT3:
		encodeExplicitAlpha(dst, texels)
		encodeColor(dst[8:], texels, false)
	case DXT5:
		encodeInterpolatedAlpha(dst, texels)
		encodeColor(dst[8:], texels, false)
	case BC7:
		b := encodeBC7Mode6(texels)
		copy(dst, b[:])
	}
}

func to565(c uint32) uint16 {
	r := min((c>>16&0xff+4)>>3, 31)
	g := min((c>>8&0xff+2)>>2, 63)
	b := min((c&0xff+4)>>3, 31)
	return uint16(r<<11 | g<<5 | b)
}

func rgbDist(a, b uint32) uint32 {
	var d uint32
	for s := 0; s <= 16; s += 8 {
		x := int32(a>>uint(s)&0xff) - int32(b>>uint(s)&0xff)
		d += uint32(x * x)
	}
	return d
}

// encodeColor fits the bounding box of the opaque texels. With punch set and
// a texel below alpha 128 the block is written in three-color mode.
func encodeColor(dst []byte, texels *[16]uint32, punch bool) {
	var lo, hi [3]uint32
	lo = [3]uint32{255, 255, 255}
	transparent, opaque := false, false
	for _, c := range texels {
		if punch && c>>24 < 128 {
			transparent = true
			continue
		}
		opaque = true
		for k := 0; k < 3; k++ {
			v := c >> uint(16-8*k) & 0xff
			lo[k] = min(lo[k], v)
			hi[k] = max(hi[k], v)
		}
	}
	if !opaque {
		lo, hi = [3]uint32{}, [3]uint32{}
	}
	c0 := to565(hi[0]<<16 | hi[1]<<8 | hi[2])
	c1 := to565(lo[0]<<16 | lo[1]<<8 | lo[2])
	if transparent {
		if c0 > c1 {
			c0, c1 = c1, c0
		}
	} else if c0 < c1 {
		c0, c1 = c1, c0
	}
	pal := dxtPalette(c0, c1, punch)
	usable := 4
	if punch && c0 <= c1 {
		usable = 3
	}
	var idx uint32
	for i, c := range texels {
		sel := uint32(0)
		switch {
		case transparent && c>>24 < 128:
			sel = 3
		case c0 == c1:
			sel = 0
		default:
			best := ^uint32(0)
			for k := 0; k < usable; k++ {
				if d := rgbDist(c, pal[k]); d < best {
					best, sel = d, uint32(k)
				}
			}
		}
		idx |= sel << (2 * uint(i))
	}
	binary.LittleEndian.PutUint16(dst[0:], c0)
	binary.LittleEndian.PutUint16(dst[2:], c1)
	binary.LittleEndian.PutUint32(dst[4:], idx)
}

func encodeExplicitAlpha(dst []byte, texels *[16]uint32) {
	var a uint64
	for i, c := range texels {
		v := ((c>>24)*15 + 127) / 255
		a |= uint64(v) << (4 * uint(i))
	}
	binary.LittleEndian.PutUint64(dst, a)
}

func encodeInterpolatedAlpha(dst []byte, texels *[16]uint32) {
	a0, a1 := uint32(0), uint32(255)
	for _, c := range texels {
		a0 = max(a0, c>>24)
		a1 = min(a1, c>>24)
	}
	dst[0], dst[1] = byte(a0), byte(a1)
	var bits uint64
	if a0 > a1 {
		lv := alphaRamp(a0, a1)
		for i, c := range texels {
			a := c >> 24
			sel, best := 0, ^uint32(0)
			for k, v := range lv {
				d := max(a, v) - min(a, v)
				if d < best {
					best, sel = d, k
				}
			}
			bits |= uint64(sel) << (3 * uint(i))
		}
	}
	for i := 0; i < 6; i++ {
		dst[2+i] = byte(bits >> (8 * uint(i)))
	}
}

// encodeBC7Mode6 fits one RGBA segment through the per-channel bounding box
// with 7-bit endpoints, a p-bit each and 4-bit indices.
func encodeBC7Mode6(texels *[16]uint32) [16]byte {
	var lo, hi [4]uint32
	lo = [4]uint32{255, 255, 255, 255}
	for _, c := range texels {
		ch := channels(c)
		for k := 0; k < 4; k++ {
			lo[k] = min(lo[k], ch[k])
			hi[k] = max(hi[k], ch[k])
		}
	}
	q0, p0 := quantizeEndpoint(lo)
	q1, p1 := quantizeEndpoint(hi)
	var e0, e1 [4]uint32
	for k := 0; k < 4; k++ {
		e0[k] = q0[k]<<1 | p0
		e1[k] = q1[k]<<1 | p1
	}

	var idx [16]uint32
	for i, c := range texels {
		ch := channels(c)
		best := ^uint32(0)
		for s, w := range bc7Weights4 {
			var d uint32
			for k := 0; k < 4; k++ {
				v := interpolate(e0[k], e1[k], w)
				x := int32(v) - int32(ch[k])
				d += uint32(x * x)
			}
			if d < best {
				best, idx[i] = d, uint32(s)
			}
		}
	}
	if idx[0] >= 8 {
		q0, q1 = q1, q0
		p0, p1 = p1, p0
		for i := range idx {
			idx[i] = 15 - idx[i]
		}
	}

	var bw bitio.BlockWriter
	bw.WriteBits(1<<6, 7)
	for k := 0; k < 4; k++ {
		bw.WriteBits(q0[k], 7)
		bw.WriteBits(q1[k], 7)
	}
	bw.WriteBits(p0, 1)
	bw.WriteBits(p1, 1)
	for i, v := range idx {
		if i == 0 {
			bw.WriteBits(v, 3)
		} else {
			bw.WriteBits(v, 4)
		}
	}
	return bw.Bytes()
}

// channels splits ARGB into r, g, b, a order, the BC7 endpoint order.
func channels(c uint32) [4]uint32 {
	return [4]uint32{c >> 16 & 0xff, c >> 8 & 0xff, c & 0xff, c >> 24}
}

// quantizeEndpoint picks the p-bit and 7-bit channels that reproduce v with
// the least squared error.
func quantizeEndpoint(v [4]uint32) ([4]uint32, uint32) {
	var bestQ [4]uint32
	bestP, bestErr := uint32(0), ^uint32(0)
	for p := uint32(0); p < 2; p++ {
		var q [4]uint32
		var e uint32
		for k := 0; k < 4; k++ {
			x := (int32(v[k]) - int32(p) + 1) / 2
			x = max(0, min(127, x))
			q[k] = uint32(x)
			d := int32(q[k]<<1|p) - int32(v[k])
			e += uint32(d * d)
		}
		if e < bestErr {
			bestQ, bestP, bestErr = q, p, e
		}
	}
	return bestQ, bestP
}
