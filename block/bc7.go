package block

import (
	"github.com/deepteams/assetpix/internal/bitio"
	"github.com/deepteams/assetpix/pixel"
)

// bc7Reader decodes BC7 blocks. The zero value is ready to use and can be
// reused across blocks.
type bc7Reader struct {
	br bitio.BlockReader
}

// unquantize scales an endpoint of the given precision (p-bit included) to
// eight bits by replicating its high bits.
func unquantize(v uint32, bits int) uint32 {
	if bits >= 8 {
		return v & 0xff
	}
	v <<= uint(8 - bits)
	return v | v>>uint(bits)
}

func interpolate(e0, e1, w uint32) uint32 {
	return ((64-w)*e0 + w*e1 + 32) >> 6
}

func (d *bc7Reader) decode(blk []byte, texels *[16]uint32) error {
	br := &d.br
	br.Reset(blk)
	mode := 0
	for mode < 8 && br.ReadBit() == 0 {
		mode++
	}
	if mode == 8 {
		return pixel.Unsupported("bc7", "mode", int64(blk[0]))
	}
	m := &bc7Modes[mode]

	partition := br.ReadBits(m.partBits)
	rotation := br.ReadBits(m.rotBits)
	idxSel := br.ReadBits(m.idxSelBits)

	var ep [6][4]uint32
	n := m.subsets * 2
	for c := 0; c < 3; c++ {
		for i := 0; i < n; i++ {
			ep[i][c] = br.ReadBits(m.colorBits)
		}
	}
	for i := 0; i < n && m.alphaBits > 0; i++ {
		ep[i][3] = br.ReadBits(m.alphaBits)
	}

	cbits, abits := m.colorBits, m.alphaBits
	if m.endpointPBits || m.sharedPBits {
		var pbits [6]uint32
		if m.endpointPBits {
			for i := 0; i < n; i++ {
				pbits[i] = br.ReadBit()
			}
		} else {
			for s := 0; s < m.subsets; s++ {
				p := br.ReadBit()
				pbits[2*s], pbits[2*s+1] = p, p
			}
		}
		for i := 0; i < n; i++ {
			for c := 0; c < 3; c++ {
				ep[i][c] = ep[i][c]<<1 | pbits[i]
			}
			if abits > 0 {
				ep[i][3] = ep[i][3]<<1 | pbits[i]
			}
		}
		cbits++
		if abits > 0 {
			abits++
		}
	}
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			ep[i][c] = unquantize(ep[i][c], cbits)
		}
		if abits > 0 {
			ep[i][3] = unquantize(ep[i][3], abits)
		} else {
			ep[i][3] = 0xff
		}
	}

	var idx, idx2 [16]uint32
	for i := 0; i < 16; i++ {
		bits := m.idxBits
		if isAnchor(m.subsets, partition, i) {
			bits--
		}
		idx[i] = br.ReadBits(bits)
	}
	if m.idx2Bits > 0 {
		for i := 0; i < 16; i++ {
			bits := m.idx2Bits
			if i == 0 {
				bits--
			}
			idx2[i] = br.ReadBits(bits)
		}
	}
	if br.IsEndOfStream() {
		return pixel.Errorf(pixel.ErrMalformedBlock, "bc7", "mode", int64(mode))
	}

	cw, aw := bc7Weights(m.idxBits), bc7Weights(m.idxBits)
	cidx, aidx := &idx, &idx
	if m.idx2Bits > 0 {
		if idxSel == 0 {
			aw, aidx = bc7Weights(m.idx2Bits), &idx2
		} else {
			cw, cidx = bc7Weights(m.idx2Bits), &idx2
		}
	}

	for i := 0; i < 16; i++ {
		s := subsetOf(m.subsets, partition, i)
		e0, e1 := &ep[2*s], &ep[2*s+1]
		w := cw[cidx[i]]
		r := interpolate(e0[0], e1[0], w)
		g := interpolate(e0[1], e1[1], w)
		b := interpolate(e0[2], e1[2], w)
		a := interpolate(e0[3], e1[3], aw[aidx[i]])
		switch rotation {
		case 1:
			a, r = r, a
		case 2:
			a, g = g, a
		case 3:
			a, b = b, a
		}
		texels[i] = argb(a, r, g, b)
	}
	return nil
}
