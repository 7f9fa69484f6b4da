package bitio

// BlockWriter packs bit fields into a 16-byte block in the order
// BlockReader reads them back.
type BlockWriter struct {
	lo, hi uint64
	used   int
}

// WriteBits appends the low nBits (0..32) of v. Bits past the end of the
// block are dropped.
func (bw *BlockWriter) WriteBits(v uint32, nBits int) {
	if nBits <= 0 {
		return
	}
	if bw.used+nBits > BlockBits {
		nBits = BlockBits - bw.used
		if nBits <= 0 {
			return
		}
	}
	x := uint64(v & mask(nBits))
	p := bw.used
	switch {
	case p+nBits <= 64:
		bw.lo |= x << uint(p)
	case p >= 64:
		bw.hi |= x << uint(p-64)
	default:
		bw.lo |= x << uint(p)
		bw.hi |= x >> uint(64-p)
	}
	bw.used += nBits
}

// Used returns the number of bits written.
func (bw *BlockWriter) Used() int { return bw.used }

// Bytes returns the block. Unwritten high bits are zero.
func (bw *BlockWriter) Bytes() [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(bw.lo >> uint(8*i))
		out[8+i] = byte(bw.hi >> uint(8*i))
	}
	return out
}
