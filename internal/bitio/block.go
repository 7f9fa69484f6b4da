// Package bitio reads and writes the little-endian bit fields packed into
// 128-bit compressed texture blocks.
package bitio

const (
	// BlockBits is the width of a BC6/BC7 style block.
	BlockBits = 128
	// maxNumBitRead is the maximum number of bits one ReadBits call returns.
	maxNumBitRead = 32
)

// BlockReader pulls bit fields from a 16-byte block, least significant bit
// first. Reading past bit 127 sets the end-of-stream flag and yields zeros.
type BlockReader struct {
	lo, hi uint64 // bits 0..63 and 64..127
	bitPos int    // next bit to read
	eos    bool
}

// Reset reloads the reader with a new block. Missing bytes read as zero.
func (br *BlockReader) Reset(data []byte) {
	var lo, hi uint64
	for i := 0; i < 16 && i < len(data); i++ {
		if i < 8 {
			lo |= uint64(data[i]) << uint(8*i)
		} else {
			hi |= uint64(data[i]) << uint(8*(i-8))
		}
	}
	br.lo, br.hi = lo, hi
	br.bitPos = 0
	br.eos = false
}

// ReadBits reads nBits (0..32) and advances.
func (br *BlockReader) ReadBits(nBits int) uint32 {
	if br.eos || nBits < 0 || nBits > maxNumBitRead || br.bitPos+nBits > BlockBits {
		br.eos = true
		return 0
	}
	v := br.PrefetchBits() & mask(nBits)
	br.bitPos += nBits
	return v
}

// ReadBit reads a single bit.
func (br *BlockReader) ReadBit() uint32 { return br.ReadBits(1) }

// PrefetchBits returns the next 32 bits without advancing.
func (br *BlockReader) PrefetchBits() uint32 {
	p := br.bitPos
	switch {
	case p == 0:
		return uint32(br.lo)
	case p < 64:
		return uint32(br.lo>>uint(p) | br.hi<<uint(64-p))
	case p < BlockBits:
		return uint32(br.hi >> uint(p-64))
	}
	return 0
}

// IsEndOfStream reports whether a read ran past the end of the block.
func (br *BlockReader) IsEndOfStream() bool { return br.eos }

func mask(n int) uint32 {
	if n >= 32 {
		return 0xffffffff
	}
	return 1<<uint(n) - 1
}
