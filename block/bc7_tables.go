package block

// bc7Mode describes the bit budget of one BC7 mode.
type bc7Mode struct {
	subsets       int  // number of subsets
	partBits      int  // partition selector bits
	rotBits       int  // channel rotation bits
	idxSelBits    int  // index selection bit (mode 4)
	colorBits     int  // color endpoint bits per channel
	alphaBits     int  // alpha endpoint bits, 0 when alpha is implied 255
	endpointPBits bool // one p-bit per endpoint
	sharedPBits   bool // one p-bit per subset
	idxBits       int  // primary index bits
	idx2Bits      int  // secondary index bits, 0 when absent
}

var bc7Modes = [8]bc7Mode{
	{3, 4, 0, 0, 4, 0, true, false, 3, 0},
	{2, 6, 0, 0, 6, 0, false, true, 3, 0},
	{3, 6, 0, 0, 5, 0, false, false, 2, 0},
	{2, 6, 0, 0, 7, 0, true, false, 2, 0},
	{1, 0, 2, 1, 5, 6, false, false, 2, 3},
	{1, 0, 2, 0, 7, 8, false, false, 2, 2},
	{1, 0, 0, 0, 7, 7, true, false, 4, 0},
	{2, 6, 0, 0, 5, 5, true, false, 2, 0},
}

var (
	bc7Weights2 = [4]uint32{0, 21, 43, 64}
	bc7Weights3 = [8]uint32{0, 9, 18, 27, 37, 46, 55, 64}
	bc7Weights4 = [16]uint32{0, 4, 9, 13, 17, 21, 26, 30, 34, 38, 43, 47, 51, 55, 60, 64}
)

func bc7Weights(bits int) []uint32 {
	switch bits {
	case 2:
		return bc7Weights2[:]
	case 3:
		return bc7Weights3[:]
	}
	return bc7Weights4[:]
}

// bc7Partition2 holds the two-subset shapes; bit i set puts texel i in
// subset 1.
var bc7Partition2 = [64]uint16{
	0xcccc, 0x8888, 0xeeee, 0xecc8, 0xc880, 0xfeec, 0xfec8, 0xec80,
	0xc800, 0xffec, 0xfe80, 0xe800, 0xffe8, 0xff00, 0xfff0, 0xf000,
	0xf710, 0x008e, 0x7100, 0x08ce, 0x008c, 0x7310, 0x3100, 0x8cce,
	0x088c, 0x3110, 0x6666, 0x366c, 0x17e8, 0x0ff0, 0x718e, 0x399c,
	0xaaaa, 0xf0f0, 0x5a5a, 0x33cc, 0x3c3c, 0x55aa, 0x9696, 0xa55a,
	0x73ce, 0x13c8, 0x324c, 0x3bdc, 0x6996, 0xc33c, 0x9966, 0x0660,
	0x0272, 0x04e4, 0x4e40, 0x2720, 0xc936, 0x936c, 0x39c6, 0x639c,
	0x9336, 0x9cc6, 0x817e, 0xe718, 0xccf0, 0x0fcc, 0x7744, 0xee22,
}

// bc7Partition3 holds the three-subset shapes, one digit per texel.
var bc7Partition3 = [64]string{
	"0011001102212222", "0001001122112221", "0000200122112211", "0222002200110111",
	"0000000011221122", "0011001100220022", "0022002211111111", "0011001122112211",
	"0000000011112222", "0000111111112222", "0000111122222222", "0012001200120012",
	"0112011201120112", "0122012201220122", "0011011211221222", "0011200122002220",
	"0001001101121122", "0111001120012200", "0000112211221122", "0022002200221111",
	"0111011102220222", "0001000122212221", "0000001101220122", "0000110022102210",
	"0122012200110000", "0012001211222222", "0110122112210110", "0000011012211221",
	"0022110211020022", "0110011020022222", "0011012201220011", "0000200022112221",
	"0000000211221222", "0222002200120011", "0011001200220222", "0120012001200120",
	"0000111122220000", "0120120120120120", "0120201212010120", "0011220011220011",
	"0011112222000011", "0101010122222222", "0000000021212121", "0022112200221122",
	"0022001100220011", "0220122102201221", "0101222222220101", "0000212121212121",
	"0101010101012222", "0222011102220111", "0002111200021112", "0000211221122112",
	"0222011101110222", "0002111211120002", "0110011001102222", "0000000021122112",
	"0110011022222222", "0022001100110022", "0022112211220022", "0000000000002112",
	"0002000100020001", "0222122202221222", "0101222222222222", "0111201122012220",
}

// Anchor texels of subset 1 for two-subset shapes.
var bc7Anchor2 = [64]uint8{
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 2, 8, 2, 2, 8, 8, 15, 2, 8, 2, 2, 8, 8, 2, 2,
	15, 15, 6, 8, 2, 8, 15, 15, 2, 8, 2, 2, 2, 15, 15, 6,
	6, 2, 6, 8, 15, 15, 2, 2, 15, 15, 15, 15, 15, 2, 2, 15,
}

// Anchor texels of subsets 1 and 2 for three-subset shapes.
var bc7Anchor3a = [64]uint8{
	3, 3, 15, 15, 8, 3, 15, 15, 8, 8, 6, 6, 6, 5, 3, 3,
	3, 3, 8, 15, 3, 3, 6, 10, 5, 8, 8, 6, 8, 5, 15, 15,
	8, 15, 3, 5, 6, 10, 8, 15, 15, 3, 15, 5, 15, 15, 15, 15,
	3, 15, 5, 5, 5, 8, 5, 10, 5, 10, 8, 13, 15, 12, 3, 3,
}

var bc7Anchor3b = [64]uint8{
	15, 8, 8, 3, 15, 15, 3, 8, 15, 15, 15, 15, 15, 15, 15, 8,
	15, 8, 15, 3, 15, 8, 15, 8, 3, 15, 6, 10, 15, 15, 10, 8,
	15, 3, 15, 10, 10, 8, 9, 10, 6, 15, 8, 15, 3, 6, 6, 8,
	15, 3, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 3, 15, 15, 8,
}

// subsetOf returns the subset of texel i.
func subsetOf(subsets int, partition uint32, i int) int {
	switch subsets {
	case 2:
		return int(bc7Partition2[partition]>>uint(i)) & 1
	case 3:
		return int(bc7Partition3[partition][i] - '0')
	}
	return 0
}

// isAnchor reports whether texel i stores its index with one bit less.
func isAnchor(subsets int, partition uint32, i int) bool {
	if i == 0 {
		return true
	}
	switch subsets {
	case 2:
		return i == int(bc7Anchor2[partition])
	case 3:
		return i == int(bc7Anchor3a[partition]) || i == int(bc7Anchor3b[partition])
	}
	return false
}
