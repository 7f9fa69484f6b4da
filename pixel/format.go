package pixel

import (
	"encoding/binary"
	"strings"
)

// Format is a direct (uncompressed) pixel layout. Names list the components
// in memory order for byte-aligned formats (RGBA8888 is R,G,B,A bytes) and
// from the most significant bit down for packed 16-bit formats (RGB565 keeps
// red in bits 15..11).
type Format uint8

const (
	L8 Format = iota
	A8
	LA88
	AL88
	RGB565
	BGR565
	ARGB1555
	ABGR1555
	RGBA5551
	ARGB4444
	RGBA4444
	RGB888
	BGR888
	RGBA8888
	BGRA8888
	ARGB8888
	ABGR8888

	formatCount
)

type formatInfo struct {
	name     string
	size     int
	hasAlpha bool
	read     func(p []byte, bo binary.ByteOrder) uint32
	write    func(p []byte, c uint32, bo binary.ByteOrder)
}

// Expand5 widens a 5-bit channel by multiplying by 8. Legacy renderers the
// decoded assets were authored against never replicate the high bits, so 31
// maps to 248.
func Expand5(v uint32) uint8 { return uint8((v & 0x1f) << 3) }

// Expand6 widens a 6-bit channel by multiplying by 4 (63 maps to 252).
func Expand6(v uint32) uint8 { return uint8((v & 0x3f) << 2) }

// Expand4 widens a 4-bit channel linearly (15 maps to 255).
func Expand4(v uint32) uint8 { return uint8((v & 0xf) * 17) }

// Expand1 widens a 1-bit alpha flag.
func Expand1(v uint32) uint8 {
	if v&1 != 0 {
		return 0xff
	}
	return 0
}

func alphaBit(a uint8) uint16 {
	if a >= 0x80 {
		return 1
	}
	return 0
}

var formatTable = [formatCount]formatInfo{
	L8: {"L8", 1, false,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(0xff, p[0], p[0], p[0]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[0] = luma(c) }},
	A8: {"A8", 1, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[0], 0xff, 0xff, 0xff) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[0] = uint8(c >> 24) }},
	LA88: {"LA88", 2, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[1], p[0], p[0], p[0]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[0], p[1] = luma(c), uint8(c>>24) }},
	AL88: {"AL88", 2, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[0], p[1], p[1], p[1]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[0], p[1] = uint8(c>>24), luma(c) }},
	RGB565: {"RGB565", 2, false,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(0xff, Expand5(v>>11), Expand6(v>>5), Expand5(v))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			_, r, g, b := Unpack(c)
			bo.PutUint16(p, uint16(r>>3)<<11|uint16(g>>2)<<5|uint16(b>>3))
		}},
	BGR565: {"BGR565", 2, false,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(0xff, Expand5(v), Expand6(v>>5), Expand5(v>>11))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			_, r, g, b := Unpack(c)
			bo.PutUint16(p, uint16(b>>3)<<11|uint16(g>>2)<<5|uint16(r>>3))
		}},
	ARGB1555: {"ARGB1555", 2, true,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(Expand1(v>>15), Expand5(v>>10), Expand5(v>>5), Expand5(v))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			a, r, g, b := Unpack(c)
			bo.PutUint16(p, alphaBit(a)<<15|uint16(r>>3)<<10|uint16(g>>3)<<5|uint16(b>>3))
		}},
	ABGR1555: {"ABGR1555", 2, true,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(Expand1(v>>15), Expand5(v), Expand5(v>>5), Expand5(v>>10))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			a, r, g, b := Unpack(c)
			bo.PutUint16(p, alphaBit(a)<<15|uint16(b>>3)<<10|uint16(g>>3)<<5|uint16(r>>3))
		}},
	RGBA5551: {"RGBA5551", 2, true,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(Expand1(v), Expand5(v>>11), Expand5(v>>6), Expand5(v>>1))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			a, r, g, b := Unpack(c)
			bo.PutUint16(p, uint16(r>>3)<<11|uint16(g>>3)<<6|uint16(b>>3)<<1|alphaBit(a))
		}},
	ARGB4444: {"ARGB4444", 2, true,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(Expand4(v>>12), Expand4(v>>8), Expand4(v>>4), Expand4(v))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			a, r, g, b := Unpack(c)
			bo.PutUint16(p, uint16(a>>4)<<12|uint16(r>>4)<<8|uint16(g>>4)<<4|uint16(b>>4))
		}},
	RGBA4444: {"RGBA4444", 2, true,
		func(p []byte, bo binary.ByteOrder) uint32 {
			v := uint32(bo.Uint16(p))
			return Pack(Expand4(v), Expand4(v>>12), Expand4(v>>8), Expand4(v>>4))
		},
		func(p []byte, c uint32, bo binary.ByteOrder) {
			a, r, g, b := Unpack(c)
			bo.PutUint16(p, uint16(r>>4)<<12|uint16(g>>4)<<8|uint16(b>>4)<<4|uint16(a>>4))
		}},
	RGB888: {"RGB888", 3, false,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(0xff, p[0], p[1], p[2]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { _, p[0], p[1], p[2] = Unpack(c) }},
	BGR888: {"BGR888", 3, false,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(0xff, p[2], p[1], p[0]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { _, p[2], p[1], p[0] = Unpack(c) }},
	RGBA8888: {"RGBA8888", 4, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[3], p[0], p[1], p[2]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[3], p[0], p[1], p[2] = Unpack(c) }},
	BGRA8888: {"BGRA8888", 4, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[3], p[2], p[1], p[0]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[3], p[2], p[1], p[0] = Unpack(c) }},
	ARGB8888: {"ARGB8888", 4, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[0], p[1], p[2], p[3]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[0], p[1], p[2], p[3] = Unpack(c) }},
	ABGR8888: {"ABGR8888", 4, true,
		func(p []byte, _ binary.ByteOrder) uint32 { return Pack(p[0], p[3], p[2], p[1]) },
		func(p []byte, c uint32, _ binary.ByteOrder) { p[0], p[3], p[2], p[1] = Unpack(c) }},
}

// luma is the integer Rec.601 luminance used when writing grey formats.
func luma(c uint32) uint8 {
	_, r, g, b := Unpack(c)
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// Valid reports whether f names a known format.
func (f Format) Valid() bool { return f < formatCount }

// String returns the format name.
func (f Format) String() string {
	if !f.Valid() {
		return "Unknown"
	}
	return formatTable[f].name
}

// BytesPerPixel returns the storage size of one pixel.
func (f Format) BytesPerPixel() int {
	if !f.Valid() {
		return 0
	}
	return formatTable[f].size
}

// HasAlpha reports whether the format stores an alpha channel.
func (f Format) HasAlpha() bool {
	return f.Valid() && formatTable[f].hasAlpha
}

// ParseFormat looks a format up by name, ignoring case.
func ParseFormat(name string) (Format, bool) {
	for f := Format(0); f < formatCount; f++ {
		if strings.EqualFold(formatTable[f].name, name) {
			return f, true
		}
	}
	return 0, false
}

// ReadARGB unpacks one pixel of format f from p.
func (f Format) ReadARGB(p []byte, bo binary.ByteOrder) uint32 {
	return formatTable[f].read(p, bo)
}

// WriteARGB packs one pixel of format f into p.
func (f Format) WriteARGB(p []byte, c uint32, bo binary.ByteOrder) {
	formatTable[f].write(p, c, bo)
}

// Decode unpacks little-endian pixel data of format f.
func Decode(data []byte, width, height int, f Format) (*Buffer, error) {
	return DecodeOrder(data, width, height, f, binary.LittleEndian)
}

// DecodeOrder unpacks pixel data of format f using the given byte order for
// multi-byte packed fields.
func DecodeOrder(data []byte, width, height int, f Format, bo binary.ByteOrder) (*Buffer, error) {
	if !f.Valid() {
		return nil, Unsupported("pixel", "format", int64(f))
	}
	if err := CheckDimensions(f.String(), width, height); err != nil {
		return nil, err
	}
	size := formatTable[f].size
	need := width * height * size
	if len(data) < need {
		return nil, Truncated(f.String(), need, len(data))
	}
	dst := &Buffer{Width: width, Height: height, Pix: make([]uint32, width*height)}
	read := formatTable[f].read
	for i := range dst.Pix {
		dst.Pix[i] = read(data[i*size:], bo)
	}
	return dst, nil
}

// Encode packs a buffer into little-endian pixel data of format f.
func Encode(src *Buffer, f Format) ([]byte, error) {
	return EncodeOrder(src, f, binary.LittleEndian)
}

// EncodeOrder packs a buffer into pixel data of format f.
func EncodeOrder(src *Buffer, f Format, bo binary.ByteOrder) ([]byte, error) {
	if !f.Valid() {
		return nil, Unsupported("pixel", "format", int64(f))
	}
	size := formatTable[f].size
	out := make([]byte, len(src.Pix)*size)
	write := formatTable[f].write
	for i, c := range src.Pix {
		write(out[i*size:], c, bo)
	}
	return out, nil
}
