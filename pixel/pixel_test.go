package pixel

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestNewBuffer_LengthMatchesArea(t *testing.T) {
	sizes := [][2]int{{1, 1}, {3, 7}, {16, 16}, {255, 1}, {1, 1024}, {MaxDimension, 1}}
	for _, s := range sizes {
		b, err := NewBuffer(s[0], s[1])
		if err != nil {
			t.Fatalf("NewBuffer(%d, %d): %v", s[0], s[1], err)
		}
		if len(b.Pix) != s[0]*s[1] {
			t.Errorf("NewBuffer(%d, %d): len = %d, want %d", s[0], s[1], len(b.Pix), s[0]*s[1])
		}
	}
}

func TestNewBuffer_InvalidDimension(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		field string
	}{
		{"zero width", 0, 4, "width"},
		{"negative height", 4, -1, "height"},
		{"too wide", MaxDimension + 1, 1, "width"},
		{"too tall", 1, MaxDimension + 1, "height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuffer(tt.w, tt.h)
			if !errors.Is(err, ErrInvalidDimension) {
				t.Fatalf("err = %v, want ErrInvalidDimension", err)
			}
			var pe *Error
			if !errors.As(err, &pe) || pe.Field != tt.field {
				t.Errorf("field = %+v, want %q", pe, tt.field)
			}
		})
	}
}

func TestResize_Reallocates(t *testing.T) {
	b, _ := NewBuffer(2, 2)
	b.Pix = []uint32{1, 2, 3, 4}
	r, err := b.Resize(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Pix) != 3 || r.Pix[0] != 1 || r.Pix[1] != 2 || r.Pix[2] != 0 {
		t.Errorf("Resize = %v", r.Pix)
	}
	if len(b.Pix) != 4 || b.Pix[3] != 4 {
		t.Errorf("receiver mutated: %v", b.Pix)
	}
}

func TestExpandPolicy(t *testing.T) {
	if got := Expand5(31); got != 248 {
		t.Errorf("Expand5(31) = %d, want 248", got)
	}
	if got := Expand6(63); got != 252 {
		t.Errorf("Expand6(63) = %d, want 252", got)
	}
	if got := Expand4(15); got != 255 {
		t.Errorf("Expand4(15) = %d, want 255", got)
	}
	if got := Expand5(1); got != 8 {
		t.Errorf("Expand5(1) = %d, want 8", got)
	}
}

func TestDecode_KnownPixels(t *testing.T) {
	tests := []struct {
		f    Format
		data []byte
		want uint32
	}{
		{L8, []byte{0x40}, 0xff404040},
		{A8, []byte{0x40}, 0x40ffffff},
		{LA88, []byte{0x10, 0x80}, 0x80101010},
		{AL88, []byte{0x80, 0x10}, 0x80101010},
		{RGB565, []byte{0xff, 0xff}, 0xfff8fcf8},
		{RGB565, []byte{0x00, 0xf8}, 0xfff80000},
		{BGR565, []byte{0x00, 0xf8}, 0xff0000f8},
		{ARGB1555, []byte{0x00, 0xfc}, 0xfff80000},
		{ARGB1555, []byte{0x1f, 0x00}, 0x000000f8},
		{ABGR1555, []byte{0x1f, 0x80}, 0xfff80000},
		{RGBA5551, []byte{0x01, 0xf8}, 0xfff80000},
		{ARGB4444, []byte{0x21, 0xf3}, 0xff332211},
		{RGBA4444, []byte{0x3f, 0x12}, 0xff112233},
		{RGB888, []byte{1, 2, 3}, 0xff010203},
		{BGR888, []byte{1, 2, 3}, 0xff030201},
		{RGBA8888, []byte{1, 2, 3, 4}, 0x04010203},
		{BGRA8888, []byte{1, 2, 3, 4}, 0x04030201},
		{ARGB8888, []byte{1, 2, 3, 4}, 0x01020304},
		{ABGR8888, []byte{1, 2, 3, 4}, 0x01040302},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			b, err := Decode(tt.data, 1, 1, tt.f)
			if err != nil {
				t.Fatal(err)
			}
			if b.Pix[0] != tt.want {
				t.Errorf("got %08x, want %08x", b.Pix[0], tt.want)
			}
		})
	}
}

func TestDecodeOrder_BigEndian(t *testing.T) {
	b, err := DecodeOrder([]byte{0xf8, 0x00}, 1, 1, RGB565, binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if b.Pix[0] != 0xfff80000 {
		t.Errorf("got %08x, want fff80000", b.Pix[0])
	}
}

func TestDecode_Truncated(t *testing.T) {
	_, err := Decode(make([]byte, 15), 2, 2, RGBA8888)
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("err = %v, want ErrTruncatedInput", err)
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode(make([]byte, 4), 1, 1, formatCount)
	if !errors.Is(err, ErrUnsupportedVariant) {
		t.Fatalf("err = %v, want ErrUnsupportedVariant", err)
	}
}

func TestEveryFormatHasCodec(t *testing.T) {
	for f := Format(0); f < formatCount; f++ {
		info := formatTable[f]
		if info.name == "" || info.size == 0 || info.read == nil || info.write == nil {
			t.Errorf("format %d has an incomplete table entry", f)
		}
		if got, ok := ParseFormat(info.name); !ok || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", info.name, got, ok)
		}
	}
}

func TestEncodeDecode_8888Lossless(t *testing.T) {
	src := &Buffer{Width: 2, Height: 1, Pix: []uint32{0x80112233, 0x00ffeedd}}
	for _, f := range []Format{RGBA8888, BGRA8888, ARGB8888, ABGR8888} {
		data, err := Encode(src, f)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(data, 2, 1, f)
		if err != nil {
			t.Fatal(err)
		}
		for i := range src.Pix {
			if got.Pix[i] != src.Pix[i] {
				t.Errorf("%v: pixel %d = %08x, want %08x", f, i, got.Pix[i], src.Pix[i])
			}
		}
	}
}

func TestEncodeDecode_PackedStable(t *testing.T) {
	// Values already on the expansion grid survive a round trip exactly.
	tests := []struct {
		f Format
		c uint32
	}{
		{RGB565, 0xfff8fc08},
		{BGR565, 0xff08fcf8},
		{ARGB1555, 0xff08f810},
		{ABGR1555, 0x0010f808},
		{RGBA5551, 0xfff80810},
		{ARGB4444, 0x11ff2233},
		{RGBA4444, 0xee445566},
		{RGB888, 0xff010203},
		{BGR888, 0xff010203},
	}
	for _, tt := range tests {
		src := &Buffer{Width: 1, Height: 1, Pix: []uint32{tt.c}}
		data, err := Encode(src, tt.f)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(data, 1, 1, tt.f)
		if err != nil {
			t.Fatal(err)
		}
		if got.Pix[0] != tt.c {
			t.Errorf("%v: got %08x, want %08x", tt.f, got.Pix[0], tt.c)
		}
	}
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		in   uint32
		want uint32
	}{
		{"double 0x40", AlphaDouble(), 0x40123456, 0x80123456},
		{"double 0x80 clamps", AlphaDouble(), 0x80123456, 0xff123456},
		{"double 0xff clamps", AlphaDouble(), 0xff000000, 0xff000000},
		{"halve 0xff", AlphaHalve(), 0xff010203, 0x80010203},
		{"halve 0x00", AlphaHalve(), 0x00010203, 0x00010203},
		{"swap", SwapRB(), 0x11223344, 0x11443322},
		{"brightness clamps", Brightness(32), 0x80f01020, 0x80ff3040},
		{"darken clamps", Brightness(-32), 0x80f01020, 0x80d00000},
		{"opaque", OpaqueAlpha(), 0x00123456, 0xff123456},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f(tt.in); got != tt.want {
				t.Errorf("got %08x, want %08x", got, tt.want)
			}
		})
	}
}

func TestNRGBARoundTrip(t *testing.T) {
	src := &Buffer{Width: 2, Height: 2, Pix: []uint32{0xff0000ff, 0x80ff0000, 0x00000000, 0x7f102030}}
	img := src.NRGBA()
	if c := img.NRGBAAt(1, 0); c != (color.NRGBA{R: 0xff, A: 0x80}) {
		t.Errorf("NRGBAAt(1,0) = %v", c)
	}
	back, err := FromImage(img)
	if err != nil {
		t.Fatal(err)
	}
	for i := range src.Pix {
		if back.Pix[i] != src.Pix[i] {
			t.Errorf("pixel %d = %08x, want %08x", i, back.Pix[i], src.Pix[i])
		}
	}
	sub := img.SubImage(image.Rect(1, 1, 2, 2))
	one, err := FromImage(sub)
	if err != nil {
		t.Fatal(err)
	}
	if one.Pix[0] != 0x7f102030 {
		t.Errorf("sub image pixel = %08x", one.Pix[0])
	}
}
