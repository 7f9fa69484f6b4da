package layout

import (
	"bytes"
	"errors"
	"testing"

	"github.com/deepteams/assetpix/pixel"
)

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		l    Layout
		w, h int
	}{
		{"linear", Linear{Elem: 4}, 5, 3},
		{"tile4", Tile{Size: 4, Elem: 1}, 16, 8},
		{"tile8x2", Tile{Size: 8, Elem: 2}, 32, 16},
		{"morton square", Morton{Elem: 1}, 16, 16},
		{"morton wide", Morton{Elem: 4}, 32, 4},
		{"morton tall", Morton{Elem: 8}, 2, 16},
		{"morton in tiles", Morton{Tile: 8, Elem: 1}, 24, 16},
		{"psp", PSP{}, 64, 16},
		{"xbox360 32bpp", Xbox360{Elem: 4}, 64, 32},
		{"xbox360 dxt1", Xbox360{Elem: 8}, 32, 64},
		{"xbox360 dxt5", Xbox360{Elem: 16}, 64, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := seq(Size(tt.w, tt.h, tt.l))
			lin, err := ToLinear(src, tt.w, tt.h, tt.l)
			if err != nil {
				t.Fatal(err)
			}
			back, err := ToNative(lin, tt.w, tt.h, tt.l)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(back, src) {
				t.Error("ToNative(ToLinear(x)) != x")
			}
			nat, _ := ToNative(src, tt.w, tt.h, tt.l)
			again, _ := ToLinear(nat, tt.w, tt.h, tt.l)
			if !bytes.Equal(again, src) {
				t.Error("ToLinear(ToNative(x)) != x")
			}
		})
	}
}

func TestOffsetsArePermutation(t *testing.T) {
	for _, l := range []Layout{Morton{}, Morton{Tile: 4}, Tile{Size: 8}, PSP{}, Xbox360{Elem: 4}, Xbox360{Elem: 16}} {
		w, h := 64, 32
		seen := make([]bool, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := l.Offset(x, y, w, h)
				if o < 0 || o >= w*h || seen[o] {
					t.Fatalf("%v: offset %d for (%d,%d) out of range or repeated", l, o, x, y)
				}
				seen[o] = true
			}
		}
	}
}

func TestMorton_KnownOffsets(t *testing.T) {
	m := Morton{}
	tests := []struct{ x, y, w, h, want int }{
		{1, 0, 4, 4, 1},
		{0, 1, 4, 4, 2},
		{1, 1, 4, 4, 3},
		{2, 0, 4, 4, 4},
		{3, 3, 4, 4, 15},
		{2, 0, 8, 2, 4},
		{7, 1, 8, 2, 15},
		{0, 3, 2, 8, 6},
	}
	for _, tt := range tests {
		if got := m.Offset(tt.x, tt.y, tt.w, tt.h); got != tt.want {
			t.Errorf("Offset(%d,%d) in %dx%d = %d, want %d", tt.x, tt.y, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestPSP_KnownOffsets(t *testing.T) {
	// 32-byte pitch: two blocks per block row.
	p := PSP{}
	tests := []struct{ x, y, want int }{
		{0, 0, 0},
		{15, 0, 15},
		{0, 1, 16},
		{16, 0, 128},
		{0, 8, 256},
		{17, 9, 256 + 128 + 16 + 1},
	}
	for _, tt := range tests {
		if got := p.Offset(tt.x, tt.y, 32, 16); got != tt.want {
			t.Errorf("Offset(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestTile_KnownOffsets(t *testing.T) {
	tl := Tile{Size: 4}
	if got := tl.Offset(4, 0, 8, 8); got != 16 {
		t.Errorf("first texel of tile 1 = %d, want 16", got)
	}
	if got := tl.Offset(1, 5, 8, 8); got != 32+4+1 {
		t.Errorf("Offset(1,5) = %d, want 37", got)
	}
}

func TestRejectsPartialGranularity(t *testing.T) {
	tests := []struct {
		name string
		l    Layout
		w, h int
	}{
		{"tile width", Tile{Size: 8}, 12, 8},
		{"tile height", Tile{Size: 8}, 8, 12},
		{"morton npot", Morton{}, 12, 8},
		{"morton tile npot", Morton{Tile: 6}, 12, 12},
		{"psp pitch", PSP{}, 24, 8},
		{"psp rows", PSP{}, 16, 4},
		{"xbox360 width", Xbox360{Elem: 4}, 48, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToLinear(make([]byte, 4096), tt.w, tt.h, tt.l)
			if !errors.Is(err, pixel.ErrInvalidDimension) {
				t.Errorf("err = %v, want ErrInvalidDimension", err)
			}
		})
	}
}

func TestXbox360_UnsupportedElement(t *testing.T) {
	_, err := ToLinear(make([]byte, 2048), 32, 32, Xbox360{Elem: 2})
	if !errors.Is(err, pixel.ErrUnsupportedVariant) {
		t.Errorf("err = %v, want ErrUnsupportedVariant", err)
	}
}

func TestTruncated(t *testing.T) {
	_, err := ToLinear(make([]byte, 63), 8, 8, Tile{Size: 4})
	if !errors.Is(err, pixel.ErrTruncatedInput) {
		t.Errorf("err = %v, want ErrTruncatedInput", err)
	}
	if err := ToLinearInto(make([]byte, 10), make([]byte, 64), 8, 8, Tile{Size: 4}); !errors.Is(err, pixel.ErrTruncatedInput) {
		t.Errorf("short dst: err = %v", err)
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	src := seq(133)
	for _, l := range []Layout{Linear{}, Tile{Size: 4}, Morton{}} {
		if out, err := ToLinear(src, 16, 8, l); !errors.Is(err, pixel.ErrInvalidDimension) {
			t.Errorf("%v ToLinear: len %d, err = %v", l, len(out), err)
		}
		if out, err := ToNative(src, 16, 8, l); !errors.Is(err, pixel.ErrInvalidDimension) {
			t.Errorf("%v ToNative: len %d, err = %v", l, len(out), err)
		}
	}
	// twice the grid is not a round trip of the grid
	if _, err := ToNative(make([]byte, 256), 16, 8, Tile{Size: 4}); !errors.Is(err, pixel.ErrInvalidDimension) {
		t.Errorf("double-size buffer: err = %v", err)
	}
	if err := ToLinearInto(make([]byte, 128), src, 16, 8, Tile{Size: 4}); !errors.Is(err, pixel.ErrInvalidDimension) {
		t.Errorf("ToLinearInto: err = %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		s    string
		want Layout
	}{
		{"", Linear{Elem: 4}},
		{"morton", Morton{Elem: 4}},
		{"morton-tile8", Morton{Tile: 8, Elem: 4}},
		{"tile32", Tile{Size: 32, Elem: 4}},
		{"psp", PSP{}},
		{"xbox360", Xbox360{Elem: 4}},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.s, 4)
		if !ok || got != tt.want {
			t.Errorf("Parse(%q) = %v, %v", tt.s, got, ok)
		}
	}
	for _, s := range []string{"tile", "tile0", "zigzag"} {
		if _, ok := Parse(s, 4); ok {
			t.Errorf("Parse(%q) succeeded", s)
		}
	}
}

func TestWithElem(t *testing.T) {
	if l := WithElem(nil, 8); l.ElemSize() != 8 || l.String() != "linear" {
		t.Errorf("nil -> %v elem %d", l, l.ElemSize())
	}
	if l := WithElem(Morton{Tile: 4}, 16); l.(Morton).Tile != 4 || l.ElemSize() != 16 {
		t.Errorf("morton -> %+v", l)
	}
	if l := WithElem(PSP{}, 4); l.ElemSize() != 1 {
		t.Errorf("psp elem = %d, want 1", l.ElemSize())
	}
}
