package animation

import (
	"errors"
	"image"
	"testing"

	"github.com/deepteams/assetpix/indexed"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
)

func solid(w, h int, c uint32) *Image {
	b, _ := pixel.NewBuffer(w, h)
	for i := range b.Pix {
		b.Pix[i] = c
	}
	return New(b)
}

func TestFrameBounds(t *testing.T) {
	f := Frame{Image: solid(10, 20, 0), OffsetX: 5, OffsetY: 3}
	want := image.Rect(5, 3, 15, 23)
	if got := f.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}

func TestFrameBoundsNilImage(t *testing.T) {
	f := Frame{OffsetX: 5, OffsetY: 3}
	if got := f.Bounds(); !got.Empty() {
		t.Errorf("Bounds() = %v, want empty", got)
	}
}

// --- Alpha blending ---

func TestAlphaBlend_FullyOpaqueSrc(t *testing.T) {
	if got := alphaBlend(0xffff0000, 0xff00ff00); got != 0xffff0000 {
		t.Errorf("opaque src over dst = %08x", got)
	}
}

func TestAlphaBlend_TransparentSrc(t *testing.T) {
	if got := alphaBlend(0x00ff0000, 0x8000ff00); got != 0x8000ff00 {
		t.Errorf("transparent src over dst = %08x", got)
	}
}

func TestAlphaBlend_TransparentDst(t *testing.T) {
	if got := alphaBlend(0x80646464, 0x00000000); got != 0x80646464 {
		t.Errorf("src over transparent dst = %08x", got)
	}
}

func TestAlphaBlend_MatchesFormula(t *testing.T) {
	// srcA=128, dstA=255: dstFactorA = (255*128)>>8 = 127, blendA = 255.
	got := alphaBlend(0x80c86432, 0xff32c864)
	srcA, dstFactorA := uint32(128), uint32(127)
	scale := uint32(1<<24) / 255
	ch := func(s, d uint32) uint32 { return (s*srcA + d*dstFactorA) * scale >> 24 }
	want := uint32(255)<<24 | ch(200, 50)<<16 | ch(100, 200)<<8 | ch(50, 100)
	if got != want {
		t.Errorf("alphaBlend = %08x, want %08x", got, want)
	}
}

func TestAlphaBlend_BothSemiTransparent(t *testing.T) {
	got := alphaBlend(0x64ff0000, 0x640000ff)
	// dstFactorA = (100*156)>>8 = 60, blendA = 160.
	if a := got >> 24; a != 160 {
		t.Errorf("alpha = %d, want 160", a)
	}
	if r, b := got>>16&0xff, got&0xff; r < b {
		t.Errorf("R=%d should be >= B=%d", r, b)
	}
}

// --- Overlay ---

func TestOverlay_UnionCanvas(t *testing.T) {
	red, blue := uint32(0xffff0000), uint32(0xff0000ff)
	img, err := Overlay([]Frame{
		{Image: solid(4, 4, red), OffsetX: 2, OffsetY: 2},
		{Image: solid(2, 2, blue), OffsetX: 5, OffsetY: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 5 || img.Height() != 6 {
		t.Fatalf("canvas %dx%d, want 5x6", img.Width(), img.Height())
	}
	checks := []struct {
		x, y int
		want uint32
	}{
		{0, 0, 0},    // uncovered
		{3, 0, blue}, // second frame at (5,0)
		{0, 2, red},  // first frame at (2,2)
		{3, 2, red},  // (5,2) only the first frame covers it
		{4, 1, blue},
	}
	for _, c := range checks {
		if got := img.Pixels.ARGBAt(c.x, c.y); got != c.want {
			t.Errorf("(%d,%d) = %08x, want %08x", c.x, c.y, got, c.want)
		}
	}
}

func TestOverlay_LaterFrameOnlyTouchesItsPixels(t *testing.T) {
	base := solid(4, 4, 0xff112233)
	patch := solid(1, 1, 0xffaabbcc)
	img, err := Overlay([]Frame{{Image: base}, {Image: patch, OffsetX: 1, OffsetY: 1}})
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range img.Pixels.Pix {
		want := uint32(0xff112233)
		if i == 5 {
			want = 0xffaabbcc
		}
		if c != want {
			t.Errorf("pixel %d = %08x, want %08x", i, c, want)
		}
	}
}

func TestOverlay_BlendModes(t *testing.T) {
	top := solid(2, 1, 0x00ffffff)
	top.Pixels.Pix[1] = 0x80ff0000
	tests := []struct {
		blend BlendMethod
		want0 uint32
	}{
		{BlendReplace, 0x00ffffff},
		{BlendSkipTransparent, 0xff0000ff},
		{BlendAlpha, 0xff0000ff},
	}
	for _, tt := range tests {
		img, err := Overlay([]Frame{{Image: solid(2, 1, 0xff0000ff)}, {Image: top, Blend: tt.blend}})
		if err != nil {
			t.Fatal(err)
		}
		if got := img.Pixels.Pix[0]; got != tt.want0 {
			t.Errorf("blend %d: pixel 0 = %08x, want %08x", tt.blend, got, tt.want0)
		}
	}
}

func TestOverlay_Errors(t *testing.T) {
	if _, err := Overlay(nil); !errors.Is(err, ErrNoFrames) {
		t.Errorf("no frames: err = %v", err)
	}
	if _, err := Overlay([]Frame{{}}); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil image: err = %v", err)
	}
}

func TestOverlaySequence_Cumulative(t *testing.T) {
	head, err := OverlaySequence([]Frame{
		{Image: solid(2, 2, 0xff000001)},
		{Image: solid(1, 1, 0xff000002), OffsetX: 1},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	frames := head.Frames()
	if len(frames) != 2 {
		t.Fatalf("%d frames", len(frames))
	}
	if frames[0].Pixels.Pix[1] != 0xff000001 || frames[1].Pixels.Pix[1] != 0xff000002 {
		t.Error("snapshots are not cumulative or share storage")
	}
}

// --- Sequencing ---

func TestSequence_Links(t *testing.T) {
	for _, circular := range []bool{false, true} {
		imgs := []*Image{solid(1, 1, 1), solid(1, 1, 2), solid(1, 1, 3), solid(1, 1, 4)}
		head, err := Sequence(imgs, circular)
		if err != nil {
			t.Fatal(err)
		}
		fwd := head.Frames()
		if len(fwd) != len(imgs) {
			t.Fatalf("circular=%v: forward walk visited %d frames", circular, len(fwd))
		}
		for i, f := range fwd {
			if f != imgs[i] {
				t.Errorf("circular=%v: frame %d out of order", circular, i)
			}
			if f.Next() != nil && f.Next().Prev() != f {
				t.Errorf("circular=%v: link %d not reciprocal", circular, i)
			}
		}
		// Backward walk from the last frame reaches every frame once.
		seen := map[*Image]int{}
		start := imgs[len(imgs)-1]
		for f := start; f != nil; f = f.Prev() {
			seen[f]++
			if f.Prev() == start {
				break
			}
		}
		if len(seen) != len(imgs) {
			t.Errorf("circular=%v: backward walk visited %d frames", circular, len(seen))
		}
		for _, n := range seen {
			if n != 1 {
				t.Errorf("circular=%v: frame visited %d times", circular, n)
			}
		}
		if circular != (imgs[0].Prev() == imgs[3]) {
			t.Errorf("circular=%v: head.Prev = %v", circular, imgs[0].Prev())
		}
	}
}

func TestSequence_SingleCircular(t *testing.T) {
	im := solid(1, 1, 0)
	head, _ := Sequence([]*Image{im}, true)
	if head.Next() != im || head.Prev() != im || len(head.Frames()) != 1 {
		t.Error("single circular frame should link to itself and be walked once")
	}
}

func TestSequence_Errors(t *testing.T) {
	a := solid(1, 1, 0)
	if _, err := Sequence([]*Image{a, a}, false); !errors.Is(err, ErrDuplicateFrame) {
		t.Errorf("duplicate: err = %v", err)
	}
	if _, err := Sequence([]*Image{a, nil}, false); !errors.Is(err, ErrNilImage) {
		t.Errorf("nil: err = %v", err)
	}
	if _, err := Sequence(nil, false); !errors.Is(err, ErrNoFrames) {
		t.Errorf("empty: err = %v", err)
	}
}

// --- Mipmaps ---

func TestMipmaps(t *testing.T) {
	levels := []*Image{solid(8, 2, 0), solid(4, 1, 0), solid(2, 1, 0), solid(1, 1, 0)}
	head, err := Mipmaps(levels)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(head.Frames()); n != 4 {
		t.Errorf("chain length %d", n)
	}
	if MipCount(8, 2) != 4 {
		t.Errorf("MipCount(8,2) = %d, want 4", MipCount(8, 2))
	}
	if _, err := Mipmaps([]*Image{solid(8, 8, 0), solid(3, 4, 0)}); !errors.Is(err, ErrMipmapSize) {
		t.Errorf("bad level: err = %v", err)
	}
}

// --- Deferred palette resolution ---

func TestImage_Resolve(t *testing.T) {
	idx, _ := indexed.Unpack([]byte{0x01, 0x10}, 4, 1, 4, indexed.HighNibbleFirst)
	p0, _ := palette.New([]uint32{0xff000000, 0xffffffff})
	p1, _ := palette.New([]uint32{0xffff0000, 0xff00ff00})
	px, _ := idx.Resolve(p0)
	im := &Image{Pixels: px, Palette: p0, Indices: idx}

	re, err := im.Resolve(p1)
	if err != nil {
		t.Fatal(err)
	}
	if re.Pixels.Pix[1] != 0xff00ff00 || im.Pixels.Pix[1] != 0xffffffff {
		t.Errorf("resolve: new %08x, old %08x", re.Pixels.Pix[1], im.Pixels.Pix[1])
	}
	if _, err := solid(1, 1, 0).Resolve(p1); !errors.Is(err, ErrNoIndices) {
		t.Errorf("direct image: err = %v", err)
	}
}
