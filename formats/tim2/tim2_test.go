package tim2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
)

type testPicture struct {
	imageType, clutType uint8
	w, h                int
	image               []byte
	clut                []byte
	colors              int
	mipSizes            []uint32
}

func build(aligned bool, pics ...testPicture) []byte {
	var buf bytes.Buffer
	fh := fileHeader{Version: 4, Pictures: uint16(len(pics))}
	copy(fh.Magic[:], Magic)
	if aligned {
		fh.Format = 1
	}
	binary.Write(&buf, binary.LittleEndian, &fh)
	if aligned {
		buf.Write(make([]byte, alignedStart-fileHeaderSize))
	}
	for _, p := range pics {
		hs := pictureHeaderSize
		if len(p.mipSizes) > 1 {
			hs += binary.Size(mipHeader{})
		}
		ph := pictureHeader{
			TotalSize:  uint32(hs + len(p.image) + len(p.clut)),
			ClutSize:   uint32(len(p.clut)),
			ImageSize:  uint32(len(p.image)),
			HeaderSize: uint16(hs),
			ClutColors: uint16(p.colors),
			MipMaps:    uint8(max(1, len(p.mipSizes))),
			ClutType:   p.clutType,
			ImageType:  p.imageType,
			Width:      uint16(p.w),
			Height:     uint16(p.h),
		}
		binary.Write(&buf, binary.LittleEndian, &ph)
		if len(p.mipSizes) > 1 {
			var mh mipHeader
			copy(mh.Sizes[:], p.mipSizes)
			binary.Write(&buf, binary.LittleEndian, &mh)
		}
		buf.Write(p.image)
		buf.Write(p.clut)
	}
	return buf.Bytes()
}

func decode(t *testing.T, data []byte, s *detect.Session) []uint32 {
	t.Helper()
	img, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, s)
	if err != nil {
		t.Fatal(err)
	}
	return img.Pixels.Pix
}

// csm1 returns the storage slot of linear CLUT entry i.
func csm1(i int) int {
	order := [4]int{0, 2, 1, 3}
	return i&^31 | order[i>>3&3]<<3 | i&7
}

func clut32(striped bool) []byte {
	c := make([]byte, 256*4)
	for i := 0; i < 256; i++ {
		slot := i
		if striped {
			slot = csm1(i)
		}
		copy(c[slot*4:], []byte{byte(i), 0x10, 0x20, 0x80})
	}
	return c
}

func TestIndex8_CLUTOrder(t *testing.T) {
	image := []byte{0, 8, 16, 24, 40, 48, 200, 255}
	tests := []struct {
		name     string
		clutType uint8
		striped  bool
	}{
		{"csm1", TypeRGBA32, true},
		{"csm2", TypeRGBA32 | clutCSM2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := build(false, testPicture{
				imageType: TypeIndex8, clutType: tt.clutType, w: 4, h: 2,
				image: image, clut: clut32(tt.striped), colors: 256,
			})
			for i, c := range decode(t, data, nil) {
				// GS alpha 0x80 is opaque
				want := 0xff001020 | uint32(image[i])<<16
				if c != want {
					t.Errorf("pixel %d = %08x, want %08x", i, c, want)
				}
			}
		})
	}
}

func TestIndex4_MultipleCLUTs(t *testing.T) {
	clut := make([]byte, 32*2)
	for i := 0; i < 32; i++ {
		// ABGR1555: red = i%16, blue set for the second CLUT, alpha bit on
		v := uint16(0x8000) | uint16(i%16)
		if i >= 16 {
			v |= 0x1f << 10
		}
		binary.LittleEndian.PutUint16(clut[i*2:], v)
	}
	data := build(false, testPicture{
		imageType: TypeIndex4, clutType: TypeRGBA16, w: 4, h: 1,
		image: []byte{0x21, 0x43}, clut: clut, colors: 32,
	})
	bank := palette.NewBank()
	img, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, &detect.Session{Bank: bank})
	if err != nil {
		t.Fatal(err)
	}
	if bank.Len() != 2 {
		t.Fatalf("bank holds %d CLUTs, want 2", bank.Len())
	}
	for i, c := range img.Pixels.Pix {
		want := 0xff000000 | uint32(i+1)<<19
		if c != want {
			t.Errorf("pixel %d = %08x, want %08x", i, c, want)
		}
	}
	if err := bank.Select(1); err != nil {
		t.Fatal(err)
	}
	alt, _ := bank.Current()
	again, err := img.Resolve(alt)
	if err != nil {
		t.Fatal(err)
	}
	if again.Pixels.Pix[0] != 0xff0800f8 {
		t.Errorf("second CLUT pixel 0 = %08x, want ff0800f8", again.Pixels.Pix[0])
	}
	if img.Pixels.Pix[0] != 0xff080000 {
		t.Error("re-resolving changed the original image")
	}
}

func TestBankCLUTsCarryAlphaDoubling(t *testing.T) {
	image := []byte{1, 2, 3, 4}
	data := build(false, testPicture{
		imageType: TypeIndex8, clutType: TypeRGBA32 | clutCSM2, w: 2, h: 2,
		image: image, clut: clut32(false), colors: 256,
	})
	bank := palette.NewBank()
	img, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, &detect.Session{Bank: bank})
	if err != nil {
		t.Fatal(err)
	}
	p, err := bank.At(bank.CurrentIndex())
	if err != nil {
		t.Fatal(err)
	}
	again, err := img.Resolve(p)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range again.Pixels.Pix {
		want := 0xff001020 | uint32(image[i])<<16
		if c != want || img.Pixels.Pix[i] != want {
			t.Errorf("pixel %d: decoded %08x, re-resolved %08x, want %08x", i, img.Pixels.Pix[i], c, want)
		}
	}
	if !img.Palette.Equal(p) {
		t.Error("image palette differs from the bank CLUT")
	}
}

func TestFailedDecodeLeavesBankUntouched(t *testing.T) {
	good := testPicture{
		imageType: TypeIndex8, clutType: TypeRGBA32 | clutCSM2, w: 2, h: 1,
		image: []byte{0, 1}, clut: clut32(false), colors: 256,
	}
	bad := good
	bad.clutType = 0x3f
	bank := palette.NewBank()
	prior, err := palette.New([]uint32{0xff00ff00})
	if err != nil {
		t.Fatal(err)
	}
	bank.Add(prior)

	img, err := Candidate{}.Decode(source.FromBytes(build(true, good, bad)), detect.Context{}, &detect.Session{Bank: bank})
	if !errors.Is(err, pixel.ErrUnsupportedVariant) || img != nil {
		t.Fatalf("img = %v, err = %v", img, err)
	}
	if bank.Len() != 1 || bank.CurrentIndex() != 0 {
		t.Errorf("bank holds %d palettes, current %d; want the prior palette only", bank.Len(), bank.CurrentIndex())
	}

	if _, err := (Candidate{}).Decode(source.FromBytes(build(true, good, good)), detect.Context{}, &detect.Session{Bank: bank}); err != nil {
		t.Fatal(err)
	}
	if bank.Len() != 3 || bank.CurrentIndex() != 2 {
		t.Errorf("bank holds %d palettes, current %d; want 3 and 2", bank.Len(), bank.CurrentIndex())
	}
}

func TestDirect(t *testing.T) {
	tests := []struct {
		name string
		typ  uint8
		data []byte
		want []uint32
	}{
		{"rgba32 gs alpha", TypeRGBA32, []byte{1, 2, 3, 0x40, 4, 5, 6, 0x80}, []uint32{0x80010203, 0xff040506}},
		{"rgb24", TypeRGB24, []byte{1, 2, 3, 4, 5, 6}, []uint32{0xff010203, 0xff040506}},
		{"rgba16", TypeRGBA16, []byte{0x1f, 0x80, 0x00, 0x7c}, []uint32{0xfff80000, 0x000000f8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pix := decode(t, build(false, testPicture{imageType: tt.typ, w: 2, h: 1, image: tt.data}), nil)
			for i, c := range pix {
				if c != tt.want[i] {
					t.Errorf("pixel %d = %08x, want %08x", i, c, tt.want[i])
				}
			}
		})
	}
}

func TestMultiplePictures(t *testing.T) {
	p1 := testPicture{imageType: TypeRGB24, w: 1, h: 1, image: []byte{1, 2, 3}}
	p2 := testPicture{imageType: TypeRGB24, w: 2, h: 1, image: []byte{4, 5, 6, 7, 8, 9}}
	img, err := Candidate{}.Decode(source.FromBytes(build(true, p1, p2)), detect.Context{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	frames := img.Frames()
	if len(frames) != 2 || frames[1].Width() != 2 || frames[1].Pixels.Pix[1] != 0xff070809 {
		t.Errorf("unexpected sequence %+v", frames)
	}
}

func TestMipmaps(t *testing.T) {
	img4 := make([]byte, 4*4*3)
	img2 := make([]byte, 2*2*3)
	img1 := []byte{9, 9, 9}
	data := build(false, testPicture{
		imageType: TypeRGB24, w: 4, h: 4,
		image:    append(append(img4, img2...), img1...),
		mipSizes: []uint32{uint32(len(img4)), uint32(len(img2)), uint32(len(img1))},
	})
	img, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	frames := img.Frames()
	if len(frames) != 3 {
		t.Fatalf("got %d levels, want 3", len(frames))
	}
	if frames[2].Pixels.Pix[0] != 0xff090909 {
		t.Errorf("1x1 level = %08x", frames[2].Pixels.Pix[0])
	}
}

func TestErrors(t *testing.T) {
	t.Run("unsupported image type", func(t *testing.T) {
		data := build(false, testPicture{imageType: 7, w: 1, h: 1, image: []byte{0}})
		_, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, nil)
		if !errors.Is(err, pixel.ErrUnsupportedVariant) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("truncated image", func(t *testing.T) {
		data := build(false, testPicture{imageType: TypeRGB24, w: 2, h: 2, image: make([]byte, 12)})
		_, err := Candidate{}.Decode(source.FromBytes(data[:len(data)-1]), detect.Context{}, nil)
		if !errors.Is(err, pixel.ErrTruncatedInput) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("inconsistent sizes", func(t *testing.T) {
		data := build(false, testPicture{imageType: TypeRGB24, w: 1, h: 1, image: []byte{1, 2, 3}})
		binary.LittleEndian.PutUint32(data[fileHeaderSize:], 10)
		_, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, nil)
		if !errors.Is(err, ErrPictureSize) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("missing clut", func(t *testing.T) {
		data := build(false, testPicture{imageType: TypeIndex8, clutType: TypeRGBA32, w: 1, h: 1, image: []byte{0}})
		_, err := Candidate{}.Decode(source.FromBytes(data), detect.Context{}, nil)
		if !errors.Is(err, pixel.ErrMissingPalette) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("no pictures", func(t *testing.T) {
		_, err := Candidate{}.Decode(source.FromBytes(build(false)), detect.Context{}, nil)
		if !errors.Is(err, ErrNoPictures) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestScore(t *testing.T) {
	data := build(true, testPicture{imageType: TypeRGB24, w: 1, h: 1, image: []byte{1, 2, 3}})
	base := detect.WeightMagic + 3*detect.WeightStructure
	if got := (Candidate{}).Score(detect.ProbeBytes(data), detect.Context{}); got != base {
		t.Errorf("bare score = %d, want %d", got, base)
	}
	ctx := detect.Context{Container: "afs", Extension: "tm2"}
	if got := (Candidate{}).Score(detect.ProbeBytes(data), ctx); got != base+detect.WeightContainer+detect.WeightExtension {
		t.Errorf("score in afs = %d", got)
	}
	if got := (Candidate{}).Score(detect.ProbeBytes([]byte("TIM3")), ctx); got != 0 {
		t.Errorf("wrong magic scored %d", got)
	}
}
