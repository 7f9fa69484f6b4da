package assetpix_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/deepteams/assetpix"
	"github.com/deepteams/assetpix/block"
	"github.com/deepteams/assetpix/layout"
	"github.com/deepteams/assetpix/palette"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{A: 255}
			if (x/4+y/4)%2 == 0 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func ExampleSession_Decode() {
	var buf bytes.Buffer
	if err := assetpix.Encode(&buf, checker(16, 8), nil); err != nil {
		fmt.Println(err)
		return
	}

	s := assetpix.NewSession(nil)
	img, format, err := s.Decode(bytes.NewReader(buf.Bytes()), assetpix.Context{Extension: "dds"})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("format:", format)
	for _, level := range img.Frames() {
		fmt.Printf("%dx%d\n", level.Width(), level.Height())
	}
	// Output:
	// format: dds
	// 16x8
	// 8x4
	// 4x2
	// 2x1
	// 1x1
}

func ExampleIdentify() {
	var buf bytes.Buffer
	if err := assetpix.Encode(&buf, checker(4, 4), &assetpix.EncoderOptions{
		Encoding:  assetpix.Compressed{Format: block.DXT1},
		NoMipmaps: true,
	}); err != nil {
		fmt.Println(err)
		return
	}
	name, err := assetpix.Identify(buf.Bytes(), assetpix.Context{})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(name)
	// Output:
	// dds
}

func ExampleSession_DecodeTexture() {
	s := assetpix.NewSession(nil)
	p, err := palette.New([]uint32{0xff000000, 0xffff0000, 0xff00ff00, 0xff0000ff})
	if err != nil {
		fmt.Println(err)
		return
	}
	s.Bank().Add(p)

	// 4×2 texture of 8-bit indices stored in Morton order
	tex := &assetpix.Texture{
		Width:    4,
		Height:   2,
		Encoding: assetpix.Indexed{Depth: 8},
		Layout:   layout.Morton{},
	}
	img, err := s.DecodeTexture(tex, []byte{0, 1, 2, 3, 1, 1, 3, 3})
	if err != nil {
		fmt.Println(err)
		return
	}
	for y := 0; y < 2; y++ {
		row := make([]string, 4)
		for x := range row {
			row[x] = fmt.Sprintf("%08x", img.Pixels.ARGBAt(x, y))
		}
		fmt.Println(strings.Join(row, " "))
	}
	// Output:
	// ff000000 ffff0000 ffff0000 ffff0000
	// ff00ff00 ff0000ff ff0000ff ff0000ff
}
