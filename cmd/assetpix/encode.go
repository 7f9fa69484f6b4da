package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"

	"github.com/deepteams/assetpix"
	"github.com/deepteams/assetpix/texture"
)

type encodeFlags struct {
	output   string
	encoding string
	noMips   bool
	filter   string
}

func newEncodeCmd(g *globals) *cobra.Command {
	f := &encodeFlags{}
	cmd := &cobra.Command{
		Use:   "encode [options] <image>",
		Short: "Convert a PNG, GIF or BMP image to DDS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, g, f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", `output path (default: <input>.dds, "-" for stdout)`)
	fl.StringVarP(&f.encoding, "encoding", "e", "DXT5", "texel encoding, e.g. DXT1, DXT5, BC7, BGRA8888, RGB565")
	fl.BoolVar(&f.noMips, "no-mips", false, "write only the top level")
	fl.StringVar(&f.filter, "filter", "lanczos3", "mip filter: nearest, bilinear, lanczos3")
	return cmd
}

var mipFilters = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"lanczos3": resize.Lanczos3,
}

func runEncode(cmd *cobra.Command, g *globals, f *encodeFlags, path string) error {
	enc, ok := texture.ParseEncoding(f.encoding)
	if !ok {
		return fmt.Errorf("unknown encoding %q", f.encoding)
	}
	interp, ok := mipFilters[strings.ToLower(f.filter)]
	if !ok {
		return fmt.Errorf("unknown filter %q", f.filter)
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	g.logger(cmd).Debug("read image", "path", path, "format", format, "encoding", enc)

	o := &assetpix.EncoderOptions{Encoding: enc, NoMipmaps: f.noMips, Interpolation: interp}
	out := outputPath(f.output, path, ".dds")
	var size int
	err = writeOutput(cmd, out, func(w io.Writer) error {
		var buf bytes.Buffer
		if err := assetpix.Encode(&buf, img, o); err != nil {
			return err
		}
		size = buf.Len()
		_, err := buf.WriteTo(w)
		return err
	})
	if err != nil {
		return err
	}
	b := img.Bounds()
	fmt.Fprintf(cmd.ErrOrStderr(), "Encoded %s → %s (%dx%d %s, %d bytes)\n", path, out, b.Dx(), b.Dy(), enc, size)
	return nil
}
