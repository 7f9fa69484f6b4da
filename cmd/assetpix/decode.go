package main

import (
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"

	"github.com/deepteams/assetpix"
	"github.com/deepteams/assetpix/layout"
	"github.com/deepteams/assetpix/texture"
)

type decodeFlags struct {
	output       string
	format       string
	frames       bool
	palette      string
	paletteIndex int

	// raw texture descriptor
	encoding string
	width    int
	height   int
	layout   string
	offset   int
}

func newDecodeCmd(g *globals) *cobra.Command {
	f := &decodeFlags{paletteIndex: -1}
	cmd := &cobra.Command{
		Use:   "decode [options] <file>",
		Short: "Decode an asset to PNG, BMP or GIF",
		Long: `Decode an asset to PNG, BMP or GIF.

The format is detected from the file contents, --container and the
extension. Headerless texture data is decoded with --encoding, --width and
--height, optionally --layout and --offset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, g, f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", `output path (default: <input>.png, "-" for stdout)`)
	fl.StringVar(&f.format, "format", "", "output format: png, bmp, gif (default: from the output extension)")
	fl.BoolVar(&f.frames, "frames", false, "write every frame or mip level as <output>-N")
	fl.StringVar(&f.palette, "palette", "", "companion palette file (ACT, or a paletted PNG/GIF/BMP)")
	fl.IntVar(&f.paletteIndex, "palette-index", -1, "re-resolve indexed pictures with this palette of the session bank")
	fl.StringVar(&f.encoding, "encoding", "", "raw texture encoding, e.g. DXT1, RGB565, BGRA8888, P8, P4LE")
	fl.IntVar(&f.width, "width", 0, "raw texture width")
	fl.IntVar(&f.height, "height", 0, "raw texture height")
	fl.StringVar(&f.layout, "layout", "linear", "raw texture layout: linear, tileN, morton, morton-tileN, psp, xbox360")
	fl.IntVar(&f.offset, "offset", 0, "raw texture data offset in bytes")
	return cmd
}

func runDecode(cmd *cobra.Command, g *globals, f *decodeFlags, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	s := g.session(cmd)
	log := g.logger(cmd)

	if f.palette != "" {
		pf, err := os.Open(f.palette)
		if err != nil {
			return err
		}
		i, err := s.ImportPalette(pf)
		pf.Close()
		if err != nil {
			return fmt.Errorf("palette %s: %w", f.palette, err)
		}
		log.Debug("imported palette", "path", f.palette, "index", i)
	}

	var img *assetpix.DecodedImage
	if f.encoding != "" {
		img, err = decodeRaw(s, f, data)
	} else {
		var format string
		img, format, err = s.DecodeBytes(data, g.context(path))
		if err == nil {
			log.Info("decoded", "path", path, "format", format)
		}
	}
	if err != nil {
		return err
	}

	frames := []*assetpix.DecodedImage{img}
	if f.frames {
		frames = img.Frames()
	}
	if frames, err = repalette(s, f, frames); err != nil {
		return err
	}

	outFmt := outputFormat(f.format, f.output)
	out := outputPath(f.output, path, "."+outFmt)
	for i, fr := range frames {
		dst := out
		if len(frames) > 1 && out != "-" {
			ext := filepath.Ext(out)
			dst = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(out, ext), i, ext)
		}
		if err := writeOutput(cmd, dst, func(w io.Writer) error { return encodeImage(w, fr, outFmt) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Decoded %s → %s (%dx%d)\n", path, dst, fr.Width(), fr.Height())
	}
	return nil
}

// decodeRaw decodes headerless texture data described by flags.
func decodeRaw(s *assetpix.Session, f *decodeFlags, data []byte) (*assetpix.DecodedImage, error) {
	enc, ok := texture.ParseEncoding(f.encoding)
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q", f.encoding)
	}
	l, ok := layout.Parse(f.layout, 0)
	if !ok {
		return nil, fmt.Errorf("unknown layout %q", f.layout)
	}
	if f.offset < 0 || f.offset > len(data) {
		return nil, fmt.Errorf("offset %d outside %d bytes of input", f.offset, len(data))
	}
	tex := &assetpix.Texture{Width: f.width, Height: f.height, Encoding: enc, Layout: l}
	return s.DecodeTexture(tex, data[f.offset:])
}

// repalette re-resolves indexed frames against the imported palette or
// the one picked with --palette-index.
func repalette(s *assetpix.Session, f *decodeFlags, frames []*assetpix.DecodedImage) ([]*assetpix.DecodedImage, error) {
	if f.palette == "" && f.paletteIndex < 0 {
		return frames, nil
	}
	idx := f.paletteIndex
	if idx < 0 {
		idx = s.Bank().CurrentIndex()
	}
	p, err := s.Bank().At(idx)
	if err != nil {
		return nil, err
	}
	out := make([]*assetpix.DecodedImage, len(frames))
	for i, fr := range frames {
		out[i] = fr
		if fr.Indices == nil {
			continue
		}
		if out[i], err = fr.Resolve(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// outputFormat returns "png", "bmp" or "gif" from the flag or the output
// extension.
func outputFormat(flag, output string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	}
	return "png"
}

func encodeImage(w io.Writer, img *assetpix.DecodedImage, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img.Pixels.NRGBA())
	case "bmp":
		return bmp.Encode(w, img.Pixels.NRGBA())
	case "gif":
		if pm := paletted(img); pm != nil {
			return gif.Encode(w, pm, nil)
		}
		return gif.Encode(w, img.Pixels.NRGBA(), nil)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// paletted keeps the source indices and palette of an indexed picture so
// the GIF needs no quantization.
func paletted(img *assetpix.DecodedImage) *image.Paletted {
	if img.Indices == nil || img.Palette == nil {
		return nil
	}
	ix := img.Indices
	pm := image.NewPaletted(image.Rect(0, 0, ix.Width, ix.Height), img.Palette.ToColors())
	copy(pm.Pix, ix.Indices)
	return pm
}
