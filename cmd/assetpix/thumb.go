package main

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"
	"github.com/spf13/cobra"
)

type thumbFlags struct {
	output string
	size   uint
	flipV  bool
	flipH  bool
	rotate int
	blur   float32
}

func newThumbCmd(g *globals) *cobra.Command {
	f := &thumbFlags{}
	cmd := &cobra.Command{
		Use:   "thumb [options] <file>",
		Short: "Write a small PNG preview of an asset",
		Long: `Write a small PNG preview of an asset.

Textures larger than --size are scaled down with Lanczos resampling and
smaller ones are scaled up with nearest neighbor so texels stay sharp.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThumb(cmd, g, f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", `output path (default: <input>.thumb.png, "-" for stdout)`)
	fl.UintVarP(&f.size, "size", "s", 128, "bounding box of the preview in pixels")
	fl.BoolVar(&f.flipV, "flip-v", false, "flip vertically (bottom-up textures)")
	fl.BoolVar(&f.flipH, "flip-h", false, "flip horizontally")
	fl.IntVar(&f.rotate, "rotate", 0, "rotate counter-clockwise by 90, 180 or 270 degrees")
	fl.Float32Var(&f.blur, "blur", 0, "gaussian blur sigma")
	return cmd
}

func runThumb(cmd *cobra.Command, g *globals, f *thumbFlags, path string) error {
	if f.size == 0 {
		return fmt.Errorf("size must be positive")
	}
	filters, err := f.filters()
	if err != nil {
		return err
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	img, format, err := g.session(cmd).DecodeBytes(data, g.context(path))
	if err != nil {
		return err
	}
	g.logger(cmd).Debug("decoded", "path", path, "format", format, "width", img.Width(), "height", img.Height())

	thumb := scale(img.Pixels.NRGBA(), f.size)
	if len(filters) > 0 {
		gf := gift.New(filters...)
		dst := image.NewNRGBA(gf.Bounds(thumb.Bounds()))
		gf.Draw(dst, thumb)
		thumb = dst
	}

	out := outputPath(f.output, path, ".thumb.png")
	if err := writeOutput(cmd, out, func(w io.Writer) error { return png.Encode(w, thumb) }); err != nil {
		return err
	}
	b := thumb.Bounds()
	fmt.Fprintf(cmd.ErrOrStderr(), "Thumbnail %s → %s (%dx%d)\n", path, out, b.Dx(), b.Dy())
	return nil
}

func (f *thumbFlags) filters() ([]gift.Filter, error) {
	var fs []gift.Filter
	if f.flipV {
		fs = append(fs, gift.FlipVertical())
	}
	if f.flipH {
		fs = append(fs, gift.FlipHorizontal())
	}
	switch f.rotate {
	case 0:
	case 90:
		fs = append(fs, gift.Rotate90())
	case 180:
		fs = append(fs, gift.Rotate180())
	case 270:
		fs = append(fs, gift.Rotate270())
	default:
		return nil, fmt.Errorf("rotate must be 0, 90, 180 or 270, got %d", f.rotate)
	}
	if f.blur < 0 {
		return nil, fmt.Errorf("blur sigma must not be negative")
	}
	if f.blur > 0 {
		fs = append(fs, gift.GaussianBlur(f.blur))
	}
	return fs, nil
}

// scale fits src into a size×size box keeping the aspect ratio.
func scale(src *image.NRGBA, size uint) image.Image {
	b := src.Bounds()
	w, h := uint(b.Dx()), uint(b.Dy())
	if w <= size && h <= size {
		// Upscale by the largest integer factor that fits.
		k := size / max(w, h)
		if k <= 1 {
			return src
		}
		return resize.Resize(w*k, h*k, src, resize.NearestNeighbor)
	}
	return resize.Thumbnail(size, size, src, resize.Lanczos3)
}
