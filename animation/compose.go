package animation

import (
	"image"

	"github.com/deepteams/assetpix/pixel"
)

// BlendMethod controls how a frame is composited onto the canvas.
type BlendMethod int

const (
	// BlendReplace overwrites every canvas pixel the frame covers.
	BlendReplace BlendMethod = iota
	// BlendSkipTransparent overwrites only where the frame pixel has
	// non-zero alpha.
	BlendSkipTransparent
	// BlendAlpha composites the frame over the canvas.
	BlendAlpha
)

// Frame places an image on the canvas.
type Frame struct {
	Image   *Image
	OffsetX int
	OffsetY int
	Blend   BlendMethod
}

// Bounds returns the frame's rectangle in canvas coordinates.
func (f *Frame) Bounds() image.Rectangle {
	if f.Image == nil || f.Image.Pixels == nil {
		return image.Rectangle{Min: image.Pt(f.OffsetX, f.OffsetY), Max: image.Pt(f.OffsetX, f.OffsetY)}
	}
	return image.Rect(f.OffsetX, f.OffsetY, f.OffsetX+f.Image.Width(), f.OffsetY+f.Image.Height())
}

// unionBounds returns the smallest rectangle covering every frame.
func unionBounds(frames []Frame) (image.Rectangle, error) {
	if len(frames) == 0 {
		return image.Rectangle{}, ErrNoFrames
	}
	var r image.Rectangle
	for i := range frames {
		if frames[i].Image == nil || frames[i].Image.Pixels == nil {
			return image.Rectangle{}, ErrNilImage
		}
		b := frames[i].Bounds()
		if i == 0 {
			r = b
		} else {
			r = r.Union(b)
		}
	}
	return r, nil
}

// Overlay composites frames in order onto a transparent canvas sized to the
// union of their bounds. Later frames change only the pixels they cover.
// The canvas origin is the top-left corner of that union.
func Overlay(frames []Frame) (*Image, error) {
	r, err := unionBounds(frames)
	if err != nil {
		return nil, err
	}
	canvas, err := pixel.NewBuffer(r.Dx(), r.Dy())
	if err != nil {
		return nil, err
	}
	for i := range frames {
		composite(canvas, r.Min, &frames[i])
	}
	return New(canvas), nil
}

// OverlaySequence composites like Overlay but keeps the canvas after every
// frame, returning the snapshots linked as a sequence.
func OverlaySequence(frames []Frame, circular bool) (*Image, error) {
	r, err := unionBounds(frames)
	if err != nil {
		return nil, err
	}
	canvas, err := pixel.NewBuffer(r.Dx(), r.Dy())
	if err != nil {
		return nil, err
	}
	out := make([]*Image, len(frames))
	for i := range frames {
		composite(canvas, r.Min, &frames[i])
		out[i] = New(canvas.Clone())
	}
	return Sequence(out, circular)
}

func composite(canvas *pixel.Buffer, origin image.Point, f *Frame) {
	src := f.Image.Pixels
	x0, y0 := f.OffsetX-origin.X, f.OffsetY-origin.Y
	for sy := 0; sy < src.Height; sy++ {
		row := (y0+sy)*canvas.Width + x0
		for sx := 0; sx < src.Width; sx++ {
			c := src.Pix[sy*src.Width+sx]
			switch f.Blend {
			case BlendSkipTransparent:
				if c>>24 == 0 {
					continue
				}
			case BlendAlpha:
				c = alphaBlend(c, canvas.Pix[row+sx])
			}
			canvas.Pix[row+sx] = c
		}
	}
}

// alphaBlend performs "src over dst" in non-premultiplied ARGB:
//
//	dstFactorA = dstA * (256 - srcA) >> 8
//	blendA     = srcA + dstFactorA
//	channel    = (src*srcA + dst*dstFactorA) * ((1<<24)/blendA) >> 24
func alphaBlend(src, dst uint32) uint32 {
	srcA, dstA := src>>24, dst>>24
	if srcA == 0 {
		return dst
	}
	if srcA == 255 || dstA == 0 {
		return src
	}
	dstFactorA := (dstA * (256 - srcA)) >> 8
	blendA := srcA + dstFactorA
	scale := (1 << 24) / blendA
	blend := func(shift uint) uint32 {
		sc, dc := src>>shift&0xff, dst>>shift&0xff
		v := (sc*srcA + dc*dstFactorA) * scale >> 24
		return min(v, 255) << shift
	}
	return blendA<<24 | blend(16) | blend(8) | blend(0)
}
