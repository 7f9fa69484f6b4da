// Package animation assembles decoded pictures into multi-frame results:
// overlay composition of partial frames onto one canvas, frame sequences
// with previous/next links, and mipmap chains.
package animation

import (
	"errors"

	"github.com/deepteams/assetpix/indexed"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
)

var (
	ErrNoFrames       = errors.New("animation: no frames")
	ErrNilImage       = errors.New("animation: frame image is nil")
	ErrDuplicateFrame = errors.New("animation: frame appears twice in sequence")
	ErrMipmapSize     = errors.New("animation: mipmap level does not halve the previous level")
	ErrNoIndices      = errors.New("animation: image has no index buffer")
)

// Image is one decoded picture. Pixels is always set. Palette and Indices
// are set for indexed sources so the picture can be re-resolved against a
// different palette later.
type Image struct {
	Pixels  *pixel.Buffer
	Palette *palette.Palette
	Indices *indexed.Buffer

	next, prev *Image
}

// New wraps a pixel buffer.
func New(p *pixel.Buffer) *Image { return &Image{Pixels: p} }

// Width returns the pixel width.
func (im *Image) Width() int { return im.Pixels.Width }

// Height returns the pixel height.
func (im *Image) Height() int { return im.Pixels.Height }

// Next returns the following frame, nil at the end of an open sequence.
func (im *Image) Next() *Image { return im.next }

// Prev returns the preceding frame, nil at the start of an open sequence.
func (im *Image) Prev() *Image { return im.prev }

// Resolve returns a copy of im with its indices looked up in p. The
// receiver is not modified.
func (im *Image) Resolve(p *palette.Palette) (*Image, error) {
	if im.Indices == nil {
		return nil, ErrNoIndices
	}
	px, err := im.Indices.Resolve(p)
	if err != nil {
		return nil, err
	}
	return &Image{Pixels: px, Palette: p, Indices: im.Indices}, nil
}

// Frames walks the sequence starting at im in next order. Each frame is
// returned once, also for circular sequences.
func (im *Image) Frames() []*Image {
	var out []*Image
	for f := im; f != nil; f = f.next {
		out = append(out, f)
		if f.next == im {
			break
		}
	}
	return out
}

// Sequence links imgs in order and returns the first. With circular set the
// last frame links back to the first. Links already present on the images
// are replaced.
func Sequence(imgs []*Image, circular bool) (*Image, error) {
	if len(imgs) == 0 {
		return nil, ErrNoFrames
	}
	seen := make(map[*Image]struct{}, len(imgs))
	for _, im := range imgs {
		if im == nil || im.Pixels == nil {
			return nil, ErrNilImage
		}
		if _, dup := seen[im]; dup {
			return nil, ErrDuplicateFrame
		}
		seen[im] = struct{}{}
	}
	for i, im := range imgs {
		im.prev, im.next = nil, nil
		if i > 0 {
			im.prev = imgs[i-1]
		}
		if i+1 < len(imgs) {
			im.next = imgs[i+1]
		}
	}
	if circular {
		first, last := imgs[0], imgs[len(imgs)-1]
		first.prev, last.next = last, first
	}
	return imgs[0], nil
}

// Mipmaps links a mip chain, largest level first. Every level must be half
// the size of the previous one in each dimension, rounded down, but never
// below one pixel.
func Mipmaps(levels []*Image) (*Image, error) {
	for i := 1; i < len(levels); i++ {
		if levels[i] == nil || levels[i-1] == nil || levels[i].Pixels == nil || levels[i-1].Pixels == nil {
			return nil, ErrNilImage
		}
		pw, ph := levels[i-1].Width(), levels[i-1].Height()
		if levels[i].Width() != max(1, pw/2) || levels[i].Height() != max(1, ph/2) {
			return nil, ErrMipmapSize
		}
	}
	return Sequence(levels, false)
}

// MipCount returns the number of levels in a full chain down to 1×1.
func MipCount(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width, height = max(1, width/2), max(1, height/2)
		n++
	}
	return n
}
