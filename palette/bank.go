package palette

import (
	"fmt"

	"github.com/deepteams/assetpix/pixel"
)

// Bank is the palette state of one decode session: the palettes discovered
// so far and a cursor selecting the current one.
//
// A Bank is not safe for concurrent use; every session owns its own.
// Selecting another palette never changes pixels that were already decoded,
// because palette lookup happens once, at decode time.
type Bank struct {
	palettes []*Palette
	current  int
}

// NewBank returns an empty bank.
func NewBank() *Bank { return &Bank{} }

// Add appends palettes. The first palette added to an empty bank becomes
// current.
func (b *Bank) Add(p ...*Palette) {
	b.palettes = append(b.palettes, p...)
}

// Len returns the number of palettes in the bank.
func (b *Bank) Len() int { return len(b.palettes) }

// At returns palette i.
func (b *Bank) At(i int) (*Palette, error) {
	if i < 0 || i >= len(b.palettes) {
		return nil, fmt.Errorf("palette: index %d out of range [0,%d)", i, len(b.palettes))
	}
	return b.palettes[i], nil
}

// Select makes palette i current.
func (b *Bank) Select(i int) error {
	if i < 0 || i >= len(b.palettes) {
		return fmt.Errorf("palette: index %d out of range [0,%d)", i, len(b.palettes))
	}
	b.current = i
	return nil
}

// CurrentIndex returns the cursor position.
func (b *Bank) CurrentIndex() int { return b.current }

// Current returns the selected palette, or a MissingPalette error when the
// bank is empty.
func (b *Bank) Current() (*Palette, error) {
	if b == nil || len(b.palettes) == 0 {
		return nil, pixel.Errorf(pixel.ErrMissingPalette, "palette", "", 0)
	}
	return b.palettes[b.current], nil
}

// Clear drops every palette and resets the cursor. Call it between
// unrelated archives.
func (b *Bank) Clear() {
	b.palettes = nil
	b.current = 0
}
