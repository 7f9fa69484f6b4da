package layout

import (
	"strconv"
	"strings"

	"github.com/deepteams/assetpix/pixel"
)

// Size returns the number of bytes a width×height element grid occupies.
func Size(width, height int, l Layout) int {
	return width * height * l.ElemSize()
}

func validate(op string, src []byte, width, height int, l Layout) (int, error) {
	if err := pixel.CheckDimensions(op, width, height); err != nil {
		return 0, err
	}
	if err := l.Check(width, height); err != nil {
		return 0, err
	}
	need := Size(width, height, l)
	if len(src) < need {
		return 0, pixel.Truncated(op, need, len(src))
	}
	if len(src) > need {
		return 0, pixel.Errorf(pixel.ErrInvalidDimension, op, "length", int64(len(src)))
	}
	return need, nil
}

// ToLinear gathers native-order data into row-major order. src must hold
// exactly Size(width, height, l) bytes; trailing bytes are rejected.
func ToLinear(src []byte, width, height int, l Layout) ([]byte, error) {
	need, err := validate("layout", src, width, height, l)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, need)
	return dst, transform(dst, src, width, height, l, false)
}

// ToLinearInto is ToLinear writing into dst, which must hold
// Size(width, height, l) bytes.
func ToLinearInto(dst, src []byte, width, height int, l Layout) error {
	need, err := validate("layout", src, width, height, l)
	if err != nil {
		return err
	}
	if len(dst) < need {
		return pixel.Truncated("layout", need, len(dst))
	}
	return transform(dst[:need], src, width, height, l, false)
}

// ToNative scatters row-major data into the native order of l.
func ToNative(src []byte, width, height int, l Layout) ([]byte, error) {
	need, err := validate("layout", src, width, height, l)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, need)
	return dst, transform(dst, src, width, height, l, true)
}

func transform(dst, src []byte, width, height int, l Layout, scatter bool) error {
	es := l.ElemSize()
	n := width * height
	if _, ok := l.(Linear); ok {
		copy(dst, src[:n*es])
		return nil
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			lin := y*width + x
			nat := l.Offset(x, y, width, height)
			if nat < 0 || nat >= n {
				return pixel.Errorf(pixel.ErrMalformedBlock, l.String(), "offset", int64(nat))
			}
			if scatter {
				copy(dst[nat*es:(nat+1)*es], src[lin*es:(lin+1)*es])
			} else {
				copy(dst[lin*es:(lin+1)*es], src[nat*es:(nat+1)*es])
			}
		}
	}
	return nil
}

// Parse returns the layout named by s with the given element size. Tile and
// Morton tile sizes use the forms "tile8" and "morton-tile8".
func Parse(s string, elem int) (Layout, bool) {
	switch s {
	case "", "linear":
		return Linear{Elem: elem}, true
	case "morton":
		return Morton{Elem: elem}, true
	case "psp":
		return PSP{}, true
	case "xbox360":
		return Xbox360{Elem: elem}, true
	}
	if v, ok := strings.CutPrefix(s, "morton-tile"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return Morton{Tile: n, Elem: elem}, true
		}
	}
	if v, ok := strings.CutPrefix(s, "tile"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return Tile{Size: n, Elem: elem}, true
		}
	}
	return nil, false
}

// WithElem returns l moving n-byte elements. PSP addresses single bytes and
// is returned unchanged; callers widen the grid instead.
func WithElem(l Layout, n int) Layout {
	switch v := l.(type) {
	case nil:
		return Linear{Elem: n}
	case Linear:
		v.Elem = n
		return v
	case Tile:
		v.Elem = n
		return v
	case Morton:
		v.Elem = n
		return v
	case Xbox360:
		v.Elem = n
		return v
	}
	return l
}
