package pixel

// Filter is a per-pixel color correction applied as the last decode step.
// Filters reproduce renderer conventions of the source engines and are part
// of decode fidelity: their constants are fixed and must not be tuned.
type Filter func(argb uint32) uint32

// AlphaDouble maps a 7-bit alpha convention (0x80 is opaque) onto 8 bits.
// Values are doubled and clamped, so 0x80 and above become 0xff.
func AlphaDouble() Filter {
	return func(c uint32) uint32 {
		a := (c >> 24) * 2
		if a > 0xff {
			a = 0xff
		}
		return a<<24 | c&0x00ffffff
	}
}

// AlphaHalve is the write-back inverse of AlphaDouble: (a+1)/2, so 0xff
// becomes 0x80.
func AlphaHalve() Filter {
	return func(c uint32) uint32 {
		a := (c>>24 + 1) >> 1
		return a<<24 | c&0x00ffffff
	}
}

// SwapRB exchanges the red and blue channels.
func SwapRB() Filter {
	return func(c uint32) uint32 {
		return c&0xff00ff00 | (c>>16)&0xff | (c&0xff)<<16
	}
}

// Brightness adds offset to each color channel and clamps the result to
// [0, 255]. Alpha is left alone.
func Brightness(offset int) Filter {
	return func(c uint32) uint32 {
		a, r, g, b := Unpack(c)
		return Pack(a, clampAdd(r, offset), clampAdd(g, offset), clampAdd(b, offset))
	}
}

// OpaqueAlpha forces every pixel to alpha 255.
func OpaqueAlpha() Filter {
	return func(c uint32) uint32 { return c | 0xff000000 }
}

func clampAdd(v uint8, d int) uint8 {
	n := int(v) + d
	switch {
	case n < 0:
		return 0
	case n > 0xff:
		return 0xff
	}
	return uint8(n)
}

// Chain composes filters left to right.
func Chain(filters ...Filter) Filter {
	return func(c uint32) uint32 {
		for _, f := range filters {
			c = f(c)
		}
		return c
	}
}

// Apply runs filters over every pixel of b in place.
func (b *Buffer) Apply(filters ...Filter) {
	if len(filters) == 0 {
		return
	}
	f := Chain(filters...)
	for i, c := range b.Pix {
		b.Pix[i] = f(c)
	}
}
