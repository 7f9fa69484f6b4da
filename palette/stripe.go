package palette

// The PS2 GS stores 256-entry CLUTs in CSM1 order: entries are grouped in
// runs of 32, each run made of four 8-entry blocks, and the two middle
// blocks of every run are exchanged. Linear index i lives at stripedIndex(i).
// Palettes whose length is not a multiple of 32 are stored linearly.
const (
	stripeBlock = 8
	stripeRun   = 4 * stripeBlock
)

var stripeBlockOrder = [4]int{0, 2, 1, 3}

func stripedIndex(i int) int {
	run, rem := i/stripeRun, i%stripeRun
	block, pos := rem/stripeBlock, rem%stripeBlock
	return run*stripeRun + stripeBlockOrder[block]*stripeBlock + pos
}

// Stripe rearranges a linear palette into CSM1 storage order.
func Stripe(p *Palette) *Palette {
	if len(p.colors)%stripeRun != 0 {
		return &Palette{colors: p.Colors(), striped: true}
	}
	c := make([]uint32, len(p.colors))
	for i, v := range p.colors {
		c[stripedIndex(i)] = v
	}
	return &Palette{colors: c, striped: true}
}

// Destripe rearranges a CSM1-ordered palette into linear index order. It is
// the exact inverse of Stripe.
func Destripe(p *Palette) *Palette {
	if len(p.colors)%stripeRun != 0 {
		return &Palette{colors: p.Colors()}
	}
	c := make([]uint32, len(p.colors))
	for i := range c {
		c[i] = p.colors[stripedIndex(i)]
	}
	return &Palette{colors: c}
}
