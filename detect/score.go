package detect

import "strings"

// Score weights. A candidate adds them up as its checks pass.
const (
	WeightExtension = 25 // file extension matches
	WeightContainer = 50 // parent container is one the format lives in
	WeightMagic     = 50 // magic number matches
	WeightStructure = 5  // each secondary structural check
)

// Context describes where a stream came from. Every field is optional.
type Context struct {
	Container string // identity of the enclosing archive or wrapper, e.g. "mpq"
	Extension string // file extension without the dot
	Length    int64  // total stream length, 0 when unknown
}

// Ext returns the normalized extension: lower case, no leading dot.
func (c Context) Ext() string {
	return strings.ToLower(strings.TrimPrefix(c.Extension, "."))
}

// Scorer accumulates a confidence score. Once a required check fails the
// score is zero and stays zero.
type Scorer struct {
	score  int
	failed bool
}

// Add adds w unless a required check has failed.
func (s *Scorer) Add(w int) {
	if !s.failed {
		s.score += w
	}
}

// Extension adds WeightExtension when ctx's extension is one of exts.
func (s *Scorer) Extension(ctx Context, exts ...string) {
	e := ctx.Ext()
	for _, x := range exts {
		if e != "" && e == x {
			s.Add(WeightExtension)
			return
		}
	}
}

// Container adds WeightContainer when ctx's container is one of names.
func (s *Scorer) Container(ctx Context, names ...string) {
	c := strings.ToLower(ctx.Container)
	for _, n := range names {
		if c != "" && c == n {
			s.Add(WeightContainer)
			return
		}
	}
}

// Magic adds WeightMagic when ok.
func (s *Scorer) Magic(ok bool) {
	if ok {
		s.Add(WeightMagic)
	}
}

// Check adds WeightStructure when ok.
func (s *Scorer) Check(ok bool) {
	if ok {
		s.Add(WeightStructure)
	}
}

// Require zeroes and locks the score unless ok.
func (s *Scorer) Require(ok bool) {
	if !ok {
		s.score, s.failed = 0, true
	}
}

// Failed reports whether a required check failed.
func (s *Scorer) Failed() bool { return s.failed }

// Score returns the accumulated score.
func (s *Scorer) Score() int { return s.score }
