// Package detect picks the decoder for an unknown byte stream.
//
// Every registered Candidate scores a bounded probe of the stream plus
// whatever context the host knows (enclosing container, extension, length).
// Identify ranks the candidates by score; the highest wins and ties go to
// the candidate registered first. A stream nobody scores above zero is an
// unknown format: Identify returns no matches and no error.
package detect

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/source"
)

var (
	ErrDuplicateName = errors.New("detect: candidate name already registered")
	ErrUnknownFormat = errors.New("detect: unknown format")
	ErrTooDeep       = errors.New("detect: wrapper nesting too deep")
)

// MaxDepth bounds how many wrappers (compressed payloads, nested
// containers) one decode may unwrap.
const MaxDepth = 4

// Candidate is a format decoder. Score must be side-effect free and return
// 0, never an error, for streams it cannot handle.
type Candidate interface {
	Name() string
	Score(p *Probe, ctx Context) int
	Decode(r *source.Reader, ctx Context, s *Session) (*animation.Image, error)
}

// Session carries the per-decode state a Candidate may use.
type Session struct {
	Bank     *palette.Bank
	Registry *Registry
	Logger   hclog.Logger
	// MaxInflated bounds the size of a decompressed payload.
	MaxInflated int64
	// ProbeSize is the probe window; DefaultProbeSize when zero.
	ProbeSize int
	// Depth counts the wrappers already unwrapped.
	Depth int
}

// Log returns the session logger, never nil.
func (s *Session) Log() hclog.Logger {
	if s == nil || s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

// Match is one scored candidate.
type Match struct {
	Candidate Candidate
	Score     int
}

// Registry holds candidates in registration order.
type Registry struct {
	mu     sync.RWMutex
	cands  []Candidate
	names  map[string]struct{}
	logger hclog.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{names: make(map[string]struct{}), logger: logger.Named("detect")}
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.names[c.Name()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateName, c.Name())
	}
	r.names[c.Name()] = struct{}{}
	r.cands = append(r.cands, c)
	return nil
}

// Candidates returns the registered candidates in order.
func (r *Registry) Candidates() []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Candidate(nil), r.cands...)
}

// Lookup finds a candidate by name.
func (r *Registry) Lookup(name string) (Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cands {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Identify scores every candidate and returns those above zero, best first.
// The only error is a probe that could not be read.
func (r *Registry) Identify(p *Probe, ctx Context) ([]Match, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}
	cands := r.Candidates()
	var out []Match
	for _, c := range cands {
		s := c.Score(p, ctx)
		r.logger.Trace("scored candidate", "format", c.Name(), "score", s)
		if s > 0 {
			out = append(out, Match{Candidate: c, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Best returns the winning candidate. ok is false for an unknown format.
func (r *Registry) Best(p *Probe, ctx Context) (m Match, ok bool, err error) {
	ms, err := r.Identify(p, ctx)
	if err != nil || len(ms) == 0 {
		return Match{}, false, err
	}
	return ms[0], true, nil
}

// Decode identifies the stream behind src and decodes it with the winner.
// The reader is rewound to its start first. A nil session decodes with
// defaults.
func (r *Registry) Decode(src *source.Reader, ctx Context, s *Session) (*animation.Image, string, error) {
	if s == nil {
		s = &Session{Registry: r}
	}
	if s.Depth > MaxDepth {
		return nil, "", ErrTooDeep
	}
	if ctx.Length == 0 {
		ctx.Length = src.Len()
	}
	p := NewProbe(src, src.Len(), s.ProbeSize)
	m, ok, err := r.Best(p, ctx)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrUnknownFormat
	}
	name := m.Candidate.Name()
	s.Log().Debug("decoding", "format", name, "score", m.Score, "depth", s.Depth)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, name, err
	}
	img, err := m.Candidate.Decode(src, ctx, s)
	if err != nil {
		return nil, name, fmt.Errorf("detect: %s: %w", name, err)
	}
	return img, name, nil
}

// Func adapts plain functions to a Candidate.
type Func struct {
	FormatName string
	ScoreFunc  func(p *Probe, ctx Context) int
	DecodeFunc func(r *source.Reader, ctx Context, s *Session) (*animation.Image, error)
}

func (f Func) Name() string { return f.FormatName }

func (f Func) Score(p *Probe, ctx Context) int {
	if f.ScoreFunc == nil {
		return 0
	}
	return max(0, f.ScoreFunc(p, ctx))
}

func (f Func) Decode(r *source.Reader, ctx Context, s *Session) (*animation.Image, error) {
	if f.DecodeFunc == nil {
		return nil, fmt.Errorf("detect: %s: no decoder", f.FormatName)
	}
	return f.DecodeFunc(r, ctx, s)
}
