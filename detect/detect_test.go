package detect

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
)

func fixed(name string, score int) Func {
	return Func{FormatName: name, ScoreFunc: func(*Probe, Context) int { return score }}
}

func names(ms []Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Candidate.Name())
	}
	return out
}

func TestIdentify_HighestScoreFirst(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(fixed("b", 50))
	r.Register(fixed("a", 75))
	ms, err := r.Identify(ProbeBytes([]byte("x")), Context{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[0].Candidate.Name() != "a" || ms[0].Score != 75 {
		t.Errorf("Identify = %v", names(ms))
	}
}

func TestIdentify_AllZeroIsUnknownNotError(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(fixed("a", 0))
	r.Register(fixed("b", 0))
	ms, err := r.Identify(ProbeBytes([]byte("x")), Context{})
	if err != nil || len(ms) != 0 {
		t.Errorf("Identify = %v, %v; want empty, nil", names(ms), err)
	}
	if _, ok, err := r.Best(ProbeBytes(nil), Context{}); ok || err != nil {
		t.Errorf("Best = ok %v, err %v", ok, err)
	}
}

func TestIdentify_TiesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	for _, n := range []string{"first", "second", "third"} {
		r.Register(fixed(n, 55))
	}
	r.Register(fixed("low", 5))
	ms, _ := r.Identify(ProbeBytes(nil), Context{})
	got := names(ms)
	want := []string{"first", "second", "third", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestIdentify_NegativeScoreIgnored(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(fixed("neg", -10))
	ms, _ := r.Identify(ProbeBytes(nil), Context{})
	if len(ms) != 0 {
		t.Errorf("negative score matched: %v", names(ms))
	}
}

type failingReaderAt struct{}

func (failingReaderAt) ReadAt([]byte, int64) (int, error) { return 0, errors.New("disk on fire") }

func TestIdentify_ProbeReadErrorPropagates(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(fixed("a", 100))
	p := NewProbe(failingReaderAt{}, 100, 0)
	if _, err := r.Identify(p, Context{}); err == nil {
		t.Fatal("Identify ignored the probe read error")
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(fixed("a", 1)); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(fixed("a", 2)); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("err = %v", err)
	}
}

func TestScorer_Weights(t *testing.T) {
	var s Scorer
	ctx := Context{Container: "MPQ", Extension: ".BLP"}
	s.Extension(ctx, "blp")
	s.Container(ctx, "mpq")
	s.Magic(true)
	s.Check(true)
	s.Check(false)
	s.Check(true)
	if s.Score() != 25+50+50+5+5 {
		t.Errorf("Score = %d", s.Score())
	}
}

func TestScorer_RequireResetsAndLocks(t *testing.T) {
	var s Scorer
	s.Magic(true)
	s.Require(false)
	s.Check(true)
	s.Add(100)
	if s.Score() != 0 || !s.Failed() {
		t.Errorf("Score = %d after failed requirement", s.Score())
	}
}

func TestScorer_EmptyContextAddsNothing(t *testing.T) {
	var s Scorer
	s.Extension(Context{}, "")
	s.Container(Context{}, "")
	if s.Score() != 0 {
		t.Errorf("Score = %d", s.Score())
	}
}

func TestProbe_Bounds(t *testing.T) {
	data := make([]byte, DefaultProbeSize+100)
	copy(data, "DDS ")
	binary.LittleEndian.PutUint32(data[4:], 124)
	p := ProbeBytes(data)
	if p.Len() != DefaultProbeSize || p.StreamLength() != int64(len(data)) {
		t.Errorf("Len=%d StreamLength=%d", p.Len(), p.StreamLength())
	}
	if !p.Match(0, "DDS ") {
		t.Error("magic not matched")
	}
	if v, ok := p.U32(4, binary.LittleEndian); !ok || v != 124 {
		t.Errorf("U32 = %d, %v", v, ok)
	}
	if _, ok := p.Bytes(DefaultProbeSize-2, 4); ok {
		t.Error("read past the probe window succeeded")
	}
	if _, ok := p.U8(-1); ok {
		t.Error("negative offset accepted")
	}
}

func TestProbe_IsNotConsumed(t *testing.T) {
	r := source.FromBytes([]byte("GXT\x00rest"))
	r.Skip(2)
	p := NewProbe(r, r.Len(), 16)
	if !p.Match(0, "GXT\x00") || !p.Match(0, "GXT\x00") {
		t.Error("probe not re-readable")
	}
	if r.Pos() != 2 {
		t.Errorf("probe moved the stream to %d", r.Pos())
	}
}

func TestRegistry_Decode(t *testing.T) {
	magic := Func{
		FormatName: "one",
		ScoreFunc: func(p *Probe, ctx Context) int {
			var s Scorer
			s.Magic(p.Match(0, "ONE"))
			return s.Score()
		},
		DecodeFunc: func(r *source.Reader, ctx Context, s *Session) (*animation.Image, error) {
			r.Skip(3)
			v, err := r.U8()
			if err != nil {
				return nil, err
			}
			b, _ := pixel.NewBuffer(1, 1)
			b.Pix[0] = uint32(v)
			return animation.New(b), nil
		},
	}
	r := NewRegistry(nil)
	r.Register(magic)
	s := &Session{Bank: palette.NewBank(), Registry: r}

	img, name, err := r.Decode(source.FromBytes([]byte("ONE\x07")), Context{}, s)
	if err != nil || name != "one" || img.Pixels.Pix[0] != 7 {
		t.Fatalf("Decode = %v, %q, %v", img, name, err)
	}
	if _, _, err := r.Decode(source.FromBytes([]byte("TWO")), Context{}, s); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown: err = %v", err)
	}
	_, _, err = r.Decode(source.FromBytes([]byte("ONE")), Context{}, s)
	if !errors.Is(err, pixel.ErrTruncatedInput) {
		t.Errorf("short payload: err = %v", err)
	}
	s.Depth = MaxDepth + 1
	if _, _, err := r.Decode(source.FromBytes([]byte("ONE\x07")), Context{}, s); !errors.Is(err, ErrTooDeep) {
		t.Errorf("depth: err = %v", err)
	}
}

func FuzzIdentify(f *testing.F) {
	f.Add([]byte("DDS "))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		r := NewRegistry(nil)
		r.Register(Func{FormatName: "probe-all", ScoreFunc: func(p *Probe, ctx Context) int {
			var s Scorer
			for off := 0; off < 64; off += 4 {
				v, ok := p.U32(off, binary.BigEndian)
				s.Check(ok && v != 0)
			}
			return s.Score()
		}})
		p := ProbeBytes(data)
		a, err1 := r.Identify(p, Context{})
		b, err2 := r.Identify(p, Context{})
		if err1 != nil || err2 != nil || len(a) != len(b) {
			t.Fatal("scoring is not idempotent")
		}
	})
}
