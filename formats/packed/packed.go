// Package packed unwraps compressed asset payloads (zlib, zstd, bzip2) and
// hands the inflated bytes back to the registry for identification.
//
// The inner decode runs with Context.Container set to the compression
// method, so formats that only live inside such wrappers can claim it.
package packed

import (
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/source"
)

// DefaultMaxInflated bounds an inflated payload when the session sets no
// limit.
const DefaultMaxInflated = 256 << 20

var (
	ErrNotPacked  = errors.New("packed: no known compression header")
	ErrTooLarge   = errors.New("packed: inflated payload exceeds limit")
	ErrNoRegistry = errors.New("packed: session has no registry")
)

// Method is one compression wrapper.
type Method struct {
	Name       string
	Extensions []string
	match      func(p *detect.Probe) bool
	open       func(r io.Reader) (io.ReadCloser, error)
}

var methods = []Method{
	{
		Name:       "zlib",
		Extensions: []string{"z", "zlib"},
		match:      isZlib,
		open:       zlib.NewReader,
	},
	{
		Name:       "zstd",
		Extensions: []string{"zst", "zstd"},
		match:      func(p *detect.Probe) bool { return p.Match(0, "\x28\xb5\x2f\xfd") },
		open: func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
	},
	{
		Name:       "bzip2",
		Extensions: []string{"bz2", "bzip2"},
		match: func(p *detect.Probe) bool {
			lvl, ok := p.U8(3)
			return p.Match(0, "BZh") && ok && lvl >= '1' && lvl <= '9'
		},
		open: func(r io.Reader) (io.ReadCloser, error) {
			return bzip2.NewReader(r, &bzip2.ReaderConfig{})
		},
	},
}

// isZlib checks the RFC 1950 header: deflate with a window of at most
// 32K, a valid check value and no preset dictionary.
func isZlib(p *detect.Probe) bool {
	h, ok := p.Bytes(0, 2)
	if !ok {
		return false
	}
	cmf, flg := h[0], h[1]
	return cmf&0x0f == 8 && cmf>>4 <= 7 && flg&0x20 == 0 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Methods returns the supported wrappers in detection order.
func Methods() []Method { return append([]Method(nil), methods...) }

// Lookup returns the wrapper whose header starts the probe.
func Lookup(p *detect.Probe) (Method, bool) {
	for _, m := range methods {
		if m.match(p) {
			return m, true
		}
	}
	return Method{}, false
}

// Inflate decompresses r with m, failing once more than limit bytes come
// out.
func (m Method) Inflate(r io.Reader, limit int64) ([]byte, error) {
	zr, err := m.open(r)
	if err != nil {
		return nil, fmt.Errorf("packed: %s: %w", m.Name, err)
	}
	defer zr.Close()
	data, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("packed: %s: %w", m.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// Candidate detects compressed wrappers and decodes their payload.
type Candidate struct{}

func (Candidate) Name() string { return "packed" }

func (Candidate) Score(p *detect.Probe, ctx detect.Context) int {
	m, ok := Lookup(p)
	var s detect.Scorer
	s.Require(ok)
	s.Magic(true)
	s.Extension(ctx, m.Extensions...)
	s.Check(p.StreamLength() > 8)
	return s.Score()
}

func (Candidate) Decode(r *source.Reader, ctx detect.Context, s *detect.Session) (*animation.Image, error) {
	if s == nil || s.Registry == nil {
		return nil, ErrNoRegistry
	}
	m, ok := Lookup(detect.NewProbe(r, r.Len(), 16))
	if !ok {
		return nil, ErrNotPacked
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	limit := s.MaxInflated
	if limit <= 0 {
		limit = DefaultMaxInflated
	}
	data, err := m.Inflate(r, limit)
	if err != nil {
		return nil, err
	}
	log := s.Log().Named("packed")
	log.Debug("inflated payload", "method", m.Name, "packed", r.Len(), "inflated", len(data))

	inner := *s
	inner.Depth++
	img, name, err := s.Registry.Decode(source.FromBytes(data), detect.Context{Container: m.Name}, &inner)
	if err != nil {
		return nil, err
	}
	log.Debug("payload decoded", "method", m.Name, "format", name)
	return img, nil
}
