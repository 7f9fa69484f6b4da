package assetpix

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/deepteams/assetpix/animation"
	"github.com/deepteams/assetpix/detect"
	"github.com/deepteams/assetpix/formats/blp"
	"github.com/deepteams/assetpix/formats/dds"
	"github.com/deepteams/assetpix/formats/gxt"
	"github.com/deepteams/assetpix/formats/packed"
	"github.com/deepteams/assetpix/formats/tga"
	"github.com/deepteams/assetpix/formats/tim2"
	"github.com/deepteams/assetpix/palette"
	"github.com/deepteams/assetpix/pixel"
	"github.com/deepteams/assetpix/source"
	"github.com/deepteams/assetpix/texture"
)

func init() {
	image.RegisterFormat("dds", dds.Magic, dds.Decode, dds.DecodeConfig)
	image.RegisterFormat("blp", "BLP2", blp.Decode, blp.DecodeConfig)
	image.RegisterFormat("tim2", tim2.Magic, tim2.Decode, tim2.DecodeConfig)
	image.RegisterFormat("gxt", gxt.Magic, gxt.Decode, gxt.DecodeConfig)
}

type (
	// DecodedImage is a decoded picture with its optional palette, indices
	// and linked frames or mip levels.
	DecodedImage = animation.Image
	// Context describes where a stream came from.
	Context = detect.Context
	// Candidate is a format decoder that can be added to a session.
	Candidate = detect.Candidate

	Encoding   = texture.Encoding
	Direct     = texture.Direct
	Indexed    = texture.Indexed
	Compressed = texture.Compressed
	Texture    = texture.Texture
)

// ErrUnknownFormat is returned when no format claims a stream.
var ErrUnknownFormat = detect.ErrUnknownFormat

// Options configures a Session.
type Options struct {
	// MaxDimension rejects decoded images wider or taller than this.
	MaxDimension int
	// ProbeSize is how many leading bytes format detection looks at.
	ProbeSize int
	// MaxInflated bounds the size of a decompressed payload.
	MaxInflated int64
	// Logger receives debug output. Nil discards it.
	Logger hclog.Logger
}

// DefaultOptions returns the options NewSession uses for nil.
func DefaultOptions() *Options {
	return &Options{
		MaxDimension: pixel.MaxDimension,
		ProbeSize:    detect.DefaultProbeSize,
		MaxInflated:  packed.DefaultMaxInflated,
	}
}

// DefaultRegistry returns a registry holding the built-in formats, most
// specific first.
func DefaultRegistry(logger hclog.Logger) *detect.Registry {
	r := detect.NewRegistry(logger)
	for _, c := range []detect.Candidate{
		dds.Candidate{},
		blp.Candidate{},
		tim2.Candidate{},
		gxt.Candidate{},
		packed.Candidate{},
		tga.Candidate{},
	} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Session holds the state one decode job shares: the palette bank that
// indexed formats read from and write to, and the format registry. A
// Session is not safe for concurrent use; give each goroutine its own.
type Session struct {
	opts     Options
	bank     *palette.Bank
	registry *detect.Registry
	logger   hclog.Logger
}

// NewSession returns a session with the built-in formats registered.
func NewSession(opts *Options) *Session {
	o := DefaultOptions()
	if opts != nil {
		o = opts
	}
	logger := o.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Session{
		opts:     *o,
		bank:     palette.NewBank(),
		registry: DefaultRegistry(logger),
		logger:   logger.Named("assetpix"),
	}
}

// Bank returns the session palette bank.
func (s *Session) Bank() *palette.Bank { return s.bank }

// Registry returns the session format registry.
func (s *Session) Registry() *detect.Registry { return s.registry }

// Reset drops every palette, for moving on to an unrelated archive.
func (s *Session) Reset() { s.bank.Clear() }

// RegisterFormat adds a candidate after the built-in ones.
func (s *Session) RegisterFormat(c Candidate) error { return s.registry.Register(c) }

// ImportPalette reads a palette file (ACT, or a GIF, PNG or BMP whose
// palette is taken), adds it to the bank, selects it and returns its
// index.
func (s *Session) ImportPalette(rs io.ReadSeeker) (int, error) {
	p, err := palette.Import(rs)
	if err != nil {
		return 0, err
	}
	s.bank.Add(p)
	i := s.bank.Len() - 1
	return i, s.bank.Select(i)
}

func (s *Session) detectSession() *detect.Session {
	return &detect.Session{
		Bank:        s.bank,
		Registry:    s.registry,
		Logger:      s.logger,
		MaxInflated: s.opts.MaxInflated,
		ProbeSize:   s.opts.ProbeSize,
	}
}

// Identify ranks the formats that claim the stream, best first. An
// unknown stream yields no matches and no error.
func (s *Session) Identify(r io.ReaderAt, length int64, ctx Context) ([]detect.Match, error) {
	if ctx.Length == 0 {
		ctx.Length = length
	}
	return s.registry.Identify(detect.NewProbe(r, length, s.opts.ProbeSize), ctx)
}

// Decode identifies the stream and decodes it. It returns the winning
// format name. On failure the image is always nil.
func (s *Session) Decode(r io.ReadSeeker, ctx Context) (*DecodedImage, string, error) {
	src, err := source.New(r)
	if err != nil {
		return nil, "", fmt.Errorf("assetpix: %w", err)
	}
	return s.decode(src, ctx)
}

// DecodeBytes is Decode over an in-memory stream.
func (s *Session) DecodeBytes(data []byte, ctx Context) (*DecodedImage, string, error) {
	return s.decode(source.FromBytes(data), ctx)
}

func (s *Session) decode(src *source.Reader, ctx Context) (*DecodedImage, string, error) {
	img, name, err := s.registry.Decode(src, ctx, s.detectSession())
	if err != nil {
		s.logger.Debug("decode failed", "format", name, "error", err)
		return nil, name, err
	}
	if err := s.checkSize(img); err != nil {
		return nil, name, err
	}
	s.logger.Debug("decoded", "format", name, "width", img.Width(), "height", img.Height(),
		"frames", len(img.Frames()))
	return img, name, nil
}

func (s *Session) checkSize(img *DecodedImage) error {
	limit := s.opts.MaxDimension
	if limit <= 0 {
		return nil
	}
	for _, f := range img.Frames() {
		if f.Width() > limit {
			return pixel.Errorf(pixel.ErrInvalidDimension, "assetpix", "width", int64(f.Width()))
		}
		if f.Height() > limit {
			return pixel.Errorf(pixel.ErrInvalidDimension, "assetpix", "height", int64(f.Height()))
		}
	}
	return nil
}

// DecodeTexture decodes raw texture data whose shape is known. Indexed
// textures use the bank's current palette.
func (s *Session) DecodeTexture(t *Texture, data []byte) (*DecodedImage, error) {
	var p *palette.Palette
	if _, ok := t.Encoding.(Indexed); ok {
		var err error
		if p, err = s.bank.Current(); err != nil {
			return nil, err
		}
	}
	img, err := t.Decode(data, p)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(img); err != nil {
		return nil, err
	}
	return img, nil
}

// Decode identifies and decodes one stream with a fresh session.
func Decode(r io.ReadSeeker, ctx Context) (*DecodedImage, string, error) {
	return NewSession(nil).Decode(r, ctx)
}

// Identify returns the name of the best format for data, or "" when no
// format claims it.
func Identify(data []byte, ctx Context) (string, error) {
	ms, err := NewSession(nil).Identify(bytes.NewReader(data), int64(len(data)), ctx)
	if err != nil || len(ms) == 0 {
		return "", err
	}
	return ms[0].Candidate.Name(), nil
}

// ToNRGBA converts the first frame of img to an *image.NRGBA.
func ToNRGBA(img *DecodedImage) (*image.NRGBA, error) {
	if img == nil || img.Pixels == nil {
		return nil, errors.New("assetpix: no image")
	}
	return img.Pixels.NRGBA(), nil
}
