package detect

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultProbeSize is the number of leading bytes a Probe exposes.
const DefaultProbeSize = 4096

// Probe is a bounded, re-readable view of the start of a stream. Scoring
// functions read it freely; nothing they do moves the stream.
//
// Accessors report ok=false when the requested bytes lie past the end of
// the stream or the probe window. That is a structural mismatch, not an
// error. Only a failing underlying read is an error, available from Err.
type Probe struct {
	buf    []byte
	length int64
	err    error
}

// NewProbe reads up to limit bytes from the start of r. length is the total
// stream length, or -1 when unknown.
func NewProbe(r io.ReaderAt, length int64, limit int) *Probe {
	if limit <= 0 {
		limit = DefaultProbeSize
	}
	n := limit
	if length >= 0 && length < int64(n) {
		n = int(length)
	}
	buf := make([]byte, n)
	m, err := r.ReadAt(buf, 0)
	p := &Probe{buf: buf[:m], length: length}
	if err != nil && !errors.Is(err, io.EOF) {
		p.err = fmt.Errorf("detect: reading probe: %w", err)
	}
	if length < 0 && m < limit {
		p.length = int64(m)
	}
	return p
}

// ProbeBytes probes an in-memory stream.
func ProbeBytes(b []byte) *Probe {
	n := min(len(b), DefaultProbeSize)
	return &Probe{buf: b[:n:n], length: int64(len(b))}
}

// Err returns the read error hit while filling the probe, if any.
func (p *Probe) Err() error { return p.err }

// Len returns the number of bytes available to scoring.
func (p *Probe) Len() int { return len(p.buf) }

// StreamLength returns the total stream length, -1 when unknown.
func (p *Probe) StreamLength() int64 { return p.length }

// Bytes returns n bytes at off. The slice must not be modified.
func (p *Probe) Bytes(off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off+n > len(p.buf) {
		return nil, false
	}
	return p.buf[off : off+n : off+n], true
}

// Match reports whether the bytes at off equal magic.
func (p *Probe) Match(off int, magic string) bool {
	b, ok := p.Bytes(off, len(magic))
	return ok && string(b) == magic
}

// U8 returns the byte at off.
func (p *Probe) U8(off int) (uint8, bool) {
	b, ok := p.Bytes(off, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// U16 returns the 16-bit value at off.
func (p *Probe) U16(off int, bo binary.ByteOrder) (uint16, bool) {
	b, ok := p.Bytes(off, 2)
	if !ok {
		return 0, false
	}
	return bo.Uint16(b), true
}

// U32 returns the 32-bit value at off.
func (p *Probe) U32(off int, bo binary.ByteOrder) (uint32, bool) {
	b, ok := p.Bytes(off, 4)
	if !ok {
		return 0, false
	}
	return bo.Uint32(b), true
}
