// Package source is the seekable byte source every format reader pulls its
// fields from. All reads are bounds-checked against the known stream length
// before any byte is read, so a short stream fails with
// pixel.ErrTruncatedInput instead of a partial value.
package source

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/deepteams/assetpix/pixel"
)

// Reader is a positioned view of a stream of known length. It is not safe
// for concurrent use.
type Reader struct {
	rs   io.ReadSeeker
	ra   io.ReaderAt // set when rs also implements ReaderAt
	size int64
	pos  int64
}

// New wraps rs. The length is taken by seeking to the end; the position
// starts where rs currently is.
func New(rs io.ReadSeeker) (*Reader, error) {
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	r := &Reader{rs: rs, size: size, pos: cur}
	r.ra, _ = rs.(io.ReaderAt)
	return r, nil
}

// FromBytes wraps an in-memory buffer.
func FromBytes(b []byte) *Reader {
	br := bytes.NewReader(b)
	return &Reader{rs: br, ra: br, size: int64(len(b))}
}

// Len returns the total stream length.
func (r *Reader) Len() int64 { return r.size }

// Pos returns the current position.
func (r *Reader) Pos() int64 { return r.pos }

// Remaining returns the number of bytes after the current position.
func (r *Reader) Remaining() int64 { return r.size - r.pos }

// Seek moves to an absolute (io.SeekStart), relative (io.SeekCurrent) or
// end-relative (io.SeekEnd) position. Positions outside [0, Len] are
// rejected without moving.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return r.pos, fmt.Errorf("source: invalid whence %d", whence)
	}
	if abs < 0 || abs > r.size {
		return r.pos, pixel.Errorf(pixel.ErrTruncatedInput, "source", "seek", abs)
	}
	r.pos = abs
	return abs, nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int64) error {
	_, err := r.Seek(n, io.SeekCurrent)
	return err
}

// Require fails unless n more bytes are available.
func (r *Reader) Require(n int64) error {
	if n < 0 || n > r.Remaining() {
		return pixel.Truncated("source", int(n), int(r.Remaining()))
	}
	return nil
}

// ReadN reads exactly n bytes.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if err := r.Require(int64(n)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Read implements io.Reader over the remaining bytes.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	n := min(int64(len(p)), r.Remaining())
	m, err := r.ReadAt(p[:n], r.pos)
	r.pos += int64(m)
	return m, err
}

// ReadAt reads len(p) bytes at off without moving the position.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > r.size {
		return 0, pixel.Truncated("source", len(p), int(max(0, r.size-off)))
	}
	if r.ra != nil {
		n, err := r.ra.ReadAt(p, off)
		if err == io.EOF && n == len(p) {
			err = nil
		}
		if err != nil {
			return n, fmt.Errorf("source: reading %d bytes at %d: %w", len(p), off, err)
		}
		return n, nil
	}
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("source: %w", err)
	}
	n, err := io.ReadFull(r.rs, p)
	if err != nil {
		return n, fmt.Errorf("source: reading %d bytes at %d: %w", len(p), off, err)
	}
	return n, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a 16-bit value in the given byte order.
func (r *Reader) U16(bo binary.ByteOrder) (uint16, error) {
	b, err := r.ReadN(2)
	if err != nil {
		return 0, err
	}
	return bo.Uint16(b), nil
}

// U32 reads a 32-bit value in the given byte order.
func (r *Reader) U32(bo binary.ByteOrder) (uint32, error) {
	b, err := r.ReadN(4)
	if err != nil {
		return 0, err
	}
	return bo.Uint32(b), nil
}

// U16LE reads a little-endian 16-bit value.
func (r *Reader) U16LE() (uint16, error) { return r.U16(binary.LittleEndian) }

// U16BE reads a big-endian 16-bit value.
func (r *Reader) U16BE() (uint16, error) { return r.U16(binary.BigEndian) }

// U32LE reads a little-endian 32-bit value.
func (r *Reader) U32LE() (uint32, error) { return r.U32(binary.LittleEndian) }

// U32BE reads a big-endian 32-bit value.
func (r *Reader) U32BE() (uint32, error) { return r.U32(binary.BigEndian) }

// Fields reads a fixed-size little-endian struct such as a file header.
func (r *Reader) Fields(v any) error {
	n := binary.Size(v)
	if n < 0 {
		return fmt.Errorf("source: %T has no fixed size", v)
	}
	b, err := r.ReadN(n)
	if err != nil {
		return err
	}
	_, err = binary.Decode(b, binary.LittleEndian, v)
	return err
}
