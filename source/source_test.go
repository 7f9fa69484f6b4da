package source

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/deepteams/assetpix/pixel"
)

// seekOnly hides the ReaderAt of a bytes.Reader.
type seekOnly struct{ io.ReadSeeker }

func readers(data []byte) map[string]*Reader {
	r, err := New(seekOnly{bytes.NewReader(data)})
	if err != nil {
		panic(err)
	}
	return map[string]*Reader{"bytes": FromBytes(data), "readseeker": r}
}

func TestReader_Fields(t *testing.T) {
	data := []byte{0x01, 0x34, 0x12, 0x12, 0x34, 0x78, 0x56, 0x34, 0x12, 'D', 'D', 'S', ' '}
	for name, r := range readers(data) {
		t.Run(name, func(t *testing.T) {
			if v, _ := r.U8(); v != 1 {
				t.Errorf("U8 = %d", v)
			}
			if v, _ := r.U16LE(); v != 0x1234 {
				t.Errorf("U16LE = %x", v)
			}
			if v, _ := r.U16BE(); v != 0x1234 {
				t.Errorf("U16BE = %x", v)
			}
			if v, _ := r.U32LE(); v != 0x12345678 {
				t.Errorf("U32LE = %x", v)
			}
			if b, _ := r.ReadN(4); string(b) != "DDS " {
				t.Errorf("ReadN = %q", b)
			}
			if r.Remaining() != 0 {
				t.Errorf("Remaining = %d", r.Remaining())
			}
		})
	}
}

func TestReader_BoundsCheckedBeforeRead(t *testing.T) {
	for name, r := range readers([]byte{1, 2, 3}) {
		t.Run(name, func(t *testing.T) {
			if _, err := r.U32LE(); !errors.Is(err, pixel.ErrTruncatedInput) {
				t.Fatalf("err = %v, want ErrTruncatedInput", err)
			}
			if r.Pos() != 0 {
				t.Errorf("failed read moved position to %d", r.Pos())
			}
			if v, err := r.U16LE(); err != nil || v != 0x0201 {
				t.Errorf("U16LE after failure = %x, %v", v, err)
			}
		})
	}
}

func TestReader_Seek(t *testing.T) {
	r := FromBytes(make([]byte, 100))
	if p, _ := r.Seek(10, io.SeekStart); p != 10 {
		t.Errorf("absolute seek = %d", p)
	}
	if p, _ := r.Seek(-4, io.SeekCurrent); p != 6 {
		t.Errorf("relative seek = %d", p)
	}
	if p, _ := r.Seek(-8, io.SeekEnd); p != 92 {
		t.Errorf("end seek = %d", p)
	}
	if _, err := r.Seek(101, io.SeekStart); !errors.Is(err, pixel.ErrTruncatedInput) {
		t.Errorf("past end: err = %v", err)
	}
	if r.Pos() != 92 {
		t.Errorf("rejected seek moved to %d", r.Pos())
	}
	if err := r.Skip(8); err != nil || r.Remaining() != 0 {
		t.Errorf("Skip to end: %v, remaining %d", err, r.Remaining())
	}
}

func TestReader_ReadAtKeepsPosition(t *testing.T) {
	for name, r := range readers([]byte("0123456789")) {
		t.Run(name, func(t *testing.T) {
			r.Skip(2)
			buf := make([]byte, 3)
			if _, err := r.ReadAt(buf, 6); err != nil || string(buf) != "678" {
				t.Fatalf("ReadAt = %q, %v", buf, err)
			}
			if b, _ := r.ReadN(2); string(b) != "23" {
				t.Errorf("ReadN after ReadAt = %q", b)
			}
		})
	}
}

func TestReader_Struct(t *testing.T) {
	var hdr struct {
		Magic  [4]byte
		Width  uint16
		Height uint16
	}
	r := FromBytes([]byte{'G', 'X', 'T', 0, 64, 0, 32, 0})
	if err := r.Fields(&hdr); err != nil {
		t.Fatal(err)
	}
	if string(hdr.Magic[:3]) != "GXT" || hdr.Width != 64 || hdr.Height != 32 {
		t.Errorf("decoded %+v", hdr)
	}
}

func TestReader_NewKeepsCurrentPosition(t *testing.T) {
	br := bytes.NewReader([]byte("abcdef"))
	br.Seek(2, io.SeekStart)
	r, err := New(br)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 6 || r.Pos() != 2 {
		t.Errorf("Len=%d Pos=%d", r.Len(), r.Pos())
	}
	all, _ := io.ReadAll(r)
	if string(all) != "cdef" {
		t.Errorf("ReadAll = %q", all)
	}
}
