package logging

import (
	"bytes"
	"io"
)

// PrefixWriter writes every complete line to the underlying writer with a
// prefix. A trailing partial line is held until its newline arrives.
type PrefixWriter struct {
	prefix []byte
	w      io.Writer
	buf    bytes.Buffer
}

// NewPrefixWriter wraps w.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{prefix: []byte(prefix), w: w}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.buf.Write(p)
	for {
		i := bytes.IndexByte(pw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := pw.buf.Next(i + 1)
		if _, err := pw.w.Write(append(append([]byte(nil), pw.prefix...), line...)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
