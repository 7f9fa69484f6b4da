// Package pool keeps per-size-class scratch buffers for texture decoding.
// Buffers from Get are never shared between callers; a session that
// returns a buffer with Put must not touch it again.
package pool

import "sync"

// Size classes. Textures up to 2048×2048 at 32 bits per pixel fit the
// largest class; anything bigger is allocated directly.
const (
	Size4K  = 4 << 10
	Size64K = 64 << 10
	Size1M  = 1 << 20
	Size16M = 16 << 20
)

var sizes = [...]int{Size4K, Size64K, Size1M, Size16M}

func bucketIndex(size int) int {
	for i, s := range sizes {
		if size <= s {
			return i
		}
	}
	return -1
}

var bytePools [len(sizes)]sync.Pool

func init() {
	for i := range sizes {
		sz := sizes[i]
		bytePools[i].New = func() any {
			b := make([]byte, sz)
			return &b
		}
	}
}

// Get returns a byte slice of length size. Its contents are undefined.
func Get(size int) []byte {
	idx := bucketIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	bp := bytePools[idx].Get().(*[]byte)
	return (*bp)[:size]
}

// Put returns a slice obtained from Get. Oversized and foreign slices are
// dropped.
func Put(b []byte) {
	c := cap(b)
	idx := bucketIndex(c)
	if idx < 0 || c != sizes[idx] {
		return
	}
	b = b[:c]
	bytePools[idx].Put(&b)
}
