package server

import "sync"

// BytePool recycles session receive buffers. Every session needs a full
// 1 MiB slab, so reuse matters more here than anywhere else in the
// process.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool creates a pool handing out slices with the given capacity.
func NewBytePool(defaultCap int) *BytePool {
	p := &BytePool{}
	p.pool.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return p
}

// Get returns a cleared slice of the requested length, reusing a pooled
// allocation when one fits.
func (p *BytePool) Get(size int) []byte {
	b := p.pool.Get().([]byte)
	if cap(b) < size {
		p.pool.Put(b)
		return make([]byte, size)
	}
	b = b[:size]
	clear(b)
	return b
}

// Put returns a slice to the pool for reuse.
func (p *BytePool) Put(b []byte) {
	if b == nil {
		return
	}
	p.pool.Put(b[:0])
}
