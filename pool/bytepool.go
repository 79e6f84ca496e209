// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-classed byte buffer pool implementing api.BytePool.

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-xio/api"
)

const (
	minClassShift = 6 // 64 bytes
	// DefaultMaxBuffer is the largest buffer a default pool serves.
	DefaultMaxBuffer = 16 << 20
	classDepth       = 256
)

// Stats is a snapshot of pool counters.
type Stats struct {
	Acquired  uint64
	Released  uint64
	Reused    uint64
	Exhausted uint64
}

// InUse is the number of buffers acquired but not yet released.
func (s Stats) InUse() int64 {
	return int64(s.Acquired) - int64(s.Released)
}

// BytePool keeps one free list per power-of-two size class.
type BytePool struct {
	max     int
	mu      sync.Mutex
	classes map[int]chan []byte

	acquired  atomic.Uint64
	released  atomic.Uint64
	reused    atomic.Uint64
	exhausted atomic.Uint64
}

var _ api.BytePool = (*BytePool)(nil)

// NewBytePool creates a pool serving requests up to max bytes.
// max <= 0 selects DefaultMaxBuffer.
func NewBytePool(max int) *BytePool {
	if max <= 0 {
		max = DefaultMaxBuffer
	}
	return &BytePool{
		max:     max,
		classes: make(map[int]chan []byte),
	}
}

// Max returns the largest request the pool serves.
func (b *BytePool) Max() int {
	return b.max
}

func classOf(n int) int {
	if n <= 1<<minClassShift {
		return minClassShift
	}
	return bits.Len(uint(n - 1))
}

func (b *BytePool) class(shift int) chan []byte {
	b.mu.Lock()
	ch, ok := b.classes[shift]
	if !ok {
		ch = make(chan []byte, classDepth)
		b.classes[shift] = ch
	}
	b.mu.Unlock()
	return ch
}

// Acquire returns a buffer of length n.
func (b *BytePool) Acquire(n int) ([]byte, error) {
	if n < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "negative buffer size")
	}
	if n > b.max {
		b.exhausted.Add(1)
		return nil, api.NewError(api.ErrCodeResourceExhausted, "buffer request exceeds pool ceiling").
			WithContext("size", n).
			WithContext("max", b.max)
	}

	shift := classOf(n)
	b.acquired.Add(1)
	select {
	case buf := <-b.class(shift):
		b.reused.Add(1)
		return buf[:n], nil
	default:
		return make([]byte, n, 1<<shift), nil
	}
}

// Release returns buf to its size class. Buffers not minted by the pool
// are dropped.
func (b *BytePool) Release(buf []byte) {
	if buf == nil {
		return
	}
	b.released.Add(1)
	c := cap(buf)
	if c < 1<<minClassShift || c&(c-1) != 0 || c > 2*b.max {
		return
	}
	select {
	case b.class(bits.Len(uint(c))-1) <- buf[:0]:
	default:
	}
}

// Stats returns current counters.
func (b *BytePool) Stats() Stats {
	return Stats{
		Acquired:  b.acquired.Load(),
		Released:  b.released.Load(),
		Reused:    b.reused.Load(),
		Exhausted: b.exhausted.Load(),
	}
}

var (
	defaultOnce sync.Once
	defaultPool *BytePool
)

// Default returns the process-wide pool used when no allocator is injected.
func Default() *BytePool {
	defaultOnce.Do(func() {
		defaultPool = NewBytePool(DefaultMaxBuffer)
	})
	return defaultPool
}
