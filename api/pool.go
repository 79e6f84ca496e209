// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Allocation contract injected into transports for frame and receive buffers.

package api

// BytePool provides reusable []byte buffers for frame assembly and receive
// accumulation.
type BytePool interface {
	// Acquire returns a slice of length n. It fails with ErrResourceExhausted
	// when n cannot be served.
	Acquire(n int) ([]byte, error)

	// Release returns a buffer obtained from Acquire.
	Release(buf []byte)
}
