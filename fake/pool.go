// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"github.com/momentics/hioload-xio/api"
)

// Pool is an api.BytePool that tracks outstanding buffers.
type Pool struct {
	// Max rejects requests above it with ErrResourceExhausted when > 0.
	Max int
	// FailNext rejects the next N requests.
	FailNext int

	Acquired int
	Released int
}

var _ api.BytePool = (*Pool)(nil)

// Acquire implements api.BytePool.
func (p *Pool) Acquire(n int) ([]byte, error) {
	if p.FailNext > 0 {
		p.FailNext--
		return nil, api.NewError(api.ErrCodeResourceExhausted, "fake pool: injected failure")
	}
	if p.Max > 0 && n > p.Max {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "fake pool: over ceiling")
	}
	p.Acquired++
	return make([]byte, n), nil
}

// Release implements api.BytePool.
func (p *Pool) Release(buf []byte) {
	if buf == nil {
		return
	}
	p.Released++
}

// Outstanding is the number of buffers acquired and not released.
func (p *Pool) Outstanding() int {
	return p.Acquired - p.Released
}
