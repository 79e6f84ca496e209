package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-xio/api"
	"github.com/momentics/hioload-xio/pool"
)

func TestBytePoolReuse(t *testing.T) {
	bp := pool.NewBytePool(4096)
	b1, err := bp.Acquire(100)
	require.NoError(t, err)
	assert.Len(t, b1, 100)
	assert.Equal(t, 128, cap(b1))
	bp.Release(b1)

	b2, err := bp.Acquire(120)
	require.NoError(t, err)
	assert.Len(t, b2, 120)

	st := bp.Stats()
	assert.Equal(t, uint64(2), st.Acquired)
	assert.Equal(t, uint64(1), st.Reused)
	assert.Equal(t, int64(1), st.InUse())
}

func TestBytePoolSmallAndZero(t *testing.T) {
	bp := pool.NewBytePool(0)
	assert.Equal(t, pool.DefaultMaxBuffer, bp.Max())

	b, err := bp.Acquire(0)
	require.NoError(t, err)
	assert.Len(t, b, 0)
	assert.Equal(t, 64, cap(b))
}

func TestBytePoolCeiling(t *testing.T) {
	bp := pool.NewBytePool(1024)
	_, err := bp.Acquire(1025)
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.Equal(t, uint64(1), bp.Stats().Exhausted)

	_, err = bp.Acquire(-1)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestBytePoolDropsForeignBuffers(t *testing.T) {
	bp := pool.NewBytePool(1024)
	bp.Release(make([]byte, 100))
	bp.Release(nil)

	b, err := bp.Acquire(100)
	require.NoError(t, err)
	assert.Equal(t, 128, cap(b))
	assert.Zero(t, bp.Stats().Reused)
}

func TestDefaultPool(t *testing.T) {
	assert.Same(t, pool.Default(), pool.Default())
}
