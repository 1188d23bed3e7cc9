package poller_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trinityinblue/kia-live/internal/poller"
)

func TestActiveSetTryAcquireIsExclusive(t *testing.T) {
	a := poller.NewActiveSet()

	assert.True(t, a.TryAcquire(1))
	assert.False(t, a.TryAcquire(1))
	assert.True(t, a.Contains(1))
	assert.Equal(t, 1, a.Len())
}

func TestActiveSetReleaseAllowsReacquire(t *testing.T) {
	a := poller.NewActiveSet()

	a.TryAcquire(1)
	a.Release(1)

	assert.False(t, a.Contains(1))
	assert.True(t, a.TryAcquire(1))
}

func TestActiveSetTracksMultipleParentsIndependently(t *testing.T) {
	a := poller.NewActiveSet()

	assert.True(t, a.TryAcquire(1))
	assert.True(t, a.TryAcquire(2))
	assert.Equal(t, 2, a.Len())

	a.Release(1)
	assert.False(t, a.Contains(1))
	assert.True(t, a.Contains(2))
}
