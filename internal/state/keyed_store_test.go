package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trinityinblue/kia-live/internal/state"
)

func TestKeyedStoreGetSetPop(t *testing.T) {
	s := state.NewKeyedStore[int]()

	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Set("a", 1)
	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, s.Contains("a"))

	popped, ok := s.Pop("a")
	assert.True(t, ok)
	assert.Equal(t, 1, popped)
	assert.False(t, s.Contains("a"))

	_, ok = s.Pop("a")
	assert.False(t, ok)
}

func TestKeyedStoreAsDictIsASnapshot(t *testing.T) {
	s := state.NewKeyedStore[int]()
	s.Set("a", 1)
	s.Set("b", 2)

	snap := s.AsDict()
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, snap)

	s.Set("c", 3)
	assert.NotContains(t, snap, "c")
}

func TestKeyedStoreValues(t *testing.T) {
	s := state.NewKeyedStore[string]()
	s.Set("a", "x")
	s.Set("b", "y")

	vals := s.Values()
	assert.ElementsMatch(t, []string{"x", "y"}, vals)
}

func TestKeyedStoreClear(t *testing.T) {
	s := state.NewKeyedStore[int]()
	s.Set("a", 1)
	s.Clear()
	assert.False(t, s.Contains("a"))
	assert.Empty(t, s.AsDict())
}

func TestKeyedStoreUpdateIsAtomic(t *testing.T) {
	s := state.NewKeyedStore[int]()
	s.Update(func(m map[string]int) {
		if _, ok := m["a"]; !ok {
			m["a"] = 1
		}
	})
	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}
