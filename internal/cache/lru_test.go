package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_PutGet(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_EvictsOldest(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	assert.Equal(t, 2, c.Len())
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touching "a" makes "b" the eviction candidate.
	c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.True(t, ok)

	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_PutReplaces(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("a", 5)

	v, _ := c.Get("a")
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Remove(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Remove("a")
	c.Remove("never-there")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
