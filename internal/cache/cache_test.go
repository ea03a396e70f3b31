package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c, err := New[string, string](10)
	require.NoError(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v", time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestExpiryIsLazy(t *testing.T) {
	c, err := New[string, string](10)
	require.NoError(t, err)

	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	c.Set("k", "v", time.Second)

	c.now = func() time.Time { return fixed.Add(2 * time.Second) }
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCapacityEviction(t *testing.T) {
	c, err := New[string, string](2)
	require.NoError(t, err)

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)
	c.Set("c", "3", time.Minute)

	assert.LessOrEqual(t, c.Len(), 2)
	assert.GreaterOrEqual(t, c.Stats().Evictions, uint64(1))
}

func TestInvalidate(t *testing.T) {
	c, err := New[string, string](10)
	require.NoError(t, err)

	c.Set("k", "v", time.Minute)
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	c, err := New[string, string](10)
	require.NoError(t, err)

	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	c.Set("k", "v", time.Second)

	c.now = func() time.Time { return fixed.Add(2 * time.Second) }
	removed := c.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())
}

func TestFunctionKey_StableForSameInputs(t *testing.T) {
	k1 := FunctionKey("lint", []string{"a.py"}, map[string]any{"strict": true})
	k2 := FunctionKey("lint", []string{"a.py"}, map[string]any{"strict": true})
	assert.Equal(t, k1, k2)

	k3 := FunctionKey("lint", []string{"b.py"}, map[string]any{"strict": true})
	assert.NotEqual(t, k1, k3)
}
