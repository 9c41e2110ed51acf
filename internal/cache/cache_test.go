package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration, max int) (*Cache[string], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](ttl, max)
	c.now = clk.now
	return c, clk
}

func TestGetSetExpiry(t *testing.T) {
	c, clk := newTestCache(time.Minute, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	clk.t = clk.t.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Equal(t, 1, c.Len(), "expired entries stay until purged")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
}

func TestPurge(t *testing.T) {
	c, clk := newTestCache(time.Minute, 0)
	c.Set("old", "1")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("new", "2")
	clk.t = clk.t.Add(45 * time.Second)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestMaxEntriesEvictsClosestToExpiry(t *testing.T) {
	c, clk := newTestCache(time.Minute, 2)
	c.Set("a", "1")
	clk.t = clk.t.Add(time.Second)
	c.Set("b", "2")
	clk.t = clk.t.Add(time.Second)
	c.Set("c", "3")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	// overwriting an existing key never evicts
	c.Set("b", "22")
	assert.Equal(t, 2, c.Len())
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New[int](0, 0)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
	c.Delete("a")
	assert.Equal(t, 0, c.Len())
}
