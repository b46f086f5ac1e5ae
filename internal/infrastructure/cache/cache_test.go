package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New[[]string](15*time.Minute, func() time.Time { return now })

	c.Put("https://example.com/cal.ics", []string{"standup"})

	now = now.Add(14 * time.Minute)
	value, insertedAt, ok := c.Get("https://example.com/cal.ics")
	require.True(t, ok)
	assert.Equal(t, []string{"standup"}, value)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), insertedAt)

	now = now.Add(time.Minute)
	_, _, ok = c.Get("https://example.com/cal.ics")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTTLCacheMissAndDelete(t *testing.T) {
	c := New[int](time.Minute, nil)

	_, _, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("k", 1)
	c.Delete("k")
	_, _, ok = c.Get("k")
	assert.False(t, ok)
}
