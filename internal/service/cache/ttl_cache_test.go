package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes("fred:DEXUSEU", []byte("body"), time.Minute))

	b, ok, err := c.GetBytes("fred:DEXUSEU")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "body", string(b))

	now = now.Add(2 * time.Minute)
	_, ok, err = c.GetBytes("fred:DEXUSEU")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheCopiesValue(t *testing.T) {
	c := NewTTLCache()
	v := []byte("abc")
	require.NoError(t, c.SetBytes("k", v, 0))
	v[0] = 'z'

	b, ok, _ := c.GetBytes("k")
	assert.True(t, ok)
	assert.Equal(t, "abc", string(b))

	c.Purge()
	_, ok, _ = c.GetBytes("k")
	assert.False(t, ok)
}

var _ BytesCache = (*TTLCache)(nil)
var _ BytesCache = (*RedisCache)(nil)
