package ratelimit

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
    now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    l := New(2, 1)
    l.now = func() time.Time { return now }

    assert.True(t, l.Allow("10.0.0.1"))
    assert.True(t, l.Allow("10.0.0.1"))
    assert.False(t, l.Allow("10.0.0.1"))
    assert.True(t, l.Allow("10.0.0.2"), "keys have independent buckets")

    now = now.Add(1500 * time.Millisecond)
    assert.True(t, l.Allow("10.0.0.1"))
    assert.False(t, l.Allow("10.0.0.1"))
}

func TestLimiterEvictsIdleBuckets(t *testing.T) {
    now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    l := New(2, 1)
    l.now = func() time.Time { return now }

    assert.True(t, l.Allow("10.0.0.1"))
    assert.True(t, l.Allow("10.0.0.2"))
    assert.Len(t, l.m, 2)

    now = now.Add(30 * time.Second)
    assert.True(t, l.Allow("10.0.0.2"))

    now = now.Add(40 * time.Second)
    assert.True(t, l.Allow("10.0.0.3"))
    assert.Len(t, l.m, 2, "10.0.0.1 idle past the ttl is dropped")
    assert.NotContains(t, l.m, "10.0.0.1")
    assert.Contains(t, l.m, "10.0.0.2")
}

func TestLimiterWithoutRefillKeepsBuckets(t *testing.T) {
    now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    l := New(1, 0)
    l.now = func() time.Time { return now }

    assert.True(t, l.Allow("k"))
    now = now.Add(24 * time.Hour)
    assert.True(t, l.Allow("other"))
    assert.False(t, l.Allow("k"))
}

func TestLimiterDisabled(t *testing.T) {
    l := New(0, 0)
    for i := 0; i < 100; i++ {
        assert.True(t, l.Allow("k"))
    }
    var nilLimiter *Limiter
    assert.True(t, nilLimiter.Allow("k"))
}
