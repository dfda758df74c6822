package ratelimit

import (
    "sync"
    "time"
)

type bucket struct {
    tokens float64
    last   time.Time
}

// minIdleTTL bounds how often idle buckets are swept.
const minIdleTTL = time.Minute

// Limiter is a per-key token bucket. Every key shares the same capacity and refill rate.
// Buckets left idle long enough to refill completely are evicted.
type Limiter struct {
    mu         sync.Mutex
    m          map[string]*bucket
    capacity   float64
    refillRate float64 // tokens per second
    idleTTL    time.Duration
    lastSweep  time.Time
    now        func() time.Time
}

// New returns a limiter; a non-positive capacity disables limiting.
func New(capacity, refillPerSec float64) *Limiter {
    l := &Limiter{
        m:          make(map[string]*bucket),
        capacity:   capacity,
        refillRate: refillPerSec,
        now:        time.Now,
    }
    if refillPerSec > 0 {
        l.idleTTL = time.Duration(capacity / refillPerSec * float64(time.Second))
        if l.idleTTL < minIdleTTL {
            l.idleTTL = minIdleTTL
        }
    }
    return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
    if l == nil || l.capacity <= 0 {
        return true
    }
    now := l.now()
    l.mu.Lock()
    defer l.mu.Unlock()
    l.sweepLocked(now)

    b, ok := l.m[key]
    if !ok {
        b = &bucket{tokens: l.capacity, last: now}
        l.m[key] = b
    }
    if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
        b.tokens += elapsed * l.refillRate
        if b.tokens > l.capacity {
            b.tokens = l.capacity
        }
        b.last = now
    }
    if b.tokens >= 1 {
        b.tokens--
        return true
    }
    return false
}

// sweepLocked drops buckets untouched for idleTTL. A limiter without refill keeps
// every bucket, since its tokens never come back.
func (l *Limiter) sweepLocked(now time.Time) {
    if l.idleTTL <= 0 {
        return
    }
    if l.lastSweep.IsZero() {
        l.lastSweep = now
        return
    }
    if now.Sub(l.lastSweep) < l.idleTTL {
        return
    }
    for k, b := range l.m {
        if now.Sub(b.last) >= l.idleTTL {
            delete(l.m, k)
        }
    }
    l.lastSweep = now
}
