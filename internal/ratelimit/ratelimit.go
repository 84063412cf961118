package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	mu         sync.Mutex
	tokens     int
	capacity   int
	rate       int // tokens per second
	lastRefill time.Time
	lastUsed   time.Time
}

// NewTokenBucket creates a new token bucket with the given rate and capacity
func NewTokenBucket(rate, capacity int) *TokenBucket {
	now := time.Now()
	return &TokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		rate:       rate,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.lastUsed = now
	if add := int(now.Sub(tb.lastRefill).Seconds() * float64(tb.rate)); add > 0 {
		tb.tokens = min(tb.tokens+add, tb.capacity)
		tb.lastRefill = now
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastUsed
}

// Limiter gates new connections globally and per remote host. A zero rate disables
// that half of the check.
type Limiter struct {
	mu        sync.Mutex
	global    *TokenBucket
	perHost   map[string]*TokenBucket
	hostRate  int
	burstSize int
}

// NewLimiter returns nil when both rates are zero; a nil *Limiter allows everything.
func NewLimiter(globalRate, perHostRate, burstSize int) *Limiter {
	if globalRate <= 0 && perHostRate <= 0 {
		return nil
	}
	if burstSize <= 0 {
		burstSize = max(globalRate, perHostRate)
	}
	l := &Limiter{
		perHost:   make(map[string]*TokenBucket),
		hostRate:  perHostRate,
		burstSize: burstSize,
	}
	if globalRate > 0 {
		l.global = NewTokenBucket(globalRate, burstSize)
	}
	return l
}

// Allow reports whether a new connection from host may be admitted.
func (l *Limiter) Allow(host string) bool {
	if l == nil {
		return true
	}
	if l.global != nil && !l.global.Allow() {
		return false
	}
	if l.hostRate <= 0 {
		return true
	}
	l.mu.Lock()
	bucket, ok := l.perHost[host]
	if !ok {
		bucket = NewTokenBucket(l.hostRate, l.burstSize)
		l.perHost[host] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}

// Prune drops host buckets unused for longer than idle and returns how many remain.
func (l *Limiter) Prune(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for host, bucket := range l.perHost {
		if bucket.idleSince().Before(cutoff) {
			delete(l.perHost, host)
		}
	}
	return len(l.perHost)
}
