// Package ratelimit implements per-source admission control for the UDP
// query path using the token bucket algorithm, extended with a cool-down:
// once a source exhausts its bucket, it is refused outright for a fixed
// block duration rather than immediately earning back a single token.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Config configures a Limiter.
type Config struct {
	QPS             float64       // tokens replenished per second
	Burst           int           // maximum tokens in the bucket
	BlockDuration   time.Duration // cool-down once a source is denied
	CleanupInterval time.Duration // how often stale entries are swept
	MaxEntries      int           // tracked source keys, prevents unbounded growth
}

type bucket struct {
	tokens       float64
	last         time.Time
	blockedUntil time.Time
}

// Limiter is a single-level, per-source token bucket rate limiter with a
// cool-down: once a source's bucket is empty, further requests within
// BlockDuration are refused without touching the bucket at all, so the
// source cannot claw back a token mid-block by slowing down just enough.
type Limiter struct {
	qps   float64
	burst float64
	block time.Duration

	cleanupInterval time.Duration
	maxEntries      int

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time
}

// New builds a Limiter. QPS or Burst <= 0 disables rate limiting entirely
// (Allow always returns true).
func New(cfg Config) *Limiter {
	ci := cfg.CleanupInterval
	if ci <= 0 {
		ci = 60 * time.Second
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 65_536
	}
	return &Limiter{
		qps:             cfg.QPS,
		burst:           float64(cfg.Burst),
		block:           cfg.BlockDuration,
		cleanupInterval: ci,
		maxEntries:      maxEntries,
		buckets:         make(map[string]*bucket),
		lastCleanup:     time.Now(),
	}
}

// Allow reports whether a request from key (typically the source IP) may
// proceed, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.qps <= 0 || l.burst <= 0 {
		return true
	}

	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) > l.cleanupInterval {
		l.cleanupLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxEntries {
			l.cleanupLocked(now)
		}
		l.buckets[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	if now.Before(b.blockedUntil) {
		return false
	}

	elapsed := now.Sub(b.last).Seconds()
	b.last = now
	if elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+elapsed*l.qps)
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}

	if l.block > 0 {
		b.blockedUntil = now.Add(l.block)
	}
	return false
}

// cleanupLocked drops buckets that have neither been touched nor blocked
// recently. Must be called with l.mu held.
func (l *Limiter) cleanupLocked(now time.Time) {
	staleBefore := now.Add(-l.cleanupInterval)
	for k, b := range l.buckets {
		if b.last.Before(staleBefore) && !now.Before(b.blockedUntil) {
			delete(l.buckets, k)
		}
	}
	l.lastCleanup = now
}
