// Package ratelimit limits requests per client with token buckets, one bucket
// per client and rule.
package ratelimit

import (
	"sync"
	"time"
)

// bucket holds up to capacity tokens and refills continuously at rate per second.
type bucket struct {
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time
}

func newBucket(capacity int, rate float64, now time.Time) *bucket {
	return &bucket{capacity: float64(capacity), rate: rate, tokens: float64(capacity), last: now}
}

func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	}
	b.last = now
}

// take consumes one token if available. It reports the tokens left and when
// the bucket will be full again.
func (b *bucket) take(now time.Time) (ok bool, remaining int, full time.Time) {
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		ok = true
	}
	missing := b.capacity - b.tokens
	full = now.Add(time.Duration(missing / b.rate * float64(time.Second)))
	return ok, int(b.tokens), full
}

// nextToken returns how long until one token is available.
func (b *bucket) nextToken() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int // 0 when the request was not counted
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter tracks buckets per client. Idle buckets are pruned lazily.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = time.Hour
	}
	return &Limiter{
		cfg:       cfg,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastPrune: time.Now(),
	}
}

// Allow decides whether client may make a request to method+path.
func (l *Limiter) Allow(client, method, path string) Decision {
	if !l.cfg.Enabled || l.cfg.Exempt[client] {
		return Decision{Allowed: true}
	}
	if l.cfg.Blocked[client] {
		return Decision{}
	}

	rule, ok := l.cfg.match(method, path)
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	key := client + " " + rule.key()
	b, exists := l.buckets[key]
	if !exists {
		b = newBucket(rule.capacity(), float64(rule.Limit)/rule.Window.Seconds(), now)
		l.buckets[key] = b
	}

	allowed, remaining, reset := b.take(now)
	d := Decision{Allowed: allowed, Limit: rule.Limit, Remaining: remaining, Reset: reset}
	if !allowed {
		d.RetryAfter = b.nextToken()
	}
	return d
}

// pruneLocked drops buckets untouched for IdleTTL, at most once per IdleTTL.
func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.cfg.IdleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastPrune = now
}
