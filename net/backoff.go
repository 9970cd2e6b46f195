package net

import (
	"math/rand"
	"time"
)

// Backoff produces randomized exponential backoff intervals.
// The zero value is invalid; Base must be set.
type Backoff struct {
	n    uint
	Base time.Duration
	// MaxDelay is the upper bound for intervals produced by Next.
	// If zero, it defaults to one minute.
	MaxDelay time.Duration
}

// Next returns the next backoff interval: an exponentially growing
// multiple of b.Base with jitter, capped at b.MaxDelay.
func (b *Backoff) Next() time.Duration {
	max := b.MaxDelay
	if max == 0 {
		max = time.Minute
	}
	b.n++
	d := b.Base * time.Duration(1<<(b.n-1))
	if d <= 0 || d > max {
		d = max
	}
	// Jitter in [d/2, d).
	return d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
}

// Reset restarts the backoff sequence from its base interval.
func (b *Backoff) Reset() {
	b.n = 0
}
