package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket admits requests as long as tokens remain, refilling at a
// steady rate. Bursts up to the bucket capacity pass through.
type TokenBucket struct {
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a full bucket that refills at rate tokens per
// second up to capacity.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}
