package ratelimiter

import (
	"fmt"
	"time"
)

// RateLimiter admits or rejects a request at the moment it arrives.
type RateLimiter interface {
	// Allow returns true if the request is allowed.
	Allow() bool
}

// New builds a limiter for the named algorithm. rate is requests per
// second, burst is the instantaneous headroom.
func New(algorithm string, rate float64, burst int) (RateLimiter, error) {
	switch algorithm {
	case "", "tokenBucket":
		return NewTokenBucket(rate, burst), nil
	case "slidingWindow":
		return NewSlidingWindow(int(rate)+burst, time.Second, 10), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", algorithm)
	}
}
