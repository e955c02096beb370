package ratelimiter

import (
	"sync"
	"time"
)

// SlidingWindow counts requests over a rolling window split into
// buckets. Cheaper than keeping a full request log while avoiding the
// boundary spikes of a fixed window.
type SlidingWindow struct {
	limit      int
	bucketSize time.Duration
	buckets    []int
	current    int
	last       time.Time
	mu         sync.Mutex
}

// NewSlidingWindow creates a limiter allowing limit requests per
// window, tracked across numBuckets buckets.
func NewSlidingWindow(limit int, window time.Duration, numBuckets int) *SlidingWindow {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	return &SlidingWindow{
		limit:      limit,
		bucketSize: window / time.Duration(numBuckets),
		buckets:    make([]int, numBuckets),
		last:       time.Now(),
	}
}

// Allow counts the request against the window if capacity remains.
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance()

	total := 0
	for _, count := range sw.buckets {
		total += count
	}
	if total >= sw.limit {
		return false
	}
	sw.buckets[sw.current]++
	return true
}

// advance expires buckets that fell out of the window.
func (sw *SlidingWindow) advance() {
	now := time.Now()
	steps := int(now.Sub(sw.last) / sw.bucketSize)
	if steps <= 0 {
		return
	}

	if steps >= len(sw.buckets) {
		for i := range sw.buckets {
			sw.buckets[i] = 0
		}
	} else {
		for i := 1; i <= steps; i++ {
			sw.buckets[(sw.current+i)%len(sw.buckets)] = 0
		}
	}
	sw.current = (sw.current + steps) % len(sw.buckets)
	sw.last = now
}
