// Package ratelimit gates requests before they reach the tweet pipeline.
// Each route+client pair gets its own token bucket; checks never block.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	interval time.Duration
}

// New builds a limiter admitting at most `requests` per `window` for each
// route+client key. A fresh key starts with a full bucket.
func New(requests int, window time.Duration) *Limiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		buckets:  make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		interval: window,
	}
}

// Allow reports whether a request for the route from the client may proceed,
// consuming one token when it does.
func (l *Limiter) Allow(route, client string) bool {
	return l.bucket(route + "|" + client).Allow()
}

// RetryAfter is the advisory wait for a rejected request: the time one token
// takes to refill.
func (l *Limiter) RetryAfter() time.Duration {
	return time.Duration(float64(l.interval) / float64(l.burst))
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}
