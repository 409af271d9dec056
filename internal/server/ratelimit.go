package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// callerLimiter tracks one token bucket per caller name.
type callerLimiter struct {
	rps      int
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func newCallerLimiter(rps int) *callerLimiter {
	if rps <= 0 {
		return nil
	}
	return &callerLimiter{
		rps:      rps,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the caller may proceed, consuming one token.
func (l *callerLimiter) Allow(caller string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[caller]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.rps*2) // burst = 2s worth
		l.limiters[caller] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
