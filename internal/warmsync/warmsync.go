// Package warmsync provides the coordination primitives the warming phase
// of the consumer uses to avoid redundant repository load storms: request
// coalescing via singleflight, generalizing this codebase's warming
// service deduper, and a token-bucket rate limiter protecting the
// repository from warm-triggered bursts.
package warmsync

import (
	"context"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Limiter coalesces concurrent warm loads for the same key and rate-limits
// repository calls during warming.
type Limiter struct {
	group   singleflight.Group
	limiter *rate.Limiter
}

// New creates a Limiter. ratePerSec <= 0 disables rate limiting (every
// call is allowed immediately); burst <= 0 defaults to 1.
func New(ratePerSec float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	var rl *rate.Limiter
	if ratePerSec > 0 {
		rl = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Limiter{limiter: rl}
}

// Do runs fn for key, coalescing concurrent calls for the same key into a
// single execution, after waiting for rate-limiter permission (a no-op
// wait if rate limiting is disabled).
func (l *Limiter) Do(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	v, err, _ := l.group.Do(key, fn)
	return v, err
}
