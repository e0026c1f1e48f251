package agent

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket that throttles LLM API calls. Providers
// meter by requests per minute, so the refill rate is configured that way
// and converted to per-second internally.
type RateLimiter struct {
	mu     sync.Mutex
	tokens float64
	max    float64
	perSec float64
	last   time.Time
}

func NewRateLimiter(maxBurst int, ratePerMinute float64) *RateLimiter {
	if maxBurst <= 0 {
		maxBurst = 10
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &RateLimiter{
		tokens: float64(maxBurst),
		max:    float64(maxBurst),
		perSec: ratePerMinute / 60.0,
		last:   time.Now(),
	}
}

// refill credits tokens for the time elapsed since the last call.
// Caller holds rl.mu.
func (rl *RateLimiter) refill(now time.Time) {
	rl.tokens += now.Sub(rl.last).Seconds() * rl.perSec
	if rl.tokens > rl.max {
		rl.tokens = rl.max
	}
	rl.last = now
}

// Wait blocks until a token is available or the context is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill(time.Now())
		if rl.tokens >= 1.0 {
			rl.tokens -= 1.0
			rl.mu.Unlock()
			return nil
		}
		wait := time.Duration((1.0 - rl.tokens) / rl.perSec * float64(time.Second))
		rl.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
