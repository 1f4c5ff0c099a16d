// Package server implements per-connection throttling of inbound chat frames.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter is a token bucket refilled with Burst tokens per
// RefillInterval. A nil *rateLimiter allows everything.
type rateLimiter struct {
	limiter *rate.Limiter
	cfg     RateLimitConfig
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.Burst <= 0 {
		return nil
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}

	perSecond := rate.Limit(float64(cfg.Burst) / cfg.RefillInterval.Seconds())
	return &rateLimiter{
		limiter: rate.NewLimiter(perSecond, cfg.Burst),
		cfg:     cfg,
	}
}

func (rl *rateLimiter) allow() bool {
	if rl == nil {
		return true
	}
	return rl.limiter.Allow()
}
