package kernel

import (
	"time"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// CleanupConfig holds configurable cleanup parameters.
type CleanupConfig struct {
	// Interval is how often to run cleanup (default: 5 minutes).
	Interval time.Duration
	// RateLimiterRetention is how long an idle rate limit bucket is kept (default: 1 hour).
	RateLimiterRetention time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval:             5 * time.Minute,
		RateLimiterRetention: time.Hour,
	}
}

// StartCleanupLoop periodically evicts idle rate limit buckets.
// The returned function stops the loop.
func (r *RateLimiter) StartCleanupLoop(cfg CleanupConfig, logger logging.Logger) func() {
	if cfg.Interval <= 0 {
		cfg = DefaultCleanupConfig()
	}
	logger = logging.OrNop(logger)

	ticker := time.NewTicker(cfg.Interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = SafeExecute(logger, "rate_limiter_cleanup", func() error {
					removed := r.CleanupExpired(cfg.RateLimiterRetention)
					logger.Debug("cleanup_cycle_completed", "rate_limiters_removed", removed, "remaining", r.Len())
					return nil
				})
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}
