package kernel

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Rate Limit Config & Result
// =============================================================================

// RateLimitConfig defines a token bucket per user.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// DefaultRateLimitConfig returns the default per-user limits.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Key        string        `json:"key"`
	Limit      float64       `json:"limit"`
	Burst      int           `json:"burst"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// =============================================================================
// Rate Limiter
// =============================================================================

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key (normally the user id).
// A config with RequestsPerSecond <= 0 disables limiting.
type RateLimiter struct {
	defaultConfig *RateLimitConfig
	userConfigs   map[string]*RateLimitConfig
	limiters      map[string]*keyLimiter
	now           func() time.Time
	mu            sync.Mutex
}

// NewRateLimiter creates a RateLimiter. A nil config uses DefaultRateLimitConfig.
func NewRateLimiter(defaultConfig *RateLimitConfig) *RateLimiter {
	if defaultConfig == nil {
		defaultConfig = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		defaultConfig: defaultConfig,
		userConfigs:   make(map[string]*RateLimitConfig),
		limiters:      make(map[string]*keyLimiter),
		now:           time.Now,
	}
}

// SetUserLimits overrides the limits of one key. Its bucket is rebuilt.
func (r *RateLimiter) SetUserLimits(key string, config *RateLimitConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userConfigs[key] = config
	delete(r.limiters, key)
}

// Check takes one token for key. A denied check consumes nothing and reports
// how long until a token is available.
func (r *RateLimiter) Check(key string) *RateLimitResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.configFor(key)
	result := &RateLimitResult{Key: key, Limit: cfg.RequestsPerSecond, Burst: cfg.Burst}
	if cfg.RequestsPerSecond <= 0 {
		result.Allowed = true
		return result
	}

	now := r.now()
	kl, ok := r.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))}
		r.limiters[key] = kl
	}
	kl.lastSeen = now

	if !kl.limiter.AllowN(now, 1) {
		missing := 1 - kl.limiter.TokensAt(now)
		result.RetryAfter = time.Duration(missing / cfg.RequestsPerSecond * float64(time.Second))
		return result
	}

	result.Allowed = true
	return result
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.limiters)
}

// CleanupExpired drops buckets idle for longer than retention and returns
// how many were removed.
func (r *RateLimiter) CleanupExpired(retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-retention)
	removed := 0
	for key, kl := range r.limiters {
		if kl.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
			removed++
		}
	}
	return removed
}

func (r *RateLimiter) configFor(key string) *RateLimitConfig {
	if cfg, ok := r.userConfigs[key]; ok && cfg != nil {
		return cfg
	}
	return r.defaultConfig
}
