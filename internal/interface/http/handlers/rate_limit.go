package handlers

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// Token bucket per client. Repeated violations earn a temporary ban.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate per client.
	RequestsPerMinute int

	// BurstSize is the bucket capacity.
	BurstSize int

	// BanThreshold violations inside ViolationWindow trigger a ban of BanDuration.
	BanThreshold    int
	ViolationWindow time.Duration
	BanDuration     time.Duration

	// IdleTTL drops buckets untouched for this long.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns defaults suited to the workflow routes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         10,
		BanThreshold:      5,
		ViolationWindow:   5 * time.Minute,
		BanDuration:       10 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimiter limits requests per client key.
type RateLimiter struct {
	config RateLimitConfig
	keyFn  func(*http.Request) string
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	bans      map[string]time.Time
	lastSweep time.Time
}

type tokenBucket struct {
	tokens       float64
	lastRefill   time.Time
	violations   int
	lastViolated time.Time
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed    bool
	Banned     bool
	RetryAfter time.Duration
	Remaining  int
}

// NewRateLimiter creates a limiter. keyFn picks the client key; requests with
// an empty key are never limited.
func NewRateLimiter(config RateLimitConfig, keyFn func(*http.Request) string) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = def.BurstSize
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	return &RateLimiter{
		config:  config,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		bans:    make(map[string]time.Time),
	}
}

// Check consumes a token for key.
func (rl *RateLimiter) Check(key string) RateLimitResult {
	if key == "" {
		return RateLimitResult{Allowed: true, Remaining: rl.config.BurstSize}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	if until, ok := rl.bans[key]; ok {
		if now.Before(until) {
			return RateLimitResult{Banned: true, RetryAfter: until.Sub(now)}
		}
		delete(rl.bans, key)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: now}
		rl.buckets[key] = b
	}

	rate := float64(rl.config.RequestsPerMinute) / 60.0
	b.tokens = math.Min(float64(rl.config.BurstSize), b.tokens+now.Sub(b.lastRefill).Seconds()*rate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return RateLimitResult{Allowed: true, Remaining: int(b.tokens)}
	}

	if rl.config.ViolationWindow > 0 && now.Sub(b.lastViolated) > rl.config.ViolationWindow {
		b.violations = 0
	}
	b.violations++
	b.lastViolated = now

	retryAfter := time.Duration((1 - b.tokens) * 60 / float64(rl.config.RequestsPerMinute) * float64(time.Second))
	if rl.config.BanThreshold > 0 && b.violations >= rl.config.BanThreshold {
		rl.bans[key] = now.Add(rl.config.BanDuration)
		return RateLimitResult{Banned: true, RetryAfter: rl.config.BanDuration}
	}
	return RateLimitResult{RetryAfter: retryAfter}
}

// Reset forgets key's bucket and ban.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
	delete(rl.bans, key)
}

// sweep runs at most once per IdleTTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.IdleTTL {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.config.IdleTTL {
			delete(rl.buckets, key)
		}
	}
	for key, until := range rl.bans {
		if now.After(until) {
			delete(rl.bans, key)
		}
	}
}

// Middleware rejects limited requests with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.Check(rl.keyFn(r))
		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"rate_limited","message":"too many requests"}}`))
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		next.ServeHTTP(w, r)
	})
}
