// ratelimit/ratelimit.go
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dalemusser/mailcheck/httputil"
)

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	burst    int     // maximum bucket size
	tokens   float64
	lastTime time.Time
}

// New creates a limiter that refills rate tokens per second up to burst.
// The bucket starts full.
func New(rate float64, burst int) *Limiter {
	return newAt(rate, burst, time.Now())
}

func newAt(rate float64, burst int, now time.Time) *Limiter {
	return &Limiter{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: now,
	}
}

// Allow reports whether one request is allowed, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.allowAt(1, time.Now())
}

// AllowN reports whether n requests are allowed, consuming n tokens if so.
func (l *Limiter) AllowN(n int) bool {
	return l.allowAt(n, time.Now())
}

func (l *Limiter) allowAt(n int, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(now)
	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return true
	}
	return false
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(time.Now())
	return l.tokens
}

// RetryAfter is how long until one token is available.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAfter(time.Now())
}

func (l *Limiter) retryAfter(now time.Time) time.Duration {
	l.refill(now)
	if l.tokens >= 1 || l.rate <= 0 {
		return 0
	}
	return time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastTime).Seconds()
	if elapsed > 0 {
		l.tokens = math.Min(l.tokens+elapsed*l.rate, float64(l.burst))
		l.lastTime = now
	}
}

// KeyLimiter provides per-key rate limiting (e.g., per client IP).
// Keys idle for longer than ttl are dropped on a later call.
type KeyLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	rate      float64
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

type entry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// NewKeyLimiter creates a rate limiter that tracks limits per key.
func NewKeyLimiter(rate float64, burst int, ttl time.Duration) *KeyLimiter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &KeyLimiter{
		limiters:  make(map[string]*entry),
		rate:      rate,
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

// Allow checks if one request for key is allowed.
func (kl *KeyLimiter) Allow(key string) bool {
	return kl.AllowN(key, 1)
}

// AllowN checks if n requests for key are allowed.
func (kl *KeyLimiter) AllowN(key string, n int) bool {
	ok, _ := kl.take(key, n, time.Now())
	return ok
}

// take consumes n tokens for key. When it refuses, it also returns how
// long the caller should wait before retrying.
func (kl *KeyLimiter) take(key string, n int, now time.Time) (bool, time.Duration) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if now.Sub(kl.lastSweep) > kl.ttl {
		kl.sweep(now)
	}

	e, ok := kl.limiters[key]
	if !ok {
		e = &entry{limiter: newAt(kl.rate, kl.burst, now)}
		kl.limiters[key] = e
	}
	e.lastSeen = now

	if e.limiter.allowAt(n, now) {
		return true, 0
	}
	e.limiter.mu.Lock()
	wait := e.limiter.retryAfter(now)
	e.limiter.mu.Unlock()
	return false, wait
}

func (kl *KeyLimiter) sweep(now time.Time) {
	for key, e := range kl.limiters {
		if now.Sub(e.lastSeen) > kl.ttl {
			delete(kl.limiters, key)
		}
	}
	kl.lastSweep = now
}

// Size returns the number of tracked keys.
func (kl *KeyLimiter) Size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

// KeyFunc extracts a key from an HTTP request for rate limiting.
type KeyFunc func(r *http.Request) string

// IPKeyFunc returns the host part of RemoteAddr. Run it behind
// chi's RealIP middleware so proxies report the client address.
func IPKeyFunc(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Config configures the rate limit middleware.
type Config struct {
	// Rate is requests per second. Required.
	Rate float64

	// Burst is the maximum burst size. Required.
	Burst int

	// KeyFunc extracts the rate limit key from requests.
	// Defaults to IPKeyFunc.
	KeyFunc KeyFunc

	// TTL is how long to keep inactive keys. Defaults to 1 hour.
	TTL time.Duration

	// Skip returns true to skip rate limiting for a request.
	Skip func(r *http.Request) bool

	// Logger receives a debug line per refused request.
	Logger *zap.Logger
}

// Middleware returns HTTP middleware that applies per-key rate limiting.
// Refused requests get 429 with a JSON error and a Retry-After header.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKeyFunc
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limiter := NewKeyLimiter(cfg.Rate, cfg.Burst, cfg.TTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyFunc(r)
			ok, wait := limiter.take(key, 1, time.Now())
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				cfg.Logger.Debug("rate limited",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
					zap.Int("retry_after_s", secs),
				)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httputil.JSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
