package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// RateLimiter decides whether the client identified by key may proceed.
type RateLimiter interface {
	Allow(key string) (bool, RateLimitInfo)
}

// RateLimitInfo is the limiter state reported in response headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimitConfig struct {
	// KeyFunc extracts the client key.  Defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// SkipPaths bypass rate limiting.
	SkipPaths []string
}

// DefaultRateLimitConfig keys on client IP and never limits probes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		KeyFunc:   clientIPKey,
		SkipPaths: []string{"/healthz", "/readyz", "/metrics", "/api/health"},
	}
}

func clientIPKey(c *gin.Context) string { return c.ClientIP() }

type bucket struct {
	tokens float64
	seen   time.Time
}

// TokenBucketLimiter gives every key burst tokens refilled at rate per
// second.  One extraction request costs one token.
type TokenBucketLimiter struct {
	rate            float64
	burst           float64
	cleanupInterval time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

// NewTokenBucketLimiter starts a limiter.  With a positive cleanupInterval,
// idle buckets are dropped in the background until Stop.
func NewTokenBucketLimiter(rate float64, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		rate:            rate,
		burst:           float64(burst),
		cleanupInterval: cleanupInterval,
		buckets:         make(map[string]*bucket),
		stop:            make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// refilled returns the tokens b holds at now, capped at burst.
func (l *TokenBucketLimiter) refilled(b *bucket, now time.Time) float64 {
	return math.Min(l.burst, b.tokens+now.Sub(b.seen).Seconds()*l.rate)
}

func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	b.tokens = l.refilled(b, now)
	b.seen = now

	info := RateLimitInfo{Limit: int(l.burst), ResetAt: now.Add(time.Duration(float64(time.Second) / l.rate))}
	if b.tokens < 1 {
		return false, info
	}
	b.tokens--
	info.Remaining = int(b.tokens)
	return true, info
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets idle for a whole interval that would be full by now;
// recreating them later gives the same answer.
func (l *TokenBucketLimiter) cleanup() {
	now := time.Now()
	idle := now.Add(-l.cleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.seen.Before(idle) && l.refilled(b, now) >= l.burst {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine.  It is safe to call more than once.
func (l *TokenBucketLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// BucketCount returns the number of tracked clients.
func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit rejects requests over the limit with 429 and a Retry-After
// header.
func RateLimit(limiter RateLimiter, config RateLimitConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = clientIPKey
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		allowed, info := limiter.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
		if allowed {
			c.Next()
			return
		}

		wait := int(math.Ceil(time.Until(info.ResetAt).Seconds()))
		if wait < 1 {
			wait = 1
		}
		c.Header("Retry-After", strconv.Itoa(wait))
		abortWithError(c, errors.New(errors.ErrCodeTooManyRequests, "rate limit exceeded, retry later"))
	}
}

//Personal.AI order the ending
