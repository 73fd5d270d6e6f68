package normalizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/database/redis"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
)

const cacheKeyPrefix = "wseg:"

// CachedNormalizer memoizes segmentation results in Redis, keyed by a hash
// of the input text.  Concurrent calls for the same text share one request.
type CachedNormalizer struct {
	inner  Normalizer
	cache  redis.Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewCached wraps inner.  ttl 0 uses the cache default.
func NewCached(inner Normalizer, cache redis.Cache, ttl time.Duration, logger logging.Logger) *CachedNormalizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CachedNormalizer{inner: inner, cache: cache, ttl: ttl, logger: logger.Named("normalizer.cache")}
}

func (c *CachedNormalizer) Init(ctx context.Context) error { return c.inner.Init(ctx) }

func (c *CachedNormalizer) IsAvailable() bool { return c.inner.IsAvailable() }

// Normalize returns the cached segmentation of text or computes and stores
// it.  Failures of the wrapped normalizer are never cached.
func (c *CachedNormalizer) Normalize(ctx context.Context, text string) (string, error) {
	var out string
	err := c.cache.GetOrSet(ctx, CacheKey(text), &out, c.ttl, func(ctx context.Context) (interface{}, error) {
		return c.inner.Normalize(ctx, text)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// CacheKey is the cache key for text.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

//Personal.AI order the ending
