// Package bootstrap turns a loaded Config into the running extraction stack.
// The API server, the worker and the in-process CLI all start from Build.
package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/MedRecord-NER/internal/application/extraction"
	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/database/redis"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/common"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/normalizer"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/splitter"
)

// normalizerInitTimeout bounds the startup probe of the segmentation service.
const normalizerInitTimeout = 10 * time.Second

// Components holds everything Build created.  Close releases it in reverse
// order.
type Components struct {
	Service    extraction.Service
	Pipeline   *medner.Pipeline
	Backend    *common.HTTPBackend
	Normalizer normalizer.Normalizer
	Splitter   splitter.Splitter
	Redis      *redis.Client // nil when redis is disabled

	closers []func() error
	logger  logging.Logger
}

// Build wires the model backend, tokenizer, normalizer (optionally cached in
// Redis), pipeline and splitter into an extraction.Service.  metrics may be
// nil.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.AppMetrics) (*Components, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Components{logger: logger}

	var cache redis.Cache
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(&redis.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		c.Redis = client
		c.closers = append(c.closers, client.Close)

		opts := []redis.CacheOption{redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Normalizer.CacheTTL)}
		if metrics != nil {
			opts = append(opts, redis.WithAccessRecorder(func(hit bool) {
				prometheus.RecordCacheAccess(metrics, "normalizer", hit)
			}))
		}
		cache = redis.NewRedisCache(client, logger, opts...)
	}

	norm, err := normalizer.New(cfg.Normalizer, cache, &http.Client{Timeout: cfg.Normalizer.Timeout}, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	initCtx, cancel := context.WithTimeout(ctx, normalizerInitTimeout)
	if err := norm.Init(initCtx); err != nil {
		logger.Warn("normalizer unavailable, tagging raw text",
			logging.String("provider", cfg.Normalizer.Provider), logging.Err(err))
	}
	cancel()
	c.Normalizer = norm

	backend, err := common.NewHTTPBackend(common.HTTPBackendConfig{
		Endpoint: cfg.Model.Endpoint,
		Model:    cfg.Model.Name,
		Version:  cfg.Model.Version,
		Timeout:  cfg.Model.Timeout,
	}, nil, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Backend = backend
	c.closers = append(c.closers, backend.Close)

	tagger, err := medner.NewBackendTagger(backend, medner.BackendTaggerConfig{
		ModelName:    cfg.Model.Name,
		ModelVersion: cfg.Model.Version,
		Labels:       medner.DefaultLabels,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	tok, err := loadTokenizer(cfg.Model.CodesPath, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	pipeOpts := []medner.PipelineOption{
		medner.WithNormalizer(norm),
		medner.WithLogger(logger),
		medner.WithConfig(medner.PipelineConfig{
			TokenBudget:    cfg.Pipeline.TokenBudget,
			WindowOverlap:  cfg.Pipeline.WindowOverlap,
			MaxSequenceLen: cfg.Pipeline.MaxSequenceLen,
			Concurrency:    cfg.Pipeline.Concurrency,
			MaxDocRunes:    cfg.Pipeline.MaxDocRunes,
		}),
	}
	if metrics != nil {
		pipeOpts = append(pipeOpts, medner.WithHooks(prometheus.NewPipelineRecorder(metrics)))
	}
	pipeline, err := medner.NewPipeline(tok, tagger, pipeOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Pipeline = pipeline

	split, err := splitter.New(cfg.Splitter, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Splitter = split

	svcOpts := []extraction.Option{
		extraction.WithLogger(logger),
		extraction.WithMaxDocRunes(cfg.Pipeline.MaxDocRunes),
	}
	if metrics != nil {
		svcOpts = append(svcOpts, extraction.WithSplitObserver(func(provider string, segments int, d time.Duration, err error) {
			prometheus.RecordSplit(metrics, provider, segments, d, err)
		}))
	}
	svc, err := extraction.NewService(pipeline, split, svcOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Service = svc
	return c, nil
}

// loadTokenizer reads the BPE merge codes.  Without a codes file the
// tokenizer is word-level, which only suits models trained that way.
func loadTokenizer(codesPath string, logger logging.Logger) (medner.Tokenizer, error) {
	if codesPath == "" {
		logger.Warn("model.codes_path is not set, using a word-level tokenizer")
	}
	return medner.LoadBPETokenizer(codesPath)
}

// Close releases the components in reverse creation order and returns the
// first error.
func (c *Components) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("component close failed", logging.Err(err))
			if first == nil {
				first = err
			}
		}
	}
	c.closers = nil
	return first
}

//Personal.AI order the ending
