// Package config defines all configuration structures for the MedRecord-NER
// service.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"` // 0 disables rate limiting
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// AuthConfig guards the extraction API with HMAC-signed bearer tokens.
type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Secret       string        `mapstructure:"secret"`
	Issuer       string        `mapstructure:"issuer"`
	Audience     string        `mapstructure:"audience"`
	RequiredRole string        `mapstructure:"required_role"`
	Leeway       time.Duration `mapstructure:"leeway"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig holds Prometheus exporter parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ModelConfig points at the token-classification model server and the BPE
// merge codes that must match the model's training.
type ModelConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Name      string        `mapstructure:"name"`
	Version   string        `mapstructure:"version"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CodesPath string        `mapstructure:"codes_path"`
}

// PipelineConfig tunes chunk planning and inference fan-out.
type PipelineConfig struct {
	TokenBudget    int `mapstructure:"token_budget"`
	WindowOverlap  int `mapstructure:"window_overlap"`
	MaxSequenceLen int `mapstructure:"max_sequence_len"`
	Concurrency    int `mapstructure:"concurrency"`
	MaxDocRunes    int `mapstructure:"max_doc_runes"`
}

// NormalizerConfig selects and configures the word-segmentation service.
type NormalizerConfig struct {
	Provider string        `mapstructure:"provider"` // "vncorenlp" | "identity"
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SplitterConfig configures the multi-patient splitter.
type SplitterConfig struct {
	Provider    string        `mapstructure:"provider"` // "llm" | "heuristic"
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	GroupID       string   `mapstructure:"group_id"`
	DocumentTopic string   `mapstructure:"document_topic"`
	RecordTopic   string   `mapstructure:"record_topic"`
	BatchSize     int      `mapstructure:"batch_size"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Model      ModelConfig      `mapstructure:"model"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Splitter   SplitterConfig   `mapstructure:"splitter"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be >= 0, got %v", c.Server.RateLimitRPS)
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required when auth is enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Pipeline
	p := c.Pipeline
	if p.TokenBudget < 1 {
		return fmt.Errorf("config: pipeline.token_budget must be >= 1, got %d", p.TokenBudget)
	}
	if p.WindowOverlap < 0 || p.WindowOverlap >= p.TokenBudget {
		return fmt.Errorf("config: pipeline.window_overlap must be in [0, token_budget), got %d", p.WindowOverlap)
	}
	if p.MaxSequenceLen < p.TokenBudget+2 {
		return fmt.Errorf("config: pipeline.max_sequence_len %d must leave room for token_budget plus two sentinels", p.MaxSequenceLen)
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("config: pipeline.concurrency must be >= 1, got %d", p.Concurrency)
	}

	switch c.Normalizer.Provider {
	case "identity":
	case "vncorenlp":
		if c.Normalizer.URL == "" {
			return fmt.Errorf("config: normalizer.url is required for provider vncorenlp")
		}
	default:
		return fmt.Errorf("config: normalizer.provider %q is invalid; expected vncorenlp|identity", c.Normalizer.Provider)
	}

	switch c.Splitter.Provider {
	case "llm", "heuristic":
	default:
		return fmt.Errorf("config: splitter.provider %q is invalid; expected llm|heuristic", c.Splitter.Provider)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.DocumentTopic == "" || c.Kafka.RecordTopic == "" {
		return fmt.Errorf("config: kafka.document_topic and kafka.record_topic are required")
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("config: worker.max_retries must be >= 0, got %d", c.Worker.MaxRetries)
	}

	return nil
}

//Personal.AI order the ending
