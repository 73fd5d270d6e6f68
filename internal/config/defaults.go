package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost   = "0.0.0.0"
	DefaultServerPort   = 8080
	DefaultServerMode   = "release"
	DefaultMaxBodySize  = 1 << 20
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 120 * time.Second
	DefaultShutdown     = 15 * time.Second
	DefaultRateBurst    = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "medrec"
	DefaultMetricsPath      = "/metrics"

	DefaultModelEndpoint = "http://localhost:8501"
	DefaultModelName     = "phobert-medner"
	DefaultModelTimeout  = 30 * time.Second

	// The model was trained on 256-position sequences; two positions go to
	// the <s> and </s> sentinels.
	DefaultTokenBudget    = 220
	DefaultWindowOverlap  = 30
	DefaultMaxSequenceLen = 256
	DefaultConcurrency    = 4
	DefaultMaxDocRunes    = 100000

	DefaultNormalizerProvider = "vncorenlp"
	DefaultNormalizerURL      = "http://localhost:9000"
	DefaultNormalizerTimeout  = 10 * time.Second
	DefaultNormalizerCacheTTL = 24 * time.Hour

	DefaultSplitterProvider = "llm"
	DefaultSplitterBaseURL  = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultSplitterModel    = "gemini-2.5-flash"
	DefaultSplitterTimeout  = 60 * time.Second

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "medrec:"

	DefaultKafkaBroker        = "localhost:9092"
	DefaultKafkaGroupID       = "medrec-worker"
	DefaultKafkaDocumentTopic = "medrec.documents.extract"
	DefaultKafkaRecordTopic   = "medrec.records.extracted"

	DefaultWorkerConcurrency = 4
	DefaultWorkerMaxRetries  = 3
	DefaultWorkerBackoff     = time.Second
)

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set by the caller are left unchanged so explicit configuration
// always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdown
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultRateBurst
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Model ─────────────────────────────────────────────────────────────────
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = DefaultModelEndpoint
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModelName
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = DefaultModelTimeout
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.TokenBudget == 0 {
		cfg.Pipeline.TokenBudget = DefaultTokenBudget
	}
	if cfg.Pipeline.WindowOverlap == 0 {
		cfg.Pipeline.WindowOverlap = DefaultWindowOverlap
	}
	if cfg.Pipeline.MaxSequenceLen == 0 {
		cfg.Pipeline.MaxSequenceLen = DefaultMaxSequenceLen
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultConcurrency
	}
	if cfg.Pipeline.MaxDocRunes == 0 {
		cfg.Pipeline.MaxDocRunes = DefaultMaxDocRunes
	}

	// ── Normalizer ────────────────────────────────────────────────────────────
	if cfg.Normalizer.Provider == "" {
		cfg.Normalizer.Provider = DefaultNormalizerProvider
	}
	if cfg.Normalizer.URL == "" && cfg.Normalizer.Provider == "vncorenlp" {
		cfg.Normalizer.URL = DefaultNormalizerURL
	}
	if cfg.Normalizer.Timeout == 0 {
		cfg.Normalizer.Timeout = DefaultNormalizerTimeout
	}
	if cfg.Normalizer.CacheTTL == 0 {
		cfg.Normalizer.CacheTTL = DefaultNormalizerCacheTTL
	}

	// ── Splitter ──────────────────────────────────────────────────────────────
	if cfg.Splitter.Provider == "" {
		cfg.Splitter.Provider = DefaultSplitterProvider
	}
	if cfg.Splitter.BaseURL == "" {
		cfg.Splitter.BaseURL = DefaultSplitterBaseURL
	}
	if cfg.Splitter.Model == "" {
		cfg.Splitter.Model = DefaultSplitterModel
	}
	if cfg.Splitter.Timeout == 0 {
		cfg.Splitter.Timeout = DefaultSplitterTimeout
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.DocumentTopic == "" {
		cfg.Kafka.DocumentTopic = DefaultKafkaDocumentTopic
	}
	if cfg.Kafka.RecordTopic == "" {
		cfg.Kafka.RecordTopic = DefaultKafkaRecordTopic
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = DefaultWorkerMaxRetries
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = DefaultWorkerBackoff
	}
}

//Personal.AI order the ending
