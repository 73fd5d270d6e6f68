package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "MEDREC"

// envBoundKeys lists every leaf key so that viper.Unmarshal sees environment
// overrides even when the key is absent from the YAML file.
var envBoundKeys = []string{
	"server.host", "server.port", "server.mode", "server.max_body_size", "server.rate_limit_rps", "server.rate_limit_burst",
	"auth.enabled", "auth.secret", "auth.issuer", "auth.audience", "auth.required_role", "auth.leeway",
	"log.level", "log.format",
	"metrics.enabled", "metrics.namespace", "metrics.path",
	"model.endpoint", "model.name", "model.version", "model.timeout", "model.codes_path",
	"pipeline.token_budget", "pipeline.window_overlap", "pipeline.max_sequence_len", "pipeline.concurrency", "pipeline.max_doc_runes",
	"normalizer.provider", "normalizer.url", "normalizer.timeout", "normalizer.cache_ttl",
	"splitter.provider", "splitter.base_url", "splitter.api_key", "splitter.model", "splitter.timeout",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.key_prefix",
	"kafka.brokers", "kafka.group_id", "kafka.document_topic", "kafka.record_topic",
	"worker.concurrency", "worker.max_retries", "worker.retry_backoff",
}

// newViper builds a Viper instance with YAML file type, the MEDREC_ env
// prefix and a "." → "_" key replacer, so "model.endpoint" resolves to
// MEDREC_MODEL_ENDPOINT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envBoundKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges MEDREC_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from MEDREC_* environment variables and
// defaults alone.
//
//	MEDREC_<SECTION>_<FIELD>   e.g.  MEDREC_MODEL_ENDPOINT, MEDREC_SPLITTER_API_KEY
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrEnv loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// after every write.  A change that fails to parse or validate is reported
// to onError (when non-nil) and onChange is skipped.  Only settings that are
// safe to swap at runtime, such as the log level, should be applied by the
// callback.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps LoadOrEnv and panics on error.  For use in main().
func MustLoad(configPath string) *Config {
	cfg, err := LoadOrEnv(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
