// Package normalizer provides Vietnamese word segmenters for the NER
// pipeline.  A segmenter joins the syllables of multi-syllable words with
// "_", e.g. "Bệnh nhân" becomes "Bệnh_nhân".
package normalizer

import (
	"context"
	"net/http"

	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/database/redis"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Provider names accepted in configuration.
const (
	ProviderVnCoreNLP = "vncorenlp"
	ProviderIdentity  = "identity"
)

// Normalizer is a word segmenter with an explicit lifecycle.  Init may fail
// without making the service unusable: callers check IsAvailable and fall
// back to raw text.
type Normalizer interface {
	Init(ctx context.Context) error
	IsAvailable() bool
	Normalize(ctx context.Context, text string) (string, error)
}

// New builds the configured normalizer.  A non-nil cache wraps it with
// CachedNormalizer.
func New(cfg config.NormalizerConfig, cache redis.Cache, httpClient *http.Client, logger logging.Logger) (Normalizer, error) {
	var n Normalizer
	switch cfg.Provider {
	case ProviderIdentity:
		n = NewIdentity()
	case ProviderVnCoreNLP, "":
		v, err := NewVnCoreNLP(VnCoreNLPConfig{URL: cfg.URL, Timeout: cfg.Timeout}, httpClient, logger)
		if err != nil {
			return nil, err
		}
		n = v
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown normalizer provider %q", cfg.Provider)
	}
	if cache != nil {
		n = NewCached(n, cache, cfg.CacheTTL, logger)
	}
	return n, nil
}

// Identity returns text unchanged.  It stands in for a segmenter in tests
// and for deployments tagging pre-segmented input.
type Identity struct{}

func NewIdentity() *Identity { return &Identity{} }

func (*Identity) Init(context.Context) error { return nil }

func (*Identity) IsAvailable() bool { return true }

func (*Identity) Normalize(_ context.Context, text string) (string, error) { return text, nil }

//Personal.AI order the ending
