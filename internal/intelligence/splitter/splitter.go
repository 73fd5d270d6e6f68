// Package splitter divides a text that describes several patients into one
// segment per patient.
package splitter

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Provider names accepted in configuration.
const (
	ProviderLLM       = "llm"
	ProviderHeuristic = "heuristic"
)

// Splitter returns the per-patient segments of text.
type Splitter interface {
	Split(ctx context.Context, text string) ([]string, error)
	Name() string
}

var (
	blockPattern  = regexp.MustCompile(`(?s)---PATIENT_\d+---(.*?)---END---`)
	headerPattern = regexp.MustCompile(`(?i)^(Bệnh nhân|Patient|BN)\s*\d+`)
)

// ParseSegments extracts the ---PATIENT_n--- ... ---END--- blocks of out.
// Without any block, a new segment starts at every line that opens with
// "Bệnh nhân <n>", "Patient <n>" or "BN <n>".  Blank segments are dropped.
func ParseSegments(out string) []string {
	if matches := blockPattern.FindAllStringSubmatch(out, -1); len(matches) > 0 {
		segments := make([]string, 0, len(matches))
		for _, m := range matches {
			if s := strings.TrimSpace(m[1]); s != "" {
				segments = append(segments, s)
			}
		}
		return segments
	}
	return splitOnHeaders(out)
}

func splitOnHeaders(text string) []string {
	var (
		segments []string
		current  []string
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, "\n")); s != "" {
			segments = append(segments, s)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if headerPattern.MatchString(strings.TrimSpace(line)) && len(current) > 0 {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return segments
}

// Heuristic splits on patient header lines in the text itself.  It needs no
// network and is the fallback when no LLM is configured.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (*Heuristic) Name() string { return ProviderHeuristic }

func (*Heuristic) Split(_ context.Context, text string) ([]string, error) {
	return splitOnHeaders(text), nil
}

// SplitObserver is told about every split attempt, e.g. to record metrics.
type SplitObserver func(provider string, segments int, d time.Duration, err error)

// Fallback never fails: when the wrapped splitter errors or finds nothing,
// the whole text is returned as one segment together with a warning.
type Fallback struct {
	inner    Splitter
	logger   logging.Logger
	observer SplitObserver
}

// NewFallback wraps inner.  observer may be nil.
func NewFallback(inner Splitter, logger logging.Logger, observer SplitObserver) *Fallback {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Fallback{inner: inner, logger: logger.Named("splitter"), observer: observer}
}

// Inner returns the wrapped splitter.
func (f *Fallback) Inner() Splitter { return f.inner }

// Split returns the segments of text and a warning when the whole text was
// used instead.
func (f *Fallback) Split(ctx context.Context, text string) ([]string, string) {
	return f.SplitWith(ctx, f.inner, text)
}

// SplitWith is Split with a one-off splitter, such as an LLM splitter
// holding a caller-supplied key.
func (f *Fallback) SplitWith(ctx context.Context, s Splitter, text string) ([]string, string) {
	start := time.Now()
	segments, err := s.Split(ctx, text)
	if f.observer != nil {
		f.observer(s.Name(), len(segments), time.Since(start), err)
	}

	switch {
	case err != nil:
		f.logger.Warn("patient split failed, using whole text",
			logging.String("provider", s.Name()), logging.Err(err))
		return []string{text}, "patient split failed; the whole text was treated as one patient"
	case len(segments) == 0:
		f.logger.Warn("patient split returned no segments, using whole text",
			logging.String("provider", s.Name()))
		return []string{text}, "patient split found no segments; the whole text was treated as one patient"
	}
	f.logger.Debug("text split", logging.String("provider", s.Name()), logging.Int("segments", len(segments)))
	return segments, ""
}

// New builds the configured splitter.  The LLM provider without an API key
// still builds: per-request keys may supply one.
func New(cfg config.SplitterConfig, logger logging.Logger) (Splitter, error) {
	switch cfg.Provider {
	case ProviderHeuristic:
		return NewHeuristic(), nil
	case ProviderLLM, "":
		return NewLLM(LLMConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown splitter provider %q", cfg.Provider)
	}
}

//Personal.AI order the ending
