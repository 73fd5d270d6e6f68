// Package extraction provides the application-level service behind the HTTP
// API, the CLI and the queue worker: entity prediction, single-patient
// extraction and multi-patient extraction.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MedRecord-NER/internal/domain/patient"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/splitter"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Pipeline runs entity extraction for one document.  *medner.Pipeline
// satisfies it.
type Pipeline interface {
	Run(ctx context.Context, doc medner.Document) (*medner.Result, error)
}

// Service defines the extraction operations.
type Service interface {
	Predict(ctx context.Context, input *PredictInput) (*PredictResult, error)
	ExtractManual(ctx context.Context, input *ExtractInput) (*ManualResult, error)
	ExtractAuto(ctx context.Context, input *ExtractInput) (*AutoResult, error)
	Split(ctx context.Context, input *ExtractInput) (*SplitResult, error)
	Health(ctx context.Context) *Health
}

// PredictInput contains input for entity prediction.
type PredictInput struct {
	DocumentID string
	Text       string
}

// ExtractInput contains input for patient extraction.  APIKey, when set,
// replaces the configured splitter key for this request only.
type ExtractInput struct {
	DocumentID string
	Text       string
	APIKey     string
}

// PredictResult is the entity list and pipeline diagnostics of a document.
type PredictResult struct {
	*medner.Result
}

// ManualResult is the extraction of a text known to describe one patient.
type ManualResult struct {
	DocumentID string                 `json:"document_id"`
	Entities   []medner.LocatedEntity `json:"entities"`
	Record     *patient.PatientRecord `json:"patient_record"`
	Warnings   []string               `json:"warnings"`
}

// PatientSegment is one patient found by ExtractAuto.  Entity offsets point
// into Text.  Identified reports whether the record carries an ID, or a name
// with an age or gender.
type PatientSegment struct {
	Index      int                    `json:"patient_index"`
	Text       string                 `json:"original_text"`
	Entities   []medner.LocatedEntity `json:"entities"`
	Record     *patient.PatientRecord `json:"patient_record"`
	Identified bool                   `json:"identified"`
}

// AutoResult is the extraction of a text that may describe several patients.
type AutoResult struct {
	DocumentID string           `json:"document_id"`
	Provider   string           `json:"provider"`
	Patients   []PatientSegment `json:"patients"`
	Warnings   []string         `json:"warnings"`
}

// SplitResult holds the per-patient segments of a text.
type SplitResult struct {
	Provider string   `json:"provider"`
	Segments []string `json:"segments"`
	Warning  string   `json:"warning,omitempty"`
}

// Health reports the readiness of each dependency.
type Health struct {
	Status              string    `json:"status"`
	ModelLoaded         bool      `json:"model_loaded"`
	NormalizerAvailable bool      `json:"normalizer_available"`
	SplitterConfigured  bool      `json:"splitter_configured"`
	SplitterProvider    string    `json:"splitter_provider"`
	Timestamp           time.Time `json:"timestamp"`
}

// Health statuses.
const (
	StatusOnline   = "online"
	StatusDegraded = "degraded"
)

type service struct {
	pipeline           Pipeline
	base               splitter.Splitter
	fallback           *splitter.Fallback
	observer           splitter.SplitObserver
	maxRunes           int
	segmentConcurrency int
	logger             logging.Logger
}

// Option configures the service.
type Option func(*service)

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxDocRunes rejects texts longer than n runes.  0 disables the check.
func WithMaxDocRunes(n int) Option {
	return func(s *service) { s.maxRunes = n }
}

// WithSegmentConcurrency bounds how many patient segments are extracted at
// once.
func WithSegmentConcurrency(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.segmentConcurrency = n
		}
	}
}

// WithSplitObserver is told about every split attempt.
func WithSplitObserver(o splitter.SplitObserver) Option {
	return func(s *service) { s.observer = o }
}

// NewService creates the extraction service.  split may be nil, in which
// case the header-line heuristic is used.
func NewService(pipeline Pipeline, split splitter.Splitter, opts ...Option) (Service, error) {
	if pipeline == nil {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable, "extraction pipeline is nil")
	}
	if split == nil {
		split = splitter.NewHeuristic()
	}
	s := &service{
		pipeline:           pipeline,
		base:               split,
		segmentConcurrency: 2,
		logger:             logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("extraction")
	s.fallback = splitter.NewFallback(split, s.logger, s.observer)
	return s, nil
}

func (s *service) validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.ErrCodeBadRequest, "text is empty")
	}
	if s.maxRunes > 0 && utf8.RuneCountInString(text) > s.maxRunes {
		return errors.New(errors.ErrCodeDocumentTooLarge, "text exceeds the maximum size").
			WithDetail(fmt.Sprintf("limit=%d runes", s.maxRunes))
	}
	return nil
}

func documentID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// Predict runs entity extraction only.
func (s *service) Predict(ctx context.Context, input *PredictInput) (*PredictResult, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "input is required")
	}
	if err := s.validate(input.Text); err != nil {
		return nil, err
	}
	res, err := s.pipeline.Run(ctx, medner.Document{ID: documentID(input.DocumentID), Text: input.Text})
	if err != nil {
		return nil, err
	}
	return &PredictResult{Result: res}, nil
}

// ExtractManual treats the whole text as one patient.
func (s *service) ExtractManual(ctx context.Context, input *ExtractInput) (*ManualResult, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "input is required")
	}
	if err := s.validate(input.Text); err != nil {
		return nil, err
	}
	id := documentID(input.DocumentID)
	res, err := s.pipeline.Run(ctx, medner.Document{ID: id, Text: input.Text})
	if err != nil {
		return nil, err
	}
	rec := patient.Assemble(res.Entities, input.Text)

	s.logger.WithContext(ctx).Info("patient extracted",
		logging.String(logging.FieldDocumentID, id),
		logging.Int("entities", len(res.Entities)),
		logging.Float64("confidence", rec.Confidence),
		logging.Int("warnings", len(rec.Warnings)))
	return &ManualResult{DocumentID: id, Entities: res.Entities, Record: rec, Warnings: res.Warnings}, nil
}

// splitterFor applies a per-request API key to an LLM splitter.
func (s *service) splitterFor(apiKey string) (splitter.Splitter, error) {
	llm, ok := s.base.(*splitter.LLM)
	if !ok {
		return s.base, nil
	}
	llm = llm.WithAPIKey(apiKey)
	if !llm.Configured() {
		return nil, errors.New(errors.ErrCodeBadRequest, "no splitter API key configured or supplied")
	}
	return llm, nil
}

// Split returns the per-patient segments of the text.
func (s *service) Split(ctx context.Context, input *ExtractInput) (*SplitResult, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "input is required")
	}
	if err := s.validate(input.Text); err != nil {
		return nil, err
	}
	sp, err := s.splitterFor(input.APIKey)
	if err != nil {
		return nil, err
	}
	segments, warning := s.fallback.SplitWith(ctx, sp, input.Text)
	return &SplitResult{Provider: sp.Name(), Segments: segments, Warning: warning}, nil
}

// ExtractAuto splits the text into patients and extracts each one.  A
// segment that fails is skipped with a warning; the call fails only when
// every segment fails or the context ends.
func (s *service) ExtractAuto(ctx context.Context, input *ExtractInput) (*AutoResult, error) {
	split, err := s.Split(ctx, input)
	if err != nil {
		return nil, err
	}
	id := documentID(input.DocumentID)
	log := s.logger.WithContext(ctx).With(logging.String(logging.FieldDocumentID, id))

	out := &AutoResult{DocumentID: id, Provider: split.Provider, Patients: []PatientSegment{}, Warnings: []string{}}
	if split.Warning != "" {
		out.Warnings = append(out.Warnings, split.Warning)
	}

	segments := make([]*PatientSegment, len(split.Segments))
	failures := make([]error, len(split.Segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.segmentConcurrency)
	for i, text := range split.Segments {
		i, text := i, text
		g.Go(func() error {
			res, err := s.pipeline.Run(gctx, medner.Document{ID: fmt.Sprintf("%s-%d", id, i+1), Text: text})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return errors.Wrap(ctxErr, errors.ErrCodeTimeout, "extraction cancelled")
				}
				failures[i] = err
				log.Warn("segment extraction failed", logging.Int("segment", i+1), logging.Err(err))
				return nil
			}
			rec := patient.Assemble(res.Entities, text)
			segments[i] = &PatientSegment{
				Index:      i + 1,
				Text:       text,
				Entities:   res.Entities,
				Record:     rec,
				Identified: rec.HasMinimumInfo(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var firstErr error
	unidentified := 0
	for i, seg := range segments {
		if seg != nil {
			if !seg.Identified {
				unidentified++
			}
			out.Patients = append(out.Patients, *seg)
			continue
		}
		if firstErr == nil {
			firstErr = failures[i]
		}
		out.Warnings = append(out.Warnings, fmt.Sprintf("segment %d was skipped: %v", i+1, failures[i]))
	}
	if len(out.Patients) == 0 && firstErr != nil {
		return nil, firstErr
	}

	log.Info("patients extracted",
		logging.String("provider", split.Provider),
		logging.Int("segments", len(split.Segments)),
		logging.Int("patients", len(out.Patients)),
		logging.Int("unidentified", unidentified))
	return out, nil
}

// Health probes the model, reads the normalizer flag and inspects the
// splitter configuration.
func (s *service) Health(ctx context.Context) *Health {
	h := &Health{SplitterProvider: s.base.Name(), Timestamp: time.Now().UTC()}

	if tp, ok := s.pipeline.(interface{ Tagger() medner.Tagger }); ok {
		if hc, ok := tp.Tagger().(medner.HealthChecker); ok {
			h.ModelLoaded = hc.Healthy(ctx) == nil
		} else {
			h.ModelLoaded = tp.Tagger() != nil
		}
	}
	if np, ok := s.pipeline.(interface{ Normalizer() medner.Normalizer }); ok {
		if n := np.Normalizer(); n != nil {
			h.NormalizerAvailable = n.IsAvailable()
		}
	}
	if llm, ok := s.base.(*splitter.LLM); ok {
		h.SplitterConfigured = llm.Configured()
	} else {
		h.SplitterConfigured = true
	}

	h.Status = StatusOnline
	if !h.ModelLoaded {
		h.Status = StatusDegraded
	}
	return h
}

//Personal.AI order the ending
