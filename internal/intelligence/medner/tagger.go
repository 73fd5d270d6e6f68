package medner

import (
	"context"
	"strconv"

	"github.com/turtacn/MedRecord-NER/internal/intelligence/common"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Sequence sentinels wrapped around every model input.
const (
	SequenceStart = "<s>"
	SequenceEnd   = "</s>"
)

// Tagger runs the sequence-labeling model.  The returned slice has
// len(tokens)+2 entries: the start sentinel, one per token, the end
// sentinel.
type Tagger interface {
	Tag(ctx context.Context, tokens []string) ([]TaggedToken, error)
}

// HealthChecker is implemented by taggers that can report readiness.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// BackendTaggerConfig configures a BackendTagger.
type BackendTaggerConfig struct {
	ModelName    string
	ModelVersion string
	Labels       []string
}

// BackendTagger implements Tagger over a common.ModelBackend.  The backend
// may answer with a probability matrix (argmax picks the label and its
// probability is the score) or with a plain label list.
type BackendTagger struct {
	backend common.ModelBackend
	cfg     BackendTaggerConfig
}

// NewBackendTagger wraps backend.  Empty Labels default to DefaultLabels.
func NewBackendTagger(backend common.ModelBackend, cfg BackendTaggerConfig) (*BackendTagger, error) {
	if backend == nil {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable, "model backend is nil")
	}
	if cfg.ModelName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "model name is required")
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = DefaultLabels
	}
	return &BackendTagger{backend: backend, cfg: cfg}, nil
}

// Tag sends <s> tokens... </s> to the backend.
func (t *BackendTagger) Tag(ctx context.Context, tokens []string) ([]TaggedToken, error) {
	surfaces := make([]string, 0, len(tokens)+2)
	surfaces = append(surfaces, SequenceStart)
	surfaces = append(surfaces, tokens...)
	surfaces = append(surfaces, SequenceEnd)

	resp, err := t.backend.Predict(ctx, &common.PredictRequest{
		ModelName:    t.cfg.ModelName,
		ModelVersion: t.cfg.ModelVersion,
		InputData:    common.EncodeTokenList(surfaces),
		InputFormat:  common.FormatTokens,
		Metadata:     map[string]string{"task": "ner", "num_tokens": strconv.Itoa(len(surfaces))},
	})
	if err != nil {
		return nil, err
	}

	var out []TaggedToken
	if raw, ok := resp.Outputs[common.OutputProbabilities]; ok {
		out, err = t.fromProbabilities(surfaces, raw)
	} else if raw, ok := resp.Outputs[common.OutputLabels]; ok {
		out, err = t.fromLabels(surfaces, raw, resp.Outputs[common.OutputScores])
	} else {
		err = errors.New(errors.ErrCodeInvalidTagSequence, "model returned no labels")
	}
	if err != nil {
		return nil, err
	}
	MarkContinuations(out)
	return out, nil
}

func (t *BackendTagger) fromProbabilities(surfaces []string, raw []byte) ([]TaggedToken, error) {
	probs, err := common.DecodeFloat64Matrix(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidTagSequence, "decode probability matrix")
	}
	if len(probs) != len(surfaces) {
		return nil, errors.Newf(errors.ErrCodeInvalidTagSequence, "probability rows %d != tokens %d", len(probs), len(surfaces))
	}

	out := make([]TaggedToken, len(surfaces))
	for i, row := range probs {
		if len(row) != len(t.cfg.Labels) {
			return nil, errors.Newf(errors.ErrCodeInvalidTagSequence, "row %d has %d columns, want %d labels", i, len(row), len(t.cfg.Labels))
		}
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = TaggedToken{Surface: surfaces[i], Label: t.cfg.Labels[best], Score: row[best]}
	}
	return out, nil
}

func (t *BackendTagger) fromLabels(surfaces []string, raw, rawScores []byte) ([]TaggedToken, error) {
	labels, err := common.DecodeTokenList(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidTagSequence, "decode label list")
	}
	if len(labels) != len(surfaces) {
		return nil, errors.Newf(errors.ErrCodeInvalidTagSequence, "labels %d != tokens %d", len(labels), len(surfaces))
	}

	var scores []float64
	if len(rawScores) > 0 {
		if scores, err = common.DecodeFloat64Slice(rawScores); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidTagSequence, "decode scores")
		}
		if len(scores) != len(labels) {
			return nil, errors.Newf(errors.ErrCodeInvalidTagSequence, "scores %d != labels %d", len(scores), len(labels))
		}
	}

	out := make([]TaggedToken, len(surfaces))
	for i := range surfaces {
		score := 1.0
		if scores != nil {
			score = scores[i]
		}
		out[i] = TaggedToken{Surface: surfaces[i], Label: labels[i], Score: score}
	}
	return out, nil
}

// Healthy delegates to the backend.
func (t *BackendTagger) Healthy(ctx context.Context) error {
	return t.backend.Healthy(ctx)
}

//Personal.AI order the ending
