package medner

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

func newTestPipeline(t *testing.T, tagger Tagger, opts ...PipelineOption) *Pipeline {
	t.Helper()
	p, err := NewPipeline(NewBPETokenizer(), tagger, opts...)
	require.NoError(t, err)
	return p
}

func assertResultInvariants(t *testing.T, original string, res *Result) {
	t.Helper()
	var located []LocatedEntity
	for _, e := range res.Entities {
		if !e.Located() {
			assert.Equal(t, Sentinel, e.End)
			continue
		}
		assert.Equal(t, e.Text, spanText(original, e), "entity %+v", e)
		for _, o := range located {
			if o.Type != EntityName || e.Type != EntityName {
				assert.False(t, overlaps(o.Start, o.End, e.Start, e.End), "%+v overlaps %+v", o, e)
			}
		}
		located = append(located, e)
	}
	assert.Equal(t, res.Entities, Dedup(res.Entities))
}

func TestPipeline_ShortDocument(t *testing.T) {
	text := "Bệnh nhân Nguyễn Văn An, 50 tuổi, nhập viện ngày 12/3."
	tagger := newRuleTagger(map[string]string{
		"Nguyễn": "B-NAME", "Văn": "I-NAME", "An,": "I-NAME",
		"50": "B-AGE", "tuổi,": "I-AGE",
		"12/3.": "B-DATE",
	})
	hooks := newRecordingHooks()
	p := newTestPipeline(t, tagger, WithHooks(hooks))

	res, err := p.Run(context.Background(), Document{ID: "doc-1", Text: text})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", res.DocumentID)
	assert.Equal(t, 1, res.Chunks)
	assert.False(t, res.Normalized)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.LocatorMisses)

	require.Len(t, res.Entities, 3)
	assert.Equal(t, LocatedEntity{Text: "Nguyễn Văn An", Type: EntityName, Start: 10, End: 23, Confidence: res.Entities[0].Confidence}, res.Entities[0])
	assert.Equal(t, "50 tuổi,", res.Entities[1].Text)
	assert.Equal(t, EntityAge, res.Entities[1].Type)
	assert.Equal(t, "12/3.", res.Entities[2].Text)
	assert.InDelta(t, 0.9, res.Entities[0].Confidence, 1e-9)
	assertResultInvariants(t, text, res)

	assert.Equal(t, map[string]int{"single": 1}, hooks.chunks)
	assert.Equal(t, map[string]int{"NAME": 1, "AGE": 1, "DATE": 1}, hooks.entities)
	assert.Equal(t, 1, hooks.documents)
	assert.NoError(t, hooks.docErr)
	assert.Equal(t, 1, hooks.inference)
}

func TestPipeline_NormalizedText(t *testing.T) {
	text := "Bệnh nhân Nguyễn Văn An ở Hà Nội."
	tagger := newRuleTagger(map[string]string{"Nguyễn_Văn_An": "B-NAME", "Hà_Nội.": "B-LOCATION"})
	p := newTestPipeline(t, tagger, WithNormalizer(&fakeNormalizer{
		available: true,
		phrases:   []string{"Nguyễn Văn An", "Hà Nội", "Bệnh nhân"},
	}))

	res, err := p.Run(context.Background(), Document{Text: text})
	require.NoError(t, err)
	assert.True(t, res.Normalized)

	require.Len(t, res.Entities, 2)
	assert.Equal(t, "Nguyễn Văn An", res.Entities[0].Text)
	assert.Equal(t, 10, res.Entities[0].Start)
	assert.Equal(t, "Hà Nội.", res.Entities[1].Text)
	assertResultInvariants(t, text, res)
	assert.Equal(t, []string{"Bệnh_nhân", "Nguyễn_Văn_An", "ở", "Hà_Nội."}, tagger.seen[0])
}

func TestPipeline_DecomposedInputKeepsOriginalOffsets(t *testing.T) {
	text := norm.NFD.String("Bệnh nhân Nguyễn Văn An nhập viện.")
	tagger := newRuleTagger(map[string]string{"Nguyễn": "B-NAME", "Văn": "I-NAME", "An": "I-NAME"})
	p := newTestPipeline(t, tagger)

	res, err := p.Run(context.Background(), Document{Text: text})
	require.NoError(t, err)

	require.Len(t, res.Entities, 1)
	e := res.Entities[0]
	assert.Equal(t, EntityName, e.Type)
	assert.Equal(t, 13, e.Start)
	assert.Equal(t, norm.NFD.String("Nguyễn Văn An"), e.Text)
	assert.Equal(t, "Nguyễn Văn An", norm.NFC.String(e.Text))
	assertResultInvariants(t, text, res)
	// the model sees composed text
	assert.Contains(t, tagger.seen[0], "Nguyễn")
}

func TestPipeline_NormalizerFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		norm   *fakeNormalizer
		reason string
		warn   string
	}{
		{"unavailable", &fakeNormalizer{}, FallbackUnavailable, "word segmentation unavailable; raw text was used"},
		{"error", &fakeNormalizer{available: true, err: stderrors.New("connection refused")}, FallbackError, "word segmentation failed; raw text was used"},
		{"empty", &fakeNormalizer{available: true, empty: true}, FallbackEmpty, "word segmentation returned empty text; raw text was used"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := newRecordingHooks()
			tagger := newRuleTagger(map[string]string{"An": "B-NAME"})
			p := newTestPipeline(t, tagger, WithNormalizer(tt.norm), WithHooks(hooks))

			res, err := p.Run(context.Background(), Document{Text: "Bệnh nhân An sốt"})
			require.NoError(t, err)
			assert.False(t, res.Normalized)
			assert.Equal(t, []string{tt.warn}, res.Warnings)
			assert.Equal(t, []string{tt.reason}, hooks.fallbacks)
			require.Len(t, res.Entities, 1)
			assert.Equal(t, "An", res.Entities[0].Text)
		})
	}
}

func TestPipeline_SentenceBatches(t *testing.T) {
	text := sentences(80, 80, 80, 60)
	tagger := newRuleTagger(map[string]string{"w100": "B-NAME", "w101": "I-NAME", "w250": "B-DATE"})
	hooks := newRecordingHooks()
	p := newTestPipeline(t, tagger, WithHooks(hooks))

	res, err := p.Run(context.Background(), Document{Text: text})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Chunks, 2)
	assert.Equal(t, res.Chunks, hooks.chunks["batch"])

	require.Len(t, res.Entities, 2)
	assert.Equal(t, "w100 w101", res.Entities[0].Text)
	assert.Equal(t, "w250", res.Entities[1].Text)
	assertResultInvariants(t, text, res)
}

func TestPipeline_EntityInWindowOverlapAppearsOnce(t *testing.T) {
	ws := words(300, map[int]string{200: "Bạch", 201: "Mai"})
	text := strings.Join(ws, " ")
	tagger := newRuleTagger(map[string]string{"Bạch": "B-ORGANIZATION", "Mai": "I-ORGANIZATION"})
	hooks := newRecordingHooks()
	p := newTestPipeline(t, tagger, WithHooks(hooks))

	res, err := p.Run(context.Background(), Document{Text: text})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, hooks.chunks["window"])
	assert.Empty(t, res.LocatorMisses)

	require.Len(t, res.Entities, 1)
	assert.Equal(t, "Bạch Mai", res.Entities[0].Text)
	assertResultInvariants(t, text, res)
}

func TestPipeline_EntityCutAtWindowEdgeIsSuperseded(t *testing.T) {
	ws := words(300, map[int]string{218: "Bệnh", 219: "viện", 220: "Bạch", 221: "Mai"})
	text := strings.Join(ws, " ")
	tagger := newRuleTagger(map[string]string{
		"Bệnh": "B-ORGANIZATION", "viện": "I-ORGANIZATION",
		"Bạch": "I-ORGANIZATION", "Mai": "I-ORGANIZATION",
	})
	p := newTestPipeline(t, tagger)

	res, err := p.Run(context.Background(), Document{Text: text})
	require.NoError(t, err)
	assert.Empty(t, res.LocatorMisses)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "Bệnh viện Bạch Mai", res.Entities[0].Text)
	assertResultInvariants(t, text, res)
}

func TestPipeline_LocatorMissesAreReported(t *testing.T) {
	hooks := newRecordingHooks()
	tagger := newRuleTagger(map[string]string{"An": "B-NAME"})
	// the normalizer rewrites a word so the tagged text is not in the original
	p := newTestPipeline(t, tagger, WithHooks(hooks),
		WithNormalizer(normalizerFunc(func(string) string { return "Bệnh nhân An" })))

	res, err := p.Run(context.Background(), Document{Text: "Bệnh nhân Lan"})
	require.NoError(t, err)
	require.Len(t, res.LocatorMisses, 1)
	assert.Equal(t, Sentinel, res.LocatorMisses[0].Start)
	require.Len(t, res.Entities, 1)
	assert.False(t, res.Entities[0].Located())
	assert.Equal(t, 1, hooks.misses)
}

type normalizerFunc func(string) string

func (f normalizerFunc) IsAvailable() bool { return true }

func (f normalizerFunc) Normalize(_ context.Context, text string) (string, error) {
	return f(text), nil
}

func TestPipeline_Validation(t *testing.T) {
	p := newTestPipeline(t, newRuleTagger(nil), WithConfig(PipelineConfig{MaxDocRunes: 5}))

	_, err := p.Run(context.Background(), Document{Text: "   "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = p.Run(context.Background(), Document{Text: "quá dài rồi"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentTooLarge))
	assert.True(t, errors.IsValidation(err))
}

func TestPipeline_TaggerFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"inference failure", stderrors.New("boom"), errors.ErrCodeAIInferenceFailed},
		{"model unavailable", errors.New(errors.ErrCodeAIModelNotAvailable, "not loaded"), errors.ErrCodeAIModelNotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tagger := newRuleTagger(nil)
			tagger.err = tt.err
			hooks := newRecordingHooks()
			p := newTestPipeline(t, tagger, WithHooks(hooks))

			res, err := p.Run(context.Background(), Document{Text: "Bệnh nhân sốt"})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Equal(t, 1, hooks.documents)
			assert.Error(t, hooks.docErr)
		})
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	tagger := newRuleTagger(nil)
	tagger.delay = time.Second
	p := newTestPipeline(t, tagger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Run(ctx, Document{Text: "Bệnh nhân sốt"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

// shortCounter under-reports token counts so the planner emits a chunk
// larger than the model accepts.
type shortCounter struct{ *BPETokenizer }

func (shortCounter) Count(string) int { return 1 }

func TestPipeline_TruncatesOversizedChunks(t *testing.T) {
	tagger := newRuleTagger(nil)
	p, err := NewPipeline(shortCounter{NewBPETokenizer()}, tagger,
		WithConfig(PipelineConfig{TokenBudget: 10, MaxSequenceLen: 12, Concurrency: 1}))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), Document{Text: strings.Join(words(15, nil), " ")})
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk 0 exceeded 10 tokens and was truncated"}, res.Warnings)
	require.Len(t, tagger.seen, 1)
	assert.Len(t, tagger.seen[0], 10)
}

func TestPipeline_BoundedConcurrency(t *testing.T) {
	tagger := newRuleTagger(nil)
	tagger.delay = 10 * time.Millisecond
	p := newTestPipeline(t, tagger, WithConfig(PipelineConfig{TokenBudget: 20, WindowOverlap: 5, Concurrency: 2}))

	res, err := p.Run(context.Background(), Document{Text: sentences(15, 15, 15, 15, 15, 15)})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Chunks)
	assert.EqualValues(t, 6, tagger.calls.Load())
	assert.LessOrEqual(t, tagger.maxSeen.Load(), int32(2))
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := NewPipeline(nil, newRuleTagger(nil))
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenizerNotLoaded))

	_, err = NewPipeline(NewBPETokenizer(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIModelNotAvailable))

	p, err := NewPipeline(NewBPETokenizer(), newRuleTagger(nil), WithConfig(PipelineConfig{TokenBudget: 50, MaxSequenceLen: 10}))
	require.NoError(t, err)
	assert.Equal(t, 52, p.cfg.MaxSequenceLen)
	assert.Equal(t, 4, p.cfg.Concurrency)
	assert.Nil(t, p.Normalizer())
	assert.NotNil(t, p.Tagger())
}

//Personal.AI order the ending
