package extraction

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/internal/domain/patient"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/splitter"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// mockPipeline is a mock implementation of Pipeline.
type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Run(ctx context.Context, doc medner.Document) (*medner.Result, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*medner.Result), args.Error(1)
}

type healthyTagger struct{ err error }

func (healthyTagger) Tag(context.Context, []string) ([]medner.TaggedToken, error) { return nil, nil }
func (t healthyTagger) Healthy(context.Context) error                             { return t.err }

type availableNormalizer bool

func (a availableNormalizer) IsAvailable() bool { return bool(a) }
func (availableNormalizer) Normalize(_ context.Context, text string) (string, error) {
	return text, nil
}

// introspectablePipeline also exposes its tagger and normalizer.
type introspectablePipeline struct {
	mockPipeline
	tagger     medner.Tagger
	normalizer medner.Normalizer
}

func (p *introspectablePipeline) Tagger() medner.Tagger         { return p.tagger }
func (p *introspectablePipeline) Normalizer() medner.Normalizer { return p.normalizer }

type staticSplitter struct {
	segments []string
	err      error
}

func (s staticSplitter) Split(context.Context, string) ([]string, error) { return s.segments, s.err }
func (staticSplitter) Name() string                                      { return "static" }

func entity(text, sub string, typ medner.EntityType) medner.LocatedEntity {
	byteStart := strings.Index(text, sub)
	start := len([]rune(text[:byteStart]))
	return medner.LocatedEntity{Text: sub, Type: typ, Start: start, End: start + len([]rune(sub)), Confidence: 0.9}
}

func result(entities ...medner.LocatedEntity) *medner.Result {
	return &medner.Result{Entities: entities, LocatorMisses: []medner.LocatedEntity{}, Warnings: []string{}}
}

func byText(text string) interface{} {
	return mock.MatchedBy(func(d medner.Document) bool { return d.Text == text })
}

func TestPredict(t *testing.T) {
	text := "Bệnh nhân Nguyễn Văn An"
	p := new(mockPipeline)
	p.On("Run", mock.Anything, mock.MatchedBy(func(d medner.Document) bool {
		return d.ID == "doc-1" && d.Text == text
	})).Return(result(entity(text, "Nguyễn Văn An", medner.EntityName)), nil)

	svc, err := NewService(p, nil)
	require.NoError(t, err)

	res, err := svc.Predict(context.Background(), &PredictInput{DocumentID: "doc-1", Text: text})
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, 10, res.Entities[0].Start)
	p.AssertExpectations(t)
}

func TestPredict_GeneratesDocumentID(t *testing.T) {
	p := new(mockPipeline)
	p.On("Run", mock.Anything, mock.MatchedBy(func(d medner.Document) bool { return d.ID != "" })).
		Return(result(), nil)
	svc, _ := NewService(p, nil)

	_, err := svc.Predict(context.Background(), &PredictInput{Text: "sốt"})
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestValidation(t *testing.T) {
	p := new(mockPipeline)
	svc, _ := NewService(p, nil, WithMaxDocRunes(5))
	ctx := context.Background()

	_, err := svc.Predict(ctx, &PredictInput{Text: "   "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.ExtractManual(ctx, &ExtractInput{Text: "quá dài rồi"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentTooLarge))

	_, err = svc.ExtractAuto(ctx, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	p.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExtractManual(t *testing.T) {
	text := "BN01 Nguyễn Văn An, nam, 45 tuổi, sốt"
	p := new(mockPipeline)
	p.On("Run", mock.Anything, byText(text)).Return(result(
		entity(text, "BN01", medner.EntityPatientID),
		entity(text, "Nguyễn Văn An", medner.EntityName),
		entity(text, "nam", medner.EntityGender),
		entity(text, "45", medner.EntityAge),
		entity(text, "sốt", medner.EntitySymptomAndDisease),
	), nil)
	svc, _ := NewService(p, nil)

	res, err := svc.ExtractManual(context.Background(), &ExtractInput{Text: text})
	require.NoError(t, err)
	assert.Len(t, res.Entities, 5)
	assert.Equal(t, "BN01", res.Record.PatientID)
	assert.Equal(t, "Nguyễn Văn An", res.Record.Name)
	assert.Equal(t, patient.GenderMale, res.Record.Gender)
	assert.Equal(t, []string{"sốt"}, res.Record.SymptomsAndDiseases)
	assert.Empty(t, res.Record.Warnings)
}

func TestExtractManual_PipelineError(t *testing.T) {
	p := new(mockPipeline)
	p.On("Run", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeAIModelNotAvailable, "down"))
	svc, _ := NewService(p, nil)

	_, err := svc.ExtractManual(context.Background(), &ExtractInput{Text: "sốt"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIModelNotAvailable))
}

func TestExtractAuto_SegmentsInOrder(t *testing.T) {
	first, second := "BN 1 Trần Thị Mai sốt", "BN 2 Lê Văn Hùng ho"
	p := new(mockPipeline)
	p.On("Run", mock.Anything, byText(first)).Return(result(entity(first, "Trần Thị Mai", medner.EntityName)), nil)
	p.On("Run", mock.Anything, byText(second)).Return(result(entity(second, "Lê Văn Hùng", medner.EntityName)), nil)

	svc, _ := NewService(p, staticSplitter{segments: []string{first, second}}, WithSegmentConcurrency(2))
	res, err := svc.ExtractAuto(context.Background(), &ExtractInput{DocumentID: "d", Text: first + "\n" + second})
	require.NoError(t, err)

	assert.Equal(t, "static", res.Provider)
	require.Len(t, res.Patients, 2)
	assert.Equal(t, 1, res.Patients[0].Index)
	assert.Equal(t, first, res.Patients[0].Text)
	assert.Equal(t, "Trần Thị Mai", res.Patients[0].Record.Name)
	assert.Equal(t, patient.GenderFemale, res.Patients[0].Record.Gender)
	assert.Equal(t, 2, res.Patients[1].Index)
	assert.Equal(t, "Lê Văn Hùng", res.Patients[1].Record.Name)
	// a name plus an inferred gender is enough to identify each patient
	assert.True(t, res.Patients[0].Identified)
	assert.True(t, res.Patients[1].Identified)
	assert.Empty(t, res.Warnings)
}

func TestExtractAuto_SegmentIDs(t *testing.T) {
	p := new(mockPipeline)
	p.On("Run", mock.Anything, mock.MatchedBy(func(d medner.Document) bool { return d.ID == "doc-1" })).
		Return(result(), nil)
	p.On("Run", mock.Anything, mock.MatchedBy(func(d medner.Document) bool { return d.ID == "doc-2" })).
		Return(result(), nil)

	svc, _ := NewService(p, staticSplitter{segments: []string{"a", "b"}})
	_, err := svc.ExtractAuto(context.Background(), &ExtractInput{DocumentID: "doc", Text: "a b"})
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestExtractAuto_SkipsFailedSegment(t *testing.T) {
	p := new(mockPipeline)
	p.On("Run", mock.Anything, byText("good")).Return(result(), nil)
	p.On("Run", mock.Anything, byText("bad")).Return(nil, errors.New(errors.ErrCodeAIInferenceFailed, "boom"))

	svc, _ := NewService(p, staticSplitter{segments: []string{"bad", "good"}})
	res, err := svc.ExtractAuto(context.Background(), &ExtractInput{Text: "bad good"})
	require.NoError(t, err)
	require.Len(t, res.Patients, 1)
	assert.Equal(t, 2, res.Patients[0].Index)
	assert.False(t, res.Patients[0].Identified)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "segment 1 was skipped")
}

func TestExtractAuto_AllSegmentsFail(t *testing.T) {
	p := new(mockPipeline)
	p.On("Run", mock.Anything, mock.Anything).Return(nil, errors.New(errors.ErrCodeAIModelNotAvailable, "down"))

	svc, _ := NewService(p, staticSplitter{segments: []string{"a", "b"}})
	_, err := svc.ExtractAuto(context.Background(), &ExtractInput{Text: "a b"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIModelNotAvailable))
}

func TestExtractAuto_SplitterFailureUsesWholeText(t *testing.T) {
	text := "một bệnh nhân"
	p := new(mockPipeline)
	p.On("Run", mock.Anything, byText(text)).Return(result(), nil)

	var observed []string
	svc, _ := NewService(p, staticSplitter{err: stderrors.New("quota")},
		WithSplitObserver(func(provider string, _ int, _ time.Duration, err error) {
			observed = append(observed, provider)
			assert.Error(t, err)
		}))

	res, err := svc.ExtractAuto(context.Background(), &ExtractInput{Text: text})
	require.NoError(t, err)
	require.Len(t, res.Patients, 1)
	assert.Equal(t, text, res.Patients[0].Text)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{"static"}, observed)
}

func TestExtractAuto_LLMWithoutKey(t *testing.T) {
	p := new(mockPipeline)
	llm := splitter.NewLLM(splitter.LLMConfig{Model: "m"}, nil)
	svc, _ := NewService(p, llm)

	_, err := svc.ExtractAuto(context.Background(), &ExtractInput{Text: "BN 1"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	p.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSplit_Heuristic(t *testing.T) {
	svc, _ := NewService(new(mockPipeline), nil)
	res, err := svc.Split(context.Background(), &ExtractInput{Text: "BN 1 sốt\nBN 2 ho"})
	require.NoError(t, err)
	assert.Equal(t, splitter.ProviderHeuristic, res.Provider)
	assert.Equal(t, []string{"BN 1 sốt", "BN 2 ho"}, res.Segments)
	assert.Empty(t, res.Warning)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pipeline   Pipeline
		split      splitter.Splitter
		wantStatus string
		wantModel  bool
		wantNorm   bool
		wantSplit  bool
	}{
		{
			name:       "everything ready",
			pipeline:   &introspectablePipeline{tagger: healthyTagger{}, normalizer: availableNormalizer(true)},
			split:      splitter.NewHeuristic(),
			wantStatus: StatusOnline, wantModel: true, wantNorm: true, wantSplit: true,
		},
		{
			name:       "model unhealthy",
			pipeline:   &introspectablePipeline{tagger: healthyTagger{err: stderrors.New("down")}, normalizer: availableNormalizer(false)},
			split:      splitter.NewLLM(splitter.LLMConfig{}, nil),
			wantStatus: StatusDegraded,
		},
		{
			name:       "opaque pipeline",
			pipeline:   new(mockPipeline),
			split:      splitter.NewLLM(splitter.LLMConfig{APIKey: "k"}, nil),
			wantStatus: StatusDegraded, wantSplit: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.pipeline, tt.split)
			require.NoError(t, err)
			h := svc.Health(context.Background())
			assert.Equal(t, tt.wantStatus, h.Status)
			assert.Equal(t, tt.wantModel, h.ModelLoaded)
			assert.Equal(t, tt.wantNorm, h.NormalizerAvailable)
			assert.Equal(t, tt.wantSplit, h.SplitterConfigured)
			assert.False(t, h.Timestamp.IsZero())
		})
	}
}

func TestNewService_NilPipeline(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAIModelNotAvailable))
}

//Personal.AI order the ending
