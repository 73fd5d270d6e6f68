package medner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Normalizer rewrites text into the word-segmented form the model was
// trained on, with multi-syllable words joined by "_".
type Normalizer interface {
	IsAvailable() bool
	Normalize(ctx context.Context, text string) (string, error)
}

// Normalizer fallback reasons.
const (
	FallbackUnavailable = "unavailable"
	FallbackError       = "error"
	FallbackEmpty       = "empty"
)

// Document is one unit of pipeline input.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Result is the pipeline output for one document.  Entities are ordered by
// start with sentinel entities last.
type Result struct {
	DocumentID    string          `json:"document_id,omitempty"`
	Entities      []LocatedEntity `json:"entities"`
	Chunks        int             `json:"chunks"`
	LocatorMisses []LocatedEntity `json:"locator_misses"`
	SoftFixes     int             `json:"soft_fixes"`
	Warnings      []string        `json:"warnings"`
	Normalized    bool            `json:"normalized"`
}

// PipelineConfig tunes planning and inference fan-out.
type PipelineConfig struct {
	TokenBudget    int
	WindowOverlap  int
	MaxSequenceLen int
	Concurrency    int
	MaxDocRunes    int
}

// DefaultPipelineConfig returns the limits the model was trained with.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TokenBudget:    DefaultTokenBudget,
		WindowOverlap:  DefaultWindowOverlap,
		MaxSequenceLen: DefaultMaxSequenceLen,
		Concurrency:    4,
	}
}

// Pipeline runs normalize, plan, tag, decode, locate, dedup and merge for a
// document.  It holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	tokenizer  Tokenizer
	tagger     Tagger
	normalizer Normalizer
	planner    *ChunkPlanner
	decoder    *Decoder
	cfg        PipelineConfig
	logger     logging.Logger
	hooks      Hooks
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNormalizer installs a word segmenter.  Without one the raw text is
// tagged directly.
func WithNormalizer(n Normalizer) PipelineOption {
	return func(p *Pipeline) { p.normalizer = n }
}

func WithHooks(h Hooks) PipelineOption {
	return func(p *Pipeline) {
		if h != nil {
			p.hooks = h
		}
	}
}

func WithLogger(l logging.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithConfig(cfg PipelineConfig) PipelineOption {
	return func(p *Pipeline) { p.cfg = cfg }
}

// NewPipeline wires a pipeline around tokenizer and tagger.
func NewPipeline(tokenizer Tokenizer, tagger Tagger, opts ...PipelineOption) (*Pipeline, error) {
	if tokenizer == nil {
		return nil, errors.New(errors.ErrCodeTokenizerNotLoaded, "tokenizer is nil")
	}
	if tagger == nil {
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable, "tagger is nil")
	}
	p := &Pipeline{
		tokenizer: tokenizer,
		tagger:    tagger,
		cfg:       DefaultPipelineConfig(),
		logger:    logging.NewNopLogger(),
		hooks:     NopHooks{},
	}
	for _, o := range opts {
		o(p)
	}

	def := DefaultPipelineConfig()
	if p.cfg.TokenBudget <= 0 {
		p.cfg.TokenBudget = def.TokenBudget
	}
	if p.cfg.MaxSequenceLen < p.cfg.TokenBudget+2 {
		p.cfg.MaxSequenceLen = p.cfg.TokenBudget + 2
	}
	if p.cfg.Concurrency <= 0 {
		p.cfg.Concurrency = def.Concurrency
	}

	p.logger = p.logger.Named("medner")
	p.planner = NewChunkPlanner(tokenizer, p.cfg.TokenBudget, p.cfg.WindowOverlap)
	p.decoder = NewDecoder(p.logger, p.hooks)
	return p, nil
}

// Tagger returns the tagger the pipeline was built with.
func (p *Pipeline) Tagger() Tagger { return p.tagger }

// Normalizer returns the configured normalizer, possibly nil.
func (p *Pipeline) Normalizer() Normalizer { return p.normalizer }

// Run extracts entities from doc.  Chunks are tagged concurrently; decoding
// and locating replay in chunk order so that the used-range bookkeeping is
// identical to a sequential run.
func (p *Pipeline) Run(ctx context.Context, doc Document) (res *Result, err error) {
	started := time.Now()
	defer func() { p.hooks.DocumentDone(time.Since(started), err) }()

	log := p.logger.WithContext(ctx)
	if doc.ID != "" {
		log = log.With(logging.String(logging.FieldDocumentID, doc.ID))
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "document text is empty")
	}
	if p.cfg.MaxDocRunes > 0 && RuneLen(doc.Text) > p.cfg.MaxDocRunes {
		return nil, errors.New(errors.ErrCodeDocumentTooLarge, "document exceeds the maximum size").
			WithDetail(fmt.Sprintf("limit=%d runes", p.cfg.MaxDocRunes))
	}

	res = &Result{DocumentID: doc.ID, Entities: []LocatedEntity{}, LocatorMisses: []LocatedEntity{}, Warnings: []string{}}

	// The model sees composed text; offsets are translated back to doc.Text
	// once every entity is placed.
	original, folds := foldNFC(doc.Text)
	text, ok, warning := p.normalize(ctx, original, log)
	res.Normalized = ok
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	chunks := p.planner.Plan(text)
	res.Chunks = len(chunks)
	for _, c := range chunks {
		p.hooks.ChunkPlanned(string(c.Kind))
	}
	log.Debug("chunks planned", logging.Int("chunks", len(chunks)), logging.Int("runes", RuneLen(text)))

	tagged, truncated, err := p.tagAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	locator := NewSpanLocator(original, log)
	for i, c := range chunks {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, errors.ErrCodeTimeout, "document processing cancelled")
		}
		if truncated[i] {
			msg := fmt.Sprintf("chunk %d exceeded %d tokens and was truncated", i, p.cfg.MaxSequenceLen-2)
			res.Warnings = append(res.Warnings, msg)
			log.Warn("chunk truncated", logging.Int("chunk", i), logging.Int("ceiling", p.cfg.MaxSequenceLen-2))
		}

		decoded, stats := p.decoder.Decode(tagged[i])
		res.SoftFixes += stats.SoftFixes
		for _, e := range decoded {
			loc, status := locator.Locate(e, c.Offset, c.Len())
			if status == LocateMissed {
				res.LocatorMisses = append(res.LocatorMisses, loc)
				p.hooks.LocatorMiss()
			}
		}
	}

	res.Entities = MergeNames(Dedup(locator.Entities()), original)
	for i, e := range res.Entities {
		res.Entities[i] = folds.translate(e)
		p.hooks.EntityEmitted(e.Type.String())
	}

	log.Info("document processed",
		logging.Int("chunks", res.Chunks),
		logging.Int("entities", len(res.Entities)),
		logging.Int("locator_misses", len(res.LocatorMisses)),
		logging.Int("soft_fixes", res.SoftFixes),
		logging.Duration("elapsed", time.Since(started)))
	return res, nil
}

// tagAll runs the tagger for every chunk with bounded concurrency.  The
// first failure cancels the rest and fails the document.
func (p *Pipeline) tagAll(ctx context.Context, chunks []Chunk) ([][]TaggedToken, []bool, error) {
	tagged := make([][]TaggedToken, len(chunks))
	truncated := make([]bool, len(chunks))
	ceiling := p.cfg.MaxSequenceLen - 2

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			toks := p.tokenizer.Tokenize(c.Text)
			if len(toks) == 0 {
				return nil
			}
			if len(toks) > ceiling {
				toks = toks[:ceiling]
				truncated[i] = true
			}
			surfaces := make([]string, len(toks))
			for j, t := range toks {
				surfaces[j] = t.Surface
			}

			start := time.Now()
			out, err := p.tagger.Tag(gctx, surfaces)
			p.hooks.InferenceDone(time.Since(start), err)
			if err != nil {
				if ctx.Err() != nil {
					return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "document processing cancelled")
				}
				if errors.IsCode(err, errors.ErrCodeAIModelNotAvailable) {
					return errors.Wrap(err, errors.ErrCodeAIModelNotAvailable, "tagging model not available").
						WithDetail(fmt.Sprintf("chunk=%d", i))
				}
				return errors.Wrap(err, errors.ErrCodeAIInferenceFailed, "chunk inference failed").
					WithDetail(fmt.Sprintf("chunk=%d", i))
			}
			tagged[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tagged, truncated, nil
}

func (p *Pipeline) normalize(ctx context.Context, original string, log logging.Logger) (string, bool, string) {
	if p.normalizer == nil {
		return original, false, ""
	}
	if !p.normalizer.IsAvailable() {
		p.hooks.NormalizerFallback(FallbackUnavailable)
		log.Warn("word segmentation unavailable, tagging raw text")
		return original, false, "word segmentation unavailable; raw text was used"
	}
	out, err := p.normalizer.Normalize(ctx, original)
	if err != nil {
		p.hooks.NormalizerFallback(FallbackError)
		log.Warn("word segmentation failed, tagging raw text", logging.Err(err))
		return original, false, "word segmentation failed; raw text was used"
	}
	if strings.TrimSpace(out) == "" {
		p.hooks.NormalizerFallback(FallbackEmpty)
		log.Warn("word segmentation returned empty text, tagging raw text")
		return original, false, "word segmentation returned empty text; raw text was used"
	}
	return out, true, ""
}

//Personal.AI order the ending
