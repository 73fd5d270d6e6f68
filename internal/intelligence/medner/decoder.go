package medner

import (
	"math"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
)

// Soft-fix kinds, reported when a BPE continuation overrides the model's tag.
const (
	SoftFixBegin   = "begin"
	SoftFixInside  = "inside"
	SoftFixOutside = "outside"
)

// DecodeStats summarises one Decode call.
type DecodeStats struct {
	SoftFixes     int `json:"soft_fixes"`
	UnknownLabels int `json:"unknown_labels"`
	Entities      int `json:"entities"`
}

// Decoder groups BIO-tagged BPE tokens into entities.  Word integrity wins
// over the model's tag: a piece that continues a word stays with the open
// entity whatever it was tagged.
type Decoder struct {
	logger logging.Logger
	hooks  Hooks
}

// NewDecoder returns a Decoder.  Either argument may be nil.
func NewDecoder(logger logging.Logger, hooks Hooks) *Decoder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Decoder{logger: logger, hooks: hooks}
}

type openSpan struct {
	typ      EntityType
	indices  []int
	surfaces []string
	scores   []float64
}

func (s *openSpan) add(i int, tok TaggedToken) {
	s.indices = append(s.indices, i)
	s.surfaces = append(s.surfaces, tok.Surface)
	s.scores = append(s.scores, tok.Score)
}

// Decode walks positions 1..N-2 of a model sequence whose first and last
// positions are the sequence sentinels.  Word continuity comes from
// TaggedToken.Continuation, so taggers must call MarkContinuations.
func (d *Decoder) Decode(tokens []TaggedToken) ([]DecodedEntity, DecodeStats) {
	var (
		stats    DecodeStats
		entities []DecodedEntity
		open     *openSpan
	)

	closeSpan := func() {
		if open == nil {
			return
		}
		if text := Detokenize(open.surfaces); text != "" {
			entities = append(entities, DecodedEntity{
				Text:       text,
				Type:       open.typ,
				TokenSpan:  open.indices,
				Confidence: geometricMean(open.scores),
			})
		}
		open = nil
	}
	start := func(i int, typ EntityType) {
		open = &openSpan{typ: typ}
		open.add(i, tokens[i])
	}
	softFix := func(i int, kind string) {
		open.add(i, tokens[i])
		stats.SoftFixes++
		d.hooks.SoftFix(kind)
		d.logger.Debug("continuation merged into open entity",
			logging.String("token", tokens[i].Surface),
			logging.String("label", tokens[i].Label),
			logging.String("entity_type", open.typ.String()))
	}

	for i := 1; i < len(tokens)-1; i++ {
		tok := tokens[i]
		label, err := ParseTagLabel(tok.Label)
		if err != nil {
			stats.UnknownLabels++
			d.logger.Warn("treating unknown label as O", logging.String("label", tok.Label), logging.Err(err))
		}
		continuation := tok.Continuation

		switch label.Prefix {
		case PrefixBegin:
			if continuation && open != nil {
				softFix(i, SoftFixBegin)
				continue
			}
			closeSpan()
			start(i, label.Type)

		case PrefixInside:
			switch {
			case open != nil && open.typ == label.Type:
				open.add(i, tok)
			case continuation && open != nil:
				softFix(i, SoftFixInside)
			default:
				closeSpan()
				start(i, label.Type)
			}

		default:
			if continuation && open != nil {
				softFix(i, SoftFixOutside)
				continue
			}
			closeSpan()
		}
	}
	closeSpan()

	stats.Entities = len(entities)
	return entities, stats
}

// geometricMean of token scores; any non-positive score yields 0.
func geometricMean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	logSum := 0.0
	for _, s := range scores {
		if s <= 0 {
			return 0
		}
		logSum += math.Log(s)
	}
	return math.Exp(logSum / float64(len(scores)))
}

//Personal.AI order the ending
