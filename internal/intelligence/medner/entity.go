package medner

import "strings"

// JoinMarker ends every BPE piece that is followed by another piece of the
// same word.
const JoinMarker = "@@"

// Sentinel is the start and end of an entity that could not be located in
// the original text.
const Sentinel = -1

// TaggedToken is one model output position.
type TaggedToken struct {
	Surface string  `json:"surface"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	// Continuation is true when the previous surface ends with JoinMarker.
	Continuation bool `json:"continuation"`
}

// MarkContinuations sets Continuation on every token whose predecessor ends
// with the join marker.  Position 0 is the sequence start sentinel and never
// continues anything.
func MarkContinuations(tokens []TaggedToken) {
	for i := range tokens {
		tokens[i].Continuation = i > 1 && strings.HasSuffix(tokens[i-1].Surface, JoinMarker)
	}
}

// DecodedEntity is a span of tokens decoded from one chunk, before it has
// been located in the original text.
type DecodedEntity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	TokenSpan  []int      `json:"token_span"`
	Confidence float64    `json:"confidence"`
}

// LocatedEntity is an entity with rune offsets into the original text, or
// Sentinel offsets when it could not be found there.
type LocatedEntity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence float64    `json:"confidence"`
}

// Located reports whether e carries real offsets.
func (e LocatedEntity) Located() bool {
	return e.Start != Sentinel
}

// Len is the span length in runes, 0 for an unlocated entity.
func (e LocatedEntity) Len() int {
	if !e.Located() {
		return 0
	}
	return e.End - e.Start
}

// overlaps reports whether two located spans share at least one rune.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

//Personal.AI order the ending
