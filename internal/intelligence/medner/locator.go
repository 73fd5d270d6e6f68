package medner

import (
	"strings"
	"unicode/utf8"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
)

// LocatorPadding widens the local search window past the chunk end to absorb
// length drift between normalized and original text.
const LocatorPadding = 100

// LocateStatus classifies the outcome of one Locate call.
type LocateStatus int

const (
	// LocateFound claimed a span no earlier entity touches.
	LocateFound LocateStatus = iota
	// LocateSuperseded claimed a span that swallows shorter same-type
	// entities cut off at a window edge; those are withdrawn from Entities
	// even though they were located earlier.
	LocateSuperseded
	// LocateDuplicate matched text already claimed by an entity of the same
	// type, as happens when overlapping windows both see it.
	LocateDuplicate
	// LocateMissed found no usable occurrence.
	LocateMissed
)

type claim struct {
	entity     LocatedEntity
	superseded bool
}

// SpanLocator finds decoded entities in the original text.  It remembers
// every span it has handed out so two entities never claim overlapping text.
// One SpanLocator serves exactly one document.
type SpanLocator struct {
	original []rune
	claims   []*claim
	misses   int
	logger   logging.Logger
}

// NewSpanLocator prepares a locator over original.
func NewSpanLocator(original string, logger logging.Logger) *SpanLocator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SpanLocator{original: []rune(original), logger: logger}
}

// Locate searches original[hint : hint+chunkLen+LocatorPadding] for the first
// occurrence overlapping no earlier span, then the whole text.  When both
// fail, occurrences that only collide with the same entity seen through an
// overlapping window are reconciled.  Anything else gets Sentinel offsets.
func (l *SpanLocator) Locate(e DecodedEntity, hint, chunkLen int) (LocatedEntity, LocateStatus) {
	text := strings.ReplaceAll(e.Text, "_", " ")
	out := LocatedEntity{Text: text, Type: e.Type, Start: Sentinel, End: Sentinel, Confidence: e.Confidence}

	needle := []rune(text)
	if len(needle) == 0 {
		return l.miss(out, hint), LocateMissed
	}

	lo := hint
	if lo < 0 {
		lo = 0
	}
	hi := hint + chunkLen + LocatorPadding
	if hi > len(l.original) {
		hi = len(l.original)
	}
	all := len(l.original)

	for _, r := range [][2]int{{lo, hi}, {0, all}} {
		if pos := l.scan(needle, r[0], r[1], l.isFree); pos >= 0 {
			out.Start, out.End = pos, pos+len(needle)
			l.claims = append(l.claims, &claim{entity: out})
			return out, LocateFound
		}
	}

	for _, r := range [][2]int{{lo, hi}, {0, all}} {
		if pos := l.scan(needle, r[0], r[1], func(s, end int) bool { return l.swallows(s, end, e.Type) }); pos >= 0 {
			out.Start, out.End = pos, pos+len(needle)
			l.supersede(out)
			return out, LocateSuperseded
		}
		if pos := l.scan(needle, r[0], r[1], func(s, end int) bool { return l.containedIn(s, end, e.Type) != nil }); pos >= 0 {
			c := l.containedIn(pos, pos+len(needle), e.Type)
			return c.entity, LocateDuplicate
		}
	}

	return l.miss(out, hint), LocateMissed
}

func (l *SpanLocator) miss(out LocatedEntity, hint int) LocatedEntity {
	l.misses++
	l.claims = append(l.claims, &claim{entity: out})
	l.logger.Debug("entity not found in original text",
		logging.String("text", out.Text),
		logging.String("entity_type", out.Type.String()),
		logging.Int("hint", hint))
	return out
}

// Entities returns every claimed entity and every miss in the order they
// were located, without superseded spans.
func (l *SpanLocator) Entities() []LocatedEntity {
	out := make([]LocatedEntity, 0, len(l.claims))
	for _, c := range l.claims {
		if !c.superseded {
			out = append(out, c.entity)
		}
	}
	return out
}

// Misses returns how many Locate calls produced a sentinel.
func (l *SpanLocator) Misses() int { return l.misses }

// scan returns the first occurrence of needle inside original[lo:hi] for
// which accept holds, or -1.
func (l *SpanLocator) scan(needle []rune, lo, hi int, accept func(start, end int) bool) int {
	for pos := lo; pos+len(needle) <= hi; pos++ {
		if hasPrefixAt(l.original, needle, pos) && accept(pos, pos+len(needle)) {
			return pos
		}
	}
	return -1
}

func (l *SpanLocator) active() []*claim {
	out := make([]*claim, 0, len(l.claims))
	for _, c := range l.claims {
		if !c.superseded && c.entity.Located() {
			out = append(out, c)
		}
	}
	return out
}

func (l *SpanLocator) isFree(start, end int) bool {
	for _, c := range l.active() {
		if overlaps(start, end, c.entity.Start, c.entity.End) {
			return false
		}
	}
	return true
}

// swallows reports whether every claim overlapping [start,end) has type typ
// and lies strictly inside it.
func (l *SpanLocator) swallows(start, end int, typ EntityType) bool {
	hit := false
	for _, c := range l.active() {
		if !overlaps(start, end, c.entity.Start, c.entity.End) {
			continue
		}
		inside := c.entity.Start >= start && c.entity.End <= end && c.entity.Len() < end-start
		if c.entity.Type != typ || !inside {
			return false
		}
		hit = true
	}
	return hit
}

func (l *SpanLocator) containedIn(start, end int, typ EntityType) *claim {
	for _, c := range l.active() {
		if c.entity.Type == typ && c.entity.Start <= start && c.entity.End >= end {
			return c
		}
	}
	return nil
}

func (l *SpanLocator) supersede(e LocatedEntity) {
	for _, c := range l.active() {
		if overlaps(e.Start, e.End, c.entity.Start, c.entity.End) {
			c.superseded = true
		}
	}
	l.claims = append(l.claims, &claim{entity: e})
}

func hasPrefixAt(hay, needle []rune, pos int) bool {
	for i, r := range needle {
		if hay[pos+i] != r {
			return false
		}
	}
	return true
}

// RuneLen is utf8.RuneCountInString.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// runeSlice returns s[start:end] in rune offsets, clamped to s.
func runeSlice(s []rune, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return string(s[start:end])
}

//Personal.AI order the ending
