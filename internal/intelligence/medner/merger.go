package medner

import (
	"sort"
	"strings"
)

// MaxNameGap is the widest run of runes allowed between two NAME spans that
// are merged into one name.
const MaxNameGap = 2

type dedupKey struct {
	text  string
	typ   EntityType
	start int
}

// SortEntities orders located entities by (start, end) and moves sentinels
// to the end, keeping their relative order.
func SortEntities(entities []LocatedEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.Located() != b.Located() {
			return a.Located()
		}
		if !a.Located() {
			return false
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}

// Dedup keeps the first entity for each (trimmed text, type, start) key in
// sorted order.  Applying it twice changes nothing.
func Dedup(entities []LocatedEntity) []LocatedEntity {
	sorted := append([]LocatedEntity(nil), entities...)
	SortEntities(sorted)

	seen := make(map[dedupKey]struct{}, len(sorted))
	out := make([]LocatedEntity, 0, len(sorted))
	for _, e := range sorted {
		k := dedupKey{strings.TrimSpace(e.Text), e.Type, e.Start}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// MergeNames joins NAME entities separated only by whitespace or a comma
// into one name, e.g. "Nguyễn" "Văn" "An" becomes "Nguyễn Văn An".
// Trailing commas are stripped from every NAME.  Other types and sentinels
// pass through unchanged.
func MergeNames(entities []LocatedEntity, original string) []LocatedEntity {
	orig := []rune(original)
	sorted := append([]LocatedEntity(nil), entities...)
	SortEntities(sorted)

	out := make([]LocatedEntity, 0, len(sorted))
	for i := 0; i < len(sorted); {
		cur := sorted[i]
		if cur.Type != EntityName || !cur.Located() {
			out = append(out, cur)
			i++
			continue
		}

		group := []LocatedEntity{cur}
		j := i + 1
		for ; j < len(sorted); j++ {
			next := sorted[j]
			if next.Type != EntityName || !next.Located() {
				break
			}
			last := group[len(group)-1]
			if next.Start-last.End > MaxNameGap {
				break
			}
			between := strings.TrimSpace(runeSlice(orig, last.End, next.Start))
			if between != "" && between != "," {
				break
			}
			group = append(group, next)
		}

		if len(group) > 1 {
			first, last := group[0], group[len(group)-1]
			text := strings.TrimRight(strings.TrimSpace(runeSlice(orig, first.Start, last.End)), ",")
			sum := 0.0
			for _, g := range group {
				sum += g.Confidence
			}
			out = append(out, LocatedEntity{
				Text:       text,
				Type:       EntityName,
				Start:      first.Start,
				End:        first.Start + RuneLen(text),
				Confidence: sum / float64(len(group)),
			})
		} else {
			text := strings.TrimRight(cur.Text, ",")
			cur.Text = text
			cur.End = cur.Start + RuneLen(text)
			out = append(out, cur)
		}
		i = j
	}
	return out
}

//Personal.AI order the ending
