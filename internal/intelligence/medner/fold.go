package medner

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// foldMap translates rune offsets in the NFC form of a text back to rune
// offsets in the text as it was received.
type foldMap struct {
	original []rune
	// start[k] is where the segment holding folded rune k begins.
	start []int
	// end[k] is where a span ending at folded offset k ends.
	end []int
}

// foldNFC returns the NFC form of s.  The map is nil when s is already NFC,
// in which case offsets need no translation.
func foldNFC(s string) (string, *foldMap) {
	if norm.NFC.IsNormalString(s) {
		return s, nil
	}

	m := &foldMap{original: []rune(s)}
	folded := make([]byte, 0, len(s))
	var it norm.Iter
	it.InitString(norm.NFC, s)
	at := 0
	for !it.Done() {
		from := it.Pos()
		seg := it.Next()
		folded = append(folded, seg...)
		segEnd := at + utf8.RuneCountInString(s[from:it.Pos()])
		for k, n := 0, utf8.RuneCount(seg); k < n; k++ {
			m.start = append(m.start, at)
			if k == 0 {
				m.end = append(m.end, at)
			} else {
				m.end = append(m.end, segEnd)
			}
		}
		at = segEnd
	}
	m.start = append(m.start, at)
	m.end = append(m.end, at)
	return string(folded), m
}

// translate moves a located entity from folded offsets to original offsets
// and re-reads its text from the original.  A span that starts or ends
// inside a composed character widens to the whole character.
func (m *foldMap) translate(e LocatedEntity) LocatedEntity {
	if m == nil || !e.Located() {
		return e
	}
	last := len(m.start) - 1
	if e.Start < 0 || e.Start > last || e.End < e.Start || e.End > last {
		return e
	}
	e.Start, e.End = m.start[e.Start], m.end[e.End]
	e.Text = string(m.original[e.Start:e.End])
	return e
}

//Personal.AI order the ending
