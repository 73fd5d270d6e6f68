package medner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Planning limits.  The model was trained on 256-position sequences, two of
// which hold the <s> and </s> sentinels.
const (
	DefaultTokenBudget    = 220
	DefaultWindowOverlap  = 30
	DefaultMaxSequenceLen = 256
)

// ChunkKind records how a chunk was produced.
type ChunkKind string

const (
	ChunkSingle ChunkKind = "single"
	ChunkBatch  ChunkKind = "batch"
	ChunkWindow ChunkKind = "window"
)

// Chunk is a piece of the normalized text small enough for one model call.
// Text is always normalized[Offset:End] in rune offsets.
type Chunk struct {
	Text   string    `json:"text"`
	Offset int       `json:"offset"`
	End    int       `json:"end"`
	Kind   ChunkKind `json:"kind"`
}

// Len is the chunk length in runes.
func (c Chunk) Len() int { return c.End - c.Offset }

var sentencePattern = regexp.MustCompile(`([^.!?]*[.!?]+)|([^.!?]+$)`)

type sentenceSpan struct{ start, end int }

// ChunkPlanner packs whole sentences into chunks of at most budget tokens
// and slides overlapping token windows over sentences that do not fit.
type ChunkPlanner struct {
	tok     Tokenizer
	budget  int
	overlap int
}

// NewChunkPlanner returns a planner.  Non-positive budget falls back to
// DefaultTokenBudget; overlap is clamped to [0, budget).
func NewChunkPlanner(tok Tokenizer, budget, overlap int) *ChunkPlanner {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= budget {
		overlap = budget - 1
	}
	return &ChunkPlanner{tok: tok, budget: budget, overlap: overlap}
}

// Plan splits text into chunks with absolute rune offsets.
func (p *ChunkPlanner) Plan(text string) []Chunk {
	runes := []rune(text)
	if p.tok.Count(text) <= p.budget {
		return []Chunk{{Text: text, Offset: 0, End: len(runes), Kind: ChunkSingle}}
	}

	var (
		chunks     []Chunk
		batchStart = -1
		batchEnd   = -1
	)
	flush := func() {
		if batchStart < 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:   string(runes[batchStart:batchEnd]),
			Offset: batchStart,
			End:    batchEnd,
			Kind:   ChunkBatch,
		})
		batchStart, batchEnd = -1, -1
	}

	for _, s := range splitSentences(text) {
		if p.tok.Count(string(runes[s.start:s.end])) > p.budget {
			flush()
			chunks = append(chunks, p.windows(runes, s)...)
			continue
		}
		if batchStart < 0 {
			batchStart, batchEnd = s.start, s.end
			continue
		}
		if p.tok.Count(string(runes[batchStart:s.end])) <= p.budget {
			batchEnd = s.end
			continue
		}
		flush()
		batchStart, batchEnd = s.start, s.end
	}
	flush()
	return chunks
}

// windows covers one over-budget sentence with token windows of width
// budget, each starting overlap tokens before the previous one ended.
func (p *ChunkPlanner) windows(runes []rune, s sentenceSpan) []Chunk {
	toks := p.tok.Tokenize(string(runes[s.start:s.end]))
	n := len(toks)
	var out []Chunk

	for start := 0; start < n; {
		end := start + p.budget
		if end > n {
			end = n
		}
		if end < n {
			// keep the last word whole unless it is the only word
			back := end
			for back > start && toks[back-1].Continues {
				back--
			}
			if back > start {
				end = back
			}
		}

		off := s.start + toks[start].Start
		stop := s.start + toks[end-1].End
		out = append(out, Chunk{Text: string(runes[off:stop]), Offset: off, End: stop, Kind: ChunkWindow})
		if end >= n {
			break
		}

		next := end - p.overlap
		for next > start+1 && toks[next-1].Continues {
			next--
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// splitSentences returns trimmed sentence spans in rune offsets.  Text with
// no sentence match is one span.
func splitSentences(text string) []sentenceSpan {
	var spans []sentenceSpan
	for _, m := range sentencePattern.FindAllStringIndex(text, -1) {
		seg := text[m[0]:m[1]]
		lead := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
		trail := len(seg) - len(strings.TrimRightFunc(seg, unicode.IsSpace))
		if lead+trail >= len(seg) {
			continue
		}
		start := utf8.RuneCountInString(text[:m[0]+lead])
		end := start + utf8.RuneCountInString(seg[lead:len(seg)-trail])
		spans = append(spans, sentenceSpan{start: start, end: end})
	}
	if len(spans) == 0 {
		spans = []sentenceSpan{{start: 0, end: utf8.RuneCountInString(text)}}
	}
	return spans
}

//Personal.AI order the ending
