package medner

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Token is one BPE piece with rune offsets into the tokenized text.
type Token struct {
	Surface string
	Start   int
	End     int
	// Continues is true when the next token belongs to the same word.
	Continues bool
}

// Tokenizer splits text into the subword units the model was trained on.
type Tokenizer interface {
	Tokenize(text string) []Token
	Count(text string) int
}

const endOfWord = "</w>"

type mergePair struct{ left, right string }

// BPETokenizer applies fastBPE merge codes to whitespace-separated words.
// Without codes every word is a single token.
type BPETokenizer struct {
	ranks   map[mergePair]int
	maxWord int
}

// TokenizerOption configures a BPETokenizer.
type TokenizerOption func(*BPETokenizer)

// WithMaxWordRunes caps the length of a word handed to BPE; longer words are
// emitted as a single piece.
func WithMaxWordRunes(n int) TokenizerOption {
	return func(t *BPETokenizer) {
		if n > 0 {
			t.maxWord = n
		}
	}
}

// WithMerges installs merge rules in priority order.
func WithMerges(merges [][2]string) TokenizerOption {
	return func(t *BPETokenizer) {
		for i, m := range merges {
			p := mergePair{m[0], m[1]}
			if _, ok := t.ranks[p]; !ok {
				t.ranks[p] = i
			}
		}
	}
}

// NewBPETokenizer builds a tokenizer from options.
func NewBPETokenizer(opts ...TokenizerOption) *BPETokenizer {
	t := &BPETokenizer{ranks: make(map[mergePair]int), maxWord: 100}
	for _, o := range opts {
		o(t)
	}
	return t
}

// LoadBPETokenizer reads a fastBPE codes file ("left right [count]" per
// line).  An empty path yields a word-level tokenizer.
func LoadBPETokenizer(codesPath string, opts ...TokenizerOption) (*BPETokenizer, error) {
	if codesPath == "" {
		return NewBPETokenizer(opts...), nil
	}
	f, err := os.Open(codesPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTokenizerNotLoaded, "open bpe codes").WithDetail(codesPath)
	}
	defer f.Close()

	merges, err := ReadMerges(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTokenizerNotLoaded, "parse bpe codes").WithDetail(codesPath)
	}
	return NewBPETokenizer(append([]TokenizerOption{WithMerges(merges)}, opts...)...), nil
}

// ReadMerges parses fastBPE codes.  Blank lines and a "#version" header
// are skipped.
func ReadMerges(r io.Reader) ([][2]string, error) {
	var merges [][2]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#version") {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.Newf(errors.ErrCodeValidation, "line %d: expected two symbols", line)
		}
		merges = append(merges, [2]string{fields[0], fields[1]})
	}
	return merges, sc.Err()
}

// NumMerges returns the number of loaded merge rules.
func (t *BPETokenizer) NumMerges() int { return len(t.ranks) }

// Tokenize splits text on Unicode whitespace and applies BPE to each word.
func (t *BPETokenizer) Tokenize(text string) []Token {
	var out []Token
	pos := 0
	wordStart := -1
	var word strings.Builder

	flush := func() {
		if wordStart < 0 {
			return
		}
		out = t.appendWord(out, word.String(), wordStart)
		word.Reset()
		wordStart = -1
	}

	for _, r := range text {
		if unicode.IsSpace(r) {
			flush()
		} else {
			if wordStart < 0 {
				wordStart = pos
			}
			word.WriteRune(r)
		}
		pos++
	}
	flush()
	return out
}

// Count returns len(Tokenize(text)) without building the tokens.
func (t *BPETokenizer) Count(text string) int {
	n := 0
	for _, w := range strings.Fields(text) {
		n += len(t.bpe(w))
	}
	return n
}

func (t *BPETokenizer) appendWord(out []Token, word string, start int) []Token {
	pieces := t.bpe(word)
	at := start
	for i, p := range pieces {
		n := utf8.RuneCountInString(p)
		tok := Token{Surface: p, Start: at, End: at + n}
		if i < len(pieces)-1 {
			tok.Surface += JoinMarker
			tok.Continues = true
		}
		out = append(out, tok)
		at += n
	}
	return out
}

// bpe returns the pieces of word without join markers.
func (t *BPETokenizer) bpe(word string) []string {
	if len(t.ranks) == 0 || utf8.RuneCountInString(word) > t.maxWord {
		return []string{word}
	}

	runes := []rune(word)
	symbols := make([]string, len(runes))
	for i, r := range runes {
		symbols[i] = string(r)
	}
	symbols[len(symbols)-1] += endOfWord

	for len(symbols) > 1 {
		best, bestRank := -1, int(^uint(0)>>1)
		for i := 0; i+1 < len(symbols); i++ {
			if r, ok := t.ranks[mergePair{symbols[i], symbols[i+1]}]; ok && r < bestRank {
				best, bestRank = i, r
			}
		}
		if best < 0 {
			break
		}
		left, right := symbols[best], symbols[best+1]
		merged := symbols[:0:0]
		for i := 0; i < len(symbols); i++ {
			if i+1 < len(symbols) && symbols[i] == left && symbols[i+1] == right {
				merged = append(merged, left+right)
				i++
				continue
			}
			merged = append(merged, symbols[i])
		}
		symbols = merged
	}

	last := len(symbols) - 1
	symbols[last] = strings.TrimSuffix(symbols[last], endOfWord)
	if symbols[last] == "" {
		symbols = symbols[:last]
	}
	return symbols
}

// Detokenize joins surfaces with spaces and removes join markers.
func Detokenize(surfaces []string) string {
	s := strings.Join(surfaces, " ")
	s = strings.TrimSpace(strings.ReplaceAll(s, JoinMarker+" ", ""))
	return strings.TrimSpace(strings.TrimSuffix(s, JoinMarker))
}

//Personal.AI order the ending
