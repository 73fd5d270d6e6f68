package medner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ruleTagger labels each surface from a fixed table; unknown surfaces get O.
type ruleTagger struct {
	labels map[string]string
	score  float64
	err    error
	delay  time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu   sync.Mutex
	seen [][]string
}

func newRuleTagger(labels map[string]string) *ruleTagger {
	return &ruleTagger{labels: labels, score: 0.9}
}

func (r *ruleTagger) Tag(ctx context.Context, tokens []string) ([]TaggedToken, error) {
	r.calls.Add(1)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		m := r.maxSeen.Load()
		if n <= m || r.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	r.mu.Lock()
	r.seen = append(r.seen, append([]string(nil), tokens...))
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}

	out := make([]TaggedToken, 0, len(tokens)+2)
	out = append(out, TaggedToken{Surface: SequenceStart, Label: "O", Score: 1})
	for _, t := range tokens {
		label, ok := r.labels[t]
		if !ok {
			label = "O"
		}
		out = append(out, TaggedToken{Surface: t, Label: label, Score: r.score})
	}
	out = append(out, TaggedToken{Surface: SequenceEnd, Label: "O", Score: 1})
	MarkContinuations(out)
	return out, nil
}

type recordingHooks struct {
	mu        sync.Mutex
	chunks    map[string]int
	softFixes map[string]int
	entities  map[string]int
	misses    int
	fallbacks []string
	inference int
	documents int
	docErr    error
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{chunks: map[string]int{}, softFixes: map[string]int{}, entities: map[string]int{}}
}

func (h *recordingHooks) ChunkPlanned(kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chunks[kind]++
}

func (h *recordingHooks) InferenceDone(time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inference++
}

func (h *recordingHooks) SoftFix(kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.softFixes[kind]++
}

func (h *recordingHooks) LocatorMiss() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses++
}

func (h *recordingHooks) NormalizerFallback(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fallbacks = append(h.fallbacks, reason)
}

func (h *recordingHooks) EntityEmitted(t string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entities[t]++
}

func (h *recordingHooks) DocumentDone(_ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.documents++
	h.docErr = err
}

// fakeNormalizer joins configured phrases with underscores.
type fakeNormalizer struct {
	available bool
	phrases   []string
	err       error
	empty     bool
}

func (f *fakeNormalizer) IsAvailable() bool { return f.available }

func (f *fakeNormalizer) Normalize(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.empty {
		return "  ", nil
	}
	for _, p := range f.phrases {
		text = strings.ReplaceAll(text, p, strings.ReplaceAll(p, " ", "_"))
	}
	return text, nil
}

// words builds n space-separated filler words w0..w(n-1), replacing the
// positions present in overrides.
func words(n int, overrides map[int]string) []string {
	out := make([]string, n)
	for i := range out {
		if w, ok := overrides[i]; ok {
			out[i] = w
			continue
		}
		out[i] = "w" + itoa(i)
	}
	return out
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}

// spanText returns the original runes a located entity points at.
func spanText(original string, e LocatedEntity) string {
	return runeSlice([]rune(original), e.Start, e.End)
}

//Personal.AI order the ending
