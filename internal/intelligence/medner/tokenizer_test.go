package medner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

func TestBPETokenizer_WordLevelOffsets(t *testing.T) {
	tok := NewBPETokenizer()
	text := "Bệnh nhân  Nguyễn\tAn"

	got := tok.Tokenize(text)
	require.Len(t, got, 4)
	assert.Equal(t, Token{Surface: "Bệnh", Start: 0, End: 4}, got[0])
	assert.Equal(t, Token{Surface: "nhân", Start: 5, End: 9}, got[1])
	assert.Equal(t, Token{Surface: "Nguyễn", Start: 11, End: 17}, got[2])
	assert.Equal(t, Token{Surface: "An", Start: 18, End: 20}, got[3])
	assert.Equal(t, 4, tok.Count(text))

	runes := []rune(text)
	for _, tk := range got {
		assert.Equal(t, tk.Surface, string(runes[tk.Start:tk.End]))
	}
}

func TestBPETokenizer_Merges(t *testing.T) {
	tok := NewBPETokenizer(WithMerges([][2]string{{"h", "o"}, {"ho", "s"}}))
	assert.Equal(t, 2, tok.NumMerges())

	got := tok.Tokenize("hosp a")
	require.Len(t, got, 3)
	assert.Equal(t, Token{Surface: "hos@@", Start: 0, End: 3, Continues: true}, got[0])
	assert.Equal(t, Token{Surface: "p", Start: 3, End: 4}, got[1])
	assert.Equal(t, Token{Surface: "a", Start: 5, End: 6}, got[2])
	assert.Equal(t, 3, tok.Count("hosp a"))

	surfaces := []string{got[0].Surface, got[1].Surface, got[2].Surface}
	assert.Equal(t, "hosp a", Detokenize(surfaces))
}

func TestBPETokenizer_LongWordsStayWhole(t *testing.T) {
	tok := NewBPETokenizer(WithMerges([][2]string{{"x", "y"}}), WithMaxWordRunes(3))
	got := tok.Tokenize("abcd ab")
	require.Len(t, got, 3)
	assert.Equal(t, "abcd", got[0].Surface)
	assert.Equal(t, "a@@", got[1].Surface)
	assert.Equal(t, "b", got[2].Surface)
}

func TestReadMerges(t *testing.T) {
	merges, err := ReadMerges(strings.NewReader("#version: 0.2\nh o 10\nho s\n\n"))
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"h", "o"}, {"ho", "s"}}, merges)

	_, err = ReadMerges(strings.NewReader("lonely\n"))
	assert.Error(t, err)
}

func TestLoadBPETokenizer(t *testing.T) {
	tok, err := LoadBPETokenizer("")
	require.NoError(t, err)
	assert.Equal(t, 0, tok.NumMerges())

	path := filepath.Join(t.TempDir(), "codes")
	require.NoError(t, os.WriteFile(path, []byte("h o 5\nho s 3\n"), 0o600))
	tok, err = LoadBPETokenizer(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tok.NumMerges())

	_, err = LoadBPETokenizer(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenizerNotLoaded))
}

func TestDetokenize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"plain words", []string{"Nguyễn", "Văn", "An"}, "Nguyễn Văn An"},
		{"joined pieces", []string{"Bạ@@", "ch", "Mai"}, "Bạch Mai"},
		{"trailing marker", []string{"Hà", "Nộ@@"}, "Hà Nộ"},
		{"underscores kept", []string{"Hà_Nội"}, "Hà_Nội"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detokenize(tt.in))
		})
	}
}

//Personal.AI order the ending
