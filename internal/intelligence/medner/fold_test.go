package medner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestFoldNFC_ComposedInputIsUntouched(t *testing.T) {
	text := "Bệnh nhân Nguyễn"
	folded, m := foldNFC(text)
	assert.Equal(t, text, folded)
	assert.Nil(t, m)

	e := LocatedEntity{Text: "Nguyễn", Type: EntityName, Start: 10, End: 16}
	assert.Equal(t, e, m.translate(e))
}

func TestFoldNFC_TranslatesOffsets(t *testing.T) {
	text := "Bệnh nhân " + norm.NFD.String("Nguyễn") + " An"
	folded, m := foldNFC(text)
	require.NotNil(t, m)
	assert.Equal(t, "Bệnh nhân Nguyễn An", folded)

	got := m.translate(LocatedEntity{Text: "Nguyễn", Type: EntityName, Start: 10, End: 16})
	assert.Equal(t, 10, got.Start)
	assert.Equal(t, 18, got.End)
	assert.Equal(t, norm.NFD.String("Nguyễn"), got.Text)

	got = m.translate(LocatedEntity{Text: "An", Type: EntityName, Start: 17, End: 19})
	assert.Equal(t, LocatedEntity{Text: "An", Type: EntityName, Start: 19, End: 21}, got)

	miss := LocatedEntity{Text: "Lan", Type: EntityName, Start: Sentinel, End: Sentinel}
	assert.Equal(t, miss, m.translate(miss))
}

//Personal.AI order the ending
