package IO

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCorpus = "I don't believe it.\tNo lo creo.\tCC-BY 2.0 (France) Attribution: tatoeba.org #1\n" +
	"She isn't here.\tElla no está aquí.\tCC-BY 2.0 (France) Attribution: tatoeba.org #2\n" +
	"We're sorry.\t¡Lo sentimos!\n" +
	"This sentence is definitely far too long to be kept around.\tEsta frase es sin duda demasiado larga para conservarla aqui.\n"

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"No lo creo.", "no lo creo ."},
		{"Ella no está aquí.", "ella no esta aqui ."},
		{"¿Qué?", "que ?"},
		{"  I don't believe it.  ", "i don t believe it ."},
		{"¡El es muy alto!", "el es muy alto !"},
		{"Hi!!", "hi ! !"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeString(tc.in), tc.in)
	}
}

func TestNormalizeStringIdempotent(t *testing.T) {
	for _, s := range []string{"¿Qué?", "Ella no está aquí.", "Wait... what?!", "  ñandú  ", "I'm 25 years old."} {
		once := NormalizeString(s)
		assert.Equal(t, once, NormalizeString(once), s)
	}
}

func TestUnicodeToASCII(t *testing.T) {
	assert.Equal(t, "esta aqui", UnicodeToASCII("está aquí"))
	assert.Equal(t, "nandu", UnicodeToASCII("ñandú"))
}

func TestFilterPairBoundary(t *testing.T) {
	nine := "a b c d e f g h i"
	ten := nine + " j"
	assert.True(t, FilterPair(Pair{Source: nine, Target: "x"}, 10))
	assert.False(t, FilterPair(Pair{Source: ten, Target: "x"}, 10))
	assert.False(t, FilterPair(Pair{Source: "x", Target: ten}, 10))
	assert.Len(t, FilterPairs([]Pair{{nine, nine}, {ten, "x"}}, 10), 1)
}

func TestParsePairsReverse(t *testing.T) {
	in, out, pairs, err := ParsePairs(strings.NewReader(sampleCorpus), "eng", "spa", true)
	require.NoError(t, err)
	assert.Equal(t, "spa", in.Name)
	assert.Equal(t, "eng", out.Name)
	require.Len(t, pairs, 4)
	assert.Equal(t, Pair{Source: "no lo creo .", Target: "i don t believe it ."}, pairs[0])
	assert.Equal(t, Pair{Source: "lo sentimos !", Target: "we re sorry ."}, pairs[2])
}

func TestParsePairsMalformedLine(t *testing.T) {
	_, _, pairs, err := ParsePairs(strings.NewReader("just one side\n"), "eng", "spa", false)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{Source: "just one side", Target: ""}, pairs[0])
}

func TestPrepareData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spa.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleCorpus), 0o644))

	c, err := PrepareData(path, "eng", "spa", true, 10)
	require.NoError(t, err)
	assert.Len(t, c.Pairs, 3)
	assert.Equal(t, "spa", c.Input.Name)

	idx, ok := c.Input.Index("creo")
	assert.True(t, ok)
	assert.Equal(t, 4, idx) // SOS EOS no lo creo
	assert.Equal(t, 2, c.Input.Count("lo"))
	assert.Equal(t, 2, c.Input.Count("."))
}

func TestPrepareDataMissingFile(t *testing.T) {
	_, err := PrepareData(filepath.Join(t.TempDir(), "nope.txt"), "eng", "spa", true, 10)
	assert.Error(t, err)
}

func TestLangDeterministic(t *testing.T) {
	stream := []string{"no lo creo .", "lo sentimos .", "ella no esta aqui ."}
	build := func() *Lang {
		l := NewLang("spa")
		for _, s := range stream {
			l.AddSentence(s)
		}
		return l
	}
	a, b := build(), build()
	assert.Equal(t, a.Words(), b.Words())
	assert.Equal(t, []string{"SOS", "EOS", "no", "lo", "creo", ".", "sentimos", "ella", "esta", "aqui"}, a.Words())
}

func TestLangLookups(t *testing.T) {
	l := NewLang("eng")
	assert.Equal(t, 2, l.Len())
	w, ok := l.Word(EOSToken)
	assert.True(t, ok)
	assert.Equal(t, "EOS", w)
	_, ok = l.Index("EOS")
	assert.False(t, ok)
	_, ok = l.Word(99)
	assert.False(t, ok)

	assert.Equal(t, 2, l.AddWord("hello"))
	assert.Equal(t, 2, l.AddWord("hello"))
	assert.Equal(t, 2, l.Count("hello"))
	assert.Equal(t, 0, l.Count("bye"))
}

func TestEncodeRoundTrip(t *testing.T) {
	l := NewLang("spa")
	l.AddSentence("ella no esta aqui .")
	l.AddSentence("no lo creo .")

	s := "no lo creo ."
	ids, err := TensorFromSentence(l, s)
	require.NoError(t, err)
	assert.Equal(t, EOSToken, ids[len(ids)-1])

	back, err := SentenceFromIndexes(l, ids)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestEncodeUnknownWord(t *testing.T) {
	l := NewLang("spa")
	l.AddSentence("no lo creo .")

	ids, err := TensorFromSentence(l, "no lo se .")
	assert.Nil(t, ids)
	var uw *UnknownWordError
	require.True(t, errors.As(err, &uw))
	assert.Equal(t, "se", uw.Word)
}

func TestTensorsFromPair(t *testing.T) {
	c, err := BuildCorpus(NewLang("spa"), NewLang("eng"),
		[]Pair{{Source: "no lo creo .", Target: "i don t believe it ."}}, 10)
	require.NoError(t, err)
	in, out, err := TensorsFromPair(c, c.Pairs[0])
	require.NoError(t, err)
	assert.Len(t, in, 5)
	assert.Len(t, out, 7)

	_, _, err = TensorsFromPair(c, Pair{Source: "hola", Target: "hi"})
	assert.Error(t, err)
}
