package IO

import "strings"

// Reserved ids seeded into every Lang.
const (
	SOSToken = 0
	EOSToken = 1
)

const (
	sosWord = "SOS"
	eosWord = "EOS"
)

// Lang is the word <-> index table for one language. Indices are assigned
// in first-seen order and never reused; the table only grows.
//
// SOS and EOS occupy ids 0 and 1 in the index -> word direction only, so a
// literal "SOS" in a sentence gets its own regular id.
type Lang struct {
	Name string

	wordToIndex map[string]int
	wordCount   map[string]int
	indexToWord []string
}

func NewLang(name string) *Lang {
	return &Lang{
		Name:        name,
		wordToIndex: make(map[string]int),
		wordCount:   make(map[string]int),
		indexToWord: []string{SOSToken: sosWord, EOSToken: eosWord},
	}
}

// AddSentence registers every space-separated token of s.
func (l *Lang) AddSentence(s string) {
	for _, w := range strings.Split(s, " ") {
		l.AddWord(w)
	}
}

// AddWord returns the id of w, assigning the next free one on first sight.
func (l *Lang) AddWord(w string) int {
	if idx, ok := l.wordToIndex[w]; ok {
		l.wordCount[w]++
		return idx
	}
	idx := len(l.indexToWord)
	l.wordToIndex[w] = idx
	l.wordCount[w] = 1
	l.indexToWord = append(l.indexToWord, w)
	return idx
}

// Index looks up the id of w.
func (l *Lang) Index(w string) (int, bool) {
	idx, ok := l.wordToIndex[w]
	return idx, ok
}

// Word looks up the token for id, including the reserved symbols.
func (l *Lang) Word(idx int) (string, bool) {
	if idx < 0 || idx >= len(l.indexToWord) {
		return "", false
	}
	return l.indexToWord[idx], true
}

// Count is how many times w was added; zero when unknown.
func (l *Lang) Count(w string) int { return l.wordCount[w] }

// Len is the number of ids in use, reserved symbols included.
func (l *Lang) Len() int { return len(l.indexToWord) }

// Words returns the index -> word table in id order.
func (l *Lang) Words() []string {
	out := make([]string, len(l.indexToWord))
	copy(out, l.indexToWord)
	return out
}
