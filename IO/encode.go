package IO

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// UnknownWordError reports the first token missing from a Lang.
type UnknownWordError struct {
	Lang string
	Word string
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("unknown %s word %q", e.Lang, e.Word)
}

// IndexesFromSentence maps every token of s through l. Encoding stops at the
// first unknown token; no partial result is returned.
func IndexesFromSentence(l *Lang, s string) ([]int, error) {
	words := strings.Split(s, " ")
	ids := make([]int, len(words))
	for i, w := range words {
		idx, ok := l.Index(w)
		if !ok {
			return nil, &UnknownWordError{Lang: l.Name, Word: w}
		}
		ids[i] = idx
	}
	return ids, nil
}

// TensorFromSentence is IndexesFromSentence terminated by EOS.
func TensorFromSentence(l *Lang, s string) ([]int, error) {
	ids, err := IndexesFromSentence(l, s)
	if err != nil {
		return nil, err
	}
	return append(ids, EOSToken), nil
}

// TensorsFromPair encodes both sides of a training pair.
func TensorsFromPair(c *Corpus, p Pair) (input, target []int, err error) {
	input, err = TensorFromSentence(c.Input, p.Source)
	if err != nil {
		return nil, nil, errors.Wrap(err, "source")
	}
	target, err = TensorFromSentence(c.Output, p.Target)
	if err != nil {
		return nil, nil, errors.Wrap(err, "target")
	}
	return input, target, nil
}

// SentenceFromIndexes is the inverse of IndexesFromSentence; a trailing EOS
// is dropped.
func SentenceFromIndexes(l *Lang, ids []int) (string, error) {
	if n := len(ids); n > 0 && ids[n-1] == EOSToken {
		ids = ids[:n-1]
	}
	words := make([]string, len(ids))
	for i, id := range ids {
		w, ok := l.Word(id)
		if !ok {
			return "", errors.Errorf("index %d not in %s vocabulary", id, l.Name)
		}
		words[i] = w
	}
	return strings.Join(words, " "), nil
}
