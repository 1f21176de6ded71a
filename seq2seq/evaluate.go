package seq2seq

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/IO"
	"github.com/manningwu07/translator/utils"
)

// EOSWord marks a decode that ended on the end-of-sentence token.
const EOSWord = "<EOS>"

// Evaluate greedily translates a normalized sentence. It returns the decoded
// words and one attention row per decoded step (len(words) x MaxLength).
func Evaluate(m *Model, input, output *IO.Lang, sentence string) ([]string, *mat.Dense, error) {
	ids, err := IO.TensorFromSentence(input, sentence)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) > m.MaxLength {
		return nil, nil, errors.Wrapf(ErrSentenceTooLong, "%d tokens, max %d", len(ids), m.MaxLength)
	}

	trace, enc := m.encode(ids)
	hidden := trace.Hidden
	next := IO.SOSToken

	var (
		words []string
		rows  []*mat.VecDense
	)
	for di := 0; di < m.MaxLength; di++ {
		s := m.Decoder.Step(next, hidden, enc, false)
		rows = append(rows, s.Attention)
		hidden = s.Hidden

		next = utils.ArgMax(s.LogProbs)
		if next == IO.EOSToken {
			words = append(words, EOSWord)
			break
		}
		w, ok := output.Word(next)
		if !ok {
			return nil, nil, errors.Errorf("decoder produced index %d outside %s vocabulary", next, output.Name)
		}
		words = append(words, w)
	}

	attn := mat.NewDense(len(rows), m.MaxLength, nil)
	for i, r := range rows {
		attn.SetRow(i, r.RawVector().Data)
	}
	return words, attn, nil
}
