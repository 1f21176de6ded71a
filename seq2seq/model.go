package seq2seq

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/optimizations"
	"github.com/manningwu07/translator/params"
)

// Model pairs an encoder with an attention decoder sharing one hidden size
// and attention span.
type Model struct {
	Encoder   *Encoder
	Decoder   *AttnDecoder
	MaxLength int
}

func NewModel(inputVocab, outputVocab, hiddenSize, maxLength int, dropoutP float64, rng *rand.Rand) *Model {
	return &Model{
		Encoder:   NewEncoder(inputVocab, hiddenSize, rng),
		Decoder:   NewAttnDecoder(hiddenSize, outputVocab, maxLength, dropoutP, rng),
		MaxLength: maxLength,
	}
}

// NewModelFromConfig sizes a model for the given vocabularies.
func NewModelFromConfig(cfg *params.Config, inputVocab, outputVocab int, rng *rand.Rand) *Model {
	return NewModel(inputVocab, outputVocab, cfg.HiddenSize, cfg.MaxLength, cfg.Dropout, rng)
}

// encode runs the encoder and lays its outputs into a (MaxLength x H)
// buffer, zero-padded past the input length.
func (m *Model) encode(ids []int) (*EncoderTrace, *mat.Dense) {
	tr := m.Encoder.Forward(ids)
	enc := mat.NewDense(m.MaxLength, m.Encoder.HiddenSize, nil)
	for t, o := range tr.Outputs {
		enc.SetRow(t, o.RawVector().Data)
	}
	return tr, enc
}

func (m *Model) Params() []*optimizations.Param {
	return append(m.Encoder.Params(), m.Decoder.Params()...)
}
