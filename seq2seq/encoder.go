package seq2seq

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/optimizations"
)

// Encoder reads the source sentence one token at a time. The output of
// every step is the new hidden state.
type Encoder struct {
	HiddenSize int
	Embedding  *Embedding
	GRU        *GRU
}

func NewEncoder(inputSize, hiddenSize int, rng *rand.Rand) *Encoder {
	return &Encoder{
		HiddenSize: hiddenSize,
		Embedding:  NewEmbedding("encoder.embedding", inputSize, hiddenSize, rng),
		GRU:        NewGRU("encoder.gru", hiddenSize, hiddenSize, rng),
	}
}

func (e *Encoder) InitHidden() *mat.VecDense {
	return mat.NewVecDense(e.HiddenSize, nil)
}

// Step consumes one token and returns (output, hidden).
func (e *Encoder) Step(id int, hidden *mat.VecDense) (*mat.VecDense, *mat.VecDense) {
	h, _ := e.GRU.Forward(e.Embedding.Forward(id), hidden)
	return h, h
}

// EncoderTrace keeps everything needed to backprop through one sequence.
type EncoderTrace struct {
	IDs     []int
	Outputs []*mat.VecDense
	Hidden  *mat.VecDense
	steps   []*gruCache
}

// Forward runs the whole sequence from a zero hidden state.
func (e *Encoder) Forward(ids []int) *EncoderTrace {
	tr := &EncoderTrace{
		IDs:     ids,
		Outputs: make([]*mat.VecDense, len(ids)),
		steps:   make([]*gruCache, len(ids)),
	}
	h := e.InitHidden()
	for t, id := range ids {
		h, tr.steps[t] = e.GRU.Forward(e.Embedding.Forward(id), h)
		tr.Outputs[t] = h
	}
	tr.Hidden = h
	return tr
}

// Backward accumulates gradients given dL/d(output_t) as rows of dOutputs
// (rows past the sequence length are ignored) and dL/d(final hidden).
func (e *Encoder) Backward(tr *EncoderTrace, dOutputs *mat.Dense, dHidden mat.Vector) {
	dh := mat.NewVecDense(e.HiddenSize, nil)
	if dHidden != nil {
		dh.CopyVec(dHidden)
	}
	for t := len(tr.IDs) - 1; t >= 0; t-- {
		if dOutputs != nil {
			dh.AddVec(dh, dOutputs.RowView(t))
		}
		dx, dPrev := e.GRU.Backward(tr.steps[t], dh)
		e.Embedding.Backward(tr.IDs[t], dx)
		dh = dPrev
	}
}

func (e *Encoder) Params() []*optimizations.Param {
	return append(e.Embedding.Params(), e.GRU.Params()...)
}
