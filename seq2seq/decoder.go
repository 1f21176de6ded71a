package seq2seq

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/optimizations"
	"github.com/manningwu07/translator/utils"
)

// AttnDecoder emits one target token per step, attending over a fixed
// MaxLength window of encoder outputs (additive attention):
//
//	e_i   = tanh(W_h h + W_e enc_i)
//	a     = softmax(v . e_i)
//	ctx   = sum_i a_i enc_i
//	h'    = GRU([dropout(emb(y)); ctx], h)
//	log p = log_softmax(W_o h' + b_o)
//
// Zero-padded positions past the source length take part in the softmax.
type AttnDecoder struct {
	HiddenSize int
	OutputSize int
	MaxLength  int
	DropoutP   float64

	Embedding *Embedding
	FcHidden  *Linear // no bias
	FcEncoder *Linear // no bias
	Alignment *optimizations.Param
	GRU       *GRU
	Out       *Linear

	rng *rand.Rand
}

func NewAttnDecoder(hiddenSize, outputSize, maxLength int, dropoutP float64, rng *rand.Rand) *AttnDecoder {
	return &AttnDecoder{
		HiddenSize: hiddenSize,
		OutputSize: outputSize,
		MaxLength:  maxLength,
		DropoutP:   dropoutP,
		Embedding:  NewEmbedding("decoder.embedding", outputSize, hiddenSize, rng),
		FcHidden:   NewLinear("decoder.fc_hidden", hiddenSize, hiddenSize, false, rng),
		FcEncoder:  NewLinear("decoder.fc_encoder", hiddenSize, hiddenSize, false, rng),
		Alignment:  optimizations.NewParam("decoder.alignment_vector", 1, hiddenSize, utils.XavierArray(1, hiddenSize, rng)),
		GRU:        NewGRU("decoder.gru", 2*hiddenSize, hiddenSize, rng),
		Out:        NewLinear("decoder.out", hiddenSize, outputSize, true, rng),
		rng:        rng,
	}
}

// DecoderStep is the result of one decode step plus its backprop cache.
type DecoderStep struct {
	Input     int
	LogProbs  *mat.VecDense // (OutputSize)
	Hidden    *mat.VecDense // (HiddenSize)
	Attention *mat.VecDense // (MaxLength)

	prevHidden *mat.VecDense
	enc        *mat.Dense // (MaxLength x H)
	mask       *mat.VecDense
	act        *mat.Dense // tanh(W_h h + W_e enc_i), (MaxLength x H)
	gru        *gruCache
}

// Step runs one decode step. enc must be (MaxLength x HiddenSize). With
// train set, dropout is applied to the input embedding.
func (d *AttnDecoder) Step(input int, hidden *mat.VecDense, enc *mat.Dense, train bool) *DecoderStep {
	H, L := d.HiddenSize, d.MaxLength

	embedded := d.Embedding.Forward(input)
	var mask *mat.VecDense
	if train {
		mask = dropoutMask(H, d.DropoutP, d.rng)
	}
	if mask != nil {
		embedded.MulElemVec(embedded, mask)
	}

	th := d.FcHidden.Forward(hidden)
	act := mat.NewDense(L, H, nil)
	act.Mul(enc, d.FcEncoder.W.W.T())
	act.Apply(func(_, j int, v float64) float64 {
		return math.Tanh(v + th.AtVec(j))
	}, act)

	scores := mat.NewVecDense(L, nil)
	scores.MulVec(act, d.Alignment.W.RowView(0))
	attn := utils.VecSoftmax(scores)

	ctx := mat.NewVecDense(H, nil)
	ctx.MulVec(enc.T(), attn)

	h, gc := d.GRU.Forward(utils.Concat(embedded, ctx), hidden)
	logits := d.Out.Forward(h)

	return &DecoderStep{
		Input:      input,
		LogProbs:   utils.VecLogSoftmax(logits),
		Hidden:     h,
		Attention:  attn,
		prevHidden: hidden,
		enc:        enc,
		mask:       mask,
		act:        act,
		gru:        gc,
	}
}

// Backward takes dL/dlogits for this step and dL/dh' coming from the next
// step (nil for the last one). It accumulates weight grads, adds dL/denc into
// dEnc and returns dL/dh for the previous step.
func (d *AttnDecoder) Backward(s *DecoderStep, dLogits, dHidden mat.Vector, dEnc *mat.Dense) *mat.VecDense {
	H, L := d.HiddenSize, d.MaxLength

	dh := d.Out.Backward(s.Hidden, dLogits)
	if dHidden != nil {
		dh.AddVec(dh, dHidden)
	}
	dx, dPrev := d.GRU.Backward(s.gru, dh)

	dEmb := mat.NewVecDense(H, nil)
	dEmb.CopyVec(dx.SliceVec(0, H))
	if s.mask != nil {
		dEmb.MulElemVec(dEmb, s.mask)
	}
	d.Embedding.Backward(s.Input, dEmb)
	dCtx := dx.SliceVec(H, 2*H)

	// ctx = enc^T a
	dAttn := mat.NewVecDense(L, nil)
	dAttn.MulVec(s.enc, dCtx)
	dEnc.RankOne(dEnc, 1, s.Attention, dCtx)

	dScores := utils.SoftmaxBackward(dAttn, s.Attention)

	// scores = act v
	dv := mat.NewVecDense(H, nil)
	dv.MulVec(s.act.T(), dScores)
	d.Alignment.AddGradRow(0, dv)

	dPre := mat.NewDense(L, H, nil)
	dPre.RankOne(dPre, 1, dScores, d.Alignment.W.RowView(0))
	dPre.Apply(func(i, j int, v float64) float64 {
		a := s.act.At(i, j)
		return v * (1 - a*a)
	}, dPre)

	// pre_i = W_h h + W_e enc_i
	dTh := mat.NewVecDense(H, nil)
	for i := 0; i < L; i++ {
		dTh.AddVec(dTh, dPre.RowView(i))
	}
	dWe := mat.NewDense(H, H, nil)
	dWe.Mul(dPre.T(), s.enc)
	d.FcEncoder.W.Grad.Add(d.FcEncoder.W.Grad, dWe)
	dEncProj := mat.NewDense(L, H, nil)
	dEncProj.Mul(dPre, d.FcEncoder.W.W)
	dEnc.Add(dEnc, dEncProj)

	dPrev.AddVec(dPrev, d.FcHidden.Backward(s.prevHidden, dTh))
	return dPrev
}

func (d *AttnDecoder) InitHidden() *mat.VecDense {
	return mat.NewVecDense(d.HiddenSize, nil)
}

func (d *AttnDecoder) Params() []*optimizations.Param {
	ps := d.Embedding.Params()
	ps = append(ps, d.FcHidden.Params()...)
	ps = append(ps, d.FcEncoder.Params()...)
	ps = append(ps, d.Alignment)
	ps = append(ps, d.GRU.Params()...)
	return append(ps, d.Out.Params()...)
}
