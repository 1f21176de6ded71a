package seq2seq

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/IO"
	"github.com/manningwu07/translator/optimizations"
	"github.com/manningwu07/translator/utils"
)

// ErrSentenceTooLong is returned for inputs that do not fit the attention span.
var ErrSentenceTooLong = errors.New("sentence longer than the attention span")

// Trainer owns one optimizer per network and runs single-example steps.
type Trainer struct {
	Model               *Model
	EncoderOptim        optimizations.Optimizer
	DecoderOptim        optimizations.Optimizer
	TeacherForcingRatio float64

	rng *rand.Rand
}

func NewTrainer(m *Model, optimizer string, lr, teacherForcing float64, rng *rand.Rand) (*Trainer, error) {
	encOpt, err := optimizations.New(optimizer, m.Encoder.Params(), lr)
	if err != nil {
		return nil, errors.Wrap(err, "encoder optimizer")
	}
	decOpt, err := optimizations.New(optimizer, m.Decoder.Params(), lr)
	if err != nil {
		return nil, errors.Wrap(err, "decoder optimizer")
	}
	return &Trainer{
		Model:               m,
		EncoderOptim:        encOpt,
		DecoderOptim:        decOpt,
		TeacherForcingRatio: teacherForcing,
		rng:                 rng,
	}, nil
}

// TrainStep runs forward, backward and one update of both networks on a
// single (input, target) pair and returns the loss per target token.
func (tr *Trainer) TrainStep(input, target []int) (float64, error) {
	loss, err := tr.backprop(input, target)
	if err != nil {
		return 0, err
	}
	tr.EncoderOptim.Step()
	tr.DecoderOptim.Step()
	return loss / float64(len(target)), nil
}

// GradNorm is the global L2 norm of the gradients left by the last step.
func (tr *Trainer) GradNorm() float64 {
	sq := 0.0
	for _, p := range tr.Model.Params() {
		n := utils.MatrixNorm(p.Grad)
		sq += n * n
	}
	return math.Sqrt(sq)
}

// backprop leaves fresh gradients in every parameter and returns the summed
// NLL over the decoded steps.
func (tr *Trainer) backprop(input, target []int) (float64, error) {
	m := tr.Model
	if len(input) > m.MaxLength {
		return 0, errors.Wrapf(ErrSentenceTooLong, "%d tokens, max %d", len(input), m.MaxLength)
	}
	if len(input) == 0 || len(target) == 0 {
		return 0, errors.New("empty training pair")
	}

	tr.EncoderOptim.ZeroGrad()
	tr.DecoderOptim.ZeroGrad()

	trace, enc := m.encode(input)

	forced := tr.rng.Float64() < tr.TeacherForcingRatio
	hidden := trace.Hidden
	next := IO.SOSToken

	var (
		loss    float64
		steps   []*DecoderStep
		dLogits []*mat.VecDense
	)
	for _, gold := range target {
		s := m.Decoder.Step(next, hidden, enc, true)
		l, g := utils.NLLWithIndex(s.LogProbs, gold)
		loss += l
		steps = append(steps, s)
		dLogits = append(dLogits, g)
		hidden = s.Hidden

		if forced {
			next = gold
			continue
		}
		next = utils.ArgMax(s.LogProbs)
		if next == IO.EOSToken {
			break
		}
	}

	dEnc := mat.NewDense(m.MaxLength, m.Encoder.HiddenSize, nil)
	var dHidden *mat.VecDense
	for i := len(steps) - 1; i >= 0; i-- {
		var upstream mat.Vector
		if dHidden != nil {
			upstream = dHidden
		}
		dHidden = m.Decoder.Backward(steps[i], dLogits[i], upstream, dEnc)
	}
	m.Encoder.Backward(trace, dEnc, dHidden)
	return loss, nil
}
