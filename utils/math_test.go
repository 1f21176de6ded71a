package utils

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestVecSoftmaxIsDistribution(t *testing.T) {
	v := mat.NewVecDense(5, []float64{1000, -3, 0.5, 2, 1000})
	p := VecSoftmax(v)
	sum := floats.Sum(p.RawVector().Data)
	assert.InDelta(t, 1.0, sum, 1e-12)
	for i := 0; i < p.Len(); i++ {
		assert.GreaterOrEqual(t, p.AtVec(i), 0.0)
	}
	assert.InDelta(t, p.AtVec(0), p.AtVec(4), 1e-12)
}

func TestVecLogSoftmaxMatchesSoftmax(t *testing.T) {
	v := mat.NewVecDense(4, []float64{0.1, -2, 3, 0})
	p := VecSoftmax(v)
	lp := VecLogSoftmax(v)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, math.Log(p.AtVec(i)), lp.AtVec(i), 1e-12)
	}
}

func TestNLLWithIndexGradient(t *testing.T) {
	logits := mat.NewVecDense(4, []float64{0.3, -1.2, 0.8, 0.05})
	gold := 2
	loss, grad := NLLWithIndex(VecLogSoftmax(logits), gold)

	// gradient of softmax-NLL sums to zero
	assert.InDelta(t, 0.0, floats.Sum(grad.RawVector().Data), 1e-12)

	eps := 1e-6
	for i := 0; i < 4; i++ {
		w0 := logits.AtVec(i)
		logits.SetVec(i, w0+eps)
		lp, _ := NLLWithIndex(VecLogSoftmax(logits), gold)
		logits.SetVec(i, w0-eps)
		lm, _ := NLLWithIndex(VecLogSoftmax(logits), gold)
		logits.SetVec(i, w0)
		assert.InDelta(t, (lp-lm)/(2*eps), grad.AtVec(i), 1e-6)
	}
	assert.Greater(t, loss, 0.0)
}

func TestSoftmaxBackwardFiniteDiff(t *testing.T) {
	s := mat.NewVecDense(3, []float64{0.2, -0.4, 1.1})
	w := mat.NewVecDense(3, []float64{1.5, -0.7, 0.3})
	f := func() float64 { return mat.Dot(w, VecSoftmax(s)) }

	dS := SoftmaxBackward(w, VecSoftmax(s))
	eps := 1e-6
	for j := 0; j < 3; j++ {
		v0 := s.AtVec(j)
		s.SetVec(j, v0+eps)
		lp := f()
		s.SetVec(j, v0-eps)
		lm := f()
		s.SetVec(j, v0)
		assert.InDelta(t, (lp-lm)/(2*eps), dS.AtVec(j), 1e-6)
	}
}

func TestRandomArrayBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	arr := RandomArray(1000, 16, rng)
	for _, v := range arr {
		assert.LessOrEqual(t, math.Abs(v), 0.25)
	}
	x := XavierArray(4, 8, rng)
	assert.Len(t, x, 32)
}

func TestConcatAndArgMax(t *testing.T) {
	c := Concat(mat.NewVecDense(2, []float64{1, 2}), mat.NewVecDense(1, []float64{9}))
	assert.Equal(t, []float64{1, 2, 9}, c.RawVector().Data)
	assert.Equal(t, 2, ArgMax(c))
}

func TestMatrixNorm(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{3, 0, 0, 4})
	assert.InDelta(t, 5.0, MatrixNorm(m), 1e-12)
	assert.Equal(t, 0.0, MatrixNorm(mat.NewDense(2, 3, nil)))
}

func TestAsMinutes(t *testing.T) {
	assert.Equal(t, "2m 5s", AsMinutes(125*time.Second))
	assert.Equal(t, "0m 0s", AsMinutes(0))
}
