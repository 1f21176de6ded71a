package optimizations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// quadratic loss 0.5*||w - target||^2 has gradient w - target
func fillQuadraticGrad(p *Param, target []float64) {
	r, c := p.W.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			p.Grad.Set(i, j, p.W.At(i, j)-target[i*c+j])
		}
	}
}

func TestSGDStep(t *testing.T) {
	p := NewParam("w", 1, 2, []float64{1, -1})
	p.Grad.Set(0, 0, 0.5)
	p.Grad.Set(0, 1, -2)
	opt := NewSGD([]*Param{p}, 0.1)
	opt.Step()
	assert.InDelta(t, 0.95, p.W.At(0, 0), 1e-12)
	assert.InDelta(t, -0.8, p.W.At(0, 1), 1e-12)

	opt.ZeroGrad()
	assert.Equal(t, 0.0, mat.Sum(p.Grad))
}

func TestAdamConverges(t *testing.T) {
	target := []float64{0.3, -0.7, 1.2, 0}
	p := NewParam("w", 2, 2, nil)
	opt := NewAdam([]*Param{p}, 0.05)
	for i := 0; i < 500; i++ {
		opt.ZeroGrad()
		fillQuadraticGrad(p, target)
		opt.Step()
	}
	for i, want := range target {
		assert.InDelta(t, want, p.W.RawMatrix().Data[i], 5e-2)
	}
	assert.Equal(t, 500, opt.T)
}

func TestAdamFirstStepMagnitude(t *testing.T) {
	// with bias correction the first step moves every weight by ~lr
	p := NewParam("w", 1, 3, []float64{0, 0, 0})
	p.Grad.Set(0, 0, 10)
	p.Grad.Set(0, 1, -0.01)
	p.Grad.Set(0, 2, 0)
	NewAdam([]*Param{p}, 0.01).Step()
	assert.InDelta(t, -0.01, p.W.At(0, 0), 1e-6)
	assert.InDelta(t, 0.01, p.W.At(0, 1), 1e-5)
	assert.Equal(t, 0.0, p.W.At(0, 2))
}

func TestNewByName(t *testing.T) {
	p := []*Param{NewParam("w", 1, 1, nil)}
	o, err := New("SGD", p, 0.1)
	require.NoError(t, err)
	assert.IsType(t, &SGD{}, o)
	o, err = New("adam", p, 0.1)
	require.NoError(t, err)
	assert.IsType(t, &Adam{}, o)
	_, err = New("rmsprop", p, 0.1)
	assert.Error(t, err)
}

func TestParamGradHelpers(t *testing.T) {
	p := NewParam("e", 3, 2, nil)
	p.AddGradRow(1, mat.NewVecDense(2, []float64{1, 2}))
	p.AddGradRow(1, mat.NewVecDense(2, []float64{1, 2}))
	assert.Equal(t, 2.0, p.Grad.At(1, 0))
	assert.Equal(t, 4.0, p.Grad.At(1, 1))

	p.AddGradOuter(mat.NewVecDense(3, []float64{1, 0, 0}), mat.NewVecDense(2, []float64{3, 4}))
	assert.Equal(t, 3.0, p.Grad.At(0, 0))
	assert.Equal(t, 4.0, p.Grad.At(0, 1))
}
