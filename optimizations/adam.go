package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam keeps per-parameter first/second moment estimates.
type Adam struct {
	LearningRate float64
	Beta1, Beta2 float64
	Eps          float64
	WeightDecay  float64

	T      int
	params []*Param
}

func NewAdam(params []*Param, lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Eps:          1e-8,
		params:       params,
	}
}

func (o *Adam) Step() {
	o.T++
	for _, p := range o.params {
		if p.m == nil {
			p.m = zerosLike(p.W)
			p.v = zerosLike(p.W)
		}
		AdamUpdateInPlace(p.W, p.Grad, p.m, p.v, o.T,
			o.LearningRate, o.Beta1, o.Beta2, o.Eps, o.WeightDecay)
	}
}

func (o *Adam) ZeroGrad()        { zeroAll(o.params) }
func (o *Adam) Params() []*Param { return o.params }

// p -= lr * (mhat/(sqrt(vhat)+eps) + wd * p) with bias correction (AdamW).
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	c1 := 1.0 / (1.0 - math.Pow(beta1, float64(t)))
	c2 := 1.0 / (1.0 - math.Pow(beta2, float64(t)))
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			mhat := mij * c1
			vhat := vij * c2
			update := mhat/(math.Sqrt(vhat)+eps) + weightDecay*p.At(i, j)
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*update)
		}
	}
}

func scaled(s float64, p *Param) *mat.Dense {
	out := zerosLike(p.Grad)
	out.Scale(s, p.Grad)
	return out
}
