package seq2seq

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/optimizations"
	"github.com/manningwu07/translator/utils"
)

// Layers hold parameters only. Anything needed for backprop is returned from
// Forward as a per-call cache, because the recurrent cells run many times
// per example with shared weights.

// Embedding is a (vocab x dim) lookup table.
type Embedding struct {
	Weight *optimizations.Param
}

func NewEmbedding(name string, vocab, dim int, rng *rand.Rand) *Embedding {
	return &Embedding{
		Weight: optimizations.NewParam(name+".weight", vocab, dim, utils.NormalArray(vocab*dim, rng)),
	}
}

func (e *Embedding) Forward(id int) *mat.VecDense {
	_, c := e.Weight.W.Dims()
	out := mat.NewVecDense(c, nil)
	out.CopyVec(e.Weight.W.RowView(id))
	return out
}

func (e *Embedding) Backward(id int, grad mat.Vector) {
	e.Weight.AddGradRow(id, grad)
}

func (e *Embedding) Params() []*optimizations.Param {
	return []*optimizations.Param{e.Weight}
}

// Linear computes y = W x (+ b).
type Linear struct {
	W *optimizations.Param // (out x in)
	B *optimizations.Param // (out x 1), nil without bias
}

func NewLinear(name string, in, out int, bias bool, rng *rand.Rand) *Linear {
	l := &Linear{
		W: optimizations.NewParam(name+".weight", out, in, utils.RandomArray(in*out, float64(in), rng)),
	}
	if bias {
		l.B = optimizations.NewParam(name+".bias", out, 1, utils.RandomArray(out, float64(in), rng))
	}
	return l
}

func (l *Linear) Forward(x mat.Vector) *mat.VecDense {
	r, _ := l.W.W.Dims()
	y := mat.NewVecDense(r, nil)
	y.MulVec(l.W.W, x)
	if l.B != nil {
		y.AddVec(y, l.B.Col(0))
	}
	return y
}

// Backward accumulates dW = dy x^T (and db = dy) and returns dx = W^T dy.
func (l *Linear) Backward(x, dy mat.Vector) *mat.VecDense {
	l.W.AddGradOuter(dy, x)
	if l.B != nil {
		l.B.AddGradCol(0, dy)
	}
	_, c := l.W.W.Dims()
	dx := mat.NewVecDense(c, nil)
	dx.MulVec(l.W.W.T(), dy)
	return dx
}

func (l *Linear) Params() []*optimizations.Param {
	if l.B == nil {
		return []*optimizations.Param{l.W}
	}
	return []*optimizations.Param{l.W, l.B}
}

// GRU is a single gated recurrent cell. Gate rows are packed r, z, n:
//
//	r  = sigmoid(W_ir x + b_ir + W_hr h + b_hr)
//	z  = sigmoid(W_iz x + b_iz + W_hz h + b_hz)
//	n  = tanh(W_in x + b_in + r * (W_hn h + b_hn))
//	h' = (1 - z) * n + z * h
type GRU struct {
	InputSize, HiddenSize int

	Wih, Whh *optimizations.Param // (3H x in), (3H x H)
	Bih, Bhh *optimizations.Param // (3H x 1)
}

func NewGRU(name string, in, hidden int, rng *rand.Rand) *GRU {
	h3 := 3 * hidden
	fan := float64(hidden)
	return &GRU{
		InputSize:  in,
		HiddenSize: hidden,
		Wih:        optimizations.NewParam(name+".weight_ih", h3, in, utils.RandomArray(h3*in, fan, rng)),
		Whh:        optimizations.NewParam(name+".weight_hh", h3, hidden, utils.RandomArray(h3*hidden, fan, rng)),
		Bih:        optimizations.NewParam(name+".bias_ih", h3, 1, utils.RandomArray(h3, fan, rng)),
		Bhh:        optimizations.NewParam(name+".bias_hh", h3, 1, utils.RandomArray(h3, fan, rng)),
	}
}

type gruCache struct {
	x, h    *mat.VecDense
	r, z, n []float64
	ghn     []float64 // W_hn h + b_hn
}

func (g *GRU) Forward(x, h *mat.VecDense) (*mat.VecDense, *gruCache) {
	H := g.HiddenSize
	gi := mat.NewVecDense(3*H, nil)
	gi.MulVec(g.Wih.W, x)
	gi.AddVec(gi, g.Bih.Col(0))
	gh := mat.NewVecDense(3*H, nil)
	gh.MulVec(g.Whh.W, h)
	gh.AddVec(gh, g.Bhh.Col(0))

	c := &gruCache{
		x: x, h: h,
		r:   make([]float64, H),
		z:   make([]float64, H),
		n:   make([]float64, H),
		ghn: make([]float64, H),
	}
	out := mat.NewVecDense(H, nil)
	for k := 0; k < H; k++ {
		c.r[k] = utils.Sigmoid(gi.AtVec(k) + gh.AtVec(k))
		c.z[k] = utils.Sigmoid(gi.AtVec(H+k) + gh.AtVec(H+k))
		c.ghn[k] = gh.AtVec(2*H + k)
		c.n[k] = math.Tanh(gi.AtVec(2*H+k) + c.r[k]*c.ghn[k])
		out.SetVec(k, (1-c.z[k])*c.n[k]+c.z[k]*h.AtVec(k))
	}
	return out, c
}

// Backward takes dL/dh' and returns dL/dx and dL/dh, accumulating weight grads.
func (g *GRU) Backward(c *gruCache, dhNext mat.Vector) (dx, dh *mat.VecDense) {
	H := g.HiddenSize
	dgi := mat.NewVecDense(3*H, nil)
	dgh := mat.NewVecDense(3*H, nil)
	dh = mat.NewVecDense(H, nil)
	for k := 0; k < H; k++ {
		d := dhNext.AtVec(k)
		r, z, n := c.r[k], c.z[k], c.n[k]

		dn := d * (1 - z)
		dz := d * (c.h.AtVec(k) - n)
		dh.SetVec(k, d*z)

		dnPre := dn * (1 - n*n)
		drPre := dnPre * c.ghn[k] * r * (1 - r)
		dzPre := dz * z * (1 - z)

		dgi.SetVec(k, drPre)
		dgi.SetVec(H+k, dzPre)
		dgi.SetVec(2*H+k, dnPre)
		dgh.SetVec(k, drPre)
		dgh.SetVec(H+k, dzPre)
		dgh.SetVec(2*H+k, dnPre*r)
	}

	g.Wih.AddGradOuter(dgi, c.x)
	g.Bih.AddGradCol(0, dgi)
	g.Whh.AddGradOuter(dgh, c.h)
	g.Bhh.AddGradCol(0, dgh)

	dx = mat.NewVecDense(g.InputSize, nil)
	dx.MulVec(g.Wih.W.T(), dgi)
	dhh := mat.NewVecDense(H, nil)
	dhh.MulVec(g.Whh.W.T(), dgh)
	dh.AddVec(dh, dhh)
	return dx, dh
}

func (g *GRU) Params() []*optimizations.Param {
	return []*optimizations.Param{g.Wih, g.Whh, g.Bih, g.Bhh}
}

// dropoutMask returns nil when dropout is disabled, otherwise a vector of
// 0 or 1/(1-p) entries (inverted dropout).
func dropoutMask(n int, p float64, rng *rand.Rand) *mat.VecDense {
	if p <= 0 || rng == nil {
		return nil
	}
	keep := 1.0 / (1.0 - p)
	mask := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if rng.Float64() >= p {
			mask.SetVec(i, keep)
		}
	}
	return mask
}
