package optimizations

import "gonum.org/v1/gonum/mat"

// Param is a trainable matrix together with its accumulated gradient.
// Vectors (biases, alignment weights) are stored as (n x 1) or (1 x n).
type Param struct {
	Name string
	W    *mat.Dense
	Grad *mat.Dense

	// Adam state, allocated lazily by Adam.Step.
	m, v *mat.Dense
}

func NewParam(name string, rows, cols int, data []float64) *Param {
	return &Param{
		Name: name,
		W:    mat.NewDense(rows, cols, data),
		Grad: mat.NewDense(rows, cols, nil),
	}
}

func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// Col returns column j of W as a vector view (used for biases).
func (p *Param) Col(j int) mat.Vector {
	return p.W.ColView(j)
}

// AddGradRow adds g into row i of the gradient (sparse embedding update).
func (p *Param) AddGradRow(i int, g mat.Vector) {
	_, c := p.Grad.Dims()
	for j := 0; j < c; j++ {
		p.Grad.Set(i, j, p.Grad.At(i, j)+g.AtVec(j))
	}
}

// AddGradCol adds g into column j of the gradient.
func (p *Param) AddGradCol(j int, g mat.Vector) {
	r, _ := p.Grad.Dims()
	for i := 0; i < r; i++ {
		p.Grad.Set(i, j, p.Grad.At(i, j)+g.AtVec(i))
	}
}

// AddGradOuter accumulates Grad += x * y^T.
func (p *Param) AddGradOuter(x, y mat.Vector) {
	p.Grad.RankOne(p.Grad, 1, x, y)
}

func zerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}
