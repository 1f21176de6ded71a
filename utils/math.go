package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Vector helpers used by the recurrent layers. All activations are column
// vectors (*mat.VecDense); weights are (out x in) *mat.Dense.

// RandomArray returns 'size' samples from U(-1/sqrt(v), 1/sqrt(v)).
func RandomArray(size int, v float64, rng *rand.Rand) []float64 {
	bound := 1.0 / math.Sqrt(v+1e-12)
	return uniformArray(size, bound, rng)
}

// XavierArray samples a (rows x cols) matrix from the Glorot uniform range.
func XavierArray(rows, cols int, rng *rand.Rand) []float64 {
	bound := math.Sqrt(6.0 / float64(rows+cols))
	return uniformArray(rows*cols, bound, rng)
}

// NormalArray samples N(0, 1), the default for embedding tables.
func NormalArray(size int, rng *rand.Rand) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func uniformArray(size int, bound float64, rng *rand.Rand) []float64 {
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: rng}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Concat stacks a on top of b.
func Concat(a, b mat.Vector) *mat.VecDense {
	na, nb := a.Len(), b.Len()
	out := mat.NewVecDense(na+nb, nil)
	for i := 0; i < na; i++ {
		out.SetVec(i, a.AtVec(i))
	}
	for i := 0; i < nb; i++ {
		out.SetVec(na+i, b.AtVec(i))
	}
	return out
}

// ArgMax returns the index of the largest element.
func ArgMax(v *mat.VecDense) int {
	return floats.MaxIdx(v.RawVector().Data)
}

// ---------- Softmax variants ----------

// VecSoftmax applies a numerically stable softmax over a vector.
func VecSoftmax(v mat.Vector) *mat.VecDense {
	n := v.Len()
	out := mat.NewVecDense(n, nil)
	mx := v.AtVec(0)
	for i := 1; i < n; i++ {
		if v.AtVec(i) > mx {
			mx = v.AtVec(i)
		}
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		e := math.Exp(v.AtVec(i) - mx)
		out.SetVec(i, e)
		sum += e
	}
	out.ScaleVec(1.0/sum, out)
	return out
}

// VecLogSoftmax returns log(softmax(v)) without forming the probabilities.
func VecLogSoftmax(v mat.Vector) *mat.VecDense {
	n := v.Len()
	mx := v.AtVec(0)
	for i := 1; i < n; i++ {
		if v.AtVec(i) > mx {
			mx = v.AtVec(i)
		}
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Exp(v.AtVec(i) - mx)
	}
	lse := mx + math.Log(sum)
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, v.AtVec(i)-lse)
	}
	return out
}

// SoftmaxBackward maps dL/dA to dL/dS for A = softmax(S):
// s = sum_k dA[k] * A[k]; dS[j] = A[j] * (dA[j] - s)
func SoftmaxBackward(dA, A mat.Vector) *mat.VecDense {
	n := A.Len()
	s := mat.Dot(dA, A)
	dS := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		dS.SetVec(j, A.AtVec(j)*(dA.AtVec(j)-s))
	}
	return dS
}

// ---------- Loss ----------

// NLLWithIndex takes log-probabilities produced by VecLogSoftmax and returns
// the negative log-likelihood of gold together with the gradient with
// respect to the logits that fed the log-softmax (softmax - onehot).
func NLLWithIndex(logp *mat.VecDense, gold int) (float64, *mat.VecDense) {
	n := logp.Len()
	if gold < 0 || gold >= n {
		panic("NLLWithIndex: gold index out of range")
	}
	loss := -logp.AtVec(gold)
	grad := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		grad.SetVec(i, math.Exp(logp.AtVec(i)))
	}
	grad.SetVec(gold, grad.AtVec(gold)-1.0)
	return loss, grad
}

// MatrixNorm is the Frobenius norm, handy for progress logs.
func MatrixNorm(m mat.Matrix) float64 {
	return mat.Norm(m, 2)
}
