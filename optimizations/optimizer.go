package optimizations

import (
	"strings"

	"github.com/pkg/errors"
)

// Optimizer updates a fixed set of parameters from their accumulated grads.
type Optimizer interface {
	Step()
	ZeroGrad()
	Params() []*Param
}

// New builds an optimizer by name ("sgd" or "adam").
func New(name string, params []*Param, lr float64) (Optimizer, error) {
	switch strings.ToLower(name) {
	case "sgd":
		return NewSGD(params, lr), nil
	case "adam":
		return NewAdam(params, lr), nil
	default:
		return nil, errors.Errorf("unknown optimizer %q", name)
	}
}

func zeroAll(params []*Param) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// SGD is plain gradient descent: p -= lr * g.
type SGD struct {
	LearningRate float64
	params       []*Param
}

func NewSGD(params []*Param, lr float64) *SGD {
	return &SGD{LearningRate: lr, params: params}
}

func (o *SGD) Step() {
	for _, p := range o.params {
		p.W.Add(p.W, scaled(-o.LearningRate, p))
	}
}

func (o *SGD) ZeroGrad()        { zeroAll(o.params) }
func (o *SGD) Params() []*Param { return o.params }
