package kge

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/translator/optimizations"
	"github.com/manningwu07/translator/utils"
)

// ErrUnknownEntity is returned by Nearest for names the graph never mentioned.
var ErrUnknownEntity = errors.New("word not found in the vocabulary")

// TransE embeds entities and relations so that E[h] + R[r] is close to E[t]
// for true triples.
type TransE struct {
	Index    *Index
	Dim      int
	Entity   *optimizations.Param // (entities x Dim)
	Relation *optimizations.Param // (relations x Dim)
}

func NewTransE(ix *Index, dim int, rng *rand.Rand) (*TransE, error) {
	ne, nr := ix.NumEntities(), ix.NumRelations()
	if ne == 0 || nr == 0 {
		return nil, errors.New("no triples to embed")
	}
	if dim <= 0 {
		return nil, errors.Errorf("embedding size must be positive, got %d", dim)
	}
	return &TransE{
		Index:    ix,
		Dim:      dim,
		Entity:   optimizations.NewParam("entity_embeddings", ne, dim, utils.NormalArray(ne*dim, rng)),
		Relation: optimizations.NewParam("relation_embeddings", nr, dim, utils.NormalArray(nr*dim, rng)),
	}, nil
}

// residual returns E[h] + R[r] - E[t].
func (m *TransE) residual(h, r, t int) *mat.VecDense {
	d := mat.NewVecDense(m.Dim, nil)
	d.AddVec(m.Entity.W.RowView(h), m.Relation.W.RowView(r))
	d.SubVec(d, m.Entity.W.RowView(t))
	return d
}

// Score is ||E[h] + R[r] - E[t]||_2; lower means more plausible.
func (m *TransE) Score(h, r, t int) float64 {
	return mat.Norm(m.residual(h, r, t), 2)
}

// addScoreGrad accumulates sign * dScore/dparams.
func (m *TransE) addScoreGrad(h, r, t int, sign float64) {
	d := m.residual(h, r, t)
	n := mat.Norm(d, 2)
	if n == 0 {
		return
	}
	d.ScaleVec(sign/n, d)
	m.Entity.AddGradRow(h, d)
	m.Relation.AddGradRow(r, d)
	d.ScaleVec(-1, d)
	m.Entity.AddGradRow(t, d)
}

// MarginLoss is max(0, score(pos) - score(neg) + margin).
func (m *TransE) MarginLoss(pos, neg IndexedTriple, margin float64) float64 {
	return math.Max(0, m.Score(pos.Head, pos.Relation, pos.Tail)-m.Score(neg.Head, neg.Relation, neg.Tail)+margin)
}

// backprop accumulates the gradient of MarginLoss and returns the loss.
func (m *TransE) backprop(pos, neg IndexedTriple, margin float64) float64 {
	loss := m.MarginLoss(pos, neg, margin)
	if loss > 0 {
		m.addScoreGrad(pos.Head, pos.Relation, pos.Tail, 1)
		m.addScoreGrad(neg.Head, neg.Relation, neg.Tail, -1)
	}
	return loss
}

func (m *TransE) Params() []*optimizations.Param {
	return []*optimizations.Param{m.Entity, m.Relation}
}

// TrainConfig controls Train.
type TrainConfig struct {
	Epochs       int
	LearningRate float64
	Margin       float64
	// OnEpoch, when set, sees the summed loss of every epoch.
	OnEpoch func(epoch int, loss float64)
}

// Train runs Adam over the triples, one step per triple with a single
// corrupted tail drawn uniformly from all entities. It returns the summed
// loss of each epoch.
func (m *TransE) Train(ctx context.Context, cfg TrainConfig, rng *rand.Rand) ([]float64, error) {
	triples := append([]IndexedTriple(nil), m.Index.Triples...)
	opt := optimizations.NewAdam(m.Params(), cfg.LearningRate)
	ne := m.Index.NumEntities()

	losses := make([]float64, 0, cfg.Epochs)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return losses, err
		}
		rng.Shuffle(len(triples), func(i, j int) { triples[i], triples[j] = triples[j], triples[i] })

		total := 0.0
		for _, pos := range triples {
			neg := IndexedTriple{Head: pos.Head, Relation: pos.Relation, Tail: rng.IntN(ne)}
			opt.ZeroGrad()
			total += m.backprop(pos, neg, cfg.Margin)
			opt.Step()
		}
		losses = append(losses, total)
		log.Info().Int("epoch", epoch+1).Float64("loss", total).Msg("transe epoch")
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(epoch+1, total)
		}
	}
	return losses, nil
}

// Neighbour is a ranked query result.
type Neighbour struct {
	Entity   string
	Distance float64
}

// Nearest ranks every other entity by L2 distance to the query's embedding
// and returns the k closest.
func (m *TransE) Nearest(entity string, k int) ([]Neighbour, error) {
	q, ok := m.Index.EntityID(entity)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntity, "%q", entity)
	}
	qv := m.Entity.W.RawRowView(q)

	out := make([]Neighbour, 0, m.Index.NumEntities()-1)
	for id, name := range m.Index.entities {
		if id == q {
			continue
		}
		out = append(out, Neighbour{Entity: name, Distance: floats.Distance(qv, m.Entity.W.RawRowView(id), 2)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}
