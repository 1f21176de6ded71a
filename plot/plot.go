// Package plot renders attention matrices and loss curves to PNG.
package plot

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// attentionGrid adapts an attention matrix (output steps x source
// positions) to plotter.GridXYZ with the first output step drawn on top.
type attentionGrid struct {
	m    mat.Matrix
	cols int
}

func (g attentionGrid) Dims() (c, r int) {
	r, _ = g.m.Dims()
	return g.cols, r
}

func (g attentionGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g attentionGrid) X(c int) float64 { return float64(c) }
func (g attentionGrid) Y(r int) float64 { return float64(r) }

// Attention draws one heat map cell per (output word, input token) pair.
// inputs are the source tokens followed by "<EOS>"; outputs are the decoded
// words. Columns past len(inputs) are padding and left out.
func Attention(attn mat.Matrix, inputs, outputs []string, path string) error {
	rows, cols := attn.Dims()
	if rows != len(outputs) {
		return errors.Errorf("attention has %d rows for %d output words", rows, len(outputs))
	}
	if rows == 0 {
		return errors.New("empty attention matrix")
	}
	if len(inputs) < cols {
		cols = len(inputs)
	}
	grid := attentionGrid{m: attn, cols: cols}

	p := gonumplot.New()
	h := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if h.Max == h.Min {
		h.Max = h.Min + 1
	}
	p.Add(h)

	xt := make([]gonumplot.Tick, cols)
	for c := 0; c < cols; c++ {
		xt[c] = gonumplot.Tick{Value: float64(c), Label: inputs[c]}
	}
	yt := make([]gonumplot.Tick, rows)
	for r := 0; r < rows; r++ {
		yt[r] = gonumplot.Tick{Value: float64(rows - 1 - r), Label: outputs[r]}
	}
	p.X.Tick.Marker = gonumplot.ConstantTicks(xt)
	p.Y.Tick.Marker = gonumplot.ConstantTicks(yt)
	p.X.Label.Text = "input"
	p.Y.Label.Text = "output"

	return save(p, path)
}

// Losses draws the averaged loss points, one every `every` iterations.
func Losses(points []float64, every int, path string) error {
	if len(points) == 0 {
		return errors.New("no loss points")
	}
	xys := make(plotter.XYs, len(points))
	for i, v := range points {
		xys[i].X = float64((i + 1) * every)
		xys[i].Y = v
	}

	p := gonumplot.New()
	p.Title.Text = "training loss"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "loss line")
	}
	p.Add(line)
	return save(p, path)
}

func save(p *gonumplot.Plot, path string) error {
	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", filepath.Base(path))
	}
	return nil
}
