package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/manningwu07/translator/IO"
	"github.com/manningwu07/translator/plot"
	"github.com/manningwu07/translator/seq2seq"
	"github.com/manningwu07/translator/utils"
)

func runTranslator(ctx context.Context, a *app) error {
	cfg := a.cfg
	corpus, err := prepareCorpus(a)
	if err != nil {
		return err
	}

	model := seq2seq.NewModelFromConfig(cfg, corpus.Input.Len(), corpus.Output.Len(), a.rng)
	trainer, err := seq2seq.NewTrainer(model, cfg.Optimizer, cfg.LearningRate, cfg.TeacherForcingRatio, a.rng)
	if err != nil {
		return err
	}

	losses, err := trainIters(ctx, a, trainer, corpus)
	if err != nil {
		return err
	}
	if cfg.LossPlot != "" && len(losses) > 0 {
		if err := plot.Losses(losses, cfg.PlotEvery, cfg.LossPlot); err != nil {
			log.Warn().Err(err).Msg("Loss plot")
		}
	}

	if cfg.Interactive {
		if err := translateREPL(a, model, corpus); err != nil {
			return err
		}
	}
	return plotAttention(a, model, corpus)
}

func prepareCorpus(a *app) (*IO.Corpus, error) {
	cfg := a.cfg
	corpus, err := IO.PrepareData(cfg.CorpusPath, cfg.Lang1, cfg.Lang2, cfg.Reverse, cfg.MaxLength)
	if err != nil {
		return nil, err
	}
	sample := corpus.RandomPair(a.rng)
	log.Info().Str("source", sample.Source).Str("target", sample.Target).Msg("Random pair")
	return corpus, nil
}

// trainIters runs NIters single-pair steps on randomly drawn pairs. It logs
// the averaged loss every PrintEvery iterations and returns the averages
// collected every PlotEvery iterations.
func trainIters(ctx context.Context, a *app, trainer *seq2seq.Trainer, corpus *IO.Corpus) ([]float64, error) {
	cfg := a.cfg
	start := time.Now()
	var (
		plotLosses     []float64
		printLossTotal float64
		plotLossTotal  float64
	)

	for iter := 1; iter <= cfg.NIters; iter++ {
		if err := ctx.Err(); err != nil {
			return plotLosses, err
		}
		pair := corpus.RandomPair(a.rng)
		input, target, err := IO.TensorsFromPair(corpus, pair)
		if err != nil {
			return plotLosses, err
		}

		stepStart := time.Now()
		loss, err := trainer.TrainStep(input, target)
		if err != nil {
			return plotLosses, errors.Wrapf(err, "iteration %d (%q)", iter, pair.Source)
		}
		a.metrics.ObserveStep(time.Since(stepStart))
		printLossTotal += loss
		plotLossTotal += loss

		if iter%cfg.PrintEvery == 0 {
			avg := printLossTotal / float64(cfg.PrintEvery)
			printLossTotal = 0
			percent := float64(iter) / float64(cfg.NIters)
			a.metrics.TrainLoss.Set(avg)
			log.Info().
				Int("iter", iter).
				Str("percent", fmt.Sprintf("%.0f%%", percent*100)).
				Str("progress", utils.TimeSince(start, percent)).
				Float64("loss", avg).
				Float64("grad_norm", trainer.GradNorm()).
				Msg("Training")
		}
		if iter%cfg.PlotEvery == 0 {
			plotLosses = append(plotLosses, plotLossTotal/float64(cfg.PlotEvery))
			plotLossTotal = 0
		}
	}
	log.Info().Str("elapsed", utils.AsMinutes(time.Since(start))).Int("iters", cfg.NIters).Msg("Training done")
	return plotLosses, nil
}
