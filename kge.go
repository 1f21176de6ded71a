package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/manningwu07/translator/graph"
	"github.com/manningwu07/translator/kge"
	"github.com/manningwu07/translator/params"
)

const kgePrompt = "Enter a word in Spanish (or 'exit' to quit): "

// openGraph picks the triples file when configured, Neo4j otherwise.
func openGraph(ctx context.Context, cfg *params.Config) (graph.Source, func(), error) {
	if cfg.TriplesPath != "" {
		return graph.FileSource{Path: cfg.TriplesPath}, func() {}, nil
	}
	src, err := graph.NewNeo4jSource(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return nil, nil, err
	}
	return src, func() {
		if err := src.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Closing neo4j driver")
		}
	}, nil
}

func runKnowledgeGraph(ctx context.Context, a *app) error {
	src, closeSrc, err := openGraph(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	triples, err := src.Triples(ctx)
	if err != nil {
		return err
	}
	for i, t := range triples {
		fmt.Fprintf(a.out, "%d  %s  %s  %s\n", i+1, t.Head, t.Relation, t.Tail)
	}
	log.Info().Int("triples", len(triples)).Msg("Fetched graph")

	ix := kge.NewIndex(triples)
	model, err := kge.NewTransE(ix, a.cfg.KGEDim, a.rng)
	if err != nil {
		return err
	}
	epochs := a.cfg.KGEEpochs
	_, err = model.Train(ctx, kge.TrainConfig{
		Epochs:       epochs,
		LearningRate: a.cfg.KGELR,
		Margin:       a.cfg.KGEMargin,
		OnEpoch: func(epoch int, loss float64) {
			a.metrics.KGEEpochLoss.Set(loss)
			if epoch%10 == 0 || epoch == epochs {
				fmt.Fprintf(a.out, "Epoch %d/%d, Loss: %.4f\n", epoch, epochs, loss)
			}
		},
	}, a.rng)
	if err != nil {
		return err
	}

	for idx, e := range ix.Entities() {
		fmt.Fprintln(a.out, idx, e)
	}
	fmt.Fprintln(a.out, "----------------------")

	if !a.cfg.Interactive {
		return nil
	}
	return queryREPL(a, model)
}

// queryREPL answers nearest-entity questions until "exit" or end of input.
func queryREPL(a *app, model *kge.TransE) error {
	for {
		prompt(a.out, kgePrompt)
		line, err := readLine(a.in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read query")
		}
		word := strings.TrimSpace(line)
		if strings.EqualFold(word, "exit") {
			return nil
		}

		ns, err := model.Nearest(word, a.cfg.KGETopK)
		switch {
		case errors.Is(err, kge.ErrUnknownEntity):
			a.metrics.KGEQueries.WithLabelValues("unknown").Inc()
			fmt.Fprintln(a.out, "Word not found in the vocabulary.")
			continue
		case err != nil:
			return err
		case len(ns) == 0:
			a.metrics.KGEQueries.WithLabelValues("empty").Inc()
			fmt.Fprintln(a.out, "No other words in the graph.")
			continue
		}
		a.metrics.KGEQueries.WithLabelValues("ok").Inc()
		fmt.Fprintf(a.out, "The corresponding English word for '%s' is '%s'.\n", word, ns[0].Entity)
		for i, n := range ns[1:] {
			fmt.Fprintf(a.out, "  %d. %s (%.4f)\n", i+2, n.Entity, n.Distance)
		}
	}
}
