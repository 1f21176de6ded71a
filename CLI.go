package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/manningwu07/translator/IO"
	"github.com/manningwu07/translator/plot"
	"github.com/manningwu07/translator/seq2seq"
)

const translatePrompt = "Enter a sentence to translate (-1 to exit): "

// translateREPL reads sentences until "-1" or end of input.
func translateREPL(a *app, model *seq2seq.Model, corpus *IO.Corpus) error {
	for {
		prompt(a.out, translatePrompt)
		line, err := readLine(a.in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read sentence")
		}
		if strings.TrimSpace(line) == "-1" {
			return nil
		}

		fmt.Fprintln(a.out, ">", line)
		words, _, err := seq2seq.Evaluate(model, corpus.Input, corpus.Output, IO.NormalizeString(line))
		if err != nil {
			if !reportEvalError(a, err) {
				return err
			}
			fmt.Fprintln(a.out)
			continue
		}
		a.metrics.Translations.WithLabelValues("ok").Inc()
		fmt.Fprintln(a.out, "<", strings.Join(words, " "))
		fmt.Fprintln(a.out)
	}
}

// reportEvalError prints user errors and reports whether err was one.
func reportEvalError(a *app, err error) bool {
	var uw *IO.UnknownWordError
	switch {
	case errors.As(err, &uw):
		a.metrics.Translations.WithLabelValues("unknown_word").Inc()
		fmt.Fprintln(a.out, "UNKNOWN:", uw.Word)
		fmt.Fprintln(a.out, "Ignore following output and try another sentence")
	case errors.Is(err, seq2seq.ErrSentenceTooLong):
		a.metrics.Translations.WithLabelValues("too_long").Inc()
		fmt.Fprintf(a.out, "Sentence too long, at most %d tokens including the end marker.\n", a.cfg.MaxLength)
	default:
		return false
	}
	return true
}

// plotAttention writes mygraph1.png ... for the configured sample sentences.
func plotAttention(a *app, model *seq2seq.Model, corpus *IO.Corpus) error {
	for i, s := range a.cfg.AttentionSamples {
		sentence := IO.NormalizeString(s)
		words, attn, err := seq2seq.Evaluate(model, corpus.Input, corpus.Output, sentence)
		if err != nil {
			if reportEvalError(a, err) {
				log.Warn().Err(err).Str("sentence", sentence).Msg("Skipping attention plot")
				continue
			}
			return err
		}
		fmt.Fprintln(a.out, "input =", sentence)
		fmt.Fprintln(a.out, "output =", strings.Join(words, " "))

		inputs := append(strings.Split(sentence, " "), seq2seq.EOSWord)
		path := filepath.Join(a.cfg.PlotDir, fmt.Sprintf("mygraph%d.png", i+1))
		if err := plot.Attention(attn, inputs, words, path); err != nil {
			return err
		}
		log.Info().Str("file", path).Msg("Saved attention plot")
	}
	return nil
}
