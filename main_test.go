package main

import (
	"bufio"
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manningwu07/translator/IO"
	"github.com/manningwu07/translator/graph"
	"github.com/manningwu07/translator/kge"
	"github.com/manningwu07/translator/metrics"
	"github.com/manningwu07/translator/params"
	"github.com/manningwu07/translator/seq2seq"
)

const corpusText = "I don't believe it.\tNo lo creo.\tCC-BY 2.0 (France) Attribution: tatoeba.org #1\n" +
	"We're sorry.\tLo sentimos.\tCC-BY 2.0 (France) Attribution: tatoeba.org #2\n" +
	"She isn't here.\tElla no está aquí.\tCC-BY 2.0 (France) Attribution: tatoeba.org #3\n"

const triplesText = "perro\tTRANSLATES_TO\tdog\ngato\tTRANSLATES_TO\tcat\ncasa\tTRANSLATES_TO\thouse\n"

func testApp(t *testing.T, input string) (*app, *bytes.Buffer) {
	t.Helper()
	mc, err := metrics.New()
	require.NoError(t, err)
	cfg := params.Default
	cfg.HiddenSize = 8
	cfg.NIters = 20
	cfg.PrintEvery = 10
	cfg.PlotEvery = 5
	cfg.KGEDim = 4
	cfg.KGEEpochs = 2
	cfg.PlotDir = t.TempDir()
	var out bytes.Buffer
	return &app{
		cfg:     &cfg,
		in:      bufio.NewReader(strings.NewReader(input)),
		out:     &out,
		rng:     rand.New(rand.NewPCG(1, 2)),
		metrics: mc,
	}, &out
}

func testCorpus(t *testing.T) *IO.Corpus {
	t.Helper()
	c, err := IO.BuildCorpus(IO.NewLang("spa"), IO.NewLang("eng"), []IO.Pair{
		{Source: "no lo creo .", Target: "i don t believe it ."},
		{Source: "lo sentimos .", Target: "we re sorry ."},
	}, 10)
	require.NoError(t, err)
	return c
}

func TestTranslateREPL(t *testing.T) {
	a, out := testApp(t, "no lo creo.\nno lo se .\nlo lo lo lo lo lo lo lo lo lo\n-1\nlo sentimos .\n")
	c := testCorpus(t)
	model := seq2seq.NewModel(c.Input.Len(), c.Output.Len(), 8, a.cfg.MaxLength, 0, a.rng)

	require.NoError(t, translateREPL(a, model, c))

	s := out.String()
	assert.Equal(t, 4, strings.Count(s, translatePrompt))
	assert.Contains(t, s, "> no lo creo.\n< ")
	assert.Contains(t, s, "UNKNOWN: se\nIgnore following output and try another sentence\n")
	assert.Contains(t, s, "Sentence too long")
	assert.NotContains(t, s, "> lo sentimos .")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.Translations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.Translations.WithLabelValues("unknown_word")))
}

func TestTranslateREPLEndOfInput(t *testing.T) {
	a, out := testApp(t, "lo sentimos .")
	c := testCorpus(t)
	model := seq2seq.NewModel(c.Input.Len(), c.Output.Len(), 8, a.cfg.MaxLength, 0, a.rng)

	require.NoError(t, translateREPL(a, model, c))
	assert.Contains(t, out.String(), "> lo sentimos .\n< ")
}

func TestQueryREPL(t *testing.T) {
	a, out := testApp(t, "perro\nunicornio\nEXIT\ngato\n")
	triples, err := graph.ReadTriples(context.Background(), strings.NewReader(triplesText))
	require.NoError(t, err)
	model, err := kge.NewTransE(kge.NewIndex(triples), 4, a.rng)
	require.NoError(t, err)

	require.NoError(t, queryREPL(a, model))

	s := out.String()
	assert.Equal(t, 3, strings.Count(s, kgePrompt))
	assert.Contains(t, s, "The corresponding English word for 'perro' is '")
	assert.NotContains(t, s, "for 'perro' is 'perro'")
	assert.Contains(t, s, "Word not found in the vocabulary.")
	assert.NotContains(t, s, "for 'gato'")
}

func TestTrainIters(t *testing.T) {
	a, _ := testApp(t, "")
	c := testCorpus(t)
	model := seq2seq.NewModelFromConfig(a.cfg, c.Input.Len(), c.Output.Len(), a.rng)
	trainer, err := seq2seq.NewTrainer(model, "sgd", 0.01, 1, a.rng)
	require.NoError(t, err)

	losses, err := trainIters(context.Background(), a, trainer, c)
	require.NoError(t, err)
	assert.Len(t, losses, 4)
	assert.Equal(t, 20.0, testutil.ToFloat64(a.metrics.TrainSteps))
	assert.Greater(t, testutil.ToFloat64(a.metrics.TrainLoss), 0.0)
}

// captureLog routes the global logger into a plain console buffer.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: &buf, NoColor: true}).With().Timestamp().Logger()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestTrainItersLogsProgress(t *testing.T) {
	buf := captureLog(t)
	a, _ := testApp(t, "")
	c := testCorpus(t)
	model := seq2seq.NewModelFromConfig(a.cfg, c.Input.Len(), c.Output.Len(), a.rng)
	trainer, err := seq2seq.NewTrainer(model, "sgd", 0.01, 1, a.rng)
	require.NoError(t, err)

	_, err = trainIters(context.Background(), a, trainer, c)
	require.NoError(t, err)

	s := buf.String()
	assert.Equal(t, 2, strings.Count(s, "grad_norm="))
	assert.Contains(t, s, "progress=")
	assert.Contains(t, s, "(- ")
}

func TestSetupLoggingUnknownLevel(t *testing.T) {
	buf := captureLog(t)
	cfg := params.Default
	cfg.LogLevel = "loud"

	closeLog, err := setupLogging(&cfg)
	require.NoError(t, err)
	defer closeLog()

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "Unknown log level")
	assert.Contains(t, buf.String(), "loud")
}

func TestTrainItersCancelled(t *testing.T) {
	a, _ := testApp(t, "")
	c := testCorpus(t)
	model := seq2seq.NewModelFromConfig(a.cfg, c.Input.Len(), c.Output.Len(), a.rng)
	trainer, err := seq2seq.NewTrainer(model, "sgd", 0.01, 1, a.rng)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainIters(ctx, a, trainer, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "spa.txt")
	triplesPath := filepath.Join(dir, "kg.tsv")
	require.NoError(t, os.WriteFile(corpusPath, []byte(corpusText), 0o644))
	require.NoError(t, os.WriteFile(triplesPath, []byte(triplesText), 0o644))

	a, out := testApp(t, "")
	a.cfg.CorpusPath = corpusPath
	a.cfg.TriplesPath = triplesPath
	a.cfg.Interactive = false
	a.cfg.LossPlot = filepath.Join(dir, "loss.png")
	a.cfg.AttentionSamples = []string{"lo sentimos .", "estas a dieta ."}

	require.NoError(t, run(context.Background(), a))

	s := out.String()
	assert.Contains(t, s, "1  perro  TRANSLATES_TO  dog")
	assert.Contains(t, s, "Epoch 2/2, Loss:")
	assert.Contains(t, s, "0 perro\n1 dog\n")
	assert.Contains(t, s, "input = lo sentimos .")
	assert.Contains(t, s, "UNKNOWN: estas")

	_, err := os.Stat(filepath.Join(a.cfg.PlotDir, "mygraph1.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(a.cfg.PlotDir, "mygraph2.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(a.cfg.LossPlot)
	assert.NoError(t, err)
}

func TestRunMissingCorpus(t *testing.T) {
	a, _ := testApp(t, "")
	a.cfg.SkipKGE = true
	a.cfg.CorpusPath = filepath.Join(t.TempDir(), "missing.txt")
	assert.Error(t, run(context.Background(), a))
}
