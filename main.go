package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/manningwu07/translator/metrics"
	"github.com/manningwu07/translator/params"
)

// app carries what every stage needs. Console loops share one reader so
// buffered stdin is never lost between them.
type app struct {
	cfg     *params.Config
	in      *bufio.Reader
	out     io.Writer
	rng     *rand.Rand
	metrics *metrics.Collectors
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := params.LoadAndParse(os.Args[1:], os.Stderr)
	if errors.Is(err, params.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse configuration")
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup logging")
	}
	defer closeLog()

	runID := uuid.NewString()
	log.Logger = log.With().Str("run", runID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mc, err := metrics.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init metrics")
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := mc.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics listener stopped")
			}
		}()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info().Uint64("seed", seed).Str("corpus", cfg.CorpusPath).Int("hidden", cfg.HiddenSize).
		Str("optimizer", cfg.Optimizer).Int("iters", cfg.NIters).Msg("Starting")

	a := &app{
		cfg:     cfg,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		metrics: mc,
	}
	if err := run(ctx, a); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("Interrupted")
			return
		}
		log.Error().Err(err).Msg("Failed")
		closeLog()
		os.Exit(1)
	}
}

// run composes the two independent pipelines.
func run(ctx context.Context, a *app) error {
	if !a.cfg.SkipKGE {
		if err := runKnowledgeGraph(ctx, a); err != nil {
			return errors.Wrap(err, "knowledge graph")
		}
	}
	if !a.cfg.SkipTranslate {
		if err := runTranslator(ctx, a); err != nil {
			return errors.Wrap(err, "translator")
		}
	}
	return nil
}

func setupLogging(cfg *params.Config) (func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return func() { _ = f.Close() }, nil
}

func prompt(out io.Writer, text string) {
	fmt.Fprint(out, text)
}

// readLine returns the next line without its terminator; io.EOF only when
// nothing was read.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
