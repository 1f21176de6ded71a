// Package metrics exposes training and inference counters for prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "translator"

// Collectors groups every metric of one run on its own registry.
type Collectors struct {
	Registry *prometheus.Registry

	TrainSteps   prometheus.Counter
	TrainLoss    prometheus.Gauge
	StepDuration prometheus.Histogram
	KGEEpochLoss prometheus.Gauge
	Translations *prometheus.CounterVec
	KGEQueries   *prometheus.CounterVec
}

func New() (*Collectors, error) {
	c := &Collectors{Registry: prometheus.NewRegistry()}
	c.TrainSteps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "train_steps_total",
		Help:      "Seq2seq training steps run",
	})
	c.TrainLoss = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "train_loss",
		Help:      "Last averaged seq2seq loss",
	})
	c.StepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "train_step_duration_seconds",
		Help:      "Seq2seq training step duration",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
	})
	c.KGEEpochLoss = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "kge_epoch_loss",
		Help:      "Summed TransE margin loss of the last epoch",
	})
	c.Translations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "translations_total",
		Help:      "Console translation requests by outcome",
	}, []string{"outcome"})
	c.KGEQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kge_queries_total",
		Help:      "Nearest entity queries by outcome",
	}, []string{"outcome"})

	for _, m := range []prometheus.Collector{c.TrainSteps, c.TrainLoss, c.StepDuration, c.KGEEpochLoss, c.Translations, c.KGEQueries} {
		if err := c.Registry.Register(m); err != nil {
			return nil, errors.Wrap(err, "register metric")
		}
	}
	return c, nil
}

// ObserveStep records one training step.
func (c *Collectors) ObserveStep(d time.Duration) {
	c.TrainSteps.Inc()
	c.StepDuration.Observe(d.Seconds())
}

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collectors) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "metrics listener at %s", addr)
	}
	return nil
}
