// internal/metrics/metrics.go
// Package metrics counts what the encoder and decoder do and serves the
// counters in the Prometheus text format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ColonelBlimp/morsekey/internal/decoder"
	"github.com/ColonelBlimp/morsekey/internal/encoder"
)

const namespace = "morsekey"

// Metrics holds both roles' collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	linesEncoded    prometheus.Counter
	characters      *prometheus.CounterVec
	playbackSeconds prometheus.Counter
	inputDropped    *prometheus.CounterVec

	symbols         *prometheus.CounterVec
	patternOverflow prometheus.Counter
	letters         *prometheus.CounterVec
	wordGaps        prometheus.Counter
	noise           prometheus.Counter
	holdSeconds     prometheus.Histogram
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "encoder", Name: "lines_total",
			Help: "Lines accepted and played by the encoder.",
		}),
		characters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "encoder", Name: "characters_total",
			Help: "Characters seen by the encoder, by outcome.",
		}, []string{"kind"}),
		playbackSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "encoder", Name: "playback_seconds_total",
			Help: "Scheduled tone and gap time.",
		}),
		inputDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "encoder", Name: "input_dropped_total",
			Help: "Input bytes discarded by the line assembler.",
		}, []string{"reason"}),
		symbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "decoder", Name: "symbols_total",
			Help: "Classified key holds.",
		}, []string{"symbol"}),
		patternOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "decoder", Name: "pattern_overflow_total",
			Help: "Symbols not stored because the pending pattern was full.",
		}),
		letters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "decoder", Name: "letters_total",
			Help: "Finalized letters, matched or unknown.",
		}, []string{"result"}),
		wordGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "decoder", Name: "word_gaps_total",
			Help: "Word gaps emitted.",
		}),
		noise: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "decoder", Name: "noise_total",
			Help: "Presses rejected by debounce.",
		}),
		holdSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "decoder", Name: "hold_seconds",
			Help:    "Measured key hold durations.",
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.6, 0.8, 1.2, 2, 4},
		}),
	}
	m.registry.MustRegister(
		m.linesEncoded, m.characters, m.playbackSeconds, m.inputDropped,
		m.symbols, m.patternOverflow, m.letters, m.wordGaps, m.noise, m.holdSeconds,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LineEncoded implements encoder.Observer
func (m *Metrics) LineEncoded(counts encoder.CharacterCounts, playback time.Duration) {
	m.linesEncoded.Inc()
	m.characters.WithLabelValues("encoded").Add(float64(counts.Encoded))
	m.characters.WithLabelValues("space").Add(float64(counts.Spaces))
	m.characters.WithLabelValues("skipped").Add(float64(counts.Skipped))
	m.playbackSeconds.Add(playback.Seconds())
}

// InputDropped matches encoder.Assembler.OnDrop
func (m *Metrics) InputDropped(_ byte, reason encoder.DropReason) {
	m.inputDropped.WithLabelValues(string(reason)).Inc()
}

// Decoded matches decoder.DecodedCallback
func (m *Metrics) Decoded(o decoder.Output) {
	switch o.Kind {
	case decoder.OutputSymbol:
		m.symbols.WithLabelValues(o.Symbol.String()).Inc()
		m.holdSeconds.Observe(o.Hold.Seconds())
		if !o.Stored {
			m.patternOverflow.Inc()
		}
	case decoder.OutputLetter:
		result := "matched"
		if !o.Matched {
			result = "unknown"
		}
		m.letters.WithLabelValues(result).Inc()
	case decoder.OutputWordGap:
		m.wordGaps.Inc()
	}
}

// Noise matches decoder.Poller.OnNoise
func (m *Metrics) Noise(time.Time) {
	m.noise.Inc()
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	glog.Infof("metrics: serving on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
