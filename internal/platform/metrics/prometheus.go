// Package metrics exposes ingestion counters through Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
)

const namespace = "ohlcv_ingestor"

// Recorder implements usecase.Metrics using Prometheus.
type Recorder struct {
	providerCalls   *prometheus.CounterVec
	providerRetries *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	chunks          *prometheus.CounterVec
	chunkDuration   *prometheus.HistogramVec
	rowsWritten     *prometheus.CounterVec
	tickers         *prometheus.CounterVec
}

var _ usecase.Metrics = (*Recorder)(nil)

// New registers the ingestion collectors on reg and returns a Recorder.
// Passing prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Provider fetch outcomes after retries",
			},
			[]string{"provider", "outcome"},
		),
		providerRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Retries of transient provider failures",
			},
			[]string{"provider"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_fallbacks_total",
				Help:      "Switches from the primary to the secondary provider",
			},
			[]string{"from", "to"},
		),
		chunks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Processed chunks by status",
			},
			[]string{"status"},
		),
		chunkDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chunk_duration_seconds",
				Help:      "Duration of fetch, normalize and upsert for one chunk",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		rowsWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_written_total",
				Help:      "Candle rows upserted by source provider",
			},
			[]string{"source"},
		),
		tickers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickers_total",
				Help:      "Ticker outcomes",
			},
			[]string{"status"},
		),
	}
}

func (r *Recorder) ProviderCall(provider, outcome string) {
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) ProviderRetry(provider string) {
	r.providerRetries.WithLabelValues(provider).Inc()
}

func (r *Recorder) Fallback(from, to string) {
	r.fallbacks.WithLabelValues(from, to).Inc()
}

// ChunkProcessed counts a chunk and observes its duration.
func (r *Recorder) ChunkProcessed(status string, d time.Duration) {
	r.chunks.WithLabelValues(status).Inc()
	r.chunkDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (r *Recorder) RowsWritten(source string, n int64) {
	r.rowsWritten.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) TickerProcessed(status string) {
	r.tickers.WithLabelValues(status).Inc()
}
