package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal    *prometheus.CounterVec
	skippedTotal    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrediction  *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	trainingRows    prometheus.Gauge
	trainingMetrics *prometheus.GaugeVec
}

var (
	shared     *Recorder
	sharedOnce sync.Once
)

// New returns the process-wide Prometheus recorder. Collectors register once with
// the default registry, so repeated calls share the same instance.
func New() *Recorder {
	sharedOnce.Do(func() {
		shared = newRecorder(promauto.With(prometheus.DefaultRegisterer))
	})
	return shared
}

// NewWithRegistry builds a recorder on a private registry (tests).
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	return newRecorder(promauto.With(reg))
}

func newRecorder(f promauto.Factory) *Recorder {
	return &Recorder{
		fetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcast_series_fetches_total",
				Help: "Total number of remote series fetches by result",
			},
			[]string{"series_id", "result"},
		),
		skippedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcast_series_skipped_records_total",
				Help: "Observations dropped by the typed parse step",
			},
			[]string{"series_id"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrediction: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxcast_last_prediction",
				Help: "Last USD/EUR prediction per model and scenario",
			},
			[]string{"model", "scenario"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		trainingRows: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fxcast_training_rows",
				Help: "Rows in the last training feature table",
			},
		),
		trainingMetrics: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxcast_training_error",
				Help: "Held-out error of the last trained model",
			},
			[]string{"metric"},
		),
	}
}

// RecordFetch records one remote fetch outcome ("ok", "empty", "error").
func (r *Recorder) RecordFetch(seriesID, result string) {
	r.fetchesTotal.WithLabelValues(seriesID, result).Inc()
}

// RecordSkipped records observations rejected by parsing.
func (r *Recorder) RecordSkipped(seriesID string, n int) {
	if n > 0 {
		r.skippedTotal.WithLabelValues(seriesID).Add(float64(n))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordPrediction records the latest value produced for a model/scenario pair.
func (r *Recorder) RecordPrediction(model, scenario string, value float64) {
	r.lastPrediction.WithLabelValues(model, scenario).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordTraining records the size and held-out errors of a training run.
func (r *Recorder) RecordTraining(rows int, mae, rmse float64) {
	r.trainingRows.Set(float64(rows))
	r.trainingMetrics.WithLabelValues("mae").Set(mae)
	r.trainingMetrics.WithLabelValues("rmse").Set(rmse)
}
