package metrics

import (
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    DashboardLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "fxcast",
            Subsystem: "dashboard",
            Name:      "latency_seconds",
            Help:      "Latency of dashboard endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    DashboardErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "fxcast",
            Subsystem: "dashboard",
            Name:      "errors_total",
            Help:      "Errors by dashboard endpoint",
        },
        []string{"endpoint"},
    )

    DegradedSections = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "fxcast",
            Subsystem: "dashboard",
            Name:      "degraded_sections_total",
            Help:      "Snapshot sections skipped because an input was missing",
        },
        []string{"section"},
    )

    ArchivedPredictions = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "fxcast",
            Subsystem: "archive",
            Name:      "predictions_total",
            Help:      "Prediction events consumed from Kafka by model and result",
        },
        []string{"model", "result"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(DashboardLatency, DashboardErrors, DegradedSections, ArchivedPredictions)
    })
}

// Observe records the latency of endpoint since start and counts failures.
func Observe(endpoint string, start time.Time, err error) {
    DashboardLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
    if err != nil {
        DashboardErrors.WithLabelValues(endpoint).Inc()
    }
}
