package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T, reg *prometheus.Registry, name string) []float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var out []float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out = append(out, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				out = append(out, m.GetGauge().GetValue())
			}
		}
	}
	return out
}

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordFetch("DEXUSEU", "ok")
	r.RecordFetch("DEXUSEU", "ok")
	r.RecordSkipped("DEXUSEU", 3)
	r.RecordSkipped("DEXUSEU", 0)
	r.RecordPrediction("forest", "optimistic", 1.0912)
	r.RecordTraining(100, 0.01, 0.02)

	assert.Equal(t, []float64{2}, gathered(t, reg, "fxcast_series_fetches_total"))
	assert.Equal(t, []float64{3}, gathered(t, reg, "fxcast_series_skipped_records_total"))
	assert.Equal(t, []float64{1.0912}, gathered(t, reg, "fxcast_last_prediction"))
	assert.Equal(t, []float64{100}, gathered(t, reg, "fxcast_training_rows"))
	assert.Len(t, gathered(t, reg, "fxcast_training_error"), 2)
}

func TestNewIsShared(t *testing.T) {
	assert.Same(t, New(), New())
}
