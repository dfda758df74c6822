package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"FxCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int32
		want   float64
	}{
		{1.15555, 4, 1.1556},
		{1.08575, 4, 1.0857},
		{2.675, 2, 2.67},
		{-0.125, 2, -0.12},
		{0.375, 2, 0.38},
		{2.5, 0, 2},
		{1.5, 0, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.v, tt.places), "Round(%v, %d)", tt.v, tt.places)
	}
	assert.Equal(t, 5.12, DiffPct(1.2147, 1.1555))
	assert.Equal(t, 0.0, DiffPct(1, 0))
}

func TestNearest(t *testing.T) {
	points := []models.ForecastPoint{
		{Date: day("2025-01-01"), YHat: 1},
		{Date: day("2025-01-03"), YHat: 3},
		{Date: day("2025-01-10"), YHat: 10},
	}
	tests := []struct {
		name   string
		target string
		want   float64
	}{
		{"exact", "2025-01-03", 3},
		{"before range", "2024-06-01", 1},
		{"after range", "2026-01-01", 10},
		{"tie goes to earlier", "2025-01-02", 1},
		{"closer to later", "2025-01-08", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Nearest(points, day(tt.target))
			require.True(t, ok)
			assert.Equal(t, tt.want, p.YHat)
		})
	}

	_, ok := Nearest(nil, day("2025-01-01"))
	assert.False(t, ok)

	from, to, ok := Range(points)
	require.True(t, ok)
	assert.Equal(t, day("2025-01-01"), from)
	assert.Equal(t, day("2025-01-10"), to)
}

func TestActualOn(t *testing.T) {
	obs := []models.Observation{{Date: day("2025-01-02"), Value: 1.03}, {Date: day("2025-01-03"), Value: 1.04}}
	v, ok := ActualOn(obs, day("2025-01-03"))
	assert.True(t, ok)
	assert.Equal(t, 1.04, v)
	_, ok = ActualOn(obs, day("2025-01-04"))
	assert.False(t, ok)
}

func TestCompareWithActual(t *testing.T) {
	actual := 1.1555
	p := models.ScenarioPrediction{Neutral: 1.15691, Optimistic: 1.21474, Pessimistic: 1.09903}

	c := Compare(day("2028-06-30"), &actual, p)
	require.Len(t, c.Rows, 4)
	assert.Equal(t, []string{LabelActual, LabelBase, LabelOptimistic, LabelPessimistic},
		[]string{c.Rows[0].Label, c.Rows[1].Label, c.Rows[2].Label, c.Rows[3].Label})
	assert.Equal(t, 0.0, *c.Rows[0].DiffPct)
	assert.Equal(t, 1.1569, c.Rows[1].Value)
	assert.Equal(t, 0.12, *c.Rows[1].DiffPct)
	assert.Equal(t, 5.12, *c.Rows[2].DiffPct)
	assert.Equal(t, -4.89, *c.Rows[3].DiffPct)
	require.NotNil(t, c.Recommendation)
	assert.Equal(t, models.ActionWait, c.Recommendation.Action)

	body, err := ComparisonCSV(c)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Equal(t, "scenario,value_usd_eur,diff_pct_vs_actual", lines[0])
	assert.Equal(t, "Actual,1.1555,0.00", lines[1])
	assert.Equal(t, "Optimistic,1.2147,5.12", lines[3])
}

func TestCompareWithoutActual(t *testing.T) {
	c := Compare(day("2028-06-30"), nil, models.ScenarioPrediction{Neutral: 1.1, Optimistic: 1.2, Pessimistic: 1.0})
	require.Len(t, c.Rows, 3)
	assert.Nil(t, c.Recommendation)
	assert.Nil(t, c.Actual)
	for _, r := range c.Rows {
		assert.Nil(t, r.DiffPct)
	}

	body, err := ComparisonCSV(c)
	require.NoError(t, err)
	assert.Equal(t, "scenario,value_usd_eur\nBase,1.1000\nOptimistic,1.2000\nPessimistic,1.0000\n", string(body))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		opt, pess float64
		want      models.Action
	}{
		{1.51, -3, models.ActionWait},
		{1.5, -1.51, models.ActionSellNow},
		{1.5, -1.5, models.ActionHold},
		{0, 0, models.ActionHold},
	}
	for _, tt := range tests {
		got := Recommend(tt.opt, tt.pess)
		assert.Equal(t, tt.want, got.Action, "opt=%v pess=%v", tt.opt, tt.pess)
		assert.NotEmpty(t, got.Message)
	}
}

func TestDisperse(t *testing.T) {
	d := Disperse(models.ScenarioPrediction{Neutral: 1.1569, Optimistic: 1.2147, Pessimistic: 1.0990})
	assert.Equal(t, 0.1157, d.Range)
	assert.Equal(t, 0.0578, d.Deviation)
	assert.Equal(t, 0.0578, d.DistanceUp)
	assert.Equal(t, 0.0579, d.DistanceDown)
	assert.Equal(t, models.RiskHigh, d.Risk)
	assert.True(t, d.HighVolatility)

	mod := Disperse(models.ScenarioPrediction{Neutral: 1.10, Optimistic: 1.14, Pessimistic: 1.08})
	assert.Equal(t, models.RiskModerate, mod.Risk)
	assert.False(t, mod.HighVolatility)

	low := Disperse(models.ScenarioPrediction{Neutral: 1.10, Optimistic: 1.11, Pessimistic: 1.09})
	assert.Equal(t, models.RiskLow, low.Risk)
}

func TestDiagnose(t *testing.T) {
	var actuals []models.Observation
	var points []models.ForecastPoint
	start := day("2025-01-01")
	for i := 0; i < 40; i++ {
		d := start.AddDate(0, 0, i)
		actuals = append(actuals, models.Observation{Date: d, Value: 1.10})
		err := 0.005
		if i%2 == 1 {
			err = 0.02
		}
		points = append(points, models.ForecastPoint{Date: d, YHat: 1.10 - err})
	}

	d := Diagnose(actuals, points, 30)
	assert.Equal(t, 30, d.Samples)
	assert.Equal(t, start.AddDate(0, 0, 10), d.From)
	assert.Equal(t, start.AddDate(0, 0, 39), d.To)
	assert.InDelta(t, 0.0125, d.MAE, 1e-9)
	assert.InDelta(t, 0.5, d.HitRate, 1e-9)
	assert.InDelta(t, math.Sqrt((0.005*0.005+0.02*0.02)/2), d.RMSE, 1e-9)
	assert.Greater(t, d.ErrorStd, 0.0)
}

func TestDiagnoseNoOverlap(t *testing.T) {
	actuals := []models.Observation{{Date: day("2025-01-01"), Value: 1.1}}
	points := []models.ForecastPoint{{Date: day("2030-01-01"), YHat: 1.2}}

	d := Diagnose(actuals, points, 30)
	assert.Equal(t, 0, d.Samples)
	assert.False(t, math.IsNaN(d.MAE))
	assert.False(t, math.IsNaN(d.ErrorStd))

	assert.Equal(t, models.Diagnostics{}, Diagnose(nil, nil, 0))
}

func TestBlend(t *testing.T) {
	reg := models.ScenarioPrediction{Neutral: 1.0, Optimistic: 1.2, Pessimistic: 0.8}
	band := models.ScenarioPrediction{Date: day("2026-01-01"), Neutral: 1.2, Optimistic: 1.4, Pessimistic: 1.0}

	b, err := BlendPredictions(reg, band, 0.5)
	require.NoError(t, err)
	assert.Equal(t, band.Date, b.Blended.Date)
	assert.InDelta(t, 1.1, b.Blended.Neutral, 1e-12)
	assert.InDelta(t, 1.3, b.Blended.Optimistic, 1e-12)
	assert.InDelta(t, 0.9, b.Blended.Pessimistic, 1e-12)

	full, err := BlendPredictions(reg, band, 1)
	require.NoError(t, err)
	assert.Equal(t, reg.Neutral, full.Blended.Neutral)

	_, err = BlendPredictions(reg, band, 1.5)
	assert.Error(t, err)
}
