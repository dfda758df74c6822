package usecase

import (
	"context"
	"testing"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	"FxCast/internal/services/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bandPoints() []models.ForecastPoint {
	return []models.ForecastPoint{
		{Date: day("2024-06-01"), YHat: 1.08, Upper: 1.10, Lower: 1.06},
		{Date: day("2024-06-03"), YHat: 1.09, Upper: 1.12, Lower: 1.05},
	}
}

func rateSource() *fakeSource {
	return &fakeSource{series: map[string][]models.Observation{
		"DEXUSEU": {
			{Date: day("2024-06-01"), Value: 1.075},
			{Date: day("2024-06-03"), Value: 1.12},
		},
	}}
}

type dashboardFixture struct {
	uc        *DashboardUseCase
	source    *fakeSource
	publisher *fakePublisher
	metrics   *fakeMetrics
}

func newDashboard(t *testing.T, opts ...DashboardOption) dashboardFixture {
	t.Helper()
	f := dashboardFixture{source: rateSource(), publisher: &fakePublisher{}, metrics: newFakeMetrics()}
	settings := DefaultDashboardSettings()
	settings.History = 2
	base := []DashboardOption{
		WithRegressor(&dxyRegressor{}),
		WithForecaster(&fakeForecaster{points: bandPoints()}),
		WithPublisher(f.publisher),
		WithDashboardMetrics(f.metrics),
	}
	f.uc = NewDashboardUseCase(
		NewSeriesCollector(f.source, nil, 100, "asc", nil),
		&fakeEvaluation{table: evaluationTable(3)},
		settings,
		append(base, opts...)...,
	)
	f.uc.newID = func() string { return "run-1" }
	return f
}

func TestLatestRate(t *testing.T) {
	f := newDashboard(t)

	v := f.uc.LatestRate(context.Background())
	require.NotNil(t, v.Latest)
	assert.Equal(t, "DEXUSEU", v.SeriesID)
	assert.Equal(t, day("2024-06-03"), v.Latest.Date)
	assert.Equal(t, 1.12, v.Latest.Value)
}

func TestSeriesPassesQuery(t *testing.T) {
	f := newDashboard(t)

	res := f.uc.Series(context.Background(), models.SeriesRequest{SeriesID: "DEXUSEU", Limit: 5, Start: "2024-06-02"})
	assert.Len(t, res.Observations, 2)
	require.Len(t, f.source.queries, 1)
	q := f.source.queries[0]
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "asc", q.SortOrder)
	assert.Equal(t, day("2024-06-02"), q.Start)
}

func TestScenariosScoresTail(t *testing.T) {
	f := newDashboard(t)

	preds, err := f.uc.Scenarios(context.Background(), 0.02, 2)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, day("2024-05-02"), preds[0].Date)
	assert.InDelta(t, 1.01, preds[0].Neutral, 1e-12)
	assert.InDelta(t, 1.0302, preds[0].Optimistic, 1e-12)
	assert.InDelta(t, 0.9898, preds[0].Pessimistic, 1e-12)
	assert.InDelta(t, 1.02, f.metrics.predictions["dxy/neutral"], 1e-12)
	assert.Contains(t, f.metrics.latencies, "scenarios")
}

func TestScenariosErrors(t *testing.T) {
	ctx := context.Background()

	noModel := newDashboard(t, WithRegressor(nil))
	_, err := noModel.uc.Scenarios(ctx, 0.02, 1)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	f := newDashboard(t)
	f.uc.evaluation = &fakeEvaluation{table: &models.FeatureTable{}}
	_, err = f.uc.Scenarios(ctx, 0.02, 1)
	assert.ErrorIs(t, err, scenario.ErrNoRows)

	f.uc.evaluation = &fakeEvaluation{err: domrepo.ErrNotAvailable}
	_, err = f.uc.Scenarios(ctx, 0.02, 1)
	assert.ErrorIs(t, err, domrepo.ErrNotAvailable)

	f.uc.evaluation = &fakeEvaluation{table: evaluationTable(1)}
	_, err = f.uc.Scenarios(ctx, 1.5, 1)
	assert.ErrorIs(t, err, scenario.ErrInvalidVariation)
}

func TestSimulateRecord(t *testing.T) {
	f := newDashboard(t)
	rec := evaluationTable(1).Rows[0].Record()

	res, err := f.uc.Simulate(context.Background(), day("2024-05-01"), rec, 0.02)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Prediction.Neutral, 1e-12)
	assert.InDelta(t, 102.0, res.Inputs.Optimistic.DXY, 1e-12)
	assert.InDelta(t, 98.0, res.Inputs.Pessimistic.DXY, 1e-12)

	delete(rec, "GDP_lag3")
	_, err = f.uc.Simulate(context.Background(), day("2024-05-01"), rec, 0.02)
	assert.ErrorIs(t, err, models.ErrColumnMismatch)
}

func TestForecastDefaultsToLastDate(t *testing.T) {
	f := newDashboard(t)

	view, err := f.uc.Forecast(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-03"), view.Point.Date)
	assert.Equal(t, day("2024-06-01"), view.Range.From)
	assert.Equal(t, day("2024-06-03"), view.Range.To)

	c := view.Comparison
	require.NotNil(t, c.Actual)
	assert.Equal(t, 1.12, *c.Actual)
	require.Len(t, c.Rows, 4)
	assert.Equal(t, -2.68, *c.Rows[1].DiffPct)
	assert.Equal(t, 0.0, *c.Rows[2].DiffPct)
	assert.Equal(t, -6.25, *c.Rows[3].DiffPct)
	require.NotNil(t, c.Recommendation)
	assert.Equal(t, models.ActionSellNow, c.Recommendation.Action)

	assert.Equal(t, models.RiskModerate, view.Dispersion.Risk)

	require.NotNil(t, view.Blend)
	assert.InDelta(t, 1.055, view.Blend.Blended.Neutral, 1e-12)
	assert.Empty(t, view.Notices)
}

func TestForecastTieGoesToEarlierPoint(t *testing.T) {
	f := newDashboard(t)

	view, err := f.uc.Forecast(context.Background(), day("2024-06-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-02"), view.Requested)
	assert.Equal(t, day("2024-06-01"), view.Point.Date)
	require.NotNil(t, view.Comparison.Actual)
	assert.Equal(t, 1.075, *view.Comparison.Actual)
}

func TestForecastWithoutActualOrModel(t *testing.T) {
	f := newDashboard(t, WithRegressor(nil))
	f.source.series = nil

	view, err := f.uc.Forecast(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Nil(t, view.Comparison.Actual)
	assert.Len(t, view.Comparison.Rows, 3)
	assert.Nil(t, view.Comparison.Recommendation)
	assert.Nil(t, view.Blend)
	require.Len(t, view.Notices, 2)
	assert.Equal(t, models.SectionComparison, view.Notices[0].Section)
	assert.Equal(t, models.SectionBlend, view.Notices[1].Section)
}

func TestForecastUnavailable(t *testing.T) {
	f := newDashboard(t, WithForecaster(nil))
	_, err := f.uc.Forecast(context.Background(), time.Time{})
	assert.ErrorIs(t, err, domrepo.ErrNotAvailable)

	f = newDashboard(t, WithForecaster(&fakeForecaster{}))
	_, err = f.uc.Forecast(context.Background(), time.Time{})
	assert.ErrorIs(t, err, domrepo.ErrNotAvailable)
}

func TestComparisonCSV(t *testing.T) {
	f := newDashboard(t)

	body, err := f.uc.ComparisonCSV(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "scenario,value_usd_eur,diff_pct_vs_actual\n"+
		"Actual,1.1200,0.00\n"+
		"Base,1.0900,-2.68\n"+
		"Optimistic,1.1200,0.00\n"+
		"Pessimistic,1.0500,-6.25\n", string(body))
}

func TestDiagnostics(t *testing.T) {
	f := newDashboard(t)

	d, err := f.uc.Diagnostics(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Samples)
	assert.InDelta(t, 0.0175, d.MAE, 1e-9)
	assert.InDelta(t, 0.5, d.HitRate, 1e-12)

	f.source.series = nil
	_, err = f.uc.Diagnostics(context.Background(), 30)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestSnapshotPublishesEveryModel(t *testing.T) {
	f := newDashboard(t)

	snap, err := f.uc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", snap.RunID)
	assert.Len(t, snap.History, 2)
	require.NotNil(t, snap.Latest)
	assert.Equal(t, day("2024-05-03"), snap.Latest.Date)
	require.NotNil(t, snap.Forecast)
	require.NotNil(t, snap.Forecast.Blend)
	assert.Equal(t, *snap.Latest, snap.Forecast.Blend.Regressor)
	require.NotNil(t, snap.Diagnostics)
	assert.Empty(t, snap.Notices)

	assert.Equal(t, 9, snap.Published)
	require.Len(t, f.publisher.events, 9)
	byModel := map[string]int{}
	for _, ev := range f.publisher.events {
		assert.Equal(t, "run-1", ev.RunID)
		byModel[ev.Model]++
	}
	assert.Equal(t, map[string]int{"dxy": 3, models.ModelForecast: 3, models.ModelBlend: 3}, byModel)
	assert.Contains(t, f.metrics.latencies, "snapshot")
}

func TestSnapshotDegradesIntoNotices(t *testing.T) {
	f := newDashboard(t, WithRegressor(nil), WithForecaster(&fakeForecaster{err: errBoom}))
	f.source.series = nil

	snap, err := f.uc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Latest)
	assert.Nil(t, snap.Forecast)
	assert.Zero(t, snap.Published)

	sections := map[models.Section]models.Severity{}
	for _, n := range snap.Notices {
		sections[n.Section] = n.Severity
	}
	assert.Equal(t, map[models.Section]models.Severity{
		models.SectionRate:      models.SeverityWarning,
		models.SectionScenarios: models.SeverityInfo,
		models.SectionForecast:  models.SeverityWarning,
	}, sections)
	assert.ElementsMatch(t, []string{"degraded_rate", "degraded_forecast"}, f.metrics.errors)
}

func TestSnapshotPublishFailureIsNotice(t *testing.T) {
	f := newDashboard(t)
	f.publisher.err = errBoom

	snap, err := f.uc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Published)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, models.SectionEvents, snap.Notices[0].Section)
}

func TestSnapshotCancelled(t *testing.T) {
	f := newDashboard(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecentPredictions(t *testing.T) {
	store := &fakeStore{predictions: []models.PredictionEvent{
		{RunID: "run-0", Model: models.ModelForest, Scenario: models.Neutral, Value: 1.08},
		{RunID: "run-0", Model: models.ModelBlend, Scenario: models.Neutral, Value: 1.085},
		{RunID: "run-1", Model: models.ModelForest, Scenario: models.Neutral, Value: 1.09},
	}}
	f := newDashboard(t, WithPredictionArchive(store))

	events, err := f.uc.RecentPredictions(context.Background(), models.ModelForest, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "run-1", events[0].RunID)

	events, err = f.uc.RecentPredictions(context.Background(), "", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1.09, events[0].Value)

	events, err = f.uc.RecentPredictions(context.Background(), "remote", 10)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestRecentPredictionsWithoutArchive(t *testing.T) {
	f := newDashboard(t)

	_, err := f.uc.RecentPredictions(context.Background(), "", 10)
	assert.ErrorIs(t, err, domrepo.ErrNotAvailable)
}
