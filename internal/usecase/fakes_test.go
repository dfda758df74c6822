package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FxCast/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeSource serves fixed observations keyed by series id.
type fakeSource struct {
	mu      sync.Mutex
	series  map[string][]models.Observation
	queries []models.SeriesQuery
}

func (f *fakeSource) Fetch(_ context.Context, q models.SeriesQuery) models.SeriesResult {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	obs := f.series[q.SeriesID]
	res := models.SeriesResult{SeriesID: q.SeriesID, Observations: obs}
	res.Report.Total, res.Report.Parsed = len(obs), len(obs)
	if len(obs) == 0 {
		res.Diagnostic = "no observations"
	}
	return res
}

// dxyRegressor predicts DXY/100 so scenario order is visible.
type dxyRegressor struct{ err error }

func (r *dxyRegressor) Predict(_ context.Context, rows []models.FeatureRow) ([]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row.DXY / 100
	}
	return out, nil
}

func (r *dxyRegressor) Name() string { return "dxy" }

type fakeEvaluation struct {
	table *models.FeatureTable
	err   error
	saved *models.FeatureTable
}

func (f *fakeEvaluation) Load(context.Context) (*models.FeatureTable, error) {
	return f.table, f.err
}

func (f *fakeEvaluation) Save(t *models.FeatureTable) error {
	f.saved = t
	return f.err
}

type fakeForecaster struct {
	points []models.ForecastPoint
	err    error
}

func (f *fakeForecaster) Forecast(context.Context) ([]models.ForecastPoint, error) {
	return f.points, f.err
}

type fakePublisher struct {
	events []models.PredictionEvent
	err    error
}

func (p *fakePublisher) PublishPredictions(_ context.Context, events []models.PredictionEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeStore struct {
	mu          sync.Mutex
	saved       map[models.Indicator][]models.Observation
	predictions []models.PredictionEvent
	err         error
}

func (s *fakeStore) SaveObservations(_ context.Context, ind models.Indicator, _ string, obs []models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[models.Indicator][]models.Observation)
	}
	s.saved[ind] = obs
	return nil
}

func (s *fakeStore) LoadObservations(_ context.Context, ind models.Indicator, from, to time.Time) ([]models.Observation, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Observation
	for _, o := range s.saved[ind] {
		if !o.Date.Before(from) && !o.Date.After(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeStore) SavePredictions(_ context.Context, events []models.PredictionEvent) error {
	if s.err != nil {
		return s.err
	}
	s.predictions = append(s.predictions, events...)
	return nil
}

func (s *fakeStore) RecentPredictions(_ context.Context, model string, limit int) ([]models.PredictionEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.PredictionEvent
	for i := len(s.predictions) - 1; i >= 0 && len(out) < limit; i-- {
		if model == "" || s.predictions[i].Model == model {
			out = append(out, s.predictions[i])
		}
	}
	return out, nil
}

type fakeMetrics struct {
	predictions map[string]float64
	errors      []string
	latencies   []string
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{predictions: map[string]float64{}} }

func (m *fakeMetrics) RecordFetch(string, string) {}
func (m *fakeMetrics) RecordSkipped(string, int) {}
func (m *fakeMetrics) RecordError(kind string) { m.errors = append(m.errors, kind) }
func (m *fakeMetrics) RecordTraining(int, float64, float64) {}
func (m *fakeMetrics) RecordLatency(op string, _ float64) { m.latencies = append(m.latencies, op) }
func (m *fakeMetrics) RecordPrediction(model, s string, v float64) {
	m.predictions[model+"/"+s] = v
}

var errBoom = errors.New("boom")

// dailyObs returns n daily observations starting at from with values f(i).
func dailyObs(from time.Time, n int, f func(i int) float64) []models.Observation {
	out := make([]models.Observation, n)
	for i := range out {
		out[i] = models.Observation{Date: from.AddDate(0, 0, i), Value: f(i)}
	}
	return out
}

// denseSource serves n aligned daily observations for every default series id.
func denseSource(from time.Time, n int) *fakeSource {
	ids := models.DefaultSeriesIDs()
	src := &fakeSource{series: map[string][]models.Observation{}}
	base := map[models.Indicator]float64{
		models.EURUSD:   1.08,
		models.DXY:      100,
		models.CPI:      300,
		models.FedFunds: 5,
		models.GDP:      20000,
	}
	for _, ind := range models.Indicators {
		b := base[ind]
		src.series[ids[ind]] = dailyObs(from, n, func(i int) float64 { return b + float64(i%7)*0.01*b })
	}
	return src
}

func evaluationTable(n int) *models.FeatureTable {
	t := &models.FeatureTable{}
	for i := 0; i < n; i++ {
		lag := models.IndicatorSet{EURUSD: 1.1, DXY: 99, CPI: 299, FedFunds: 5, GDP: 19990}
		t.Rows = append(t.Rows, models.FeatureRow{
			Date:     day("2024-05-01").AddDate(0, 0, i),
			DXY:      100 + float64(i),
			CPI:      300,
			FedFunds: 5,
			GDP:      20000,
			Lag1:     lag,
			Lag2:     lag,
			Lag3:     lag,
		})
		t.Target = append(t.Target, 1.1)
	}
	return t
}
