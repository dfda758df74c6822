package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	domsvc "FxCast/internal/domain/service"
	"FxCast/internal/services/report"
	"FxCast/internal/services/scenario"
	applogger "FxCast/pkg/logger"
	xutil "FxCast/pkg/util"
)

// DashboardSettings are the tunables of a dashboard run.
type DashboardSettings struct {
	Variation       float64
	BlendWeight     float64
	History         int
	DiagnosticsDays int
}

func DefaultDashboardSettings() DashboardSettings {
	return DashboardSettings{
		Variation:       models.DefaultVariation,
		BlendWeight:     report.DefaultBlendWeight,
		History:         30,
		DiagnosticsDays: report.DefaultDiagnosticsDays,
	}
}

type DashboardOption func(*DashboardUseCase)

// WithRegressor sets the scenario model. Without one, scenario sections are skipped.
func WithRegressor(r domsvc.Regressor) DashboardOption {
	return func(uc *DashboardUseCase) { uc.regressor = r }
}

// WithForecaster sets the decomposition band source.
func WithForecaster(f domsvc.Forecaster) DashboardOption {
	return func(uc *DashboardUseCase) { uc.forecaster = f }
}

// WithPublisher publishes prediction events after each snapshot.
func WithPublisher(p domrepo.Publisher) DashboardOption {
	return func(uc *DashboardUseCase) { uc.publisher = p }
}

// WithPredictionArchive enables reading back archived prediction events.
func WithPredictionArchive(store domrepo.PredictionStore) DashboardOption {
	return func(uc *DashboardUseCase) { uc.archive = store }
}

func WithDashboardMetrics(m domrepo.Metrics) DashboardOption {
	return func(uc *DashboardUseCase) { uc.metrics = m }
}

func WithDashboardLogger(l *applogger.Logger) DashboardOption {
	return func(uc *DashboardUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// DashboardUseCase assembles the dashboard: the current rate, scenario predictions
// on the evaluation table, the forecast band and the reports built on them. Every
// call fetches and loads its inputs fresh.
type DashboardUseCase struct {
	series     *SeriesCollector
	evaluation domrepo.EvaluationTable
	mu         sync.RWMutex
	regressor  domsvc.Regressor
	forecaster domsvc.Forecaster
	publisher  domrepo.Publisher
	archive    domrepo.PredictionStore
	metrics    domrepo.Metrics
	settings   DashboardSettings
	log        *applogger.Logger
	now        func() time.Time
	newID      func() string
	timeout    time.Duration
}

func NewDashboardUseCase(series *SeriesCollector, evaluation domrepo.EvaluationTable, settings DashboardSettings, opts ...DashboardOption) *DashboardUseCase {
	uc := &DashboardUseCase{
		series:     series,
		evaluation: evaluation,
		settings:   settings,
		log:        applogger.Nop(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.settings.History < 1 {
		uc.settings.History = 1
	}
	return uc
}

// Settings returns the configured run settings.
func (uc *DashboardUseCase) Settings() DashboardSettings { return uc.settings }

// SetRegressor swaps the scenario model. Calls in flight keep the model they started with.
func (uc *DashboardUseCase) SetRegressor(r domsvc.Regressor) {
	uc.mu.Lock()
	uc.regressor = r
	uc.mu.Unlock()
}

func (uc *DashboardUseCase) currentRegressor() domsvc.Regressor {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.regressor
}

// LatestRate fetches the target series and returns its newest observation.
func (uc *DashboardUseCase) LatestRate(ctx context.Context) models.RateView {
	return rateView(uc.series.Fetch(ctx, models.Target, time.Time{}))
}

func rateView(res models.SeriesResult) models.RateView {
	v := models.RateView{SeriesID: res.SeriesID, Report: res.Report, Diagnostic: res.Diagnostic}
	if o, ok := res.Latest(); ok {
		v.Latest = &o
	}
	return v
}

// Series fetches any series with its parse report.
func (uc *DashboardUseCase) Series(ctx context.Context, req models.SeriesRequest) models.SeriesResult {
	q := models.SeriesQuery{SeriesID: req.SeriesID, Limit: req.Limit}
	if d, ok := xutil.ParseDate(req.Start); ok {
		q.Start = d
	}
	return uc.series.FetchRaw(ctx, q)
}

// RecentPredictions lists archived prediction events, newest first.
func (uc *DashboardUseCase) RecentPredictions(ctx context.Context, model string, limit int) ([]models.PredictionEvent, error) {
	if uc.archive == nil {
		return nil, fmt.Errorf("prediction archive: %w", domrepo.ErrNotAvailable)
	}
	events, err := uc.archive.RecentPredictions(ctx, model, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.PredictionEvent{}
	}
	return events, nil
}

// Scenarios scores the last n evaluation rows under each scenario.
func (uc *DashboardUseCase) Scenarios(ctx context.Context, variation float64, n int) ([]models.ScenarioPrediction, error) {
	reg := uc.currentRegressor()
	if reg == nil {
		return nil, ErrModelUnavailable
	}
	tbl, err := uc.evaluation.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tbl.Len() == 0 {
		return nil, fmt.Errorf("%w: evaluation table is empty", scenario.ErrNoRows)
	}
	start := uc.now()
	preds, err := scenario.Simulate(ctx, reg, tbl.Tail(n).Rows, variation)
	uc.latency("scenarios", start)
	if err != nil {
		return nil, err
	}
	if last := preds[len(preds)-1]; uc.metrics != nil {
		for _, s := range models.Scenarios {
			uc.metrics.RecordPrediction(reg.Name(), string(s), last.Value(s))
		}
	}
	return preds, nil
}

// SimulationResult is the scoring of a caller-supplied row.
type SimulationResult struct {
	Prediction models.ScenarioPrediction `json:"prediction"`
	Inputs     models.ScenarioRows       `json:"inputs"`
}

// Simulate scores one named feature record. Missing or unknown columns fail with
// models.ErrColumnMismatch.
func (uc *DashboardUseCase) Simulate(ctx context.Context, date time.Time, features map[string]float64, variation float64) (*SimulationResult, error) {
	reg := uc.currentRegressor()
	if reg == nil {
		return nil, ErrModelUnavailable
	}
	row, err := models.FeatureRowFromRecord(date, features)
	if err != nil {
		return nil, err
	}
	preds, err := scenario.Simulate(ctx, reg, []models.FeatureRow{row}, variation)
	if err != nil {
		return nil, err
	}
	return &SimulationResult{Prediction: preds[0], Inputs: scenario.Variants(row, variation)}, nil
}

func (uc *DashboardUseCase) loadForecast(ctx context.Context) ([]models.ForecastPoint, error) {
	if uc.forecaster == nil {
		return nil, fmt.Errorf("%w: no forecast source configured", domrepo.ErrNotAvailable)
	}
	points, err := uc.forecaster.Forecast(ctx)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: forecast is empty", domrepo.ErrNotAvailable)
	}
	return points, nil
}

// Forecast looks up the band nearest to date (zero date means the last forecast
// date) and compares it with the actual rate observed on that day.
func (uc *DashboardUseCase) Forecast(ctx context.Context, date time.Time) (*models.ForecastView, error) {
	points, err := uc.loadForecast(ctx)
	if err != nil {
		return nil, err
	}
	rate := uc.series.Fetch(ctx, models.Target, time.Time{})
	return uc.forecastView(ctx, points, rate, date, nil), nil
}

// forecastView builds the forecast section. latest, when set, is the regressor's
// most recent scenario prediction and is blended with the band.
func (uc *DashboardUseCase) forecastView(ctx context.Context, points []models.ForecastPoint, rate models.SeriesResult, date time.Time, latest *models.ScenarioPrediction) *models.ForecastView {
	from, to, _ := report.Range(points)
	if date.IsZero() {
		date = to
	}
	point, actual := bandAt(points, rate, date)
	band := point.AsPrediction()

	view := &models.ForecastView{
		Requested:  xutil.Day(date),
		Point:      point,
		Range:      models.ForecastRange{From: from, To: to},
		Dispersion: report.Disperse(band),
	}

	if actual == nil {
		view.Notices = append(view.Notices, models.Notice{
			Section:  models.SectionComparison,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("no actual rate observed on %s", xutil.FormatDate(point.Date)),
		})
	}
	view.Comparison = report.Compare(point.Date, actual, band)

	if reg := uc.currentRegressor(); latest == nil && reg != nil {
		if tbl, err := uc.evaluation.Load(ctx); err == nil {
			if p, err := scenario.Latest(ctx, reg, tbl, uc.settings.Variation); err == nil {
				latest = &p
			}
		}
	}
	if latest != nil {
		if b, err := report.BlendPredictions(*latest, band, uc.settings.BlendWeight); err == nil {
			view.Blend = &b
		}
	} else {
		view.Notices = append(view.Notices, models.Notice{
			Section:  models.SectionBlend,
			Severity: models.SeverityInfo,
			Message:  "blend skipped: no regressor prediction available",
		})
	}
	return view
}

// ComparisonCSV renders the comparison for date as a downloadable table.
func (uc *DashboardUseCase) ComparisonCSV(ctx context.Context, date time.Time) ([]byte, error) {
	points, err := uc.loadForecast(ctx)
	if err != nil {
		return nil, err
	}
	rate := uc.series.Fetch(ctx, models.Target, time.Time{})
	if date.IsZero() {
		_, date, _ = report.Range(points)
	}
	point, actual := bandAt(points, rate, date)
	return report.ComparisonCSV(report.Compare(point.Date, actual, point.AsPrediction()))
}

// bandAt returns the forecast point nearest to date and the actual rate observed on
// that point's date, if any.
func bandAt(points []models.ForecastPoint, rate models.SeriesResult, date time.Time) (models.ForecastPoint, *float64) {
	point, _ := report.Nearest(points, date)
	if v, ok := report.ActualOn(rate.Observations, point.Date); ok {
		return point, &v
	}
	return point, nil
}

// Diagnostics scores the base forecast against the trailing days of actuals.
func (uc *DashboardUseCase) Diagnostics(ctx context.Context, days int) (*models.Diagnostics, error) {
	points, err := uc.loadForecast(ctx)
	if err != nil {
		return nil, err
	}
	rate := uc.series.Fetch(ctx, models.Target, time.Time{})
	if rate.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrEmptySeries, rate.Diagnostic)
	}
	d := report.Diagnose(rate.Observations, points, days)
	return &d, nil
}

// Snapshot runs the whole dashboard once. Missing inputs degrade the affected
// sections into notices; only context cancellation fails the run.
func (uc *DashboardUseCase) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := uc.now()

	snap := &models.Snapshot{
		RunID:       uc.newID(),
		GeneratedAt: start.UTC(),
		Variation:   uc.settings.Variation,
	}
	notice := func(section models.Section, sev models.Severity, format string, args ...interface{}) {
		snap.Notices = append(snap.Notices, models.Notice{Section: section, Severity: sev, Message: fmt.Sprintf(format, args...)})
		if sev == models.SeverityWarning && uc.metrics != nil {
			uc.metrics.RecordError("degraded_" + string(section))
		}
	}

	rate := uc.series.Fetch(ctx, models.Target, time.Time{})
	rv := rateView(rate)
	snap.Rate = &rv
	if rate.Empty() {
		notice(models.SectionRate, models.SeverityWarning, "current rate unavailable: %s", rate.Diagnostic)
	}

	var events []models.PredictionEvent
	switch preds, err := uc.Scenarios(ctx, uc.settings.Variation, uc.settings.History); {
	case err == nil:
		last := preds[len(preds)-1]
		snap.Latest = &last
		snap.History = preds
		events = append(events, models.EventsFrom(snap.RunID, uc.currentRegressor().Name(), last, uc.settings.Variation, snap.GeneratedAt)...)
	case errors.Is(err, ErrModelUnavailable), errors.Is(err, domrepo.ErrNotAvailable):
		notice(models.SectionScenarios, models.SeverityInfo, "scenarios skipped: %v", err)
	default:
		notice(models.SectionScenarios, models.SeverityWarning, "scenarios failed: %v", err)
	}

	switch points, err := uc.loadForecast(ctx); {
	case err == nil:
		view := uc.forecastView(ctx, points, rate, time.Time{}, snap.Latest)
		snap.Forecast = view
		snap.Notices = append(snap.Notices, view.Notices...)
		view.Notices = nil
		events = append(events, models.EventsFrom(snap.RunID, models.ModelForecast, view.Point.AsPrediction(), uc.settings.Variation, snap.GeneratedAt)...)
		if view.Blend != nil {
			events = append(events, models.EventsFrom(snap.RunID, models.ModelBlend, view.Blend.Blended, uc.settings.Variation, snap.GeneratedAt)...)
		}
		if !rate.Empty() {
			d := report.Diagnose(rate.Observations, points, uc.settings.DiagnosticsDays)
			snap.Diagnostics = &d
		}
	case errors.Is(err, domrepo.ErrNotAvailable):
		notice(models.SectionForecast, models.SeverityInfo, "forecast skipped: %v", err)
	default:
		notice(models.SectionForecast, models.SeverityWarning, "forecast failed: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap.Published = uc.publish(ctx, events, notice)
	uc.latency("snapshot", start)
	uc.log.Info("dashboard snapshot",
		applogger.String("run_id", snap.RunID),
		applogger.Int("events", snap.Published),
		applogger.Int("notices", len(snap.Notices)))
	return snap, nil
}

func (uc *DashboardUseCase) publish(ctx context.Context, events []models.PredictionEvent, notice func(models.Section, models.Severity, string, ...interface{})) int {
	if uc.publisher == nil || len(events) == 0 {
		return 0
	}
	if err := uc.publisher.PublishPredictions(ctx, events); err != nil {
		uc.log.Warn("publish predictions failed", applogger.Error(err))
		notice(models.SectionEvents, models.SeverityWarning, "prediction events not published: %v", err)
		return 0
	}
	return len(events)
}

func (uc *DashboardUseCase) latency(op string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.RecordLatency(op, uc.now().Sub(start).Seconds())
	}
}
