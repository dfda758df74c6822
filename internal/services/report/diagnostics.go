package report

import (
	"math"
	"time"

	"FxCast/internal/domain/models"
	xutil "FxCast/pkg/util"
)

// DefaultDiagnosticsDays is the trailing window of actuals scored against the forecast.
const DefaultDiagnosticsDays = 30

// HitTolerance is the absolute error under which a forecast counts as a hit.
const HitTolerance = 0.01

// Diagnose joins the last days of actual observations with forecast points on the
// same date and measures the base forecast error. The window ends at the latest
// actual. No overlap yields zero samples and zero metrics.
func Diagnose(actuals []models.Observation, points []models.ForecastPoint, days int) models.Diagnostics {
	if days <= 0 {
		days = DefaultDiagnosticsDays
	}
	var d models.Diagnostics
	if len(actuals) == 0 || len(points) == 0 {
		return d
	}

	var last time.Time
	for _, o := range actuals {
		if o.Date.After(last) {
			last = o.Date
		}
	}
	last = xutil.Day(last)
	from := last.AddDate(0, 0, -(days - 1))
	d.From, d.To = from, last

	byDay := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDay[xutil.Day(p.Date)] = p.YHat
	}

	var errs []float64
	for _, o := range actuals {
		day := xutil.Day(o.Date)
		if day.Before(from) || day.After(last) {
			continue
		}
		yhat, ok := byDay[day]
		if !ok {
			continue
		}
		errs = append(errs, o.Value-yhat)
	}
	d.Samples = len(errs)
	if d.Samples == 0 {
		return d
	}

	var absSum, sqSum, sum float64
	hits := 0
	for _, e := range errs {
		absSum += math.Abs(e)
		sqSum += e * e
		sum += e
		if math.Abs(e) < HitTolerance {
			hits++
		}
	}
	n := float64(d.Samples)
	d.MAE = absSum / n
	d.RMSE = math.Sqrt(sqSum / n)
	d.HitRate = float64(hits) / n
	if d.Samples > 1 {
		m := sum / n
		var v float64
		for _, e := range errs {
			v += (e - m) * (e - m)
		}
		d.ErrorStd = math.Sqrt(v / (n - 1))
	}
	return d
}
