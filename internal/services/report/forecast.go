package report

import (
	"time"

	"FxCast/internal/domain/models"
	xutil "FxCast/pkg/util"
)

// Nearest returns the forecast point closest to target by calendar day. Ties go to
// the earlier point. ok is false for an empty forecast.
func Nearest(points []models.ForecastPoint, target time.Time) (models.ForecastPoint, bool) {
	if len(points) == 0 {
		return models.ForecastPoint{}, false
	}
	best, bestDist := 0, -1
	for i, p := range points {
		d := xutil.AbsDays(p.Date, target)
		if bestDist < 0 || d < bestDist || (d == bestDist && p.Date.Before(points[best].Date)) {
			best, bestDist = i, d
		}
	}
	return points[best], true
}

// Range returns the first and last forecast dates.
func Range(points []models.ForecastPoint) (from, to time.Time, ok bool) {
	if len(points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	from, to = points[0].Date, points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(from) {
			from = p.Date
		}
		if p.Date.After(to) {
			to = p.Date
		}
	}
	return from, to, true
}

// ActualOn returns the observation recorded exactly on day.
func ActualOn(obs []models.Observation, day time.Time) (float64, bool) {
	day = xutil.Day(day)
	for i := len(obs) - 1; i >= 0; i-- {
		if xutil.Day(obs[i].Date).Equal(day) {
			return obs[i].Value, true
		}
	}
	return 0, false
}
