package models

import "time"

// ForecastPoint is one row of the decomposition model's forecast band.
type ForecastPoint struct {
	Date  time.Time `json:"ds"`
	YHat  float64   `json:"yhat"`
	Upper float64   `json:"yhat_upper"`
	Lower float64   `json:"yhat_lower"`
}

// Scenario maps the band onto the scenario set: base is yhat, optimistic the upper
// bound, pessimistic the lower bound.
func (p ForecastPoint) Scenario(s Scenario) float64 {
	switch s {
	case Optimistic:
		return p.Upper
	case Pessimistic:
		return p.Lower
	}
	return p.YHat
}

// AsPrediction exposes the band as a ScenarioPrediction.
func (p ForecastPoint) AsPrediction() ScenarioPrediction {
	return ScenarioPrediction{Date: p.Date, Neutral: p.YHat, Optimistic: p.Upper, Pessimistic: p.Lower}
}
