package report

import (
	"FxCast/internal/domain/models"
)

// Range thresholds in USD/EUR points.
const (
	HighRiskRange     = 0.1
	ModerateRiskRange = 0.05
)

// Disperse measures the spread of the optimistic and pessimistic values around base.
func Disperse(p models.ScenarioPrediction) models.Dispersion {
	base := Round(p.Neutral, RatePlaces)
	opt := Round(p.Optimistic, RatePlaces)
	pess := Round(p.Pessimistic, RatePlaces)
	rng := Round(opt-pess, RatePlaces)

	d := models.Dispersion{
		Base:         base,
		Optimistic:   opt,
		Pessimistic:  pess,
		Range:        rng,
		Deviation:    Round(rng/2, RatePlaces),
		DistanceUp:   Round(opt-base, RatePlaces),
		DistanceDown: Round(base-pess, RatePlaces),
	}
	switch {
	case rng > HighRiskRange:
		d.Risk = models.RiskHigh
	case rng > ModerateRiskRange:
		d.Risk = models.RiskModerate
	default:
		d.Risk = models.RiskLow
	}
	d.HighVolatility = rng > HighRiskRange
	if d.HighVolatility {
		d.Advice = "Scenario spread is wide, which signals high volatility. Partial hedging is advised for USD exposure."
	} else {
		d.Advice = "Scenario spread is moderate. The current position can be kept under active monitoring."
	}
	return d
}
