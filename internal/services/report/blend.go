package report

import (
	"fmt"
	"math"

	"FxCast/internal/domain/models"
)

// DefaultBlendWeight gives both models equal say.
const DefaultBlendWeight = 0.5

// BlendPredictions combines the regressor and forecast band per scenario as
// w*regressor + (1-w)*band. The blended date is the forecast date.
func BlendPredictions(regressor, band models.ScenarioPrediction, w float64) (models.Blend, error) {
	if math.IsNaN(w) || w < 0 || w > 1 {
		return models.Blend{}, fmt.Errorf("blend weight must be in [0, 1], got %v", w)
	}
	mix := func(r, f float64) float64 { return w*r + (1-w)*f }
	return models.Blend{
		Date:      band.Date,
		Weight:    w,
		Regressor: regressor,
		Forecast:  band,
		Blended: models.ScenarioPrediction{
			Date:        band.Date,
			Neutral:     mix(regressor.Neutral, band.Neutral),
			Optimistic:  mix(regressor.Optimistic, band.Optimistic),
			Pessimistic: mix(regressor.Pessimistic, band.Pessimistic),
		},
	}, nil
}
