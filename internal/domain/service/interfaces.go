package service

import (
	"context"

	"FxCast/internal/domain/models"
)

// SeriesSource fetches one remote series. Fetch never fails: problems are reported
// through SeriesResult.Diagnostic with an empty observation list.
type SeriesSource interface {
	Fetch(ctx context.Context, q models.SeriesQuery) models.SeriesResult
}

// Regressor scores feature rows.
type Regressor interface {
	Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error)
	Name() string
}

// Forecaster returns the decomposition model's forecast band.
type Forecaster interface {
	Forecast(ctx context.Context) ([]models.ForecastPoint, error)
}
