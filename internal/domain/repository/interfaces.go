package repository

import (
	"context"
	"time"

	"FxCast/internal/domain/models"
)

// ObservationStore archives fetched observations so training can run without FRED.
type ObservationStore interface {
	SaveObservations(ctx context.Context, ind models.Indicator, seriesID string, obs []models.Observation) error
	LoadObservations(ctx context.Context, ind models.Indicator, from, to time.Time) ([]models.Observation, error)
}

// PredictionStore archives prediction events.
type PredictionStore interface {
	SavePredictions(ctx context.Context, events []models.PredictionEvent) error
	RecentPredictions(ctx context.Context, model string, limit int) ([]models.PredictionEvent, error)
}

// Publisher emits prediction events to downstream consumers.
type Publisher interface {
	PublishPredictions(ctx context.Context, events []models.PredictionEvent) error
	Close() error
}

// EvaluationTable provides the held-out feature table written by training.
type EvaluationTable interface {
	Load(ctx context.Context) (*models.FeatureTable, error)
}

// Metrics records pipeline measurements.
type Metrics interface {
	RecordFetch(seriesID, result string)
	RecordSkipped(seriesID string, n int)
	RecordError(kind string)
	RecordPrediction(model, scenario string, value float64)
	RecordLatency(op string, seconds float64)
	RecordTraining(rows int, mae, rmse float64)
}
