package scenario

import (
	"context"
	"errors"
	"fmt"
	"math"

	"FxCast/internal/domain/models"
	domsvc "FxCast/internal/domain/service"
)

var (
	// ErrInvalidVariation is returned for a variation outside [0, 1).
	ErrInvalidVariation = errors.New("variation must be in [0, 1)")
	// ErrNoRows is returned when there is nothing to score.
	ErrNoRows = errors.New("no feature rows to score")
)

// ValidateVariation rejects negative, NaN and >= 1 variations.
func ValidateVariation(v float64) error {
	if math.IsNaN(v) || v < 0 || v >= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidVariation, v)
	}
	return nil
}

// Perturb returns a copy of row with the four current drivers scaled for s.
// Optimistic means a stronger dollar, lower inflation, lower rates and higher GDP.
// Lags and the date are never touched.
func Perturb(row models.FeatureRow, s models.Scenario, v float64) models.FeatureRow {
	out := row
	switch s {
	case models.Optimistic:
		out.DXY = row.DXY * (1 + v)
		out.CPI = row.CPI * (1 - v)
		out.FedFunds = row.FedFunds * (1 - v)
		out.GDP = row.GDP * (1 + v)
	case models.Pessimistic:
		out.DXY = row.DXY * (1 - v)
		out.CPI = row.CPI * (1 + v)
		out.FedFunds = row.FedFunds * (1 + v)
		out.GDP = row.GDP * (1 - v)
	}
	return out
}

// Variants returns the three perturbed inputs of row.
func Variants(row models.FeatureRow, v float64) models.ScenarioRows {
	return models.ScenarioRows{
		Neutral:     Perturb(row, models.Neutral, v),
		Optimistic:  Perturb(row, models.Optimistic, v),
		Pessimistic: Perturb(row, models.Pessimistic, v),
	}
}

// Simulate scores every row under each scenario with one batched Predict call.
func Simulate(ctx context.Context, reg domsvc.Regressor, rows []models.FeatureRow, v float64) ([]models.ScenarioPrediction, error) {
	if err := ValidateVariation(v); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if reg == nil {
		return nil, errors.New("no regressor")
	}

	width := len(models.Scenarios)
	batch := make([]models.FeatureRow, 0, len(rows)*width)
	for _, r := range rows {
		for _, s := range models.Scenarios {
			batch = append(batch, Perturb(r, s, v))
		}
	}
	scores, err := reg.Predict(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%s predict: %w", reg.Name(), err)
	}
	if len(scores) != len(batch) {
		return nil, fmt.Errorf("%s predict: %d scores for %d rows", reg.Name(), len(scores), len(batch))
	}

	out := make([]models.ScenarioPrediction, len(rows))
	for i, r := range rows {
		s := scores[i*width : (i+1)*width]
		out[i] = models.ScenarioPrediction{Date: r.Date, Neutral: s[0], Optimistic: s[1], Pessimistic: s[2]}
	}
	return out, nil
}

// Latest scores the most recent row of t.
func Latest(ctx context.Context, reg domsvc.Regressor, t *models.FeatureTable, v float64) (models.ScenarioPrediction, error) {
	row, _, ok := t.Last()
	if !ok {
		return models.ScenarioPrediction{}, ErrNoRows
	}
	preds, err := Simulate(ctx, reg, []models.FeatureRow{row}, v)
	if err != nil {
		return models.ScenarioPrediction{}, err
	}
	return preds[0], nil
}
