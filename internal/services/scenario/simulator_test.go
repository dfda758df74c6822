package scenario

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"FxCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleRow() models.FeatureRow {
	lag := models.IndicatorSet{EURUSD: 1.1, DXY: 99, CPI: 299, FedFunds: 5, GDP: 19990}
	return models.FeatureRow{
		Date:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		DXY:      100,
		CPI:      300,
		FedFunds: 5.0,
		GDP:      20000,
		Lag1:     lag,
		Lag2:     lag,
		Lag3:     lag,
	}
}

// linear scores DXY so scenario order is observable.
type linear struct {
	calls int
	err   error
}

func (l *linear) Predict(_ context.Context, rows []models.FeatureRow) ([]float64, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.DXY / 100
	}
	return out, nil
}

func (l *linear) Name() string { return "linear" }

func TestPerturbExampleValues(t *testing.T) {
	row := exampleRow()

	opt := Perturb(row, models.Optimistic, 0.02)
	assert.Equal(t, 102.0, opt.DXY)
	assert.Equal(t, 294.0, opt.CPI)
	assert.Equal(t, 4.9, opt.FedFunds)
	assert.Equal(t, 20400.0, opt.GDP)

	pess := Perturb(row, models.Pessimistic, 0.02)
	assert.Equal(t, 98.0, pess.DXY)
	assert.Equal(t, 306.0, pess.CPI)
	assert.Equal(t, 5.1, pess.FedFunds)
	assert.Equal(t, 19600.0, pess.GDP)

	assert.Equal(t, row, Perturb(row, models.Neutral, 0.02))
}

func TestPerturbLeavesLagsAndDate(t *testing.T) {
	row := exampleRow()
	for _, s := range models.Scenarios {
		got := Perturb(row, s, 0.05)
		assert.Equal(t, row.Date, got.Date, s)
		assert.Equal(t, row.Lag1, got.Lag1, s)
		assert.Equal(t, row.Lag2, got.Lag2, s)
		assert.Equal(t, row.Lag3, got.Lag3, s)
		assert.Equal(t, row.Vector()[4:], got.Vector()[4:], s)
	}
}

func TestPerturbDirectionHoldsForAnyRow(t *testing.T) {
	rows := []models.FeatureRow{exampleRow(), {DXY: 1, CPI: 2, FedFunds: 0.25, GDP: 3}}
	for _, row := range rows {
		opt := Perturb(row, models.Optimistic, 0.1)
		pess := Perturb(row, models.Pessimistic, 0.1)
		assert.Greater(t, opt.DXY, row.DXY)
		assert.Less(t, opt.CPI, row.CPI)
		assert.Less(t, opt.FedFunds, row.FedFunds)
		assert.Greater(t, opt.GDP, row.GDP)
		assert.Less(t, pess.DXY, row.DXY)
		assert.Greater(t, pess.CPI, row.CPI)
		assert.Greater(t, pess.FedFunds, row.FedFunds)
		assert.Less(t, pess.GDP, row.GDP)
	}
}

func TestSimulateOrderAndBatching(t *testing.T) {
	reg := &linear{}
	second := exampleRow()
	second.Date = second.Date.AddDate(0, 0, 1)
	second.DXY = 110

	preds, err := Simulate(context.Background(), reg, []models.FeatureRow{exampleRow(), second}, 0.02)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, 1, reg.calls)

	assert.InDelta(t, 1.00, preds[0].Neutral, 1e-12)
	assert.InDelta(t, 1.02, preds[0].Optimistic, 1e-12)
	assert.InDelta(t, 0.98, preds[0].Pessimistic, 1e-12)
	assert.Equal(t, second.Date, preds[1].Date)
	assert.InDelta(t, 1.10, preds[1].Neutral, 1e-12)
}

func TestSimulateErrors(t *testing.T) {
	ctx := context.Background()
	rows := []models.FeatureRow{exampleRow()}

	for _, v := range []float64{-0.01, 1, math.NaN()} {
		_, err := Simulate(ctx, &linear{}, rows, v)
		assert.ErrorIs(t, err, ErrInvalidVariation, "%v", v)
	}
	_, err := Simulate(ctx, &linear{}, nil, 0.02)
	assert.ErrorIs(t, err, ErrNoRows)

	boom := errors.New("boom")
	_, err = Simulate(ctx, &linear{err: boom}, rows, 0.02)
	assert.ErrorIs(t, err, boom)

	_, err = Simulate(ctx, &linear{}, rows, 0)
	assert.NoError(t, err)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	_, err := Latest(ctx, &linear{}, &models.FeatureTable{}, 0.02)
	assert.ErrorIs(t, err, ErrNoRows)

	last := exampleRow()
	last.Date = last.Date.AddDate(0, 0, 1)
	last.DXY = 120
	tbl := &models.FeatureTable{Rows: []models.FeatureRow{exampleRow(), last}, Target: []float64{1, 1}}
	p, err := Latest(ctx, &linear{}, tbl, 0.02)
	require.NoError(t, err)
	assert.Equal(t, last.Date, p.Date)
	assert.InDelta(t, 1.2, p.Neutral, 1e-12)
}
