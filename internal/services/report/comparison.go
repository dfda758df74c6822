package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"FxCast/internal/domain/models"
)

// Recommendation thresholds in percent against the actual rate.
const (
	WaitThreshold = 1.5
	SellThreshold = -1.5
)

const (
	LabelActual      = "Actual"
	LabelBase        = "Base"
	LabelOptimistic  = "Optimistic"
	LabelPessimistic = "Pessimistic"
)

// Compare tabulates the three scenario values for date. When actual is known every
// row carries its percentage difference and a recommendation is attached.
func Compare(date time.Time, actual *float64, p models.ScenarioPrediction) models.Comparison {
	values := []struct {
		label string
		v     float64
	}{
		{LabelBase, Round(p.Neutral, RatePlaces)},
		{LabelOptimistic, Round(p.Optimistic, RatePlaces)},
		{LabelPessimistic, Round(p.Pessimistic, RatePlaces)},
	}

	c := models.Comparison{Date: date}
	if actual == nil {
		for _, r := range values {
			c.Rows = append(c.Rows, models.ComparisonRow{Label: r.label, Value: r.v})
		}
		return c
	}

	ref := Round(*actual, RatePlaces)
	c.Actual = &ref
	zero := 0.0
	c.Rows = append(c.Rows, models.ComparisonRow{Label: LabelActual, Value: ref, DiffPct: &zero})
	diffs := make([]float64, len(values))
	for i, r := range values {
		diffs[i] = DiffPct(r.v, ref)
		c.Rows = append(c.Rows, models.ComparisonRow{Label: r.label, Value: r.v, DiffPct: &diffs[i]})
	}
	rec := Recommend(diffs[1], diffs[2])
	c.Recommendation = &rec
	return c
}

// Recommend picks an action from the optimistic and pessimistic differences.
func Recommend(optimisticDiff, pessimisticDiff float64) models.Recommendation {
	switch {
	case optimisticDiff > WaitThreshold:
		return models.Recommendation{
			Action:  models.ActionWait,
			Message: "The dollar is projected to appreciate against the euro. Waiting to sell is favoured as the optimistic scenario points to a better rate.",
		}
	case pessimisticDiff < SellThreshold:
		return models.Recommendation{
			Action:  models.ActionSellNow,
			Message: "The pessimistic scenario points to a weaker dollar. A conservative stance favours selling now to avoid further losses.",
		}
	}
	return models.Recommendation{
		Action:  models.ActionHold,
		Message: "Projections show moderate variation. The position can be held, or sold according to liquidity needs.",
	}
}

// ComparisonCSV renders the comparison as a delimited table. The difference column is
// present only when an actual value is known.
func ComparisonCSV(c models.Comparison) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"scenario", "value_usd_eur"}
	if c.Actual != nil {
		header = append(header, "diff_pct_vs_actual")
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range c.Rows {
		rec := []string{r.Label, strconv.FormatFloat(r.Value, 'f', RatePlaces, 64)}
		if c.Actual != nil {
			d := 0.0
			if r.DiffPct != nil {
				d = *r.DiffPct
			}
			rec = append(rec, strconv.FormatFloat(d, 'f', PercentPlaces, 64))
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
