package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrColumnMismatch is returned when a record does not carry exactly the feature columns.
var ErrColumnMismatch = errors.New("feature column mismatch")

// Lags are the day offsets appended for every indicator.
var Lags = []int{1, 2, 3}

// IndicatorSet holds one value per indicator.
type IndicatorSet struct {
	EURUSD   float64 `json:"eurusd"`
	DXY      float64 `json:"dxy"`
	CPI      float64 `json:"cpi"`
	FedFunds float64 `json:"fedfunds"`
	GDP      float64 `json:"gdp"`
}

// Get returns the value of ind.
func (s IndicatorSet) Get(ind Indicator) float64 {
	switch ind {
	case EURUSD:
		return s.EURUSD
	case DXY:
		return s.DXY
	case CPI:
		return s.CPI
	case FedFunds:
		return s.FedFunds
	case GDP:
		return s.GDP
	}
	return math.NaN()
}

// Set assigns the value of ind.
func (s *IndicatorSet) Set(ind Indicator, v float64) {
	switch ind {
	case EURUSD:
		s.EURUSD = v
	case DXY:
		s.DXY = v
	case CPI:
		s.CPI = v
	case FedFunds:
		s.FedFunds = v
	case GDP:
		s.GDP = v
	}
}

// FeatureRow is one dated predictor vector: current drivers plus 1, 2 and 3 day
// lags of every indicator. The current EURUSD value is the target and is not a feature.
type FeatureRow struct {
	Date     time.Time    `json:"date"`
	DXY      float64      `json:"dxy"`
	CPI      float64      `json:"cpi"`
	FedFunds float64      `json:"fedfunds"`
	GDP      float64      `json:"gdp"`
	Lag1     IndicatorSet `json:"lag1"`
	Lag2     IndicatorSet `json:"lag2"`
	Lag3     IndicatorSet `json:"lag3"`
}

// FeatureCount is the width of FeatureRow.Vector.
const FeatureCount = 19

// LagColumn names the k-day lag column of ind, e.g. "CPI_lag2".
func LagColumn(ind Indicator, k int) string {
	return fmt.Sprintf("%s_lag%d", ind, k)
}

// FeatureColumns returns the canonical column order:
// DXY, CPI, FEDFUNDS, GDP, then EURUSD_lag1..3, DXY_lag1..3 and so on in indicator order.
func FeatureColumns() []string {
	cols := make([]string, 0, FeatureCount)
	for _, ind := range Drivers {
		cols = append(cols, string(ind))
	}
	for _, ind := range Indicators {
		for _, k := range Lags {
			cols = append(cols, LagColumn(ind, k))
		}
	}
	return cols
}

// Current returns the current-value drivers as an IndicatorSet (EURUSD left zero).
func (r FeatureRow) Current() IndicatorSet {
	return IndicatorSet{DXY: r.DXY, CPI: r.CPI, FedFunds: r.FedFunds, GDP: r.GDP}
}

// Lag returns the k-day lag set (k in 1..3).
func (r FeatureRow) Lag(k int) IndicatorSet {
	switch k {
	case 1:
		return r.Lag1
	case 2:
		return r.Lag2
	case 3:
		return r.Lag3
	}
	return IndicatorSet{}
}

func (r *FeatureRow) setLag(k int, s IndicatorSet) {
	switch k {
	case 1:
		r.Lag1 = s
	case 2:
		r.Lag2 = s
	case 3:
		r.Lag3 = s
	}
}

// Vector flattens the row in FeatureColumns order.
func (r FeatureRow) Vector() []float64 {
	v := make([]float64, 0, FeatureCount)
	v = append(v, r.DXY, r.CPI, r.FedFunds, r.GDP)
	for _, ind := range Indicators {
		for _, k := range Lags {
			v = append(v, r.Lag(k).Get(ind))
		}
	}
	return v
}

// Record returns the row keyed by column name.
func (r FeatureRow) Record() map[string]float64 {
	cols := FeatureColumns()
	vec := r.Vector()
	rec := make(map[string]float64, len(cols))
	for i, c := range cols {
		rec[c] = vec[i]
	}
	return rec
}

// FeatureRowFromRecord builds a row from named values. It fails when a column is
// missing or unknown, or when a value is not finite.
func FeatureRowFromRecord(date time.Time, rec map[string]float64) (FeatureRow, error) {
	cols := FeatureColumns()
	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c] = struct{}{}
	}
	var extra []string
	for k := range rec {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return FeatureRow{}, fmt.Errorf("%w: unexpected columns %s", ErrColumnMismatch, strings.Join(extra, ", "))
	}
	vec := make([]float64, len(cols))
	var missing []string
	for i, c := range cols {
		v, ok := rec[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		vec[i] = v
	}
	if len(missing) > 0 {
		return FeatureRow{}, fmt.Errorf("%w: missing columns %s", ErrColumnMismatch, strings.Join(missing, ", "))
	}
	return FeatureRowFromVector(date, vec)
}

// FeatureRowFromVector is the inverse of Vector.
func FeatureRowFromVector(date time.Time, vec []float64) (FeatureRow, error) {
	if len(vec) != FeatureCount {
		return FeatureRow{}, fmt.Errorf("%w: expected %d values, got %d", ErrColumnMismatch, FeatureCount, len(vec))
	}
	cols := FeatureColumns()
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeatureRow{}, fmt.Errorf("column %s: non-finite value %v", cols[i], v)
		}
	}
	r := FeatureRow{Date: date, DXY: vec[0], CPI: vec[1], FedFunds: vec[2], GDP: vec[3]}
	i := 4
	lags := make([]IndicatorSet, len(Lags))
	for _, ind := range Indicators {
		for j := range Lags {
			lags[j].Set(ind, vec[i])
			i++
		}
	}
	for j, k := range Lags {
		r.setLag(k, lags[j])
	}
	return r, nil
}

// ValidateColumns checks that cols is exactly FeatureColumns, in order.
func ValidateColumns(cols []string) error {
	want := FeatureColumns()
	if len(cols) != len(want) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrColumnMismatch, len(want), len(cols))
	}
	for i := range want {
		if cols[i] != want[i] {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrColumnMismatch, i, cols[i], want[i])
		}
	}
	return nil
}

// FeatureTable is a dense feature matrix with an aligned target column.
type FeatureTable struct {
	Rows   []FeatureRow `json:"rows"`
	Target []float64    `json:"target"`
}

func (t *FeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Last returns the most recent row.
func (t *FeatureTable) Last() (FeatureRow, float64, bool) {
	if t.Len() == 0 {
		return FeatureRow{}, 0, false
	}
	n := len(t.Rows) - 1
	return t.Rows[n], t.Target[n], true
}

// Slice returns rows [i, j) sharing the underlying arrays.
func (t *FeatureTable) Slice(i, j int) *FeatureTable {
	return &FeatureTable{Rows: t.Rows[i:j], Target: t.Target[i:j]}
}

// Tail returns the last n rows (all rows when n exceeds the length).
func (t *FeatureTable) Tail(n int) *FeatureTable {
	l := t.Len()
	if n <= 0 || l == 0 {
		return &FeatureTable{}
	}
	if n > l {
		n = l
	}
	return t.Slice(l-n, l)
}

// Matrix returns the rows as feature vectors.
func (t *FeatureTable) Matrix() [][]float64 {
	out := make([][]float64, t.Len())
	for i, r := range t.Rows {
		out[i] = r.Vector()
	}
	return out
}
