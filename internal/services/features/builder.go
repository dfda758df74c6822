package features

import (
    "math"
    "sort"
    "time"

    "FxCast/internal/domain/models"
    xutil "FxCast/pkg/util"
)

// Grid is every indicator aligned on a contiguous daily index. Missing values are NaN.
type Grid struct {
    Dates  []time.Time
    Values map[models.Indicator][]float64
}

func (g Grid) Len() int { return len(g.Dates) }

// Option configures Builder.
type Option func(*Builder)

// WithCarryForward fills trailing gaps with the last known value. Off by default:
// a trailing gap is left unresolved and its rows are dropped.
func WithCarryForward(enabled bool) Option {
    return func(b *Builder) { b.carryForward = enabled }
}

// Builder turns raw indicator series into a dense lagged feature table.
type Builder struct {
    carryForward bool
}

func NewBuilder(opts ...Option) *Builder {
    b := &Builder{}
    for _, opt := range opts {
        opt(b)
    }
    return b
}

// Build runs Merge, Interpolate and Lag. If any indicator has no observations the
// result is an empty table; callers check Len before using it.
func (b *Builder) Build(series map[models.Indicator][]models.Observation) *models.FeatureTable {
    for _, ind := range models.Indicators {
        if len(series[ind]) == 0 {
            return &models.FeatureTable{}
        }
    }
    grid := Merge(series)
    for _, ind := range models.Indicators {
        grid.Values[ind] = Interpolate(grid.Values[ind], b.carryForward)
    }
    return Lag(grid)
}

// Merge outer-joins the series on date and reindexes to one row per calendar day,
// from the earliest to the latest observation of any indicator.
func Merge(series map[models.Indicator][]models.Observation) Grid {
    var first, last time.Time
    for _, ind := range models.Indicators {
        for _, o := range series[ind] {
            d := xutil.Day(o.Date)
            if first.IsZero() || d.Before(first) {
                first = d
            }
            if last.IsZero() || d.After(last) {
                last = d
            }
        }
    }
    grid := Grid{Values: make(map[models.Indicator][]float64, len(models.Indicators))}
    if first.IsZero() {
        for _, ind := range models.Indicators {
            grid.Values[ind] = []float64{}
        }
        return grid
    }

    n := xutil.DaysBetween(first, last) + 1
    grid.Dates = make([]time.Time, n)
    for i := range grid.Dates {
        grid.Dates[i] = first.AddDate(0, 0, i)
    }
    for _, ind := range models.Indicators {
        col := make([]float64, n)
        for i := range col {
            col[i] = math.NaN()
        }
        for _, o := range series[ind] {
            col[xutil.DaysBetween(first, o.Date)] = o.Value
        }
        grid.Values[ind] = col
    }
    return grid
}

// Interpolate returns a copy of values with every NaN between two known values
// replaced by linear interpolation over the daily positions. Leading NaNs stay NaN.
// Trailing NaNs stay NaN unless carryForward is set.
func Interpolate(values []float64, carryForward bool) []float64 {
    out := make([]float64, len(values))
    copy(out, values)

    prev := -1
    for i, v := range out {
        if math.IsNaN(v) {
            continue
        }
        if prev >= 0 && i-prev > 1 {
            lo, hi := out[prev], v
            span := float64(i - prev)
            for j := prev + 1; j < i; j++ {
                out[j] = lo + (hi-lo)*float64(j-prev)/span
            }
        }
        prev = i
    }
    if carryForward && prev >= 0 {
        for j := prev + 1; j < len(out); j++ {
            out[j] = out[prev]
        }
    }
    return out
}

// Lag appends 1, 2 and 3 day lags of every indicator and drops any row that still
// holds an unresolved value. A fully dense grid of n rows yields n-3 rows.
func Lag(g Grid) *models.FeatureTable {
    maxLag := models.Lags[len(models.Lags)-1]
    t := &models.FeatureTable{}
    for i := maxLag; i < g.Len(); i++ {
        at := func(ind models.Indicator, k int) float64 { return g.Values[ind][i-k] }

        row := models.FeatureRow{
            Date:     g.Dates[i],
            DXY:      at(models.DXY, 0),
            CPI:      at(models.CPI, 0),
            FedFunds: at(models.FedFunds, 0),
            GDP:      at(models.GDP, 0),
        }
        lags := make([]models.IndicatorSet, len(models.Lags))
        for j, k := range models.Lags {
            for _, ind := range models.Indicators {
                lags[j].Set(ind, at(ind, k))
            }
        }
        row.Lag1, row.Lag2, row.Lag3 = lags[0], lags[1], lags[2]

        target := at(models.Target, 0)
        if !finite(target) || !finiteAll(row.Vector()) {
            continue
        }
        t.Rows = append(t.Rows, row)
        t.Target = append(t.Target, target)
    }
    return t
}

// Split cuts the table chronologically: the first floor(n*frac) rows train, the rest test.
func Split(t *models.FeatureTable, frac float64) (train, test *models.FeatureTable) {
    n := t.Len()
    cut := int(float64(n) * frac)
    if cut < 0 {
        cut = 0
    }
    if cut > n {
        cut = n
    }
    return t.Slice(0, cut), t.Slice(cut, n)
}

// FromSeriesResults keys fetch results by indicator.
func FromSeriesResults(results map[models.Indicator]models.SeriesResult) map[models.Indicator][]models.Observation {
    out := make(map[models.Indicator][]models.Observation, len(results))
    for ind, r := range results {
        obs := append([]models.Observation(nil), r.Observations...)
        sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
        out[ind] = obs
    }
    return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteAll(vs []float64) bool {
    for _, v := range vs {
        if !finite(v) {
            return false
        }
    }
    return true
}
