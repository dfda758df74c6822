package features

import (
    "bytes"
    "math"
    "testing"
    "time"

    "FxCast/internal/domain/models"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func daily(n int, f func(i int) float64) []models.Observation {
    out := make([]models.Observation, n)
    for i := range out {
        out[i] = models.Observation{Date: base.AddDate(0, 0, i), Value: f(i)}
    }
    return out
}

func denseSeries(n int) map[models.Indicator][]models.Observation {
    return map[models.Indicator][]models.Observation{
        models.EURUSD:   daily(n, func(i int) float64 { return 1.08 + float64(i)*0.001 }),
        models.DXY:      daily(n, func(i int) float64 { return 100 + float64(i) }),
        models.CPI:      daily(n, func(i int) float64 { return 300 + float64(i) }),
        models.FedFunds: daily(n, func(i int) float64 { return 5 }),
        models.GDP:      daily(n, func(i int) float64 { return 20000 + float64(i)*10 }),
    }
}

func TestBuildDenseDropsExactlyThreeRows(t *testing.T) {
    tbl := NewBuilder().Build(denseSeries(10))

    require.Equal(t, 7, tbl.Len())
    require.Len(t, tbl.Target, 7)
    assert.Equal(t, base.AddDate(0, 0, 3), tbl.Rows[0].Date)
    for i := 1; i < tbl.Len(); i++ {
        assert.True(t, tbl.Rows[i].Date.After(tbl.Rows[i-1].Date), "order preserved")
    }

    first := tbl.Rows[0]
    assert.Equal(t, 103.0, first.DXY)
    assert.Equal(t, 102.0, first.Lag1.DXY)
    assert.Equal(t, 101.0, first.Lag2.DXY)
    assert.Equal(t, 100.0, first.Lag3.DXY)
    assert.Equal(t, 1.08, first.Lag3.EURUSD)
    assert.InDelta(t, 1.083, tbl.Target[0], 1e-12)
}

func TestBuildEmptyIndicatorYieldsEmptyTable(t *testing.T) {
    s := denseSeries(10)
    s[models.GDP] = nil

    tbl := NewBuilder().Build(s)
    assert.Equal(t, 0, tbl.Len())
    _, _, ok := tbl.Last()
    assert.False(t, ok)
    assert.Equal(t, 0, tbl.Tail(5).Len())
}

func TestBuildAllEmpty(t *testing.T) {
    tbl := NewBuilder().Build(map[models.Indicator][]models.Observation{})
    assert.Equal(t, 0, tbl.Len())
}

func TestInterpolateInternalGapsOnly(t *testing.T) {
    nan := math.NaN()
    in := []float64{nan, 1, nan, nan, 4, nan}

    out := Interpolate(in, false)
    assert.True(t, math.IsNaN(out[0]), "leading gap is not extrapolated")
    assert.Equal(t, []float64{1, 2, 3, 4}, out[1:5])
    assert.True(t, math.IsNaN(out[5]), "trailing gap is not extrapolated")
    assert.True(t, math.IsNaN(in[2]), "input untouched")

    carried := Interpolate(in, true)
    assert.Equal(t, 4.0, carried[5])
    assert.True(t, math.IsNaN(carried[0]))
}

func TestMergeAlignsOnDailyGrid(t *testing.T) {
    s := denseSeries(10)
    // monthly-style series: only first and last day known
    s[models.CPI] = []models.Observation{
        {Date: base, Value: 300},
        {Date: base.AddDate(0, 0, 9), Value: 309},
    }
    // weekend gap in the target
    s[models.EURUSD] = append(append([]models.Observation{}, s[models.EURUSD][:4]...), s[models.EURUSD][6:]...)

    g := Merge(s)
    require.Equal(t, 10, g.Len())
    assert.True(t, math.IsNaN(g.Values[models.CPI][5]))
    assert.True(t, math.IsNaN(g.Values[models.EURUSD][4]))

    tbl := NewBuilder().Build(s)
    require.Equal(t, 7, tbl.Len())
    assert.InDelta(t, 305.0, tbl.Rows[2].CPI, 1e-9)
    assert.InDelta(t, 1.084, tbl.Target[1], 1e-12)
}

func TestBuildDropsTrailingGapRows(t *testing.T) {
    s := denseSeries(10)
    s[models.GDP] = s[models.GDP][:8]

    assert.Equal(t, 5, NewBuilder().Build(s).Len())
    assert.Equal(t, 7, NewBuilder(WithCarryForward(true)).Build(s).Len())
}

func TestSplitIsChronological(t *testing.T) {
    tbl := NewBuilder().Build(denseSeries(13))
    require.Equal(t, 10, tbl.Len())

    train, test := Split(tbl, 0.8)
    assert.Equal(t, 8, train.Len())
    assert.Equal(t, 2, test.Len())
    assert.True(t, train.Rows[7].Date.Before(test.Rows[0].Date))
}

func TestCSVRoundTrip(t *testing.T) {
    tbl := NewBuilder().Build(denseSeries(8))

    var buf bytes.Buffer
    require.NoError(t, WriteCSV(&buf, tbl))
    assert.Contains(t, buf.String(), "date,DXY,CPI,FEDFUNDS,GDP,EURUSD_lag1")

    back, err := ReadCSV(&buf)
    require.NoError(t, err)
    assert.Equal(t, tbl.Rows, back.Rows)
    assert.Equal(t, tbl.Target, back.Target)
}

func TestReadCSVRejectsBadHeaders(t *testing.T) {
    _, err := ReadCSV(bytes.NewBufferString("date,EURUSD,DXY\n2024-01-01,1.08,100\n"))
    require.Error(t, err)
    assert.ErrorIs(t, err, models.ErrColumnMismatch)

    _, err = ReadCSV(bytes.NewBufferString("date,EURUSD,EURUSD\n"))
    assert.ErrorIs(t, err, models.ErrColumnMismatch)

    _, err = ReadCSV(bytes.NewBufferString(""))
    assert.Error(t, err)
}
