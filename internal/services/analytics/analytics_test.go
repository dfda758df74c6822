package analytics

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "FxCast/internal/domain/models"
    "FxCast/pkg/config"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func testConfig(url string) *config.Config {
    cfg := config.Default()
    cfg.Analytics.ServiceURL = url
    cfg.Analytics.Timeout = time.Second
    cfg.Analytics.Attempts = 3
    return cfg
}

func TestHTTPRegressorPredict(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/predict", r.URL.Path)
        assert.Equal(t, http.MethodPost, r.Method)
        var req predictReq
        assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
        assert.Equal(t, models.FeatureColumns(), req.Columns)
        preds := make([]float64, len(req.Rows))
        for i, row := range req.Rows {
            preds[i] = row[0] / 100
        }
        _ = json.NewEncoder(w).Encode(predictResp{Predictions: preds})
    }))
    defer srv.Close()

    reg := NewHTTPRegressor(testConfig(srv.URL))
    out, err := reg.Predict(context.Background(), []models.FeatureRow{{DXY: 100}, {DXY: 102}})
    require.NoError(t, err)
    assert.Equal(t, []float64{1, 1.02}, out)
    assert.Equal(t, RemoteRegressorName, reg.Name())
}

func TestHTTPRegressorLengthMismatch(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewEncoder(w).Encode(predictResp{Predictions: []float64{1}})
    }))
    defer srv.Close()

    _, err := NewHTTPRegressor(testConfig(srv.URL)).Predict(context.Background(), []models.FeatureRow{{}, {}})
    assert.Error(t, err)
}

func TestRetryOnServerError(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if atomic.AddInt32(&calls, 1) < 3 {
            http.Error(w, "busy", http.StatusServiceUnavailable)
            return
        }
        _, _ = w.Write([]byte(`{"forecast":[{"ds":"2026-01-02","yhat":1.1,"yhat_upper":1.2,"yhat_lower":1.0},{"ds":"2026-01-01","yhat":1.0,"yhat_upper":1.1,"yhat_lower":0.9}]}`))
    }))
    defer srv.Close()

    f := NewHTTPForecaster(testConfig(srv.URL))
    f.base.backoff = time.Millisecond
    points, err := f.Forecast(context.Background())
    require.NoError(t, err)
    assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
    require.Len(t, points, 2)
    assert.Equal(t, "2026-01-01", points[0].Date.Format("2006-01-02"))
    assert.Equal(t, 1.2, points[1].Upper)
}

func TestNoRetryOnClientError(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        http.Error(w, "bad", http.StatusBadRequest)
    }))
    defer srv.Close()

    f := NewHTTPForecaster(testConfig(srv.URL))
    f.base.backoff = time.Millisecond
    _, err := f.Forecast(context.Background())
    assert.Error(t, err)
    assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNotConfigured(t *testing.T) {
    _, err := NewHTTPForecaster(testConfig("")).Forecast(context.Background())
    assert.ErrorIs(t, err, ErrNotConfigured)
}
