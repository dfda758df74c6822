package analytics

import (
    "context"
    "fmt"

    "FxCast/internal/domain/models"
    domsvc "FxCast/internal/domain/service"
    "FxCast/pkg/config"
)

// RemoteRegressorName identifies predictions scored by the analytics service.
const RemoteRegressorName = "remote"

// HTTPRegressor scores feature rows through the analytics service.
type HTTPRegressor struct{ base *HTTPServiceBase }

func NewHTTPRegressor(cfg *config.Config) *HTTPRegressor {
    return &HTTPRegressor{base: NewHTTPServiceBase(cfg)}
}

type predictReq struct {
    Columns []string    `json:"columns"`
    Rows    [][]float64 `json:"rows"`
}

type predictResp struct {
    Predictions []float64 `json:"predictions"`
    Model       string    `json:"model"`
}

func (r *HTTPRegressor) Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error) {
    req := predictReq{Columns: models.FeatureColumns(), Rows: make([][]float64, len(rows))}
    for i, row := range rows {
        req.Rows[i] = row.Vector()
    }
    var resp predictResp
    if err := r.base.PostJSONWithRetry(ctx, "/predict", req, &resp); err != nil {
        return nil, fmt.Errorf("remote predict: %w", err)
    }
    if len(resp.Predictions) != len(rows) {
        return nil, fmt.Errorf("remote predict: %d predictions for %d rows", len(resp.Predictions), len(rows))
    }
    return resp.Predictions, nil
}

func (r *HTTPRegressor) Name() string { return RemoteRegressorName }

var _ domsvc.Regressor = (*HTTPRegressor)(nil)
