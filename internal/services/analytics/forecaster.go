package analytics

import (
    "context"
    "fmt"
    "sort"

    "FxCast/internal/domain/models"
    domsvc "FxCast/internal/domain/service"
    "FxCast/pkg/config"
    xutil "FxCast/pkg/util"
)

// HTTPForecaster fetches the decomposition band from the analytics service.
type HTTPForecaster struct {
    base    *HTTPServiceBase
    horizon int
}

func NewHTTPForecaster(cfg *config.Config) *HTTPForecaster {
    return &HTTPForecaster{base: NewHTTPServiceBase(cfg), horizon: 3 * 365}
}

type forecastReq struct {
    Series  string `json:"series"`
    Horizon int    `json:"horizon_days"`
}

type forecastPoint struct {
    DS    string  `json:"ds"`
    YHat  float64 `json:"yhat"`
    Upper float64 `json:"yhat_upper"`
    Lower float64 `json:"yhat_lower"`
}

type forecastResp struct {
    Points []forecastPoint `json:"forecast"`
}

func (f *HTTPForecaster) Forecast(ctx context.Context) ([]models.ForecastPoint, error) {
    var resp forecastResp
    err := f.base.PostJSONWithRetry(ctx, "/forecast", forecastReq{Series: string(models.Target), Horizon: f.horizon}, &resp)
    if err != nil {
        return nil, fmt.Errorf("remote forecast: %w", err)
    }
    out := make([]models.ForecastPoint, 0, len(resp.Points))
    for i, p := range resp.Points {
        d, ok := xutil.ParseDate(p.DS)
        if !ok {
            return nil, fmt.Errorf("remote forecast: point %d has invalid date %q", i, p.DS)
        }
        out = append(out, models.ForecastPoint{Date: d, YHat: p.YHat, Upper: p.Upper, Lower: p.Lower})
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
    return out, nil
}

var _ domsvc.Forecaster = (*HTTPForecaster)(nil)
