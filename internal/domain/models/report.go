package models

import "time"

// Action is the recommendation derived from the scenario spread around the actual rate.
type Action string

const (
	ActionWait    Action = "wait"
	ActionSellNow Action = "sell_now"
	ActionHold    Action = "hold"
)

type Recommendation struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
}

// ComparisonRow is one line of the scenario comparison table. DiffPct is nil when no
// actual value is known for the date and zero on the actual row itself.
type ComparisonRow struct {
	Label   string   `json:"label"`
	Value   float64  `json:"value"`
	DiffPct *float64 `json:"diff_pct,omitempty"`
}

type Comparison struct {
	Date           time.Time       `json:"date"`
	Actual         *float64        `json:"actual,omitempty"`
	Rows           []ComparisonRow `json:"rows"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Dispersion summarises how far the optimistic and pessimistic values sit from base.
type Dispersion struct {
	Base           float64   `json:"base"`
	Optimistic     float64   `json:"optimistic"`
	Pessimistic    float64   `json:"pessimistic"`
	Range          float64   `json:"range"`
	Deviation      float64   `json:"deviation"`
	DistanceUp     float64   `json:"distance_up"`
	DistanceDown   float64   `json:"distance_down"`
	Risk           RiskLevel `json:"risk"`
	HighVolatility bool      `json:"high_volatility"`
	Advice         string    `json:"advice"`
}

// Diagnostics measures the forecast base against actual observations.
type Diagnostics struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Samples  int       `json:"samples"`
	MAE      float64   `json:"mae"`
	RMSE     float64   `json:"rmse"`
	HitRate  float64   `json:"hit_rate"`
	ErrorStd float64   `json:"error_std"`
}

// Blend is the weighted combination of regressor and decomposition predictions.
type Blend struct {
	Date      time.Time          `json:"date"`
	Weight    float64            `json:"weight"`
	Regressor ScenarioPrediction `json:"regressor"`
	Forecast  ScenarioPrediction `json:"forecast"`
	Blended   ScenarioPrediction `json:"blended"`
}
