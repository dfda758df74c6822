package models

// Requests for the dashboard HTTP endpoints.

type SeriesRequest struct {
	SeriesID string `query:"series_id" json:"series_id" default:"DEXUSEU" validate:"required,max=64"`
	Limit    int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=100000"`
	Start    string `query:"start" json:"start" validate:"day"`
}

// ScenariosRequest selects the last N evaluation rows. A nil Variation uses the
// configured one.
type ScenariosRequest struct {
	Variation *float64 `query:"variation" json:"variation" validate:"omitempty,gte=0,lt=1"`
	N         int      `query:"n" json:"n" default:"1" validate:"gte=1,lte=5000"`
}

// SimulateRequest scores one feature row. A nil Variation uses the configured one.
type SimulateRequest struct {
	Date      string             `json:"date" validate:"day"`
	Variation *float64           `json:"variation" validate:"omitempty,gte=0,lt=1"`
	Features  map[string]float64 `json:"features" validate:"required"`
}

type ForecastRequest struct {
	Date string `query:"date" json:"date" validate:"day"`
}

type DiagnosticsRequest struct {
	Days int `query:"days" json:"days" default:"30" validate:"gte=1,lte=3660"`
}

// PredictionsRequest reads back archived prediction events. An empty Model lists all.
type PredictionsRequest struct {
	Model string `query:"model" json:"model" validate:"omitempty,oneof=forest remote forecast blend"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

// TrainRequest queues a training run on observations from Start onwards.
type TrainRequest struct {
	Start string `json:"start" validate:"required,day"`
}

// TrainStatusRequest reads back one queued training run.
type TrainStatusRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
