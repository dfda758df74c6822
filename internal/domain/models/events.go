package models

import "time"

const (
	ModelForest   = "forest"
	ModelForecast = "forecast"
	ModelBlend    = "blend"
)

// PredictionEvent is published for every scored scenario of a dashboard run.
type PredictionEvent struct {
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	Scenario  Scenario  `json:"scenario"`
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Variation float64   `json:"variation"`
	CreatedAt time.Time `json:"created_at"`
}

// EventsFrom expands a prediction into one event per scenario.
func EventsFrom(runID, model string, p ScenarioPrediction, variation float64, at time.Time) []PredictionEvent {
	out := make([]PredictionEvent, 0, len(Scenarios))
	for _, s := range Scenarios {
		out = append(out, PredictionEvent{
			RunID:     runID,
			Model:     model,
			Scenario:  s,
			Date:      p.Date,
			Value:     p.Value(s),
			Variation: variation,
			CreatedAt: at,
		})
	}
	return out
}
