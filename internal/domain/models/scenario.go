package models

import (
	"fmt"
	"time"
)

// Scenario names a deterministic perturbation of the current drivers.
type Scenario string

const (
	Neutral     Scenario = "neutral"
	Optimistic  Scenario = "optimistic"  // stronger dollar, lower inflation, lower rates, higher GDP
	Pessimistic Scenario = "pessimistic" // the mirror of Optimistic
)

// Scenarios is the fixed output order.
var Scenarios = []Scenario{Neutral, Optimistic, Pessimistic}

// DefaultVariation is the relative shift applied to each driver.
const DefaultVariation = 0.02

func ParseScenario(s string) (Scenario, error) {
	switch Scenario(s) {
	case Neutral, Optimistic, Pessimistic:
		return Scenario(s), nil
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

// ScenarioPrediction holds the three scored variants of one feature row.
type ScenarioPrediction struct {
	Date        time.Time `json:"date"`
	Neutral     float64   `json:"neutral"`
	Optimistic  float64   `json:"optimistic"`
	Pessimistic float64   `json:"pessimistic"`
}

// Value returns the prediction for s.
func (p ScenarioPrediction) Value(s Scenario) float64 {
	switch s {
	case Optimistic:
		return p.Optimistic
	case Pessimistic:
		return p.Pessimistic
	}
	return p.Neutral
}

// Values returns the predictions in Scenarios order.
func (p ScenarioPrediction) Values() []float64 {
	return []float64{p.Neutral, p.Optimistic, p.Pessimistic}
}

// ScenarioRows are the three perturbed inputs behind a ScenarioPrediction.
type ScenarioRows struct {
	Neutral     FeatureRow `json:"neutral"`
	Optimistic  FeatureRow `json:"optimistic"`
	Pessimistic FeatureRow `json:"pessimistic"`
}
