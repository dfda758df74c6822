package models

import "time"

// Section names a part of the dashboard snapshot.
type Section string

const (
	SectionRate        Section = "rate"
	SectionScenarios   Section = "scenarios"
	SectionForecast    Section = "forecast"
	SectionComparison  Section = "comparison"
	SectionDispersion  Section = "dispersion"
	SectionBlend       Section = "blend"
	SectionDiagnostics Section = "diagnostics"
	SectionEvents      Section = "events"
)

// Severity of a Notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Notice explains why a section was skipped or degraded.
type Notice struct {
	Section  Section  `json:"section"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// RateView is the latest observation of the target series.
type RateView struct {
	SeriesID   string       `json:"series_id"`
	Latest     *Observation `json:"latest,omitempty"`
	Report     ParseReport  `json:"report"`
	Diagnostic string       `json:"diagnostic,omitempty"`
}

// ForecastRange is the span of the loaded forecast band.
type ForecastRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ForecastView is the forecast band around one requested date.
type ForecastView struct {
	Requested  time.Time     `json:"requested"`
	Point      ForecastPoint `json:"point"`
	Range      ForecastRange `json:"range"`
	Comparison Comparison    `json:"comparison"`
	Dispersion Dispersion    `json:"dispersion"`
	Blend      *Blend        `json:"blend,omitempty"`
	Notices    []Notice      `json:"notices,omitempty"`
}

// Snapshot is a whole dashboard run. Nil sections were skipped; Notices say why.
type Snapshot struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Variation   float64              `json:"variation"`
	Rate        *RateView            `json:"rate,omitempty"`
	Latest      *ScenarioPrediction  `json:"latest_scenarios,omitempty"`
	History     []ScenarioPrediction `json:"scenario_history,omitempty"`
	Forecast    *ForecastView        `json:"forecast,omitempty"`
	Diagnostics *Diagnostics         `json:"diagnostics,omitempty"`
	Published   int                  `json:"published_events"`
	Notices     []Notice             `json:"notices,omitempty"`
}
