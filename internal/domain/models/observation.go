package models

import (
	"sort"
	"time"
)

// Observation is one dated value of a remote series. Date is UTC midnight.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ParseFailure describes one raw record the typed parse step rejected.
type ParseFailure struct {
	Index  int    `json:"index"`
	Date   string `json:"date"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ParseReport aggregates the outcome of parsing a raw response.
type ParseReport struct {
	Total    int            `json:"total"`
	Parsed   int            `json:"parsed"`
	Skipped  int            `json:"skipped"`
	Failures []ParseFailure `json:"failures,omitempty"`
}

// SeriesQuery selects observations of one series.
type SeriesQuery struct {
	SeriesID  string
	Limit     int
	SortOrder string
	// Start, when set, is sent as observation_start instead of relying on Limit.
	Start time.Time
}

// SeriesResult is the lenient fetch outcome: possibly empty observations plus a
// user-visible diagnostic when something went wrong.
type SeriesResult struct {
	SeriesID     string        `json:"series_id"`
	Observations []Observation `json:"observations"`
	Report       ParseReport   `json:"report"`
	Diagnostic   string        `json:"diagnostic,omitempty"`
}

func (r SeriesResult) Empty() bool { return len(r.Observations) == 0 }

// Latest returns the most recent observation.
func (r SeriesResult) Latest() (Observation, bool) {
	if len(r.Observations) == 0 {
		return Observation{}, false
	}
	return r.Observations[len(r.Observations)-1], true
}

// ValueAt returns the observation recorded exactly on day.
func (r SeriesResult) ValueAt(day time.Time) (float64, bool) {
	obs := r.Observations
	i := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(day) })
	if i < len(obs) && obs[i].Date.Equal(day) {
		return obs[i].Value, true
	}
	return 0, false
}

// Since returns the observations on or after day.
func (r SeriesResult) Since(day time.Time) []Observation {
	obs := r.Observations
	i := sort.Search(len(obs), func(i int) bool { return !obs[i].Date.Before(day) })
	return obs[i:]
}
