package models

import "fmt"

// Indicator names one tracked macro series.
type Indicator string

const (
	EURUSD   Indicator = "EURUSD"   // USD per EUR, the target
	DXY      Indicator = "DXY"      // broad trade-weighted dollar index
	CPI      Indicator = "CPI"      // consumer price index
	FedFunds Indicator = "FEDFUNDS" // effective federal funds rate
	GDP      Indicator = "GDP"      // nominal GDP
)

// Target is the indicator the regressor predicts.
const Target = EURUSD

// Indicators lists every indicator in merge and lag-column order.
var Indicators = []Indicator{EURUSD, DXY, CPI, FedFunds, GDP}

// Drivers are the indicators that appear as current-value features.
var Drivers = []Indicator{DXY, CPI, FedFunds, GDP}

// DefaultSeriesIDs maps each indicator to its FRED series id.
func DefaultSeriesIDs() map[Indicator]string {
	return map[Indicator]string{
		EURUSD:   "DEXUSEU",
		DXY:      "DTWEXBGS",
		CPI:      "CPIAUCSL",
		FedFunds: "FEDFUNDS",
		GDP:      "GDP",
	}
}

func (i Indicator) Valid() bool {
	switch i {
	case EURUSD, DXY, CPI, FedFunds, GDP:
		return true
	}
	return false
}

// ParseIndicator converts a config or column name to an Indicator.
func ParseIndicator(s string) (Indicator, error) {
	i := Indicator(s)
	if !i.Valid() {
		return "", fmt.Errorf("unknown indicator %q", s)
	}
	return i, nil
}
