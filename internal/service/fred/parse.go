package fred

import (
	"sort"

	"FxCast/internal/domain/models"
	xutil "FxCast/pkg/util"
)

// maxReportedFailures caps ParseReport.Failures; Skipped still counts every rejection.
const maxReportedFailures = 50

type rawObservation struct {
	RealtimeStart string `json:"realtime_start"`
	RealtimeEnd   string `json:"realtime_end"`
	Date          string `json:"date"`
	Value         string `json:"value"`
}

type observationsResponse struct {
	ObservationStart string           `json:"observation_start"`
	ObservationEnd   string           `json:"observation_end"`
	SortOrder        string           `json:"sort_order"`
	Count            int              `json:"count"`
	Limit            int              `json:"limit"`
	Observations     []rawObservation `json:"observations"`
	ErrorCode        int              `json:"error_code"`
	ErrorMessage     string           `json:"error_message"`
}

// parseObservations converts raw records into typed observations sorted ascending by
// date. A record whose date or value does not parse becomes a ParseFailure; FRED's
// "." missing-value marker is the common case. Duplicate dates keep the later record.
func parseObservations(raw []rawObservation) ([]models.Observation, models.ParseReport) {
	report := models.ParseReport{Total: len(raw)}
	byDate := make(map[int64]int, len(raw))
	out := make([]models.Observation, 0, len(raw))

	for i, r := range raw {
		day, ok := xutil.ParseDate(r.Date)
		if !ok {
			report.Skipped++
			addFailure(&report, models.ParseFailure{Index: i, Date: r.Date, Value: r.Value, Reason: "invalid date"})
			continue
		}
		v, err := xutil.ParseFloat(r.Value)
		if err != nil {
			report.Skipped++
			addFailure(&report, models.ParseFailure{Index: i, Date: r.Date, Value: r.Value, Reason: "non-numeric value"})
			continue
		}
		key := day.Unix()
		if j, dup := byDate[key]; dup {
			out[j].Value = v
			continue
		}
		byDate[key] = len(out)
		out = append(out, models.Observation{Date: day, Value: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	report.Parsed = len(out)
	return out, report
}

func addFailure(r *models.ParseReport, f models.ParseFailure) {
	if len(r.Failures) < maxReportedFailures {
		r.Failures = append(r.Failures, f)
	}
}
