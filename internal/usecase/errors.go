package usecase

import "errors"

var (
	// ErrModelUnavailable means no regressor artifact was loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmptySeries means the target series fetch returned no observations.
	ErrEmptySeries = errors.New("series returned no observations")
)
