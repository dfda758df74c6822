package repository

import "errors"

// ErrNotAvailable marks an optional artifact (table, model, workbook) that is absent.
// Callers skip the dependent section instead of failing.
var ErrNotAvailable = errors.New("artifact not available")
