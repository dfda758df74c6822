package usecase

import (
	"context"
	"sync"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	domsvc "FxCast/internal/domain/service"
	applogger "FxCast/pkg/logger"
)

// SeriesCollector fetches every indicator series from the configured source.
type SeriesCollector struct {
	source    domsvc.SeriesSource
	seriesIDs map[models.Indicator]string
	limit     int
	sortOrder string
	log       *applogger.Logger
}

func NewSeriesCollector(source domsvc.SeriesSource, seriesIDs map[models.Indicator]string, limit int, sortOrder string, l *applogger.Logger) *SeriesCollector {
	if l == nil {
		l = applogger.Nop()
	}
	ids := models.DefaultSeriesIDs()
	for ind, id := range seriesIDs {
		if id != "" {
			ids[ind] = id
		}
	}
	return &SeriesCollector{source: source, seriesIDs: ids, limit: limit, sortOrder: sortOrder, log: l}
}

// SeriesID returns the remote identifier of ind.
func (c *SeriesCollector) SeriesID(ind models.Indicator) string { return c.seriesIDs[ind] }

// Query builds the fetch parameters for ind. A non-zero start switches to an
// observation_start query and drops the limit.
func (c *SeriesCollector) Query(ind models.Indicator, start time.Time) models.SeriesQuery {
	q := models.SeriesQuery{SeriesID: c.seriesIDs[ind], SortOrder: c.sortOrder, Start: start}
	if start.IsZero() {
		q.Limit = c.limit
	}
	return q
}

// Fetch fetches one indicator. It never fails; see SeriesResult.Diagnostic.
func (c *SeriesCollector) Fetch(ctx context.Context, ind models.Indicator, start time.Time) models.SeriesResult {
	return c.source.Fetch(ctx, c.Query(ind, start))
}

// FetchRaw fetches an arbitrary series id.
func (c *SeriesCollector) FetchRaw(ctx context.Context, q models.SeriesQuery) models.SeriesResult {
	if q.SortOrder == "" {
		q.SortOrder = c.sortOrder
	}
	return c.source.Fetch(ctx, q)
}

// FetchAll fetches every indicator concurrently.
func (c *SeriesCollector) FetchAll(ctx context.Context, start time.Time) map[models.Indicator]models.SeriesResult {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[models.Indicator]models.SeriesResult, len(models.Indicators))
	)
	for _, ind := range models.Indicators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.Fetch(ctx, ind, start)
			mu.Lock()
			out[ind] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	for _, ind := range models.Indicators {
		if r := out[ind]; r.Empty() {
			c.log.Warn("indicator series empty",
				applogger.String("indicator", string(ind)),
				applogger.String("series_id", r.SeriesID),
				applogger.String("diagnostic", r.Diagnostic))
		}
	}
	return out
}

// Archive stores every non-empty result. Failures are logged and counted, not returned.
func (c *SeriesCollector) Archive(ctx context.Context, store domrepo.ObservationStore, results map[models.Indicator]models.SeriesResult) int {
	if store == nil {
		return 0
	}
	saved := 0
	for _, ind := range models.Indicators {
		r := results[ind]
		if r.Empty() {
			continue
		}
		if err := store.SaveObservations(ctx, ind, r.SeriesID, r.Observations); err != nil {
			c.log.Warn("archive observations failed", applogger.String("indicator", string(ind)), applogger.Error(err))
			continue
		}
		saved += len(r.Observations)
	}
	return saved
}
