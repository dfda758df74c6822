package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	domsvc "FxCast/internal/domain/service"
	"FxCast/internal/service/cache"
	xhttp "FxCast/pkg/http"
	applogger "FxCast/pkg/logger"
	xutil "FxCast/pkg/util"
)

const observationsPath = "/fred/series/observations"

// Client reads series observations from the FRED API.
type Client struct {
	baseURL  string
	apiKey   string
	http     *xhttp.Client
	cache    cache.BytesCache
	cacheTTL time.Duration
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

// Option configures Client.
type Option func(*Client)

// New creates a FRED client. The API key is sent as-is on every request.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(15*time.Second), xhttp.WithUserAgent("fxcast/1.0")),
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache stores raw responses for ttl. A zero ttl disables caching.
func WithCache(bc cache.BytesCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = bc
		c.cacheTTL = ttl
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Fetch implements the lenient contract: it never returns an error. On failure the
// result is empty and Diagnostic explains what went wrong.
func (c *Client) Fetch(ctx context.Context, q models.SeriesQuery) models.SeriesResult {
	res, err := c.FetchObservations(ctx, q)
	if err != nil {
		c.log.Warn("fred fetch failed",
			applogger.String("series_id", q.SeriesID),
			applogger.Error(err),
		)
		return models.SeriesResult{
			SeriesID:     q.SeriesID,
			Observations: []models.Observation{},
			Diagnostic:   fmt.Sprintf("could not load series %s: %v", q.SeriesID, err),
		}
	}
	return res
}

// FetchObservations performs one GET and returns parsed observations or the
// transport, status or decoding error.
func (c *Client) FetchObservations(ctx context.Context, q models.SeriesQuery) (models.SeriesResult, error) {
	start := time.Now()
	if q.SeriesID == "" {
		return models.SeriesResult{}, errors.New("series id is required")
	}
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}

	body, cached, err := c.load(ctx, q)
	if err != nil {
		c.record(q.SeriesID, "error")
		return models.SeriesResult{}, err
	}

	var resp observationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.record(q.SeriesID, "error")
		return models.SeriesResult{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.ErrorMessage != "" {
		c.record(q.SeriesID, "error")
		return models.SeriesResult{}, fmt.Errorf("fred error %d: %s", resp.ErrorCode, resp.ErrorMessage)
	}

	obs, report := parseObservations(resp.Observations)
	if !cached && c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.SetBytes(cacheKey(q), body, c.cacheTTL); err != nil {
			c.log.Warn("fred cache write failed", applogger.String("series_id", q.SeriesID), applogger.Error(err))
		}
	}

	result := "ok"
	if len(obs) == 0 {
		result = "empty"
	}
	c.record(q.SeriesID, result)
	if c.metrics != nil {
		c.metrics.RecordSkipped(q.SeriesID, report.Skipped)
		c.metrics.RecordLatency("fred_fetch", time.Since(start).Seconds())
	}
	c.log.Debug("fred fetch ok",
		applogger.String("series_id", q.SeriesID),
		applogger.Int("parsed", report.Parsed),
		applogger.Int("skipped", report.Skipped),
		applogger.Bool("cached", cached),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	return models.SeriesResult{SeriesID: q.SeriesID, Observations: obs, Report: report}, nil
}

func (c *Client) load(ctx context.Context, q models.SeriesQuery) ([]byte, bool, error) {
	key := cacheKey(q)
	if c.cache != nil && c.cacheTTL > 0 {
		if b, ok, err := c.cache.GetBytes(key); err == nil && ok {
			return b, true, nil
		} else if err != nil {
			c.log.Warn("fred cache read failed", applogger.String("series_id", q.SeriesID), applogger.Error(err))
		}
	}

	params := map[string][]string{
		"series_id":  {q.SeriesID},
		"api_key":    {c.apiKey},
		"file_type":  {"json"},
		"sort_order": {q.SortOrder},
	}
	if !q.Start.IsZero() {
		params["observation_start"] = []string{xutil.FormatDate(q.Start)}
	} else if q.Limit > 0 {
		params["limit"] = []string{strconv.Itoa(q.Limit)}
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + observationsPath,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: params,
	}, &body)
	if err != nil {
		return nil, false, describe(err)
	}
	return body, false, nil
}

// describe unwraps FRED's JSON error envelope from non-2xx responses.
func describe(err error) error {
	var se *xhttp.StatusError
	if !errors.As(err, &se) {
		return err
	}
	var env observationsResponse
	if json.Unmarshal(se.Body, &env) == nil && env.ErrorMessage != "" {
		return fmt.Errorf("fred error %d: %s", se.StatusCode, env.ErrorMessage)
	}
	return err
}

func (c *Client) record(seriesID, result string) {
	if c.metrics != nil {
		c.metrics.RecordFetch(seriesID, result)
	}
}

func cacheKey(q models.SeriesQuery) string {
	start := ""
	if !q.Start.IsZero() {
		start = xutil.FormatDate(q.Start)
	}
	return fmt.Sprintf("fred:%s:%d:%s:%s", q.SeriesID, q.Limit, q.SortOrder, start)
}

var _ domsvc.SeriesSource = (*Client)(nil)
