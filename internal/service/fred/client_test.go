package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/internal/service/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{
  "observation_start": "2024-03-01",
  "count": 3,
  "observations": [
    {"realtime_start": "2024-03-10", "realtime_end": "2024-03-10", "date": "2024-03-01", "value": "1.0812"},
    {"realtime_start": "2024-03-10", "realtime_end": "2024-03-10", "date": "2024-03-04", "value": "."},
    {"realtime_start": "2024-03-10", "realtime_end": "2024-03-10", "date": "2024-03-05", "value": "1.0857"}
  ]
}`

func TestFetchSendsQueryAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, observationsPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "DEXUSEU", q.Get("series_id"))
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("file_type"))
		assert.Equal(t, "asc", q.Get("sort_order"))
		assert.Equal(t, "10000", q.Get("limit"))
		assert.Empty(t, q.Get("observation_start"))
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	res := c.Fetch(context.Background(), models.SeriesQuery{SeriesID: "DEXUSEU", Limit: 10000})

	assert.Empty(t, res.Diagnostic)
	require.Len(t, res.Observations, 2)
	assert.Equal(t, 1, res.Report.Skipped)
	latest, ok := res.Latest()
	require.True(t, ok)
	assert.Equal(t, 1.0857, latest.Value)
}

func TestFetchTrainingVariantUsesObservationStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2010-01-01", r.URL.Query().Get("observation_start"))
		assert.Empty(t, r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "k").FetchObservations(context.Background(), models.SeriesQuery{
		SeriesID: "GDP",
		Limit:    10000,
		Start:    time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, res.Observations, 2)
}

func TestFetchFailuresYieldEmptyResultWithDiagnostic(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "fred error envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request.  The series does not exist."}`))
			},
			want: "The series does not exist",
		},
		{
			name: "non-json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
			want: "decode response",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: "unexpected status 502",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			res := New(srv.URL, "k").Fetch(context.Background(), models.SeriesQuery{SeriesID: "DEXUSEU"})
			assert.True(t, res.Empty())
			assert.NotNil(t, res.Observations)
			assert.Contains(t, res.Diagnostic, tt.want)
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := New(url, "k").Fetch(context.Background(), models.SeriesQuery{SeriesID: "DEXUSEU"})
	assert.True(t, res.Empty())
	assert.Contains(t, res.Diagnostic, "DEXUSEU")
}

func TestFetchUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithCache(cache.NewTTLCache(), time.Minute))
	q := models.SeriesQuery{SeriesID: "DEXUSEU", Limit: 10}
	first := c.Fetch(context.Background(), q)
	second := c.Fetch(context.Background(), q)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, first.Observations, second.Observations)
}
