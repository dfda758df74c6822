package api

import (
	"context"
	"net/http"
	"testing"

	"FxCast/internal/domain/models"
	"FxCast/internal/service/ratelimit"
	"FxCast/internal/usecase"
	"FxCast/pkg/queue"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobID = "8a0d7c0e-3b8f-4c47-9a55-0d5b1f1e2a3c"

type memTrainingQueue struct {
	payloads []interface{}
	statuses map[string]*queue.Status
	err      error
}

func (q *memTrainingQueue) Enqueue(_ context.Context, msgType string, payload interface{}) (*queue.Status, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, payload)
	st := &queue.Status{ID: jobID, Type: msgType, State: queue.StateQueued}
	q.statuses[st.ID] = st
	return st, nil
}

func (q *memTrainingQueue) Status(_ context.Context, id string) (*queue.Status, error) {
	if st, ok := q.statuses[id]; ok {
		return st, nil
	}
	return nil, queue.ErrNotFound
}

func newTrainServer(t *testing.T, q usecase.TrainingQueue, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	uc := usecase.NewDashboardUseCase(
		usecase.NewSeriesCollector(staticSource{}, nil, 100, "asc", nil),
		staticTable{t: &models.FeatureTable{}},
		usecase.DefaultDashboardSettings(),
	)
	var opts []HandlerOption
	if q != nil {
		opts = append(opts, WithTrainingScheduler(usecase.NewTrainingScheduler(q)))
	}
	e := echo.New()
	NewDashboardEchoHandler(nil, uc, nil, limiter, opts...).RegisterRoutes(e)
	return e
}

func TestTrainEndpointQueuesRun(t *testing.T) {
	q := &memTrainingQueue{statuses: map[string]*queue.Status{}}
	e := newTrainServer(t, q, nil)

	rec := do(e, http.MethodPost, "/api/train", `{"start":"2015-01-01"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var st queue.Status
	decode(t, rec, &st)
	assert.Equal(t, jobID, st.ID)
	assert.Equal(t, queue.StateQueued, st.State)
	assert.Equal(t, usecase.TrainJobType, st.Type)
	require.Len(t, q.payloads, 1)
	assert.Equal(t, usecase.TrainPayload{Start: "2015-01-01"}, q.payloads[0])

	q.statuses[jobID].State = queue.StateSucceeded
	rec = do(e, http.MethodGet, "/api/train/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.Equal(t, queue.StateSucceeded, st.State)
}

func TestTrainEndpointValidatesStart(t *testing.T) {
	q := &memTrainingQueue{statuses: map[string]*queue.Status{}}
	e := newTrainServer(t, q, nil)

	rec := do(e, http.MethodPost, "/api/train", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_REQUIRED")

	rec = do(e, http.MethodPost, "/api/train", `{"start":"01/02/2015"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_DAY")
	assert.Empty(t, q.payloads)
}

func TestTrainStatusUnknownAndMalformedID(t *testing.T) {
	e := newTrainServer(t, &memTrainingQueue{statuses: map[string]*queue.Status{}}, nil)

	rec := do(e, http.MethodGet, "/api/train/"+jobID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = do(e, http.MethodGet, "/api/train/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UUID")
}

func TestTrainEndpointsWithoutQueue(t *testing.T) {
	e := newTrainServer(t, nil, nil)

	rec := do(e, http.MethodPost, "/api/train", `{"start":"2015-01-01"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_AVAILABLE")

	rec = do(e, http.MethodGet, "/api/train/"+jobID, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrainEndpointStoppedQueue(t *testing.T) {
	e := newTrainServer(t, &memTrainingQueue{statuses: map[string]*queue.Status{}, err: queue.ErrNotRunning}, nil)

	rec := do(e, http.MethodPost, "/api/train", `{"start":"2015-01-01"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrainEndpointIsRateLimited(t *testing.T) {
	e := newTrainServer(t, &memTrainingQueue{statuses: map[string]*queue.Status{}}, ratelimit.New(1, 0))

	assert.Equal(t, http.StatusAccepted, do(e, http.MethodPost, "/api/train", `{"start":"2015-01-01"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/api/train", `{"start":"2015-01-01"}`).Code)
}
