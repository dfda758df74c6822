package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	"FxCast/internal/services/model"
	applogger "FxCast/pkg/logger"
	"FxCast/pkg/queue"
	xutil "FxCast/pkg/util"
)

// TrainJobType is the queue message type of an on-demand training run.
const TrainJobType = "model.train"

// ErrInvalidStart means a training request carried an unparseable start date.
var ErrInvalidStart = errors.New("invalid training start date")

// TrainPayload is the queued body of a training run.
type TrainPayload struct {
	Start string `json:"start"`
}

// TrainResult is stored as the queue result of a finished run.
type TrainResult struct {
	*TrainingOutcome
	Reloaded bool `json:"reloaded"`
}

var _ queue.Job = (*TrainJob)(nil)

type TrainJobOption func(*TrainJob)

// WithModelReload swaps the dashboard regressor for the new artifact after each run.
func WithModelReload(dashboard *DashboardUseCase) TrainJobOption {
	return func(j *TrainJob) { j.dashboard = dashboard }
}

func WithTrainJobLogger(l *applogger.Logger) TrainJobOption {
	return func(j *TrainJob) {
		if l != nil {
			j.log = l
		}
	}
}

// TrainJob runs a queued training request.
type TrainJob struct {
	training  *TrainingUseCase
	dashboard *DashboardUseCase
	load      func(path string) (*model.Forest, *model.Report, error)
	log       *applogger.Logger
}

func NewTrainJob(training *TrainingUseCase, opts ...TrainJobOption) *TrainJob {
	j := &TrainJob{training: training, load: model.LoadFile, log: applogger.Nop()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *TrainJob) Type() string { return TrainJobType }

// Handle trains from the payload's start date. Bad input and data that is too
// short to split fail without a retry.
func (j *TrainJob) Handle(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	p, err := queue.ParsePayload[TrainPayload](payload)
	if err != nil {
		return nil, queue.Permanent(err)
	}
	start, ok := xutil.ParseDate(p.Start)
	if !ok {
		return nil, queue.Permanent(fmt.Errorf("%w: %q", ErrInvalidStart, p.Start))
	}

	outcome, err := j.training.Run(ctx, start)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientData) || errors.Is(err, domrepo.ErrNotAvailable) {
			return nil, queue.Permanent(err)
		}
		return nil, err
	}

	res := &TrainResult{TrainingOutcome: outcome}
	if j.dashboard == nil {
		return res, nil
	}
	forest, _, err := j.load(outcome.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("reload model: %w", err)
	}
	j.dashboard.SetRegressor(forest)
	res.Reloaded = true
	j.log.Info("scenario model reloaded",
		applogger.String("path", outcome.ArtifactPath),
		applogger.Int("trees", len(forest.Trees)))
	return res, nil
}

// TrainingQueue is the part of the job queue the scheduler needs.
type TrainingQueue interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (*queue.Status, error)
	Status(ctx context.Context, id string) (*queue.Status, error)
}

// TrainingScheduler queues training runs and reports on them.
type TrainingScheduler struct {
	queue TrainingQueue
}

func NewTrainingScheduler(q TrainingQueue) *TrainingScheduler {
	return &TrainingScheduler{queue: q}
}

// Submit queues a run from req.Start.
func (s *TrainingScheduler) Submit(ctx context.Context, req models.TrainRequest) (*queue.Status, error) {
	start, ok := xutil.ParseDate(req.Start)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStart, req.Start)
	}
	return s.queue.Enqueue(ctx, TrainJobType, TrainPayload{Start: xutil.FormatDate(start)})
}

// Status returns the progress of run id. Unknown ids yield queue.ErrNotFound.
func (s *TrainingScheduler) Status(ctx context.Context, id string) (*queue.Status, error) {
	return s.queue.Status(ctx, id)
}
