package model

import (
    "context"
    "errors"
    "fmt"
    "time"

    "FxCast/internal/domain/models"
    "FxCast/internal/domain/repository"
    "FxCast/internal/services/features"
    applogger "FxCast/pkg/logger"
    xutil "FxCast/pkg/util"
)

// ErrInsufficientData is returned when the feature table is too small to split.
var ErrInsufficientData = errors.New("insufficient training data")

const (
    DefaultTrainFraction = 0.8
    DefaultMinRows       = 30
)

// Report summarizes a training run and the hold-out evaluation.
type Report struct {
    Rows       int       `json:"rows"`
    TrainRows  int       `json:"train_rows"`
    TestRows   int       `json:"test_rows"`
    TrainFrom  string    `json:"train_from"`
    TestFrom   string    `json:"test_from"`
    TestTo     string    `json:"test_to"`
    MAE        float64   `json:"mae"`
    RMSE       float64   `json:"rmse"`
    DurationMS int64     `json:"duration_ms"`
    TrainedAt  time.Time `json:"trained_at"`
}

// Result is a trained forest plus the held-out rows it was scored on.
type Result struct {
    Forest      *Forest
    Report      *Report
    Test        *models.FeatureTable
    Predictions []float64
}

type TrainerOption func(*Trainer)

func WithTrainFraction(f float64) TrainerOption {
    return func(t *Trainer) {
        if f > 0 && f < 1 {
            t.trainFraction = f
        }
    }
}

func WithMinRows(n int) TrainerOption {
    return func(t *Trainer) {
        if n > 0 {
            t.minRows = n
        }
    }
}

func WithTrainerLogger(l *applogger.Logger) TrainerOption {
    return func(t *Trainer) { t.log = l }
}

func WithTrainerMetrics(m repository.Metrics) TrainerOption {
    return func(t *Trainer) { t.metrics = m }
}

// Trainer fits a forest on the chronological head of a table and scores the tail.
type Trainer struct {
    params        Params
    trainFraction float64
    minRows       int
    log           *applogger.Logger
    metrics       repository.Metrics
    now           func() time.Time
}

func NewTrainer(p Params, opts ...TrainerOption) *Trainer {
    t := &Trainer{
        params:        p,
        trainFraction: DefaultTrainFraction,
        minRows:       DefaultMinRows,
        log:           applogger.Nop(),
        now:           time.Now,
    }
    for _, opt := range opts {
        opt(t)
    }
    return t
}

func (t *Trainer) Train(ctx context.Context, table *models.FeatureTable) (*Result, error) {
    n := table.Len()
    if n < t.minRows {
        return nil, fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientData, n, t.minRows)
    }
    train, test := features.Split(table, t.trainFraction)
    if train.Len() == 0 || test.Len() == 0 {
        return nil, fmt.Errorf("%w: split of %d rows leaves an empty side", ErrInsufficientData, n)
    }

    start := t.now()
    t.log.Info("training forest",
        applogger.Int("rows", n),
        applogger.Int("train_rows", train.Len()),
        applogger.Int("trees", t.params.Trees),
        applogger.Int64("seed", t.params.Seed))

    forest, err := Fit(ctx, train.Matrix(), train.Target, t.params)
    if err != nil {
        return nil, fmt.Errorf("fit forest: %w", err)
    }
    forest.Columns = models.FeatureColumns()

    pred, err := forest.Predict(ctx, test.Rows)
    if err != nil {
        return nil, fmt.Errorf("score hold-out: %w", err)
    }
    done := t.now()
    report := &Report{
        Rows:       n,
        TrainRows:  train.Len(),
        TestRows:   test.Len(),
        TrainFrom:  xutil.FormatDate(train.Rows[0].Date),
        TestFrom:   xutil.FormatDate(test.Rows[0].Date),
        TestTo:     xutil.FormatDate(test.Rows[test.Len()-1].Date),
        MAE:        MAE(test.Target, pred),
        RMSE:       RMSE(test.Target, pred),
        DurationMS: done.Sub(start).Milliseconds(),
        TrainedAt:  done.UTC(),
    }
    if t.metrics != nil {
        t.metrics.RecordTraining(n, report.MAE, report.RMSE)
        t.metrics.RecordLatency("train", done.Sub(start).Seconds())
    }
    t.log.Info("forest trained",
        applogger.Float64("mae", report.MAE),
        applogger.Float64("rmse", report.RMSE),
        applogger.Int64("duration_ms", report.DurationMS))

    return &Result{Forest: forest, Report: report, Test: test, Predictions: pred}, nil
}
