package usecase

import (
	"context"
	"fmt"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	"FxCast/internal/services/features"
	"FxCast/internal/services/model"
	applogger "FxCast/pkg/logger"
	xutil "FxCast/pkg/util"
)

// Training sources.
const (
	SourceFRED       = "fred"
	SourceClickHouse = "clickhouse"
)

// EvaluationWriter persists the held-out rows of a training run.
type EvaluationWriter interface {
	Save(t *models.FeatureTable) error
}

// TrainingOutcome describes a finished training run.
type TrainingOutcome struct {
	Source       string                      `json:"source"`
	SeriesRows   map[models.Indicator]int    `json:"series_rows"`
	Diagnostics  map[models.Indicator]string `json:"diagnostics,omitempty"`
	Archived     int                         `json:"archived"`
	FeatureRows  int                         `json:"feature_rows"`
	Report       *model.Report               `json:"report"`
	ArtifactPath string                      `json:"artifact_path"`
}

type TrainingOption func(*TrainingUseCase)

// WithObservationStore archives fetched observations into store. With fromStore the
// run reads its observations from the store instead of FRED.
func WithObservationStore(store domrepo.ObservationStore, fromStore bool) TrainingOption {
	return func(uc *TrainingUseCase) {
		uc.store = store
		if fromStore {
			uc.source = SourceClickHouse
		}
	}
}

func WithTrainingLogger(l *applogger.Logger) TrainingOption {
	return func(uc *TrainingUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// TrainingUseCase fetches every indicator, builds the lagged feature table, fits the
// forest and writes the artifact plus the evaluation table.
type TrainingUseCase struct {
	series       *SeriesCollector
	builder      *features.Builder
	trainer      *model.Trainer
	evaluation   EvaluationWriter
	artifactPath string
	store        domrepo.ObservationStore
	source       string
	log          *applogger.Logger
	now          func() time.Time
}

func NewTrainingUseCase(series *SeriesCollector, builder *features.Builder, trainer *model.Trainer, evaluation EvaluationWriter, artifactPath string, opts ...TrainingOption) *TrainingUseCase {
	uc := &TrainingUseCase{
		series:       series,
		builder:      builder,
		trainer:      trainer,
		evaluation:   evaluation,
		artifactPath: artifactPath,
		source:       SourceFRED,
		log:          applogger.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Run trains on observations dated on or after start.
func (uc *TrainingUseCase) Run(ctx context.Context, start time.Time) (*TrainingOutcome, error) {
	out := &TrainingOutcome{
		Source:       uc.source,
		SeriesRows:   make(map[models.Indicator]int, len(models.Indicators)),
		ArtifactPath: uc.artifactPath,
	}

	series, err := uc.collect(ctx, start, out)
	if err != nil {
		return nil, err
	}

	table := uc.builder.Build(series)
	out.FeatureRows = table.Len()
	uc.log.Info("feature table built",
		applogger.String("source", uc.source),
		applogger.Int("rows", table.Len()))

	result, err := uc.trainer.Train(ctx, table)
	if err != nil {
		return nil, err
	}
	out.Report = result.Report

	if err := model.SaveFile(uc.artifactPath, result.Forest, result.Report); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	if err := uc.evaluation.Save(result.Test); err != nil {
		return nil, fmt.Errorf("save evaluation table: %w", err)
	}
	uc.log.Info("training run complete",
		applogger.String("artifact", uc.artifactPath),
		applogger.Int("test_rows", result.Test.Len()),
		applogger.Float64("mae", result.Report.MAE))
	return out, nil
}

func (uc *TrainingUseCase) collect(ctx context.Context, start time.Time, out *TrainingOutcome) (map[models.Indicator][]models.Observation, error) {
	if uc.source == SourceClickHouse {
		if uc.store == nil {
			return nil, fmt.Errorf("%w: no observation store configured", domrepo.ErrNotAvailable)
		}
		series := make(map[models.Indicator][]models.Observation, len(models.Indicators))
		to := xutil.Day(uc.now())
		for _, ind := range models.Indicators {
			obs, err := uc.store.LoadObservations(ctx, ind, start, to)
			if err != nil {
				return nil, fmt.Errorf("load %s observations: %w", ind, err)
			}
			series[ind] = obs
			out.SeriesRows[ind] = len(obs)
		}
		return series, nil
	}

	results := uc.series.FetchAll(ctx, start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ind := range models.Indicators {
		r := results[ind]
		out.SeriesRows[ind] = len(r.Observations)
		if r.Diagnostic != "" {
			if out.Diagnostics == nil {
				out.Diagnostics = make(map[models.Indicator]string)
			}
			out.Diagnostics[ind] = r.Diagnostic
		}
	}
	out.Archived = uc.series.Archive(ctx, uc.store, results)
	return features.FromSeriesResults(results), nil
}
