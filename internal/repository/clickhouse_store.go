package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	pkgch "FxCast/pkg/clickhouse"
	applogger "FxCast/pkg/logger"
)

// Schema returns the idempotent DDL for the observation and prediction archive.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.observations (
            indicator LowCardinality(String),
            series_id LowCardinality(String),
            date Date,
            value Float64,
            fetched_at DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(fetched_at)
        ORDER BY (indicator, date)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.predictions (
            run_id UUID,
            model LowCardinality(String),
            scenario LowCardinality(String),
            date Date,
            value Float64,
            variation Float64,
            created_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(created_at)
        ORDER BY (model, created_at, run_id, scenario)`, database),
	}
}

// CHStore archives observations and prediction events in ClickHouse.
type CHStore struct {
	ch  *pkgch.Client
	db  string
	l   *applogger.Logger
	now func() time.Time
}

var (
	_ domrepo.ObservationStore = (*CHStore)(nil)
	_ domrepo.PredictionStore  = (*CHStore)(nil)
)

func NewCHStore(ch *pkgch.Client, l *applogger.Logger) *CHStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHStore{ch: ch, db: ch.Database(), l: l, now: time.Now}
}

// Init creates the archive tables.
func (s *CHStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema(s.db))
}

func (s *CHStore) SaveObservations(ctx context.Context, ind models.Indicator, seriesID string, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	start := s.now()
	fetchedAt := start.UTC()
	q := fmt.Sprintf("INSERT INTO %s.observations (indicator, series_id, date, value, fetched_at) VALUES (?, ?, ?, ?, ?)", s.db)
	err := s.ch.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for _, o := range obs {
			if _, err := stmt.ExecContext(ctx, string(ind), seriesID, o.Date, o.Value, fetchedAt); err != nil {
				return fmt.Errorf("append %s: %w", o.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	if err != nil {
		s.l.Error("clickhouse save_observations error",
			applogger.String("indicator", string(ind)),
			applogger.Int("rows", len(obs)),
			applogger.Error(err))
		return fmt.Errorf("save observations: %w", err)
	}
	s.l.Debug("clickhouse save_observations ok",
		applogger.String("indicator", string(ind)),
		applogger.Int("rows", len(obs)),
		applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

// LoadObservations returns the archived series for ind within [from, to], oldest first.
// A zero to means no upper bound.
func (s *CHStore) LoadObservations(ctx context.Context, ind models.Indicator, from, to time.Time) ([]models.Observation, error) {
	if to.IsZero() {
		to = time.Date(2999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	q := fmt.Sprintf(`
        SELECT date, value
        FROM %s.observations FINAL
        WHERE indicator = ? AND date >= ? AND date <= ?
        ORDER BY date ASC`, s.db)
	rows, err := s.ch.DB().QueryContext(ctx, q, string(ind), from, to)
	if err != nil {
		s.l.Error("clickhouse load_observations query error", applogger.String("indicator", string(ind)), applogger.Error(err))
		return nil, fmt.Errorf("load observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Observation, 0, 4096)
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Date = o.Date.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStore) SavePredictions(ctx context.Context, events []models.PredictionEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s.predictions (run_id, model, scenario, date, value, variation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)", s.db)
	err := s.ch.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for _, e := range events {
			if _, err := stmt.ExecContext(ctx, e.RunID, e.Model, string(e.Scenario), e.Date, e.Value, e.Variation, e.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("append run %s: %w", e.RunID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.l.Error("clickhouse save_predictions error", applogger.Int("rows", len(events)), applogger.Error(err))
		return fmt.Errorf("save predictions: %w", err)
	}
	return nil
}

// RecentPredictions returns the newest events of model, newest first. An empty
// model matches every model.
func (s *CHStore) RecentPredictions(ctx context.Context, model string, limit int) ([]models.PredictionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
        SELECT toString(run_id), model, scenario, date, value, variation, created_at
        FROM %s.predictions
        WHERE (? = '' OR model = ?)
        ORDER BY created_at DESC
        LIMIT ?`, s.db)
	rows, err := s.ch.DB().QueryContext(ctx, q, model, model, limit)
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionEvent
	for rows.Next() {
		var e models.PredictionEvent
		var scenario string
		if err := rows.Scan(&e.RunID, &e.Model, &scenario, &e.Date, &e.Value, &e.Variation, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		e.Scenario = models.Scenario(scenario)
		out = append(out, e)
	}
	return out, rows.Err()
}
