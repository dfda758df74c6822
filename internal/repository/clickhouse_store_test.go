package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"FxCast/internal/domain/models"
	pkgch "FxCast/pkg/clickhouse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB is a database/sql driver that records statements and serves canned rows.
type recordingDB struct {
	mu        sync.Mutex
	execs     [][]driver.Value
	queries   []string
	queryArgs [][]driver.Value
	cols      []string
	rows      [][]driver.Value
	execErr   error
	commits   int
	rollbacks int
}

func (r *recordingDB) Connect(context.Context) (driver.Conn, error) { return &recordingConn{db: r}, nil }
func (r *recordingDB) Driver() driver.Driver                         { return r }
func (r *recordingDB) Open(string) (driver.Conn, error)              { return &recordingConn{db: r}, nil }

type recordingConn struct{ db *recordingDB }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{db: c.db, query: query}, nil
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return &recordingTx{db: c.db}, nil }

type recordingTx struct{ db *recordingDB }

func (t *recordingTx) Commit() error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.commits++
	return nil
}

func (t *recordingTx) Rollback() error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.rollbacks++
	return nil
}

type recordingStmt struct {
	db    *recordingDB
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.execErr != nil {
		return nil, s.db.execErr
	}
	s.db.queries = append(s.db.queries, s.query)
	s.db.execs = append(s.db.execs, args)
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.queries = append(s.db.queries, s.query)
	s.db.queryArgs = append(s.db.queryArgs, args)
	return &recordingRows{cols: s.db.cols, rows: s.db.rows}, nil
}

type recordingRows struct {
	cols []string
	rows [][]driver.Value
	i    int
}

func (r *recordingRows) Columns() []string { return r.cols }
func (r *recordingRows) Close() error      { return nil }

func (r *recordingRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newRecordingStore(t *testing.T) (*CHStore, *recordingDB) {
	t.Helper()
	rec := &recordingDB{}
	db := sql.OpenDB(rec)
	t.Cleanup(func() { _ = db.Close() })
	store := NewCHStore(pkgch.Wrap(db, "fxcast"), nil)
	store.now = func() time.Time { return time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC) }
	return store, rec
}

func TestCHStoreSaveObservationsMapsRows(t *testing.T) {
	store, rec := newRecordingStore(t)
	obs := []models.Observation{
		{Date: day("2024-06-01"), Value: 1.08},
		{Date: day("2024-06-03"), Value: 1.09},
	}

	require.NoError(t, store.SaveObservations(context.Background(), models.Target, "DEXUSEU", obs))
	require.NoError(t, store.SaveObservations(context.Background(), models.Target, "DEXUSEU", nil))

	require.Len(t, rec.execs, 2)
	assert.True(t, strings.HasPrefix(rec.queries[0], "INSERT INTO fxcast.observations"))
	assert.Equal(t, []driver.Value{
		string(models.Target), "DEXUSEU", day("2024-06-03"), 1.09,
		time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC),
	}, rec.execs[1])
	assert.Equal(t, 1, rec.commits)
}

func TestCHStoreSaveObservationsRollsBack(t *testing.T) {
	store, rec := newRecordingStore(t)
	rec.execErr = errors.New("table is read-only")

	err := store.SaveObservations(context.Background(), models.DXY, "DTWEXBGS", []models.Observation{{Date: day("2024-06-01"), Value: 104}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-06-01")
	assert.Equal(t, 1, rec.rollbacks)
	assert.Zero(t, rec.commits)
}

func TestCHStoreSavePredictionsMapsRows(t *testing.T) {
	store, rec := newRecordingStore(t)
	at := time.Date(2024, 6, 3, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	p := models.ScenarioPrediction{Date: day("2024-06-04"), Neutral: 1.1, Optimistic: 1.12, Pessimistic: 1.08}
	events := models.EventsFrom("run-1", models.ModelForest, p, 0.02, at)

	require.NoError(t, store.SavePredictions(context.Background(), events))

	require.Len(t, rec.execs, len(models.Scenarios))
	assert.True(t, strings.HasPrefix(rec.queries[0], "INSERT INTO fxcast.predictions"))
	first := rec.execs[0]
	assert.Equal(t, "run-1", first[0])
	assert.Equal(t, models.ModelForest, first[1])
	assert.Equal(t, string(models.Scenarios[0]), first[2])
	assert.Equal(t, day("2024-06-04"), first[3])
	assert.Equal(t, p.Value(models.Scenarios[0]), first[4])
	assert.Equal(t, 0.02, first[5])
	assert.Equal(t, at.UTC(), first[6], "created_at is stored in UTC")
}

func TestCHStoreLoadObservationsScansRows(t *testing.T) {
	store, rec := newRecordingStore(t)
	rec.cols = []string{"date", "value"}
	local := time.Date(2024, 6, 1, 2, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	rec.rows = [][]driver.Value{
		{local, 1.08},
		{day("2024-06-03"), 1.09},
	}

	obs, err := store.LoadObservations(context.Background(), models.Target, day("2024-06-01"), time.Time{})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, time.UTC, obs[0].Date.Location())
	assert.Equal(t, day("2024-06-01"), obs[0].Date)
	assert.Equal(t, 1.09, obs[1].Value)

	require.Len(t, rec.queryArgs, 1)
	assert.Contains(t, rec.queries[0], "fxcast.observations FINAL")
	assert.Equal(t, string(models.Target), rec.queryArgs[0][0])
	assert.Equal(t, 2999, rec.queryArgs[0][2].(time.Time).Year(), "zero upper bound is open-ended")
}

func TestCHStoreRecentPredictionsScansRows(t *testing.T) {
	store, rec := newRecordingStore(t)
	created := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	rec.cols = []string{"run_id", "model", "scenario", "date", "value", "variation", "created_at"}
	rec.rows = [][]driver.Value{
		{"run-2", models.ModelForest, string(models.Optimistic), day("2024-06-04"), 1.12, 0.02, created},
	}

	events, err := store.RecentPredictions(context.Background(), models.ModelForest, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.PredictionEvent{
		RunID: "run-2", Model: models.ModelForest, Scenario: models.Optimistic,
		Date: day("2024-06-04"), Value: 1.12, Variation: 0.02, CreatedAt: created,
	}, events[0])
	assert.Equal(t, []driver.Value{models.ModelForest, models.ModelForest, int64(100)}, rec.queryArgs[0])
}
