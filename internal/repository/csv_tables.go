package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	domsvc "FxCast/internal/domain/service"
	"FxCast/internal/services/features"
	xutil "FxCast/pkg/util"
)

func openOptional(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domrepo.ErrNotAvailable, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// CSVEvaluationTable reads the held-out feature table written by training.
type CSVEvaluationTable struct {
	path string
}

var _ domrepo.EvaluationTable = (*CSVEvaluationTable)(nil)

func NewCSVEvaluationTable(path string) *CSVEvaluationTable {
	return &CSVEvaluationTable{path: path}
}

func (t *CSVEvaluationTable) Path() string { return t.path }

func (t *CSVEvaluationTable) Load(_ context.Context) (*models.FeatureTable, error) {
	f, err := openOptional(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tbl, err := features.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("evaluation table %s: %w", t.path, err)
	}
	return tbl, nil
}

// Save writes tbl to the configured path, creating parent directories. The file is
// replaced atomically, so a concurrent Load sees the old table or the new one.
func (t *CSVEvaluationTable) Save(tbl *models.FeatureTable) error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	defer os.Remove(f.Name())
	if err := features.WriteCSV(f, tbl); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), t.path); err != nil {
		return fmt.Errorf("replace %s: %w", t.path, err)
	}
	return nil
}

// CSVForecastTable reads a decomposition forecast export. Only the ds, yhat,
// yhat_upper and yhat_lower columns are used; other columns are ignored.
type CSVForecastTable struct {
	path string
}

var _ domsvc.Forecaster = (*CSVForecastTable)(nil)

func NewCSVForecastTable(path string) *CSVForecastTable {
	return &CSVForecastTable{path: path}
}

func (t *CSVForecastTable) Forecast(_ context.Context) ([]models.ForecastPoint, error) {
	f, err := openOptional(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	points, err := ReadForecastCSV(f)
	if err != nil {
		return nil, fmt.Errorf("forecast table %s: %w", t.path, err)
	}
	return points, nil
}

var forecastColumns = []string{"ds", "yhat", "yhat_upper", "yhat_lower"}

// ReadForecastCSV parses the forecast band and sorts it by date.
func ReadForecastCSV(r io.Reader) ([]models.ForecastPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range forecastColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var out []models.ForecastPoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			if i := idx[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		ds := field("ds")
		if i := strings.IndexAny(ds, " T"); i > 0 {
			ds = ds[:i]
		}
		d, ok := xutil.ParseDate(ds)
		if !ok {
			return nil, fmt.Errorf("line %d: invalid date %q", line, field("ds"))
		}
		p := models.ForecastPoint{Date: d}
		targets := []*float64{&p.YHat, &p.Upper, &p.Lower}
		for i, name := range forecastColumns[1:] {
			v, err := xutil.ParseFloat(field(name))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			*targets[i] = v
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// AuditWorkbook is an optional pre-computed spreadsheet served as-is.
type AuditWorkbook struct {
	path string
}

func NewAuditWorkbook(path string) *AuditWorkbook { return &AuditWorkbook{path: path} }

// Open returns the workbook for streaming along with its size. A missing file
// yields ErrNotAvailable.
func (w *AuditWorkbook) Open() (io.ReadSeekCloser, int64, error) {
	f, err := openOptional(w.path)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", w.path, err)
	}
	return f, st.Size(), nil
}

func (w *AuditWorkbook) Name() string { return filepath.Base(w.path) }
