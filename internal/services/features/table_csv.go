package features

import (
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "strconv"
    "strings"

    "FxCast/internal/domain/models"
    xutil "FxCast/pkg/util"
)

const dateColumn = "date"

// WriteCSV writes the table as date, the feature columns, then the target column.
// Floats use the shortest exact representation so ReadCSV reproduces them bit for bit.
func WriteCSV(w io.Writer, t *models.FeatureTable) error {
    cw := csv.NewWriter(w)
    header := append([]string{dateColumn}, models.FeatureColumns()...)
    header = append(header, string(models.Target))
    if err := cw.Write(header); err != nil {
        return fmt.Errorf("write header: %w", err)
    }
    rec := make([]string, len(header))
    for i, row := range t.Rows {
        rec[0] = xutil.FormatDate(row.Date)
        for j, v := range row.Vector() {
            rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
        }
        rec[len(rec)-1] = strconv.FormatFloat(t.Target[i], 'g', -1, 64)
        if err := cw.Write(rec); err != nil {
            return fmt.Errorf("write row %d: %w", i, err)
        }
    }
    cw.Flush()
    return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. Columns may come in any order but the
// header must hold date, the target and exactly the feature columns.
func ReadCSV(r io.Reader) (*models.FeatureTable, error) {
    cr := csv.NewReader(r)
    cr.TrimLeadingSpace = true
    header, err := cr.Read()
    if err != nil {
        if errors.Is(err, io.EOF) {
            return nil, errors.New("empty table")
        }
        return nil, fmt.Errorf("read header: %w", err)
    }

    index := make(map[string]int, len(header))
    for i, h := range header {
        h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
        if _, dup := index[h]; dup {
            return nil, fmt.Errorf("%w: duplicate column %q", models.ErrColumnMismatch, h)
        }
        index[h] = i
    }
    dateIdx, ok := index[dateColumn]
    if !ok {
        return nil, fmt.Errorf("%w: missing %q column", models.ErrColumnMismatch, dateColumn)
    }
    targetIdx, ok := index[string(models.Target)]
    if !ok {
        return nil, fmt.Errorf("%w: missing %q column", models.ErrColumnMismatch, models.Target)
    }

    t := &models.FeatureTable{}
    for line := 2; ; line++ {
        rec, err := cr.Read()
        if errors.Is(err, io.EOF) {
            break
        }
        if err != nil {
            return nil, fmt.Errorf("line %d: %w", line, err)
        }
        date, ok := xutil.ParseDate(rec[dateIdx])
        if !ok {
            return nil, fmt.Errorf("line %d: invalid date %q", line, rec[dateIdx])
        }
        target, err := xutil.ParseFloat(rec[targetIdx])
        if err != nil {
            return nil, fmt.Errorf("line %d: target: %w", line, err)
        }
        values := make(map[string]float64, len(header)-2)
        for name, i := range index {
            if i == dateIdx || i == targetIdx {
                continue
            }
            v, err := xutil.ParseFloat(rec[i])
            if err != nil {
                return nil, fmt.Errorf("line %d: column %s: %w", line, name, err)
            }
            values[name] = v
        }
        row, err := models.FeatureRowFromRecord(date, values)
        if err != nil {
            return nil, fmt.Errorf("line %d: %w", line, err)
        }
        t.Rows = append(t.Rows, row)
        t.Target = append(t.Target, target)
    }
    return t, nil
}
