package model

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    "FxCast/internal/domain/models"
)

// ArtifactFormat tags the serialized forest layout.
const ArtifactFormat = "fxcast-forest/v1"

// ErrNoArtifact is returned by LoadFile when no trained model exists at the path.
var ErrNoArtifact = errors.New("model artifact not found")

// Artifact is the on-disk representation of a trained forest.
type Artifact struct {
    Format    string    `json:"format"`
    Columns   []string  `json:"columns"`
    Params    Params    `json:"params"`
    Trees     []*Tree   `json:"trees"`
    Report    *Report   `json:"report,omitempty"`
    TrainedAt time.Time `json:"trained_at"`
}

// Save encodes the forest and its training report.
func Save(w io.Writer, f *Forest, report *Report) error {
    a := Artifact{
        Format:  ArtifactFormat,
        Columns: f.Columns,
        Params:  f.Params,
        Trees:   f.Trees,
        Report:  report,
    }
    if report != nil {
        a.TrainedAt = report.TrainedAt
    }
    enc := json.NewEncoder(w)
    if err := enc.Encode(a); err != nil {
        return fmt.Errorf("encode artifact: %w", err)
    }
    return nil
}

// Load decodes an artifact and checks that its columns match the feature layout.
func Load(r io.Reader) (*Forest, *Report, error) {
    var a Artifact
    if err := json.NewDecoder(r).Decode(&a); err != nil {
        return nil, nil, fmt.Errorf("decode artifact: %w", err)
    }
    if a.Format != ArtifactFormat {
        return nil, nil, fmt.Errorf("unsupported artifact format %q", a.Format)
    }
    if err := models.ValidateColumns(a.Columns); err != nil {
        return nil, nil, err
    }
    if len(a.Trees) == 0 {
        return nil, nil, errors.New("artifact has no trees")
    }
    for i, t := range a.Trees {
        if t == nil {
            return nil, nil, fmt.Errorf("tree %d is empty", i)
        }
        if err := t.check(len(a.Columns)); err != nil {
            return nil, nil, fmt.Errorf("tree %d: %w", i, err)
        }
    }
    return &Forest{Columns: a.Columns, Params: a.Params, Trees: a.Trees}, a.Report, nil
}

// SaveFile writes the artifact next to path and renames it into place.
func SaveFile(path string, f *Forest, report *Report) error {
    dir := filepath.Dir(path)
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("create %s: %w", dir, err)
    }
    tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
    if err != nil {
        return fmt.Errorf("create temp artifact: %w", err)
    }
    defer os.Remove(tmp.Name())

    if err := Save(tmp, f, report); err != nil {
        tmp.Close()
        return err
    }
    if err := tmp.Close(); err != nil {
        return fmt.Errorf("close temp artifact: %w", err)
    }
    if err := os.Rename(tmp.Name(), path); err != nil {
        return fmt.Errorf("rename artifact: %w", err)
    }
    return nil
}

// LoadFile reads an artifact from disk. A missing file yields ErrNoArtifact.
func LoadFile(path string) (*Forest, *Report, error) {
    fh, err := os.Open(path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) {
            return nil, nil, fmt.Errorf("%w: %s", ErrNoArtifact, path)
        }
        return nil, nil, fmt.Errorf("open artifact: %w", err)
    }
    defer fh.Close()
    return Load(fh)
}

func (t *Tree) check(width int) error {
    if len(t.Nodes) == 0 {
        return errors.New("no nodes")
    }
    for i, n := range t.Nodes {
        if n.Feature == leaf {
            continue
        }
        if n.Feature < 0 || n.Feature >= width {
            return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
        }
        if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
            return fmt.Errorf("node %d: invalid children", i)
        }
    }
    return nil
}
