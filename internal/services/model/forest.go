package model

import (
    "context"
    "errors"
    "fmt"
    "math/rand"
    "runtime"

    "golang.org/x/sync/errgroup"

    "FxCast/internal/domain/models"
    domsvc "FxCast/internal/domain/service"
)

// Name identifies the local regressor in events and metrics.
const Name = "forest"

// Params configures the ensemble. Zero MaxDepth grows trees until leaves are pure
// or hold MinSamplesLeaf samples; zero MaxFeatures considers every feature.
type Params struct {
    Trees          int   `json:"trees"`
    MaxDepth       int   `json:"max_depth"`
    MinSamplesLeaf int   `json:"min_samples_leaf"`
    MaxFeatures    int   `json:"max_features"`
    Seed           int64 `json:"seed"`
    Bootstrap      bool  `json:"bootstrap"`
    Workers        int   `json:"-"`
}

// DefaultParams is 100 bootstrapped trees seeded with 42.
func DefaultParams() Params {
    return Params{Trees: 100, MinSamplesLeaf: 1, Seed: 42, Bootstrap: true}
}

func (p Params) validate() error {
    if p.Trees < 1 {
        return fmt.Errorf("trees must be >= 1, got %d", p.Trees)
    }
    if p.MinSamplesLeaf < 1 {
        return fmt.Errorf("min_samples_leaf must be >= 1, got %d", p.MinSamplesLeaf)
    }
    if p.MaxDepth < 0 || p.MaxFeatures < 0 {
        return errors.New("max_depth and max_features must not be negative")
    }
    return nil
}

// Forest averages the predictions of independently grown regression trees.
type Forest struct {
    Columns []string `json:"columns"`
    Params  Params   `json:"params"`
    Trees   []*Tree  `json:"trees"`
}

var _ domsvc.Regressor = (*Forest)(nil)

// Fit grows p.Trees trees concurrently. Each tree draws from its own generator,
// seeded up front from p.Seed, so the result does not depend on scheduling.
func Fit(ctx context.Context, x [][]float64, y []float64, p Params) (*Forest, error) {
    if err := p.validate(); err != nil {
        return nil, err
    }
    if len(x) == 0 || len(x) != len(y) {
        return nil, fmt.Errorf("fit: %d rows and %d targets", len(x), len(y))
    }
    width := len(x[0])
    for i, row := range x {
        if len(row) != width {
            return nil, fmt.Errorf("fit: row %d has %d features, expected %d", i, len(row), width)
        }
    }

    master := rand.New(rand.NewSource(p.Seed))
    seeds := make([]int64, p.Trees)
    for i := range seeds {
        seeds[i] = master.Int63()
    }

    workers := p.Workers
    if workers <= 0 {
        workers = runtime.GOMAXPROCS(0)
    }
    tp := treeParams{maxDepth: p.MaxDepth, minSamplesLeaf: p.MinSamplesLeaf, maxFeatures: p.MaxFeatures}
    trees := make([]*Tree, p.Trees)

    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(workers)
    for i := range trees {
        g.Go(func() error {
            if err := gctx.Err(); err != nil {
                return err
            }
            rng := rand.New(rand.NewSource(seeds[i]))
            trees[i] = growTree(x, y, sample(len(x), p.Bootstrap, rng), tp, rng)
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }
    return &Forest{Params: p, Trees: trees}, nil
}

func sample(n int, bootstrap bool, rng *rand.Rand) []int {
    idx := make([]int, n)
    for i := range idx {
        if bootstrap {
            idx[i] = rng.Intn(n)
        } else {
            idx[i] = i
        }
    }
    return idx
}

// PredictVector returns the mean tree prediction for one feature vector.
func (f *Forest) PredictVector(x []float64) float64 {
    var s float64
    for _, t := range f.Trees {
        s += t.Predict(x)
    }
    return s / float64(len(f.Trees))
}

// Predict implements domain/service.Regressor.
func (f *Forest) Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error) {
    if len(f.Trees) == 0 {
        return nil, errors.New("forest has no trees")
    }
    out := make([]float64, len(rows))
    for i, r := range rows {
        if err := ctx.Err(); err != nil {
            return nil, err
        }
        out[i] = f.PredictVector(r.Vector())
    }
    return out, nil
}

func (f *Forest) Name() string { return Name }
