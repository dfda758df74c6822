package model

import (
    "math/rand"
    "slices"
)

// leaf marks a node without a split.
const leaf = -1

// Node is one flattened tree node. Leaves carry Feature == -1 and a Value.
type Node struct {
    Feature   int     `json:"f"`
    Threshold float64 `json:"t,omitempty"`
    Left      int     `json:"l,omitempty"`
    Right     int     `json:"r,omitempty"`
    Value     float64 `json:"v"`
}

// Tree is a regression tree grown with variance reduction.
type Tree struct {
    Nodes []Node `json:"nodes"`
}

type treeParams struct {
    maxDepth       int
    minSamplesLeaf int
    maxFeatures    int
}

type grower struct {
    x      [][]float64
    y      []float64
    p      treeParams
    rng    *rand.Rand
    nodes  []Node
    sorted []int
}

// growTree fits a tree on the samples listed in idx (repeats allowed).
func growTree(x [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand) *Tree {
    g := &grower{x: x, y: y, p: p, rng: rng, sorted: make([]int, len(idx))}
    g.split(append([]int(nil), idx...), 0)
    return &Tree{Nodes: g.nodes}
}

func (g *grower) split(idx []int, depth int) int {
    self := len(g.nodes)
    g.nodes = append(g.nodes, Node{Feature: leaf, Value: g.mean(idx)})

    n := len(idx)
    if n < 2*g.p.minSamplesLeaf || (g.p.maxDepth > 0 && depth >= g.p.maxDepth) || g.pure(idx) {
        return self
    }

    feature, threshold, ok := g.best(idx)
    if !ok {
        return self
    }
    var left, right []int
    for _, i := range idx {
        if g.x[i][feature] <= threshold {
            left = append(left, i)
        } else {
            right = append(right, i)
        }
    }
    l := g.split(left, depth+1)
    r := g.split(right, depth+1)
    g.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: g.nodes[self].Value}
    return self
}

// best searches the candidate features for the split with the lowest summed squared error.
func (g *grower) best(idx []int) (int, float64, bool) {
    width := len(g.x[idx[0]])
    features := g.candidates(width)

    n := len(idx)
    var total float64
    for _, i := range idx {
        total += g.y[i]
    }

    bestFeature, bestThreshold := -1, 0.0
    bestScore := g.sse(idx)
    order := g.sorted[:n]
    for _, f := range features {
        copy(order, idx)
        slices.SortFunc(order, func(a, b int) int {
            va, vb := g.x[a][f], g.x[b][f]
            switch {
            case va < vb:
                return -1
            case va > vb:
                return 1
            }
            return a - b
        })

        var sumL, sqL float64
        var sqTotal float64
        for _, i := range order {
            sqTotal += g.y[i] * g.y[i]
        }
        for k := 0; k < n-1; k++ {
            v := g.y[order[k]]
            sumL += v
            sqL += v * v
            nl, nr := k+1, n-k-1
            if nl < g.p.minSamplesLeaf || nr < g.p.minSamplesLeaf {
                continue
            }
            lo, hi := g.x[order[k]][f], g.x[order[k+1]][f]
            if lo == hi {
                continue
            }
            sumR := total - sumL
            sqR := sqTotal - sqL
            score := (sqL - sumL*sumL/float64(nl)) + (sqR - sumR*sumR/float64(nr))
            if score < bestScore-1e-12 {
                bestScore = score
                bestFeature = f
                bestThreshold = lo + (hi-lo)/2
            }
        }
    }
    return bestFeature, bestThreshold, bestFeature >= 0
}

// candidates returns the feature indexes considered at a node, in ascending order.
func (g *grower) candidates(width int) []int {
    k := g.p.maxFeatures
    if k <= 0 || k >= width {
        all := make([]int, width)
        for i := range all {
            all[i] = i
        }
        return all
    }
    picked := g.rng.Perm(width)[:k]
    slices.Sort(picked)
    return picked
}

func (g *grower) mean(idx []int) float64 {
    if len(idx) == 0 {
        return 0
    }
    var s float64
    for _, i := range idx {
        s += g.y[i]
    }
    return s / float64(len(idx))
}

func (g *grower) sse(idx []int) float64 {
    m := g.mean(idx)
    var s float64
    for _, i := range idx {
        d := g.y[i] - m
        s += d * d
    }
    return s
}

func (g *grower) pure(idx []int) bool {
    first := g.y[idx[0]]
    for _, i := range idx[1:] {
        if g.y[i] != first {
            return false
        }
    }
    return true
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
    i := 0
    for {
        n := t.Nodes[i]
        if n.Feature == leaf {
            return n.Value
        }
        if x[n.Feature] <= n.Threshold {
            i = n.Left
        } else {
            i = n.Right
        }
    }
}

// Depth is the longest root to leaf path.
func (t *Tree) Depth() int {
    var walk func(i int) int
    walk = func(i int) int {
        n := t.Nodes[i]
        if n.Feature == leaf {
            return 0
        }
        return 1 + max(walk(n.Left), walk(n.Right))
    }
    if len(t.Nodes) == 0 {
        return 0
    }
    return walk(0)
}
