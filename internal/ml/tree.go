package ml

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// TreeParams bounds tree growth.
type TreeParams struct {
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
	// MaxFeatures is the number of features tried per split; zero means all.
	MaxFeatures int `json:"max_features,omitempty"`
}

// DefaultTreeParams matches the pipeline's tree settings.
func DefaultTreeParams() TreeParams {
	return TreeParams{MaxDepth: 6, MinSamplesSplit: 10, MinSamplesLeaf: 5}
}

// Node is one tree node. Leaves have Feature -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	// Value is the weighted share of positive samples reaching the node.
	Value float64 `json:"v"`
}

// Tree is a CART classifier split on weighted Gini impurity.
type Tree struct {
	Params     TreeParams `json:"params"`
	Seed       uint64     `json:"seed"`
	Width      int        `json:"width"`
	Nodes      []Node     `json:"nodes"`
	Importance []float64  `json:"importance"`
}

// NewTree returns an untrained tree with the pipeline's settings.
func NewTree(seed uint64) *Tree {
	return &Tree{Params: DefaultTreeParams(), Seed: seed}
}

func (t *Tree) Kind() Kind { return KindTree }

// Fit grows the tree on X with balanced class weights.
func (t *Tree) Fit(X *mat.Dense, y []float64) error {
	rows, _ := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("tree: %d rows but %d targets", rows, len(y))
	}
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	t.fit(Rows(X), y, BalancedWeights(y), idx, rand.New(rand.NewPCG(t.Seed, t.Seed)))
	return nil
}

type grower struct {
	t     *Tree
	rows  [][]float64
	y     []float64
	w     []float64
	r     *rand.Rand
	feats []int
}

func (t *Tree) fit(rows [][]float64, y, w []float64, idx []int, r *rand.Rand) {
	nf := len(rows[0])
	t.Width = nf
	t.Nodes = t.Nodes[:0]
	t.Importance = make([]float64, nf)
	g := &grower{t: t, rows: rows, y: y, w: w, r: r, feats: make([]int, nf)}
	for i := range g.feats {
		g.feats[i] = i
	}
	g.grow(idx, 0)
	if s := floats.Sum(t.Importance); s > 0 {
		floats.Scale(1/s, t.Importance)
	}
}

func gini(pos, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := pos / total
	return 2 * p * (1 - p)
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	at        int // rows sorted by feature; left is [:at]
	order     []int
}

// grow appends the subtree for idx and returns its node index.
func (g *grower) grow(idx []int, depth int) int {
	var pos, total float64
	for _, i := range idx {
		total += g.w[i]
		pos += g.w[i] * g.y[i]
	}
	node := len(g.t.Nodes)
	value := 0.0
	if total > 0 {
		value = pos / total
	}
	g.t.Nodes = append(g.t.Nodes, Node{Feature: -1, Value: value})

	p := g.t.Params
	if depth >= p.MaxDepth || len(idx) < p.MinSamplesSplit || pos == 0 || pos == total {
		return node
	}

	best, ok := g.bestSplit(idx, pos, total)
	if !ok {
		return node
	}
	g.t.Importance[best.feature] += best.gain

	left := append([]int(nil), best.order[:best.at]...)
	right := append([]int(nil), best.order[best.at:]...)
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.t.Nodes[node] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r, Value: value}
	return node
}

func (g *grower) candidates() []int {
	k := g.t.Params.MaxFeatures
	if k <= 0 || k >= len(g.feats) {
		return g.feats
	}
	g.r.Shuffle(len(g.feats), func(i, j int) { g.feats[i], g.feats[j] = g.feats[j], g.feats[i] })
	return g.feats[:k]
}

func (g *grower) bestSplit(idx []int, pos, total float64) (split, bool) {
	parent := total * gini(pos, total)
	minLeaf := max(1, g.t.Params.MinSamplesLeaf)
	var best split
	found := false

	order := make([]int, len(idx))
	for _, f := range g.candidates() {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return g.rows[order[a]][f] < g.rows[order[b]][f] })

		var lPos, lTot float64
		for k := 1; k < len(order); k++ {
			prev := order[k-1]
			lTot += g.w[prev]
			lPos += g.w[prev] * g.y[prev]
			if k < minLeaf || len(order)-k < minLeaf {
				continue
			}
			a, b := g.rows[prev][f], g.rows[order[k]][f]
			if a == b {
				continue
			}
			rTot, rPos := total-lTot, pos-lPos
			gain := parent - lTot*gini(lPos, lTot) - rTot*gini(rPos, rTot)
			if gain > 1e-12 && (!found || gain > best.gain) {
				best = split{feature: f, threshold: (a + b) / 2, gain: gain, at: k, order: append([]int(nil), order...)}
				found = true
			}
		}
	}
	return best, found
}

func (t *Tree) leaf(x []float64) float64 {
	n := 0
	for t.Nodes[n].Feature >= 0 {
		nd := t.Nodes[n]
		if x[nd.Feature] <= nd.Threshold {
			n = nd.Left
		} else {
			n = nd.Right
		}
	}
	return t.Nodes[n].Value
}

// PredictProba returns the leaf positive share for each row.
func (t *Tree) PredictProba(X mat.Matrix) []float64 {
	rows, cols := X.Dims()
	out := make([]float64, rows)
	x := make([]float64, cols)
	for i := range out {
		mat.Row(x, i, X)
		out[i] = t.leaf(x)
	}
	return out
}

// FeatureImportance returns the normalized total Gini decrease per feature.
func (t *Tree) FeatureImportance() []float64 {
	return append([]float64(nil), t.Importance...)
}

func (t *Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if t.Width != width {
		return fmt.Errorf("tree expects %d features, want %d", t.Width, width)
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= width || n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("tree node %d malformed", i)
		}
	}
	return nil
}
