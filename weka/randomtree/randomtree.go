// Package randomtree implements a random-attribute decision tree in the style
// of Weka's RandomTree: at every node K randomly chosen attributes are
// evaluated by information gain and the best binary split among them is kept.
package randomtree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/core/model"
	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// Tree is a RandomTree classifier over class indices.
type Tree struct {
	state *model.StateManager

	kValue   int // 0 selects int(log2(features)) + 1
	maxDepth int // 0 means unlimited
	minNum   int
	seed     int64
	nClasses int

	root        *node
	usedK       int
	classesSeen int
}

// small is the minimum information gain accepted for a split.
const small = 1e-6

type node struct {
	attribute   int // -1 for leaves
	splitPoint  float64
	left, right *node
	dist        []float64
}

// Option configures a Tree.
type Option func(*Tree)

// WithKValue sets the number of attributes examined at each node.
func WithKValue(k int) Option {
	return func(t *Tree) { t.kValue = k }
}

// WithMaxDepth limits the tree depth. 0 is unlimited.
func WithMaxDepth(depth int) Option {
	return func(t *Tree) { t.maxDepth = depth }
}

// WithMinNum sets the minimum number of instances per leaf.
func WithMinNum(n int) Option {
	return func(t *Tree) { t.minNum = n }
}

// WithSeed seeds attribute selection.
func WithSeed(seed int64) Option {
	return func(t *Tree) { t.seed = seed }
}

// WithNClasses fixes the width of the class distribution.
func WithNClasses(n int) Option {
	return func(t *Tree) { t.nClasses = n }
}

// New returns a Tree with Weka's defaults (-K 0 -M 1 -S 1 -depth 0).
func New(opts ...Option) *Tree {
	t := &Tree{
		state:  model.NewStateManager(),
		minNum: 1,
		seed:   1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit grows the tree on X and class indices y.
func (t *Tree) Fit(X mat.Matrix, y []int) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomTree.Fit")
	}
	if len(y) != rows {
		return errors.NewDimensionError("RandomTree.Fit", rows, len(y), 0)
	}
	if t.kValue < 0 || t.maxDepth < 0 || t.minNum < 1 {
		return errors.NewValidationError("RandomTree", "K and depth must be non-negative, minNum positive",
			fmt.Sprintf("K=%d depth=%d M=%d", t.kValue, t.maxDepth, t.minNum))
	}

	nClasses := t.nClasses
	for i, label := range y {
		if label < 0 {
			return errors.NewValueError("RandomTree.Fit", fmt.Sprintf("negative class index %d at row %d", label, i))
		}
		nClasses = max(nClasses, label+1)
	}

	k := t.kValue
	if k > cols {
		k = cols
	}
	if k < 1 {
		k = int(math.Log2(float64(cols))) + 1
	}

	t.state.Reset()

	g := &grower{
		tree:     t,
		data:     mat.DenseCopyOf(X),
		y:        y,
		k:        k,
		nClasses: nClasses,
		rng:      rand.New(rand.NewPCG(uint64(t.seed), uint64(t.seed))),
	}
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	t.root = g.grow(indices, 0)
	t.usedK = g.k
	t.classesSeen = nClasses

	t.state.SetFitted(cols, rows)
	return nil
}

// Predict returns the class with the largest leaf distribution for each row.
func (t *Tree) Predict(X mat.Matrix) ([]int, error) {
	rows, cols := X.Dims()
	if err := t.state.RequireFitted("RandomTree", "Predict", cols); err != nil {
		return nil, err
	}
	out := make([]int, rows)
	for i := range out {
		out[i] = floats.MaxIdx(t.leafDist(X, i))
	}
	return out, nil
}

// DistributionForInstance returns the normalised class distribution for one row.
func (t *Tree) DistributionForInstance(row []float64) ([]float64, error) {
	if err := t.state.RequireFitted("RandomTree", "DistributionForInstance", len(row)); err != nil {
		return nil, err
	}
	x := mat.NewDense(1, len(row), row)
	dist := append([]float64(nil), t.leafDist(x, 0)...)
	floats.Scale(1/floats.Sum(dist), dist)
	return dist, nil
}

// NClasses returns the width of the class distribution.
func (t *Tree) NClasses() int {
	if t.state.IsFitted() {
		return t.classesSeen
	}
	return t.nClasses
}

// KValue returns the number of attributes examined per node in the last fit.
func (t *Tree) KValue() int {
	return t.usedK
}

// Depth returns the depth of the fitted tree.
func (t *Tree) Depth() int {
	var depth func(n *node) int
	depth = func(n *node) int {
		if n == nil || n.attribute < 0 {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(t.root)
}

func (t *Tree) leafDist(X mat.Matrix, row int) []float64 {
	n := t.root
	for n.attribute >= 0 {
		if X.At(row, n.attribute) < n.splitPoint {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.dist
}

type grower struct {
	tree     *Tree
	data     *mat.Dense
	y        []int
	k        int
	nClasses int
	rng      *rand.Rand
}

type candidate struct {
	attribute  int
	splitPoint float64
	gain       float64
}

func (g *grower) grow(indices []int, depth int) *node {
	dist := make([]float64, g.nClasses)
	for _, idx := range indices {
		dist[g.y[idx]]++
	}
	nd := &node{attribute: -1, dist: dist}

	t := g.tree
	total := float64(len(indices))
	if total < 2*float64(t.minNum) ||
		floats.Max(dist) == total ||
		(t.maxDepth > 0 && depth >= t.maxDepth) {
		return nd
	}

	prior := entropy(dist)

	// Examine K attributes without replacement, continuing past K until one
	// with positive gain is found or every attribute has been tried.
	_, cols := g.data.Dims()
	window := g.rng.Perm(cols)
	best := candidate{attribute: -1}
	remaining := g.k
	gainFound := false
	for i := 0; i < len(window) && (remaining > 0 || !gainFound); i++ {
		remaining--
		c, ok := g.evaluate(window[i], indices, prior)
		if !ok {
			continue
		}
		if c.gain > small {
			gainFound = true
		}
		if best.attribute < 0 || c.gain > best.gain {
			best = c
		}
	}
	if best.attribute < 0 || best.gain <= small {
		return nd
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if g.data.At(idx, best.attribute) < best.splitPoint {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nd
	}

	nd.attribute = best.attribute
	nd.splitPoint = best.splitPoint
	nd.left = g.grow(left, depth+1)
	nd.right = g.grow(right, depth+1)
	return nd
}

// evaluate finds the split point of attribute a with the highest information gain.
func (g *grower) evaluate(a int, indices []int, prior float64) (candidate, bool) {
	sorted := append([]int(nil), indices...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return g.data.At(sorted[i], a) < g.data.At(sorted[j], a)
	})

	n := len(sorted)
	left := make([]float64, g.nClasses)
	right := make([]float64, g.nClasses)
	for _, idx := range sorted {
		right[g.y[idx]]++
	}

	minNum := g.tree.minNum
	best := candidate{attribute: a, gain: math.Inf(-1)}
	ok := false
	for i := 0; i < n-1; i++ {
		c := g.y[sorted[i]]
		left[c]++
		right[c]--

		lo := g.data.At(sorted[i], a)
		hi := g.data.At(sorted[i+1], a)
		if lo == hi {
			continue
		}
		nLeft := i + 1
		if nLeft < minNum || n-nLeft < minNum {
			continue
		}

		post := (float64(nLeft)*entropy(left) + float64(n-nLeft)*entropy(right)) / float64(n)
		if gain := prior - post; gain > best.gain {
			best.gain = gain
			best.splitPoint = (lo + hi) / 2
			ok = true
		}
	}
	return best, ok
}

func entropy(dist []float64) float64 {
	total := floats.Sum(dist)
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range dist {
		if c > 0 {
			p := c / total
			h -= p * math.Log2(p)
		}
	}
	return h
}
