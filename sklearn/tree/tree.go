// Package tree implements a CART decision tree classifier following
// scikit-learn's DecisionTreeClassifier: binary threshold splits on numeric
// features, gini or entropy impurity, and a best or random splitter.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/core/model"
	"github.com/YuminosukeSato/treebench/core/parallel"
	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// featureThreshold is the minimum gap between two feature values for a
// threshold to be placed between them.
const featureThreshold = 1e-7

const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"

	SplitterBest   = "best"
	SplitterRandom = "random"
)

// DecisionTreeClassifier is a CART classifier over class indices.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion         string
	splitter          string
	maxDepth          int // 0 means unlimited
	minSamplesSplit   int
	minSamplesLeaf    int
	randomState       int64
	nClasses          int
	parallelThreshold int

	root               *node
	fittedClasses      int
	featureImportances []float64
}

type node struct {
	feature   int // -1 for leaves
	threshold float64
	left      *node
	right     *node
	counts    []float64
	impurity  float64
	nSamples  int
}

func (n *node) isLeaf() bool {
	return n.feature < 0
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure ("gini" or "entropy").
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithSplitter sets the split strategy ("best" or "random").
func WithSplitter(splitter string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.splitter = splitter
	}
}

// WithMaxDepth limits the tree depth. 0 grows until leaves are pure.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithRandomState seeds the feature permutation and random thresholds.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// WithNClasses fixes the size of the label space so that models trained on
// different folds emit probabilities of the same width.
func WithNClasses(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.nClasses = n
	}
}

// WithParallelThreshold enables concurrent best-split search when the number
// of features exceeds threshold. 0 keeps the search sequential.
func WithParallelThreshold(threshold int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.parallelThreshold = threshold
	}
}

// NewDecisionTreeClassifier creates a classifier with scikit-learn defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		splitter:        SplitterBest,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != CriterionGini && dt.criterion != CriterionEntropy {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.splitter != SplitterBest && dt.splitter != SplitterRandom {
		return errors.NewValidationError("splitter", "must be 'best' or 'random'", dt.splitter)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit builds the tree from X and class indices y.
func (dt *DecisionTreeClassifier) Fit(X mat.Matrix, y []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if len(y) != rows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", rows, len(y), 0)
	}

	nClasses := dt.nClasses
	for i, label := range y {
		if label < 0 {
			return errors.NewValueError("DecisionTreeClassifier.Fit", fmt.Sprintf("negative class index %d at row %d", label, i))
		}
		if label+1 > nClasses {
			nClasses = label + 1
		}
	}

	dt.state.Reset()

	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = mat.Col(nil, j, X)
	}

	b := &builder{
		dt:          dt,
		columns:     columns,
		y:           y,
		nClasses:    nClasses,
		importances: make([]float64, cols),
		rng:         rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState))),
	}

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	dt.root = b.build(indices, 0)
	dt.fittedClasses = nClasses

	if total := floats.Sum(b.importances); total > 0 {
		floats.Scale(1/total, b.importances)
	}
	dt.featureImportances = b.importances

	dt.state.SetFitted(cols, rows)
	return nil
}

// Predict returns the most probable class index for each row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) ([]int, error) {
	rows, cols := X.Dims()
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "Predict", cols); err != nil {
		return nil, err
	}

	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		out[i] = floats.MaxIdx(dt.leaf(X, i).counts)
	}
	return out, nil
}

// PredictProba returns the class distribution of the leaf reached by each row.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba", cols); err != nil {
		return nil, err
	}

	proba := mat.NewDense(rows, dt.fittedClasses, nil)
	for i := 0; i < rows; i++ {
		leaf := dt.leaf(X, i)
		total := floats.Sum(leaf.counts)
		for c, count := range leaf.counts {
			proba.Set(i, c, count/total)
		}
	}
	return proba, nil
}

// Score returns the mean accuracy on X and y. It returns 0 on error.
func (dt *DecisionTreeClassifier) Score(X mat.Matrix, y []int) float64 {
	pred, err := dt.Predict(X)
	if err != nil || len(pred) != len(y) || len(y) == 0 {
		return 0
	}
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// NClasses returns the width of the label space seen during fitting, or the
// configured width before fitting.
func (dt *DecisionTreeClassifier) NClasses() int {
	if dt.state.IsFitted() {
		return dt.fittedClasses
	}
	return dt.nClasses
}

// GetFeatureImportances returns the normalised total impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(dt.featureImportances))
	copy(out, dt.featureImportances)
	return out
}

// GetDepth returns the depth of the fitted tree. A single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	var depth func(n *node) int
	depth = func(n *node) int {
		if n == nil || n.isLeaf() {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(dt.root)
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	var leaves func(n *node) int
	leaves = func(n *node) int {
		if n == nil {
			return 0
		}
		if n.isLeaf() {
			return 1
		}
		return leaves(n.left) + leaves(n.right)
	}
	return leaves(dt.root)
}

// GetParams returns the hyperparameters using scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"splitter":          dt.splitter,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters by scikit-learn name.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			dt.criterion, ok = value.(string)
		case "splitter":
			dt.splitter, ok = value.(string)
		case "max_depth":
			dt.maxDepth, ok = value.(int)
		case "min_samples_split":
			dt.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf, ok = value.(int)
		case "random_state":
			var seed int
			if seed, ok = value.(int); ok {
				dt.randomState = int64(seed)
			} else {
				dt.randomState, ok = value.(int64)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return dt.validate()
}

func (dt *DecisionTreeClassifier) leaf(X mat.Matrix, row int) *node {
	n := dt.root
	for !n.isLeaf() {
		if X.At(row, n.feature) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
}

type builder struct {
	dt          *DecisionTreeClassifier
	columns     [][]float64
	y           []int
	nClasses    int
	importances []float64
	rng         *rand.Rand
}

func (b *builder) build(indices []int, depth int) *node {
	counts := b.classCounts(indices)
	n := len(indices)
	nd := &node{
		feature:  -1,
		counts:   counts,
		impurity: b.impurity(counts, float64(n)),
		nSamples: n,
	}

	dt := b.dt
	if (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf ||
		nd.impurity <= 0 {
		return nd
	}

	var s split
	var ok bool
	if dt.splitter == SplitterRandom {
		s, ok = b.randomSplit(indices, nd.impurity)
	} else {
		s, ok = b.bestSplit(indices, nd.impurity)
	}
	if !ok {
		return nd
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	col := b.columns[s.feature]
	for _, idx := range indices {
		if col[idx] <= s.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	nd.feature = s.feature
	nd.threshold = s.threshold
	nd.left = b.build(left, depth+1)
	nd.right = b.build(right, depth+1)
	b.importances[s.feature] += float64(n)*nd.impurity -
		float64(len(left))*nd.left.impurity -
		float64(len(right))*nd.right.impurity
	return nd
}

// bestSplit scans every threshold of every feature. Features are searched
// concurrently above the parallel threshold; ties keep the lowest feature index.
func (b *builder) bestSplit(indices []int, parentImpurity float64) (split, bool) {
	nFeatures := len(b.columns)
	results := make([]split, nFeatures)
	found := make([]bool, nFeatures)

	threshold := b.dt.parallelThreshold
	if threshold <= 0 {
		threshold = nFeatures
	}
	parallel.ParallelizeWithThreshold(nFeatures, threshold, 0, func(start, end int) {
		for f := start; f < end; f++ {
			results[f], found[f] = b.bestSplitOnFeature(f, indices, parentImpurity)
		}
	})

	best := split{improvement: math.Inf(-1)}
	ok := false
	for f := range results {
		if found[f] && results[f].improvement > best.improvement {
			best = results[f]
			ok = true
		}
	}
	return best, ok
}

func (b *builder) bestSplitOnFeature(f int, indices []int, parentImpurity float64) (split, bool) {
	col := b.columns[f]
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return col[sorted[i]] < col[sorted[j]]
	})

	n := len(sorted)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := b.classCounts(sorted)
	minLeaf := b.dt.minSamplesLeaf

	best := split{feature: f, improvement: math.Inf(-1)}
	ok := false
	for i := 0; i < n-1; i++ {
		c := b.y[sorted[i]]
		leftCounts[c]++
		rightCounts[c]--

		lo, hi := col[sorted[i]], col[sorted[i+1]]
		if hi <= lo+featureThreshold {
			continue
		}
		nLeft := i + 1
		nRight := n - nLeft
		if nLeft < minLeaf || nRight < minLeaf {
			continue
		}

		improvement := b.improvement(parentImpurity, leftCounts, rightCounts, nLeft, nRight)
		if improvement > best.improvement {
			threshold := lo/2 + hi/2
			if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
				threshold = lo
			}
			best.threshold = threshold
			best.improvement = improvement
			ok = true
		}
	}
	return best, ok
}

// randomSplit draws one uniform threshold per non-constant feature, visiting
// features in random order, and keeps the best of those candidates.
func (b *builder) randomSplit(indices []int, parentImpurity float64) (split, bool) {
	order := b.rng.Perm(len(b.columns))
	minLeaf := b.dt.minSamplesLeaf

	best := split{improvement: math.Inf(-1)}
	ok := false
	for _, f := range order {
		col := b.columns[f]
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, idx := range indices {
			lo = math.Min(lo, col[idx])
			hi = math.Max(hi, col[idx])
		}
		if hi <= lo+featureThreshold {
			continue
		}

		threshold := lo + b.rng.Float64()*(hi-lo)
		if threshold == hi {
			threshold = lo
		}

		leftCounts := make([]float64, b.nClasses)
		rightCounts := make([]float64, b.nClasses)
		nLeft := 0
		for _, idx := range indices {
			if col[idx] <= threshold {
				leftCounts[b.y[idx]]++
				nLeft++
			} else {
				rightCounts[b.y[idx]]++
			}
		}
		nRight := len(indices) - nLeft
		if nLeft < minLeaf || nRight < minLeaf {
			continue
		}

		improvement := b.improvement(parentImpurity, leftCounts, rightCounts, nLeft, nRight)
		if improvement > best.improvement {
			best = split{feature: f, threshold: threshold, improvement: improvement}
			ok = true
		}
	}
	return best, ok
}

func (b *builder) improvement(parent float64, left, right []float64, nLeft, nRight int) float64 {
	n := float64(nLeft + nRight)
	wl := float64(nLeft) / n
	wr := float64(nRight) / n
	return parent - wl*b.impurity(left, float64(nLeft)) - wr*b.impurity(right, float64(nRight))
}

func (b *builder) classCounts(indices []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, idx := range indices {
		counts[b.y[idx]]++
	}
	return counts
}

func (b *builder) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if b.dt.criterion == CriterionEntropy {
		return entropy(counts, n)
	}
	return gini(counts, n)
}

func gini(counts []float64, n float64) float64 {
	sumSq := 0.0
	for _, c := range counts {
		p := c / n
		sumSq += p * p
	}
	return 1 - sumSq
}

func entropy(counts []float64, n float64) float64 {
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / n
			h -= p * math.Log2(p)
		}
	}
	return h
}
