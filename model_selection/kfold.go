// Package model_selection generates cross-validation fold assignments.
package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(y []string) (Folds, error)
	GetNSplits() int
}

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Folds is a full fold assignment. Every row index appears in exactly one
// TestIndices slice.
type Folds []Fold

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split assigns contiguous blocks of the (optionally shuffled) row order to folds.
// The first n%k folds receive one extra row.
func (kf *KFold) Split(y []string) (Folds, error) {
	n := len(y)
	if err := checkSplits("KFold", kf.NSplits, n); err != nil {
		return nil, err
	}

	order := identity(n)
	if kf.Shuffle {
		shuffle(order, kf.RandomSeed)
	}

	fold := make([]int, n)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits
	current := 0
	for i := 0; i < kf.NSplits; i++ {
		size := foldSize
		if i < remainder {
			size++
		}
		for _, idx := range order[current : current+size] {
			fold[idx] = i
		}
		current += size
	}
	return fromAssignment(fold, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split groups rows by class (classes in sorted order, rows in original or
// shuffled order within the whole set) and deals them round-robin over the
// folds, so each fold holds a near-equal share of every class.
func (skf *StratifiedKFold) Split(y []string) (Folds, error) {
	n := len(y)
	if err := checkSplits("StratifiedKFold", skf.NSplits, n); err != nil {
		return nil, err
	}

	order := identity(n)
	if skf.Shuffle {
		shuffle(order, skf.RandomSeed)
	}

	byClass := make(map[string][]int)
	for _, idx := range order {
		byClass[y[idx]] = append(byClass[y[idx]], idx)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	fold := make([]int, n)
	pos := 0
	for _, c := range classes {
		for _, idx := range byClass[c] {
			fold[idx] = pos % skf.NSplits
			pos++
		}
	}
	return fromAssignment(fold, skf.NSplits), nil
}

// Validate reports whether the folds partition the rows [0, n).
func (f Folds) Validate(n int) error {
	seen := make([]int, n)
	for i, fold := range f {
		if len(fold.TrainIndices)+len(fold.TestIndices) != n {
			return errors.NewValueError("Folds.Validate", fmt.Sprintf("fold %d covers %d rows, want %d", i, len(fold.TrainIndices)+len(fold.TestIndices), n))
		}
		for _, idx := range fold.TestIndices {
			if idx < 0 || idx >= n {
				return errors.NewValueError("Folds.Validate", fmt.Sprintf("fold %d: test index %d out of range", i, idx))
			}
			seen[idx]++
		}
	}
	for idx, count := range seen {
		if count != 1 {
			return errors.NewValueError("Folds.Validate", fmt.Sprintf("row %d is held out %d times", idx, count))
		}
	}
	return nil
}

// Subset copies the given rows of X into a new dense matrix.
func Subset(X mat.Matrix, indices []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

// Select returns the given elements of s.
func Select[T any](s []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = s[idx]
	}
	return out
}

func checkSplits(op string, k, n int) error {
	if k < 2 {
		return errors.NewValueError(op, fmt.Sprintf("n_splits=%d must be at least 2", k))
	}
	if k > n {
		return errors.NewValueError(op, fmt.Sprintf("n_splits=%d cannot be greater than the number of samples n=%d", k, n))
	}
	return nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func shuffle(indices []int, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

// fromAssignment builds train/test index lists (ascending) from a per-row fold number.
func fromAssignment(fold []int, k int) Folds {
	folds := make(Folds, k)
	for idx, f := range fold {
		for i := range folds {
			if i == f {
				folds[i].TestIndices = append(folds[i].TestIndices, idx)
			} else {
				folds[i].TrainIndices = append(folds[i].TrainIndices, idx)
			}
		}
	}
	return folds
}
