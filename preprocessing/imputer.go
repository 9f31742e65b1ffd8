// Package preprocessing turns a dataset.RawTable into a purely numeric
// feature matrix: missing cells are imputed by sampling observed values and
// categorical columns are expanded into indicator columns.
package preprocessing

import (
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/treebench/dataset"
	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// RandomImputer fills missing cells with values drawn uniformly, with
// replacement, from the column's present values. This keeps the column's
// empirical marginal distribution.
type RandomImputer struct {
	rng *rand.Rand
}

// NewRandomImputer creates an imputer drawing from a PCG source seeded with
// seed. A zero seed draws the seed from the clock, so repeated runs produce
// different matrices.
func NewRandomImputer(seed uint64) *RandomImputer {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomImputer{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Impute returns a copy of col with no missing cells. The input is not
// modified. A column with no present value fails with ImputationError.
func (imp *RandomImputer) Impute(col *dataset.Column) (dataset.Column, error) {
	n := col.Len()
	present := make([]int, 0, n)
	for i, m := range col.Missing {
		if !m {
			present = append(present, i)
		}
	}
	if len(present) == 0 {
		return dataset.Column{}, errors.NewImputationError(col.Name, n)
	}

	out := dataset.Column{
		Name:    col.Name,
		Kind:    col.Kind,
		Levels:  col.Levels,
		Missing: make([]bool, n),
	}
	if len(present) == n {
		out.Num = col.Num
		out.Str = col.Str
		return out, nil
	}

	if col.Kind.IsNumeric() {
		out.Num = make([]float64, n)
		copy(out.Num, col.Num)
		for i, m := range col.Missing {
			if m {
				out.Num[i] = col.Num[present[imp.rng.IntN(len(present))]]
			}
		}
		return out, nil
	}

	out.Str = make([]string, n)
	copy(out.Str, col.Str)
	for i, m := range col.Missing {
		if m {
			out.Str[i] = col.Str[present[imp.rng.IntN(len(present))]]
		}
	}
	return out, nil
}
