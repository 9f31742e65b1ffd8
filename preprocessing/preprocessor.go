package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/dataset"
	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// Result is the preprocessed form of a RawTable.
type Result struct {
	// X has one row per record and one column per numeric feature or
	// indicator column, in original feature order.
	X *mat.Dense
	// FeatureNames names the columns of X; indicators are "<column>=<category>".
	FeatureNames []string
	// Labels is the target column, unmodified.
	Labels []string
}

// Preprocessor converts RawTables with a seeded RandomImputer.
type Preprocessor struct {
	imputer *RandomImputer
	encoder OneHotEncoder
}

// NewPreprocessor creates a Preprocessor whose imputation draws from seed.
// See NewRandomImputer for the meaning of a zero seed.
func NewPreprocessor(seed uint64) *Preprocessor {
	return &Preprocessor{imputer: NewRandomImputer(seed)}
}

type plannedColumn struct {
	col        dataset.Column
	categories []string // nil for numeric columns
}

// Transform imputes and encodes every feature column of table. The target
// column is returned unchanged as Labels; a missing label is a ValueError.
func (p *Preprocessor) Transform(table *dataset.RawTable) (*Result, error) {
	n := table.Rows()
	if n == 0 {
		return nil, errors.NewValueError("Preprocessor.Transform", "table has no rows")
	}
	if table.Target.MissingCount() > 0 {
		return nil, errors.NewValueError("Preprocessor.Transform", "target column has missing labels")
	}

	plan := make([]plannedColumn, 0, len(table.Features))
	width := 0
	for i := range table.Features {
		col, err := p.imputer.Impute(&table.Features[i])
		if err != nil {
			return nil, err
		}
		pc := plannedColumn{col: col}
		if col.Kind.IsNumeric() {
			width++
		} else {
			pc.categories = p.encoder.Categories(&col)
			width += len(pc.categories)
		}
		plan = append(plan, pc)
	}
	if width == 0 {
		return nil, errors.NewValueError("Preprocessor.Transform", "no feature columns")
	}

	// Fill the row-major backing slice directly so X is built in one pass.
	data := make([]float64, n*width)
	names := make([]string, 0, width)
	offset := 0
	for _, pc := range plan {
		if pc.categories == nil {
			for i, v := range pc.col.Num {
				data[i*width+offset] = v
			}
			names = append(names, pc.col.Name)
			offset++
			continue
		}
		idx := p.encoder.Indices(&pc.col, pc.categories)
		for i, c := range idx {
			data[i*width+offset+c] = 1
		}
		for _, c := range pc.categories {
			names = append(names, pc.col.Name+"="+c)
		}
		offset += len(pc.categories)
	}

	X := mat.NewDense(n, width, data)
	if err := errors.CheckMatrix("Preprocessor.Transform", X); err != nil {
		return nil, err
	}
	return &Result{X: X, FeatureNames: names, Labels: table.Labels()}, nil
}
