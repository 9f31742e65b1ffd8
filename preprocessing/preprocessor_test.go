package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treebench/dataset"
	"github.com/YuminosukeSato/treebench/pkg/errors"
)

func numColumn(name string, kind dataset.Kind, values []float64, missing ...int) dataset.Column {
	c := dataset.NewColumn(name, kind, nil, len(values))
	miss := make(map[int]bool)
	for _, m := range missing {
		miss[m] = true
	}
	for i, v := range values {
		c.AppendNum(v, miss[i])
	}
	return c
}

func strColumn(name string, levels []string, values ...string) dataset.Column {
	c := dataset.NewColumn(name, dataset.Nominal, levels, len(values))
	for _, v := range values {
		c.AppendStr(v, v == "")
	}
	return c
}

func sampleTable() *dataset.RawTable {
	return &dataset.RawTable{
		Features: []dataset.Column{
			numColumn("age", dataset.Integer, []float64{30, 0, 45, 50, 0, 61}, 1, 4),
			strColumn("colour", []string{"red", "green", "blue"}, "red", "", "blue", "red", "blue", ""),
			numColumn("score", dataset.Numeric, []float64{0.5, 0.25, 0.75, 1, 0, 0.1}),
			strColumn("shape", nil, "circle", "square", "circle", "square", "circle", "circle"),
		},
		Target: strColumn(dataset.TargetName, nil, "a", "b", "a", "b", "a", "b"),
	}
}

func TestTransformShapeAndNoMissing(t *testing.T) {
	table := sampleTable()
	res, err := NewPreprocessor(7).Transform(table)
	require.NoError(t, err)

	rows, cols := res.X.Dims()
	assert.Equal(t, table.Rows(), rows)
	// age + colour{red, blue} + score + shape{circle, square}
	assert.Equal(t, 6, cols)
	assert.Equal(t, []string{"age", "colour=red", "colour=blue", "score", "shape=circle", "shape=square"}, res.FeatureNames)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.False(t, math.IsNaN(res.X.At(i, j)))
		}
	}
}

func TestTransformIndicatorsSumToOne(t *testing.T) {
	res, err := NewPreprocessor(3).Transform(sampleTable())
	require.NoError(t, err)

	groups := [][]int{{1, 2}, {4, 5}}
	rows, _ := res.X.Dims()
	for _, g := range groups {
		for i := 0; i < rows; i++ {
			sum := 0.0
			for _, j := range g {
				v := res.X.At(i, j)
				assert.True(t, v == 0 || v == 1)
				sum += v
			}
			assert.Equal(t, 1.0, sum, "row %d group %v", i, g)
		}
	}
}

func TestTransformNumericPassThroughAndImputedFromPool(t *testing.T) {
	res, err := NewPreprocessor(11).Transform(sampleTable())
	require.NoError(t, err)

	score := []float64{0.5, 0.25, 0.75, 1, 0, 0.1}
	for i, v := range score {
		assert.Equal(t, v, res.X.At(i, 3))
	}

	pool := map[float64]bool{30: true, 45: true, 50: true, 61: true}
	for _, i := range []int{1, 4} {
		assert.True(t, pool[res.X.At(i, 0)], "row %d imputed with %v", i, res.X.At(i, 0))
	}
	assert.Equal(t, 30.0, res.X.At(0, 0))
}

func TestTransformLabelsUnchanged(t *testing.T) {
	table := sampleTable()
	res, err := NewPreprocessor(1).Transform(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, res.Labels)
}

func TestTransformSeededIsReproducible(t *testing.T) {
	a, err := NewPreprocessor(42).Transform(sampleTable())
	require.NoError(t, err)
	b, err := NewPreprocessor(42).Transform(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, a.X.RawMatrix().Data, b.X.RawMatrix().Data)
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	table := sampleTable()
	_, err := NewPreprocessor(5).Transform(table)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Features[0].MissingCount())
	assert.Equal(t, "", table.Features[1].Str[1])
}

func TestTransformAllMissingColumn(t *testing.T) {
	table := sampleTable()
	table.Features = append(table.Features, numColumn("empty", dataset.Numeric, make([]float64, 6), 0, 1, 2, 3, 4, 5))

	_, err := NewPreprocessor(1).Transform(table)
	require.Error(t, err)
	var impErr *errors.ImputationError
	require.True(t, errors.As(err, &impErr))
	assert.Equal(t, "empty", impErr.Column)
}

func TestTransformMissingLabel(t *testing.T) {
	table := sampleTable()
	table.Target = strColumn(dataset.TargetName, nil, "a", "", "a", "b", "a", "b")

	_, err := NewPreprocessor(1).Transform(table)
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}

func TestLabelEncoder(t *testing.T) {
	enc := NewLabelEncoder([]string{"yes", "no", "maybe", "no"})
	assert.Equal(t, []string{"maybe", "no", "yes"}, enc.Classes)
	idx := enc.Transform([]string{"no", "yes", "unknown"})
	assert.Equal(t, []int{1, 2, -1}, idx)
	assert.Equal(t, []string{"no", "yes", ""}, enc.InverseTransform(idx))
}

func TestOneHotCategoriesOrder(t *testing.T) {
	col := strColumn("c", []string{"z", "y", "x"}, "x", "q", "z", "p", "")
	assert.Equal(t, []string{"z", "x", "p", "q"}, OneHotEncoder{}.Categories(&col))
}
