package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/treebench/dataset"
)

// OneHotEncoder expands a categorical column into one indicator column per
// distinct category.
type OneHotEncoder struct{}

// Categories returns the distinct present values of col: declared levels
// that occur, in declaration order, followed by undeclared values sorted.
func (OneHotEncoder) Categories(col *dataset.Column) []string {
	seen := make(map[string]bool)
	for i, v := range col.Str {
		if !col.Missing[i] {
			seen[v] = true
		}
	}

	categories := make([]string, 0, len(seen))
	declared := make(map[string]bool, len(col.Levels))
	for _, l := range col.Levels {
		declared[l] = true
		if seen[l] {
			categories = append(categories, l)
		}
	}
	var extra []string
	for v := range seen {
		if !declared[v] {
			extra = append(extra, v)
		}
	}
	sort.Strings(extra)
	return append(categories, extra...)
}

// Indices maps every row of col to the position of its category in
// categories. Missing cells map to -1.
func (OneHotEncoder) Indices(col *dataset.Column, categories []string) []int {
	pos := make(map[string]int, len(categories))
	for i, c := range categories {
		pos[c] = i
	}
	idx := make([]int, col.Len())
	for i, v := range col.Str {
		if col.Missing[i] {
			idx[i] = -1
			continue
		}
		p, ok := pos[v]
		if !ok {
			p = -1
		}
		idx[i] = p
	}
	return idx
}

// LabelEncoder maps string labels to dense class indices in sorted order.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

// NewLabelEncoder learns the sorted distinct labels.
func NewLabelEncoder(labels []string) *LabelEncoder {
	set := make(map[string]bool)
	for _, l := range labels {
		set[l] = true
	}
	classes := make([]string, 0, len(set))
	for l := range set {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{Classes: classes, index: index}
}

// Transform maps labels to class indices; unknown labels map to -1.
func (e *LabelEncoder) Transform(labels []string) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		c, ok := e.index[l]
		if !ok {
			c = -1
		}
		out[i] = c
	}
	return out
}

// InverseTransform maps class indices back to labels.
func (e *LabelEncoder) InverseTransform(idx []int) []string {
	out := make([]string, len(idx))
	for i, c := range idx {
		if c >= 0 && c < len(e.Classes) {
			out[i] = e.Classes[c]
		}
	}
	return out
}
