// Package dataset discovers dataset files under a corpus root and parses
// them into RawTables whose last column is the classification target.
package dataset

import (
	"strconv"
)

// TargetName is the name given to the last column of every loaded table.
const TargetName = "target"

// Kind is the declared storage type of a column.
type Kind int

const (
	Numeric Kind = iota
	Integer
	Nominal
	String
	Date
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Integer:
		return "integer"
	case Nominal:
		return "nominal"
	case String:
		return "string"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of this kind are stored as floats.
func (k Kind) IsNumeric() bool {
	return k == Numeric || k == Integer
}

// Column is one named column. Numeric kinds use Num, all others use Str;
// Missing marks absent cells in either representation.
type Column struct {
	Name    string
	Kind    Kind
	Levels  []string // declared categories of a Nominal column
	Num     []float64
	Str     []string
	Missing []bool
}

// NewColumn allocates a column of kind with room for n values.
func NewColumn(name string, kind Kind, levels []string, n int) Column {
	c := Column{Name: name, Kind: kind, Levels: levels}
	if kind.IsNumeric() {
		c.Num = make([]float64, 0, n)
	} else {
		c.Str = make([]string, 0, n)
	}
	c.Missing = make([]bool, 0, n)
	return c
}

// Len returns the number of cells.
func (c *Column) Len() int {
	return len(c.Missing)
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// AppendNum appends a numeric cell.
func (c *Column) AppendNum(v float64, missing bool) {
	c.Num = append(c.Num, v)
	c.Missing = append(c.Missing, missing)
}

// AppendStr appends a categorical cell.
func (c *Column) AppendStr(v string, missing bool) {
	c.Str = append(c.Str, v)
	c.Missing = append(c.Missing, missing)
}

// StringAt renders cell i as text, "" when missing.
func (c *Column) StringAt(i int) string {
	if c.Missing[i] {
		return ""
	}
	if c.Kind.IsNumeric() {
		return strconv.FormatFloat(c.Num[i], 'g', -1, 64)
	}
	return c.Str[i]
}

// RawTable is a parsed dataset: feature columns in file order plus the
// target column (the file's last column, renamed to TargetName).
type RawTable struct {
	Source   string
	Relation string
	Features []Column
	Target   Column
}

// Rows returns the number of records.
func (t *RawTable) Rows() int {
	return t.Target.Len()
}

// Labels returns the target column as strings, "" for missing labels.
func (t *RawTable) Labels() []string {
	labels := make([]string, t.Target.Len())
	for i := range labels {
		labels[i] = t.Target.StringAt(i)
	}
	return labels
}
