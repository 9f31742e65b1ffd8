package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// parseCSV reads a headed CSV file. A column whose present cells all parse
// as floats is Numeric, anything else is Nominal; empty and "?" cells are
// missing.
func parseCSV(path string, r io.Reader) ([]Column, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewLoadError(path, 1, "read header", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, errors.NewLoadError(path, line, "read row", err)
		}
		records = append(records, rec)
	}

	columns := make([]Column, len(header))
	for j, name := range header {
		kind := inferKind(records, j)
		col := NewColumn(strings.TrimSpace(name), kind, nil, len(records))
		seen := make(map[string]bool)
		for _, rec := range records {
			cell := strings.TrimSpace(rec[j])
			missing := cell == "" || cell == missingToken
			if kind.IsNumeric() {
				v := 0.0
				if !missing {
					v, _ = strconv.ParseFloat(cell, 64)
					missing = math.IsNaN(v)
				}
				col.AppendNum(v, missing)
				continue
			}
			col.AppendStr(cell, missing)
			if !missing && !seen[cell] {
				seen[cell] = true
				col.Levels = append(col.Levels, cell)
			}
		}
		columns[j] = col
	}
	return columns, nil
}

func inferKind(records [][]string, j int) Kind {
	present := 0
	for _, rec := range records {
		cell := strings.TrimSpace(rec[j])
		if cell == "" || cell == missingToken {
			continue
		}
		present++
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return Nominal
		}
	}
	if present == 0 {
		return Nominal
	}
	return Numeric
}
