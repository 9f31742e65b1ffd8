package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// Format tags a dataset file with the parser that reads it.
type Format string

const (
	FormatARFF Format = "arff"
	FormatCSV  Format = "csv"
)

// File is a discovered dataset file.
type File struct {
	Path   string
	Format Format
}

// Discover walks root recursively and returns every file whose name
// contains "."+ext, sorted lexicographically by path so dataset indices stay
// stable across runs.
func Discover(root, ext string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewLoadError(root, 0, "corpus root not accessible", err)
	}
	if !info.IsDir() {
		return nil, errors.NewLoadError(root, 0, "corpus root is not a directory", nil)
	}

	marker := "." + strings.TrimPrefix(ext, ".")
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && strings.Contains(d.Name(), marker) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewLoadError(root, 0, "walk corpus", err)
	}
	sort.Strings(paths)

	files := make([]File, len(paths))
	for i, p := range paths {
		files[i] = File{Path: p, Format: formatOf(p)}
	}
	return files, nil
}

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatARFF
}

// Load parses f into a RawTable. Any parse failure is a *errors.LoadError.
func Load(f File) (*RawTable, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.NewLoadError(f.Path, 0, "open", err)
	}
	defer fh.Close()

	var columns []Column
	var relation string
	switch f.Format {
	case FormatCSV:
		columns, err = parseCSV(f.Path, fh)
	default:
		relation, columns, err = parseARFF(f.Path, fh)
	}
	if err != nil {
		return nil, err
	}
	return newTable(f.Path, relation, columns)
}

func newTable(source, relation string, columns []Column) (*RawTable, error) {
	if len(columns) == 0 {
		return nil, errors.NewLoadError(source, 0, "no columns", nil)
	}
	n := columns[0].Len()
	for _, c := range columns {
		if c.Len() != n {
			return nil, errors.NewLoadError(source, 0, "column '"+c.Name+"' has a different row count", nil)
		}
	}
	if n == 0 {
		return nil, errors.NewLoadError(source, 0, "no data rows", nil)
	}

	target := columns[len(columns)-1]
	target.Name = TargetName
	return &RawTable{
		Source:   source,
		Relation: relation,
		Features: columns[:len(columns)-1],
		Target:   target,
	}, nil
}
