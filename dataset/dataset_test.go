package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

const weatherARFF = `% classic toy set
@relation weather

@attribute outlook {sunny, overcast, rainy}
@attribute temperature numeric
@attribute humidity integer
@attribute 'wind speed' real
@attribute play {yes, no}

@data
sunny,85,85,?,no
overcast,83,86,3.5,yes
'rainy',70,96,1.25,yes
?,68,80,2,yes
`

func TestDiscoverSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"b/zoo.arff",
		"a/iris.arff",
		"a/nested/credit.arff",
		"readme.txt",
		"c.arff.bak",
	} {
		writeFile(t, filepath.Join(root, p), weatherARFF)
	}

	files, err := Discover(root, "arff")
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
		assert.Equal(t, FormatARFF, f.Format)
	}
	// substring match on the marker keeps c.arff.bak, as the corpus tooling always has
	assert.Equal(t, []string{"a/iris.arff", "a/nested/credit.arff", "b/zoo.arff", "c.arff.bak"}, got)

	again, err := Discover(root, ".arff")
	require.NoError(t, err)
	assert.Equal(t, files, again, "discovery must be deterministic")
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), "arff")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestLoadARFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.arff")
	writeFile(t, path, weatherARFF)

	table, err := Load(File{Path: path, Format: FormatARFF})
	require.NoError(t, err)

	assert.Equal(t, "weather", table.Relation)
	assert.Equal(t, 4, table.Rows())
	require.Len(t, table.Features, 4)
	assert.Equal(t, TargetName, table.Target.Name)
	assert.Equal(t, []string{"no", "yes", "yes", "yes"}, table.Labels())

	outlook := table.Features[0]
	assert.Equal(t, Nominal, outlook.Kind)
	assert.Equal(t, []string{"sunny", "overcast", "rainy"}, outlook.Levels)
	assert.Equal(t, "rainy", outlook.Str[2])
	assert.Equal(t, 1, outlook.MissingCount())

	assert.Equal(t, Numeric, table.Features[1].Kind)
	assert.Equal(t, Integer, table.Features[2].Kind)

	wind := table.Features[3]
	assert.Equal(t, "wind speed", wind.Name)
	assert.True(t, wind.Missing[0])
	assert.InDelta(t, 1.25, wind.Num[2], 1e-12)
}

func TestLoadARFFErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no data section", "@relation x\n@attribute a numeric\n"},
		{"bad number", "@relation x\n@attribute a numeric\n@attribute c {p,q}\n@data\nabc,p\n"},
		{"undeclared level", "@relation x\n@attribute a numeric\n@attribute c {p,q}\n@data\n1,r\n"},
		{"wrong arity", "@relation x\n@attribute a numeric\n@attribute c {p,q}\n@data\n1\n"},
		{"sparse", "@relation x\n@attribute a numeric\n@attribute c {p,q}\n@data\n{0 1, 1 p}\n"},
		{"unknown type", "@relation x\n@attribute a relational\n@data\n"},
		{"garbage header", "hello world\n"},
		{"no rows", "@relation x\n@attribute a numeric\n@attribute c {p,q}\n@data\n"},
		{"unterminated quote", "@relation x\n@attribute a string\n@attribute c {p,q}\n@data\n'abc,p\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.arff")
			writeFile(t, path, tt.body)

			_, err := Load(File{Path: path, Format: FormatARFF})
			require.Error(t, err)
			var loadErr *errors.LoadError
			require.True(t, errors.As(err, &loadErr), "got %T: %v", err, err)
			assert.Equal(t, path, loadErr.Path)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toy.csv")
	writeFile(t, path, "colour,size,label\nred,1.5,a\nblue,?,b\n,2,a\n")

	files, err := Discover(filepath.Dir(path), "csv")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FormatCSV, files[0].Format)

	table, err := Load(files[0])
	require.NoError(t, err)
	assert.Equal(t, 3, table.Rows())
	assert.Equal(t, Nominal, table.Features[0].Kind)
	assert.Equal(t, []string{"red", "blue"}, table.Features[0].Levels)
	assert.True(t, table.Features[0].Missing[2])
	assert.Equal(t, Numeric, table.Features[1].Kind)
	assert.True(t, table.Features[1].Missing[1])
	assert.Equal(t, []string{"a", "b", "a"}, table.Labels())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(File{Path: filepath.Join(t.TempDir(), "gone.arff"), Format: FormatARFF})
	assert.True(t, errors.IsFatal(err))
}

func TestNumericTargetLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "num.arff")
	writeFile(t, path, "@relation n\n@attribute a numeric\n@attribute class numeric\n@data\n1,0\n2,1.5\n")

	table, err := Load(File{Path: path, Format: FormatARFF})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1.5"}, table.Labels())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
