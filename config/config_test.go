package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Harness.Folds)
	assert.Equal(t, uint64(1), cfg.Harness.Seed)
	assert.True(t, cfg.Harness.SharedFolds)
	assert.Equal(t, KindCART, cfg.Backends[0].Kind)
	assert.Equal(t, KindRandomTree, cfg.Backends[1].Kind)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
corpus:
  root: /data/openml
harness:
  folds: 5
  shared_folds: false
backends:
  - name: a
    kind: cart
    max_depth: 4
  - name: b
    kind: randomtree
    zero_division: nan
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/openml", cfg.Corpus.Root)
	assert.Equal(t, "arff", cfg.Corpus.Extension, "unspecified fields keep defaults")
	assert.Equal(t, 5, cfg.Harness.Folds)
	assert.False(t, cfg.Harness.SharedFolds)
	assert.Equal(t, "best", cfg.Backends[0].Splitter)
	assert.Equal(t, "gini", cfg.Backends[0].Criterion)
	assert.Equal(t, 1, cfg.Backends[1].MinLeaf)
	assert.Equal(t, ZeroDivisionNaN, cfg.Backends[1].ZeroDivision)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		param string
	}{
		{
			name:  "too few folds",
			yaml:  "harness:\n  folds: 1\n",
			param: "Config.Harness.Folds",
		},
		{
			name:  "unknown kind",
			yaml:  "backends:\n  - {name: a, kind: svm}\n  - {name: b, kind: cart}\n",
			param: "Config.Backends[0].Kind",
		},
		{
			name:  "one backend",
			yaml:  "backends:\n  - {name: a, kind: cart}\n",
			param: "Config.Backends",
		},
		{
			name:  "duplicate names",
			yaml:  "backends:\n  - {name: a, kind: cart}\n  - {name: a, kind: cart}\n",
			param: "Config.Backends",
		},
		{
			name:  "csv without dir",
			yaml:  "output:\n  format: csv\n",
			param: "Config.Output.CSVDir",
		},
		{
			name:  "randomtree without runtime",
			yaml:  "runtime:\n  enabled: false\n",
			param: "Config.Runtime.Enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			var valErr *errors.ValidationError
			require.True(t, errors.As(err, &valErr), "got %v", err)
			assert.Equal(t, tt.param, valErr.ParamName)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	path := writeConfig(t, string(data))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treebench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
