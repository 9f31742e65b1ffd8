package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/treebench/report"
)

// separable has 20 rows whose class follows x; shape is noise with gaps.
func separable() string {
	var b strings.Builder
	b.WriteString("@relation separable\n@attribute x numeric\n@attribute shape {circle,square}\n@attribute class {lo,hi}\n@data\n")
	for i := 0; i < 20; i++ {
		label := "lo"
		if i >= 10 {
			label = "hi"
		}
		shape := []string{"circle", "square", "?"}[i%3]
		fmt.Fprintf(&b, "%d,%s,%s\n", i, shape, label)
	}
	return b.String()
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunPrintsSequences(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.arff": separable(), "b.arff": separable()})
	csvDir := filepath.Join(t.TempDir(), "out")
	metricsPath := filepath.Join(t.TempDir(), "treebench.prom")

	stdout, stderr, err := execute(t, "run", "--root", root, "--csv-dir", csvDir, "--metrics", metricsPath)
	require.NoError(t, err, stderr)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	for _, line := range lines[len(lines)-2:] {
		d, err := strconv.ParseFloat(line, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, 1.0)
	}

	data, err := os.ReadFile(filepath.Join(csvDir, report.DisagreementFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), report.DisagreementHeader+"\n"))

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `treebench_datasets_total{outcome="evaluated"} 2`)

	assert.Contains(t, stderr, `"run.id"`)
	assert.Contains(t, stderr, "sequence summary")
}

func TestRunLoadErrorExitsWithoutReport(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"a.arff": separable(),
		"b.arff": "@relation broken\n@attribute x numeric\n@attribute class {lo,hi}\n@data\nabc,lo\n",
	})

	stdout, stderr, err := execute(t, "run", "--root", root)
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "run failed")
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	_, _, err := execute(t, "run", "--root", t.TempDir(), "--format", "xml")
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--root", t.TempDir(), "--log-level", "loud")
	assert.Error(t, err)
}

func TestConfigCommandPrintsDefaults(t *testing.T) {
	stdout, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "folds: 10")
	assert.Contains(t, stdout, "kind: randomtree")
}

func TestConfigFileIsOverriddenByFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treebench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus:\n  root: /does/not/exist\n"), 0o644))
	root := writeCorpus(t, map[string]string{"a.arff": separable()})

	_, stderr, err := execute(t, "run", "--config", path, "--root", root)
	require.NoError(t, err, stderr)
}

func TestBackendsCommand(t *testing.T) {
	stdout, _, err := execute(t, "backends")
	require.NoError(t, err)
	assert.Equal(t, "cart\nrandomtree\n", stdout)
}
