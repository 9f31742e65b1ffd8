package harness

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/backend"
	"github.com/YuminosukeSato/treebench/config"
	"github.com/YuminosukeSato/treebench/dataset"
	"github.com/YuminosukeSato/treebench/metrics"
	"github.com/YuminosukeSato/treebench/model_selection"
	"github.com/YuminosukeSato/treebench/pkg/errors"
	"github.com/YuminosukeSato/treebench/pkg/log"
)

// predictFunc scripts one dataset's cross-validated predictions from its labels.
type predictFunc func(y []string) ([]string, error)

func perfect(y []string) ([]string, error) {
	return append([]string(nil), y...), nil
}

// flip changes the first n labels to their opposite class.
func flip(n int) predictFunc {
	return func(y []string) ([]string, error) {
		out := append([]string(nil), y...)
		for i := 0; i < n; i++ {
			if out[i] == "a" {
				out[i] = "b"
			} else {
				out[i] = "a"
			}
		}
		return out, nil
	}
}

func always(label string) predictFunc {
	return func(y []string) ([]string, error) {
		out := make([]string, len(y))
		for i := range out {
			out[i] = label
		}
		return out, nil
	}
}

// stub is a scripted Adapter; script[i] answers the i-th Fit.
type stub struct {
	name    string
	script  []predictFunc
	fitErrs map[int]error
	calls   *[]string

	n int
	y []string
}

func (s *stub) Name() string { return s.name }

func (s *stub) Fit(X mat.Matrix, y []string) error {
	s.n++
	s.y = y
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name+".fit")
	}
	return s.fitErrs[s.n-1]
}

func (s *stub) PredictUnderKFold(k int, seed uint64) ([]string, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name+".predict")
	}
	return s.script[s.n-1](s.y)
}

// sharedStub also accepts canonical folds.
type sharedStub struct {
	stub
	folds model_selection.Folds
}

func (s *sharedStub) PredictFolds(folds model_selection.Folds) ([]string, error) {
	s.folds = folds
	return s.script[s.n-1](s.y)
}

// twoClassARFF has n rows, the first half labelled a and the rest b.
func twoClassARFF(n int) string {
	var b strings.Builder
	b.WriteString("@relation toy\n@attribute x numeric\n@attribute colour {red,blue}\n@attribute class {a,b}\n@data\n")
	for i := 0; i < n; i++ {
		label := "a"
		if i >= n/2 {
			label = "b"
		}
		colour := "red"
		if i%3 == 0 {
			colour = "?"
		}
		fmt.Fprintf(&b, "%d,%s,%s\n", i, colour, label)
	}
	return b.String()
}

func corpus(t *testing.T, files map[string]string) []dataset.File {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	found, err := dataset.Discover(root, "arff")
	require.NoError(t, err)
	return found
}

func newPipeline(t *testing.T, a, b backend.Adapter, mutate func(*config.Config)) (*Pipeline, *log.TestLogger, *Metrics) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	logger := log.NewTestLogger(log.LevelDebug)
	m := NewMetrics(prometheus.NewRegistry())
	return NewPipeline(cfg, [2]backend.Adapter{a, b}, logger, WithMetrics(m)), logger, m
}

func TestPipelineEndToEnd(t *testing.T) {
	files := corpus(t, map[string]string{
		"d1.arff": twoClassARFF(10),
		"d2.arff": twoClassARFF(10),
	})
	a := &stub{name: "sklearn", script: []predictFunc{perfect, perfect}}
	// d1: two mistakes; d2: class b is never predicted, so F is NaN under the nan policy
	b := &stub{name: "weka", script: []predictFunc{flip(2), always("a")}}

	p, logger, m := newPipeline(t, a, b, nil)
	r, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	labels := []string{"a", "a", "a", "a", "a", "b", "b", "b", "b", "b"}
	flipped, _ := flip(2)(labels)
	fb, err := metrics.WeightedFMeasure(labels, flipped, metrics.ZeroDivisionNaN)
	require.NoError(t, err)

	require.Len(t, r.QualityDeltas, 1, "the NaN delta of d2 is dropped")
	assert.InDelta(t, fb-1, r.QualityDeltas[0], 1e-12)
	assert.Less(t, r.QualityDeltas[0], 0.0)
	assert.Len(t, r.SpeedDeltas, 2)
	require.Len(t, r.Disagreements, 2, "disagreement is never filtered")
	assert.InDelta(t, 0.2, r.Disagreements[0], 1e-12)
	assert.InDelta(t, 0.5, r.Disagreements[1], 1e-12)
	assert.Empty(t, r.Skipped)

	assert.Equal(t, 2, logger.Count("dataset evaluated"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatasetsTotal.WithLabelValues(OutcomeEvaluated)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.PredictSeconds))
	assert.True(t, math.IsNaN(testutil.ToFloat64(m.FMeasure.WithLabelValues("weka"))))
}

func TestPipelineEvaluatesAThenB(t *testing.T) {
	files := corpus(t, map[string]string{"a.arff": twoClassARFF(10), "b.arff": twoClassARFF(10)})
	var calls []string
	a := &stub{name: "A", script: []predictFunc{perfect, perfect}, calls: &calls}
	b := &stub{name: "B", script: []predictFunc{perfect, perfect}, calls: &calls}

	p, _, _ := newPipeline(t, a, b, nil)
	_, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"A.fit", "A.predict", "B.fit", "B.predict",
		"A.fit", "A.predict", "B.fit", "B.predict",
	}, calls)
}

func TestPipelineSkipsDatasetOnFitError(t *testing.T) {
	files := corpus(t, map[string]string{"d1.arff": twoClassARFF(10), "d2.arff": twoClassARFF(10)})
	a := &stub{name: "sklearn", script: []predictFunc{perfect, perfect}}
	b := &stub{
		name:    "weka",
		script:  []predictFunc{perfect, flip(1)},
		fitErrs: map[int]error{0: errors.NewFitError("weka", 0, errors.ErrSingleClass)},
	}

	p, logger, m := newPipeline(t, a, b, nil)
	r, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, r.Skipped, 1)
	assert.Equal(t, "d1.arff", filepath.Base(r.Skipped[0]))
	assert.Len(t, r.Disagreements, 1)
	assert.InDelta(t, 0.1, r.Disagreements[0], 1e-12)

	assert.True(t, logger.ContainsMessage("dataset skipped"))
	assert.True(t, logger.ContainsField(log.ErrorTypeKey, "FitError"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("FitError")))
}

func TestPipelineWrapsUntypedAdapterErrors(t *testing.T) {
	files := corpus(t, map[string]string{"d1.arff": twoClassARFF(10)})
	a := &stub{name: "sklearn", script: []predictFunc{func([]string) ([]string, error) {
		return nil, errors.New("backend crashed")
	}}}
	b := &stub{name: "weka", script: []predictFunc{perfect}}

	p, _, _ := newPipeline(t, a, b, nil)
	r, err := p.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, r.Skipped, 1)
}

func TestPipelineLoadErrorIsFatal(t *testing.T) {
	files := corpus(t, map[string]string{
		"a.arff": twoClassARFF(10),
		"b.arff": "@relation broken\n@attribute x numeric\n@data\nnot-a-number\n",
	})
	a := &stub{name: "sklearn", script: []predictFunc{perfect, perfect}}
	b := &stub{name: "weka", script: []predictFunc{perfect, perfect}}

	p, logger, _ := newPipeline(t, a, b, nil)
	r, err := p.Run(context.Background(), files)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Empty(t, r.Disagreements, "no partial report")
	assert.True(t, logger.ContainsMessage("run aborted"))
}

func TestPipelineImputationPolicy(t *testing.T) {
	allMissing := "@relation gaps\n@attribute x numeric\n@attribute class {a,b}\n@data\n?,a\n?,b\n?,a\n?,b\n"
	files := corpus(t, map[string]string{"gaps.arff": allMissing, "ok.arff": twoClassARFF(10)})

	t.Run("abort by default", func(t *testing.T) {
		a := &stub{name: "sklearn", script: []predictFunc{perfect, perfect}}
		b := &stub{name: "weka", script: []predictFunc{perfect, perfect}}
		p, _, _ := newPipeline(t, a, b, nil)
		_, err := p.Run(context.Background(), files)
		assert.True(t, errors.IsImputation(err))
	})

	t.Run("skip when configured", func(t *testing.T) {
		a := &stub{name: "sklearn", script: []predictFunc{perfect}}
		b := &stub{name: "weka", script: []predictFunc{perfect}}
		p, _, _ := newPipeline(t, a, b, func(c *config.Config) { c.Harness.SkipUnimputable = true })
		r, err := p.Run(context.Background(), files)
		require.NoError(t, err)
		assert.Equal(t, "gaps.arff", filepath.Base(r.Skipped[0]))
		assert.Len(t, r.Disagreements, 1)
	})
}

func TestPipelineCancelledContext(t *testing.T) {
	files := corpus(t, map[string]string{"d1.arff": twoClassARFF(10)})
	a := &stub{name: "sklearn", script: []predictFunc{perfect}}
	b := &stub{name: "weka", script: []predictFunc{perfect}}
	p, _, _ := newPipeline(t, a, b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.n, "no dataset is touched after cancellation")
}

func TestRunnerUsesSharedFolds(t *testing.T) {
	cfg := config.Default().Harness
	r := NewRunner(cfg, log.NewTestLogger(log.LevelInfo), nil)

	y := []string{"a", "a", "a", "a", "a", "b", "b", "b", "b", "b"}
	folds, err := r.SharedFolds(y)
	require.NoError(t, err)
	require.Len(t, folds, cfg.Folds)

	s := &sharedStub{stub: stub{name: "shared", script: []predictFunc{perfect}}}
	eval, err := r.Evaluate(context.Background(), s, mat.NewDense(10, 1, nil), y, folds)
	require.NoError(t, err)
	assert.Equal(t, folds, s.folds)
	assert.Equal(t, y, eval.Predictions)
	assert.Equal(t, "shared", eval.Backend)

	cfg.SharedFolds = false
	folds, err = NewRunner(cfg, log.NewTestLogger(log.LevelInfo), nil).SharedFolds(y)
	require.NoError(t, err)
	assert.Nil(t, folds)
}

func TestRunnerLengthMismatchIsPredictError(t *testing.T) {
	r := NewRunner(config.Default().Harness, log.NewTestLogger(log.LevelInfo), nil)
	short := &stub{name: "short", script: []predictFunc{func(y []string) ([]string, error) {
		return y[:len(y)-1], nil
	}}}

	_, err := r.Evaluate(context.Background(), short, mat.NewDense(3, 1, nil), []string{"a", "b", "a"}, nil)
	var predictErr *errors.PredictError
	require.True(t, errors.As(err, &predictErr))
	assert.Equal(t, "short", predictErr.Backend)
}

func TestCompare(t *testing.T) {
	labels := []string{"a", "b", "a", "b"}
	a := Evaluation{Backend: "A", Predictions: []string{"a", "b", "a", "b"}}
	b := Evaluation{Backend: "B", Predictions: []string{"a", "a", "a", "b"}}

	res, err := Compare("x.arff", labels, a, b, [2]Scorer{
		WeightedF(metrics.ZeroDivisionZero),
		WeightedF(metrics.ZeroDivisionZero),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.A.FMeasure)
	assert.Less(t, res.B.FMeasure, 1.0)
	assert.Equal(t, 0.25, res.Disagreement)

	_, err = Compare("empty", nil, Evaluation{}, Evaluation{}, [2]Scorer{
		WeightedF(metrics.ZeroDivisionZero),
		WeightedF(metrics.ZeroDivisionZero),
	})
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}

func TestPipelineWithLoader(t *testing.T) {
	load := func(f dataset.File) (*dataset.RawTable, error) {
		x := dataset.NewColumn("x", dataset.Numeric, nil, 4)
		target := dataset.NewColumn(dataset.TargetName, dataset.Nominal, []string{"a", "b"}, 4)
		for i, label := range []string{"a", "a", "b", "b"} {
			x.AppendNum(float64(i), false)
			target.AppendStr(label, false)
		}
		return &dataset.RawTable{Source: f.Path, Features: []dataset.Column{x}, Target: target}, nil
	}
	a := &stub{name: "sklearn", script: []predictFunc{perfect}}
	b := &stub{name: "weka", script: []predictFunc{flip(1)}}

	cfg := config.Default()
	cfg.Harness.Folds = 2
	p := NewPipeline(cfg, [2]backend.Adapter{a, b}, log.NewTestLogger(log.LevelInfo), WithLoader(load))
	r, err := p.Run(context.Background(), []dataset.File{{Path: "memory", Format: dataset.FormatARFF}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25}, r.Disagreements)
}
