// Package harness evaluates backend pairs over a dataset corpus: one untimed
// fit and one timed cross-validated prediction per backend and dataset,
// compared and folded into a report.CorpusReport.
package harness

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/backend"
	"github.com/YuminosukeSato/treebench/config"
	"github.com/YuminosukeSato/treebench/model_selection"
	"github.com/YuminosukeSato/treebench/pkg/errors"
	"github.com/YuminosukeSato/treebench/pkg/log"
)

// Evaluation is one backend's cross-validated predictions on one dataset.
type Evaluation struct {
	Backend     string
	Predictions []string
	Elapsed     time.Duration
}

// Runner runs the measurement protocol for one adapter at a time.
type Runner struct {
	folds   int
	seed    uint64
	shared  bool
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewRunner creates a Runner from the harness configuration. metrics may be nil.
func NewRunner(cfg config.HarnessConfig, logger log.Logger, metrics *Metrics) *Runner {
	return &Runner{
		folds:   cfg.Folds,
		seed:    cfg.Seed,
		shared:  cfg.SharedFolds,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// SharedFolds builds the canonical fold assignment for labels, or returns
// nil when every adapter should use its own fold generator.
func (r *Runner) SharedFolds(labels []string) (model_selection.Folds, error) {
	if !r.shared {
		return nil, nil
	}
	return model_selection.NewStratifiedKFold(r.folds, true, r.seed).Split(labels)
}

// Evaluate fits a on the full data, then times exactly one cross-validated
// prediction. folds, when non-nil, is passed to adapters implementing
// backend.FoldPredictor; others fall back to PredictUnderKFold.
//
// Every returned adapter failure is a FitError or PredictError.
func (r *Runner) Evaluate(ctx context.Context, a backend.Adapter, X mat.Matrix, y []string, folds model_selection.Folds) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, errors.Wrap(err, "harness: evaluate")
	}
	name := a.Name()
	logger := r.logger.With(log.BackendKey, name)

	if err := a.Fit(X, y); err != nil {
		return Evaluation{}, asDatasetLevel(err, name, true)
	}

	fp, canShare := a.(backend.FoldPredictor)
	useShared := folds != nil && canShare
	logger.Debug("predicting under cross-validation",
		log.OperationKey, log.OperationPredictCV,
		log.FoldsKey, r.folds,
		log.SharedFoldsKey, useShared,
		log.RandomSeedKey, r.seed,
	)

	var pred []string
	var err error
	start := r.now()
	if useShared {
		pred, err = fp.PredictFolds(folds)
	} else {
		pred, err = a.PredictUnderKFold(r.folds, r.seed)
	}
	elapsed := r.now().Sub(start)
	if err != nil {
		return Evaluation{}, asDatasetLevel(err, name, false)
	}
	if len(pred) != len(y) {
		return Evaluation{}, errors.NewPredictError(name, -1, errors.NewDimensionError(name+".PredictUnderKFold", len(y), len(pred), 0))
	}

	if r.metrics != nil {
		r.metrics.PredictSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	logger.Debug("backend evaluated",
		log.OperationKey, log.OperationPredictCV,
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return Evaluation{Backend: name, Predictions: pred, Elapsed: elapsed}, nil
}

// asDatasetLevel keeps FitError and PredictError as they are and wraps any
// other adapter error so that it skips only the current dataset.
func asDatasetLevel(err error, name string, fitting bool) error {
	if errors.IsDatasetLevel(err) {
		return err
	}
	if fitting {
		return errors.NewFitError(name, -1, err)
	}
	return errors.NewPredictError(name, -1, err)
}
