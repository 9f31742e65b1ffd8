// Package backend adapts tree classifiers to the uniform interface the
// harness evaluates: string labels in, cross-validated string predictions out.
package backend

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treebench/core/model"
	"github.com/YuminosukeSato/treebench/model_selection"
	"github.com/YuminosukeSato/treebench/pkg/errors"
	"github.com/YuminosukeSato/treebench/preprocessing"
)

// Adapter is one classifier backend under comparison.
type Adapter interface {
	Name() string
	// Fit trains on the full dataset and records X and y for later
	// cross-validated prediction. Calling Fit again resets prior state.
	Fit(X mat.Matrix, y []string) error
	// PredictUnderKFold partitions the recorded data with the backend's own
	// fold generator, trains on each complement and predicts each held-out
	// fold once. Predictions are in original row order.
	PredictUnderKFold(k int, seed uint64) ([]string, error)
}

// FoldPredictor is implemented by adapters that accept an externally
// generated fold assignment, so both backends see identical folds.
type FoldPredictor interface {
	PredictFolds(folds model_selection.Folds) ([]string, error)
}

// Executor runs one unit of backend work. Direct executes inline; a runtime
// submits it to its executor goroutine.
type Executor func(fn func() error) error

// Direct runs fn on the calling goroutine, converting panics into errors.
func Direct(fn func() error) error {
	return errors.SafeExecute("backend", fn)
}

// Classifier adapts a model.Factory to Adapter and FoldPredictor.
type Classifier struct {
	name     string
	factory  model.Factory
	splitter func(k int, seed uint64) model_selection.Splitter
	exec     Executor

	X       mat.Matrix
	labels  []string
	encoder *preprocessing.LabelEncoder
	y       []int
	fitted  model.Classifier
}

// NewClassifier builds an adapter. splitter supplies the backend's native
// fold generator for PredictUnderKFold.
func NewClassifier(name string, factory model.Factory, splitter func(k int, seed uint64) model_selection.Splitter, exec Executor) *Classifier {
	if exec == nil {
		exec = Direct
	}
	return &Classifier{name: name, factory: factory, splitter: splitter, exec: exec}
}

// Name returns the configured backend name.
func (c *Classifier) Name() string {
	return c.name
}

// Fit implements Adapter.
func (c *Classifier) Fit(X mat.Matrix, y []string) error {
	c.reset()

	rows, _ := X.Dims()
	if rows != len(y) {
		return errors.NewFitError(c.name, -1, errors.NewDimensionError(c.name+".Fit", rows, len(y), 0))
	}
	if rows == 0 {
		return errors.NewFitError(c.name, -1, errors.ErrEmptyData)
	}

	encoder := preprocessing.NewLabelEncoder(y)
	yIdx := encoder.Transform(y)
	m := c.factory(len(encoder.Classes))
	if err := c.exec(func() error { return m.Fit(X, yIdx) }); err != nil {
		return errors.NewFitError(c.name, -1, err)
	}

	c.X = X
	c.labels = y
	c.encoder = encoder
	c.y = yIdx
	c.fitted = m
	return nil
}

// Model returns the classifier trained by the last Fit, or nil.
func (c *Classifier) Model() model.Classifier {
	return c.fitted
}

// PredictUnderKFold implements Adapter.
func (c *Classifier) PredictUnderKFold(k int, seed uint64) ([]string, error) {
	if c.fitted == nil {
		return nil, errors.NewPredictError(c.name, -1, errors.NewNotFittedError(c.name, "PredictUnderKFold"))
	}
	folds, err := c.splitter(k, seed).Split(c.labels)
	if err != nil {
		return nil, errors.NewPredictError(c.name, -1, err)
	}
	return c.PredictFolds(folds)
}

// PredictFolds implements FoldPredictor. Each fold trains a fresh model on
// its training rows.
func (c *Classifier) PredictFolds(folds model_selection.Folds) ([]string, error) {
	if c.fitted == nil {
		return nil, errors.NewPredictError(c.name, -1, errors.NewNotFittedError(c.name, "PredictFolds"))
	}
	n := len(c.labels)
	if err := folds.Validate(n); err != nil {
		return nil, errors.NewPredictError(c.name, -1, err)
	}

	out := make([]string, n)
	nClasses := len(c.encoder.Classes)
	for i, fold := range folds {
		if len(fold.TestIndices) == 0 {
			continue
		}
		if len(fold.TrainIndices) == 0 {
			return nil, errors.NewFitError(c.name, i, errors.ErrEmptyData)
		}

		m := c.factory(nClasses)
		XTrain := model_selection.Subset(c.X, fold.TrainIndices)
		yTrain := model_selection.Select(c.y, fold.TrainIndices)
		if err := c.exec(func() error { return m.Fit(XTrain, yTrain) }); err != nil {
			return nil, errors.NewFitError(c.name, i, err)
		}

		XTest := model_selection.Subset(c.X, fold.TestIndices)
		var pred []int
		err := c.exec(func() error {
			var err error
			pred, err = m.Predict(XTest)
			return err
		})
		if err != nil {
			return nil, errors.NewPredictError(c.name, i, err)
		}
		if len(pred) != len(fold.TestIndices) {
			return nil, errors.NewPredictError(c.name, i, errors.NewDimensionError(c.name+".Predict", len(fold.TestIndices), len(pred), 0))
		}

		decoded := c.encoder.InverseTransform(pred)
		for j, idx := range fold.TestIndices {
			if pred[j] < 0 || pred[j] >= nClasses {
				return nil, errors.NewPredictError(c.name, i, errors.NewValueError(c.name+".Predict", fmt.Sprintf("class index %d outside label space", pred[j])))
			}
			out[idx] = decoded[j]
		}
	}
	return out, nil
}

func (c *Classifier) reset() {
	c.X = nil
	c.labels = nil
	c.encoder = nil
	c.y = nil
	c.fitted = nil
}
