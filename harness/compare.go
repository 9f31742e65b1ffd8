package harness

import (
	"github.com/YuminosukeSato/treebench/metrics"
	"github.com/YuminosukeSato/treebench/report"
)

// Scorer rates predictions against the true labels.
type Scorer func(yTrue, yPred []string) (float64, error)

// WeightedF returns a Scorer computing the weighted F-measure under policy.
func WeightedF(policy metrics.ZeroDivision) Scorer {
	return func(yTrue, yPred []string) (float64, error) {
		return metrics.WeightedFMeasure(yTrue, yPred, policy)
	}
}

// Compare scores a and b against labels and measures how often they disagree.
// scorers[0] rates a and scorers[1] rates b.
func Compare(path string, labels []string, a, b Evaluation, scorers [2]Scorer) (report.Result, error) {
	fa, err := scorers[0](labels, a.Predictions)
	if err != nil {
		return report.Result{}, err
	}
	fb, err := scorers[1](labels, b.Predictions)
	if err != nil {
		return report.Result{}, err
	}
	dis, err := metrics.Disagreement(a.Predictions, b.Predictions)
	if err != nil {
		return report.Result{}, err
	}
	return report.Result{
		Path:         path,
		A:            report.BackendScore{Name: a.Backend, FMeasure: fa, Elapsed: a.Elapsed},
		B:            report.BackendScore{Name: b.Backend, FMeasure: fb, Elapsed: b.Elapsed},
		Disagreement: dis,
	}, nil
}
