// Package report folds per-dataset comparison results into corpus-level
// sequences and renders them as text, CSV, a box plot, or a metrics file.
package report

import (
	"math"
	"time"
)

// BackendScore is one backend's outcome on one dataset.
type BackendScore struct {
	Name     string
	FMeasure float64 // NaN when undefined
	Elapsed  time.Duration
}

// Result compares backends A and B on one dataset.
type Result struct {
	Path         string
	A            BackendScore
	B            BackendScore
	Disagreement float64
}

// QualityDelta is F(B) - F(A).
func (r Result) QualityDelta() float64 {
	return r.B.FMeasure - r.A.FMeasure
}

// SpeedDelta is T(B) - T(A) in seconds.
func (r Result) SpeedDelta() float64 {
	return r.B.Elapsed.Seconds() - r.A.Elapsed.Seconds()
}

// CorpusReport holds the three output sequences in discovery order.
// QualityDeltas and SpeedDeltas omit NaN entries, so they are not
// index-aligned with Disagreements or with the dataset list.
type CorpusReport struct {
	QualityDeltas []float64
	SpeedDeltas   []float64
	Disagreements []float64
	// Skipped lists datasets dropped after a dataset-level error.
	Skipped []string
}

// Aggregator accumulates Results. Not safe for concurrent use.
type Aggregator struct {
	report CorpusReport
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add folds one result in. Deltas are appended only when not NaN;
// the disagreement rate is always appended.
func (a *Aggregator) Add(r Result) {
	if d := r.QualityDelta(); !math.IsNaN(d) {
		a.report.QualityDeltas = append(a.report.QualityDeltas, d)
	}
	if d := r.SpeedDelta(); !math.IsNaN(d) {
		a.report.SpeedDeltas = append(a.report.SpeedDeltas, d)
	}
	a.report.Disagreements = append(a.report.Disagreements, r.Disagreement)
}

// Skip records a dataset that contributes to no sequence.
func (a *Aggregator) Skip(path string) {
	a.report.Skipped = append(a.report.Skipped, path)
}

// Report returns a copy of the sequences accumulated so far.
func (a *Aggregator) Report() CorpusReport {
	return CorpusReport{
		QualityDeltas: append([]float64{}, a.report.QualityDeltas...),
		SpeedDeltas:   append([]float64{}, a.report.SpeedDeltas...),
		Disagreements: append([]float64{}, a.report.Disagreements...),
		Skipped:       append([]string{}, a.report.Skipped...),
	}
}

// Aggregate folds results in order.
func Aggregate(results []Result) CorpusReport {
	a := NewAggregator()
	for _, r := range results {
		a.Add(r)
	}
	return a.Report()
}
