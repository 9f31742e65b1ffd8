package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats describes one sequence. Fields other than Count are NaN for an
// empty sequence; StdDev is NaN below two values.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Median float64
	Min    float64
	Max    float64
}

// Summary describes the three sequences of a CorpusReport. It is
// descriptive only: no test of significance is made.
type Summary struct {
	Quality      Stats
	Speed        Stats
	Disagreement Stats
}

// Summarize computes Stats for each sequence of r.
func Summarize(r CorpusReport) Summary {
	return Summary{
		Quality:      describe(r.QualityDeltas),
		Speed:        describe(r.SpeedDeltas),
		Disagreement: describe(r.Disagreements),
	}
}

func describe(values []float64) Stats {
	s := Stats{Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Mean, s.StdDev, s.Median, s.Min, s.Max = nan, nan, nan, nan, nan
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.StdDev = math.NaN()
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	return s
}
