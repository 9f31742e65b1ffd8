package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// WritePlot saves a box plot of the non-empty sequences of r. The image
// format follows the file extension (png, svg, pdf).
func WritePlot(path string, r CorpusReport) error {
	p := plot.New()
	p.Title.Text = "backend B - backend A"
	p.Y.Label.Text = "delta"

	series := []struct {
		name   string
		values []float64
	}{
		{QualityHeader, r.QualityDeltas},
		{SpeedHeader, r.SpeedDeltas},
		{DisagreementHeader, r.Disagreements},
	}

	var names []string
	for _, s := range series {
		if len(s.values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(len(names)), plotter.Values(s.values))
		if err != nil {
			return errors.Wrapf(err, "report: box plot %s", s.name)
		}
		p.Add(box)
		names = append(names, s.name)
	}
	if len(names) == 0 {
		return errors.NewValueError("report.WritePlot", "all sequences are empty")
	}
	p.NominalX(names...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save plot %s", path)
	}
	return nil
}
