package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// CSV file names and their single header, one file per sequence.
const (
	QualityFile      = "f_scores.csv"
	SpeedFile        = "speed_scores.csv"
	DisagreementFile = "cod_scores.csv"

	QualityHeader      = "f scores"
	SpeedHeader        = "speed scores"
	DisagreementHeader = "cod scores"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteText prints quality deltas, speed deltas and disagreements one value
// per line, with a blank line between sequences.
func WriteText(w io.Writer, r CorpusReport) error {
	bw := bufio.NewWriter(w)
	sequences := [][]float64{r.QualityDeltas, r.SpeedDeltas, r.Disagreements}
	for i, seq := range sequences {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return errors.Wrap(err, "report: write text")
			}
		}
		for _, v := range seq {
			if _, err := bw.WriteString(formatFloat(v) + "\n"); err != nil {
				return errors.Wrap(err, "report: write text")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "report: write text")
}

// WriteCSV writes the three sequences to dir, creating it if needed.
func WriteCSV(dir string, r CorpusReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "report: create %s", dir)
	}
	files := []struct {
		name   string
		header string
		values []float64
	}{
		{QualityFile, QualityHeader, r.QualityDeltas},
		{SpeedFile, SpeedHeader, r.SpeedDeltas},
		{DisagreementFile, DisagreementHeader, r.Disagreements},
	}
	for _, f := range files {
		if err := writeColumn(filepath.Join(dir, f.name), f.header, f.values); err != nil {
			return err
		}
	}
	return nil
}

func writeColumn(path, header string, values []float64) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "report: create %s", path)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "report: close %s", path)
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write([]string{header}); err != nil {
		return errors.Wrapf(err, "report: write %s", path)
	}
	for _, v := range values {
		if err := w.Write([]string{formatFloat(v)}); err != nil {
			return errors.Wrapf(err, "report: write %s", path)
		}
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "report: write %s", path)
}
