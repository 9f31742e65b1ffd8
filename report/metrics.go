package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// WriteMetrics writes everything gathered by g to path in the Prometheus
// text exposition format, for pickup by a node exporter textfile collector.
func WriteMetrics(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "report: write metrics %s", path)
	}
	return nil
}
