package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/treebench/backend"
	"github.com/YuminosukeSato/treebench/config"
	"github.com/YuminosukeSato/treebench/dataset"
	"github.com/YuminosukeSato/treebench/engine"
	"github.com/YuminosukeSato/treebench/harness"
	"github.com/YuminosukeSato/treebench/pkg/errors"
	"github.com/YuminosukeSato/treebench/pkg/log"
	"github.com/YuminosukeSato/treebench/report"
)

type runOptions struct {
	configPath  string
	root        string
	ext         string
	format      string
	csvDir      string
	plotPath    string
	metricsPath string
	logLevel    string
	logFormat   string
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate both backends on every dataset under --root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "YAML configuration file")
	f.StringVar(&o.root, "root", "", "corpus root directory (default ./datasets)")
	f.StringVar(&o.ext, "ext", "", "dataset file extension (default arff)")
	f.StringVar(&o.format, "format", "", "report format: text, csv or both")
	f.StringVar(&o.csvDir, "csv-dir", "", "directory for the CSV report")
	f.StringVar(&o.plotPath, "plot", "", "write a box plot of the sequences to this file")
	f.StringVar(&o.metricsPath, "metrics", "", "write Prometheus metrics to this textfile")
	f.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&o.logFormat, "log-format", "", "json or console")
	return cmd
}

// resolve loads the config file and applies every flag set on the command line.
func (o *runOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	overrides := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"root", &cfg.Corpus.Root, o.root},
		{"ext", &cfg.Corpus.Extension, o.ext},
		{"format", &cfg.Output.Format, o.format},
		{"csv-dir", &cfg.Output.CSVDir, o.csvDir},
		{"plot", &cfg.Output.PlotPath, o.plotPath},
		{"metrics", &cfg.Output.MetricsPath, o.metricsPath},
		{"log-level", &cfg.Log.Level, o.logLevel},
		{"log-format", &cfg.Log.Format, o.logFormat},
	}
	for _, ov := range overrides {
		if cmd.Flags().Changed(ov.flag) {
			*ov.dst = ov.val
		}
	}
	// --csv-dir alone implies CSV output next to the text report
	if cmd.Flags().Changed("csv-dir") && !cmd.Flags().Changed("format") && cfg.Output.Format == "text" {
		cfg.Output.Format = "both"
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig, w io.Writer) (*log.ZerologLogger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "console" {
		return log.NewConsoleLogger(w, level), nil
	}
	return log.NewZerologLogger(w, level), nil
}

// run evaluates the corpus and writes every configured report. A fatal error
// returns before any report is written.
func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	zl, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	zl.RouteWarnings()
	defer errors.SetZerologWarnFunc(nil)
	logger := zl.With(log.RunIDKey, uuid.NewString())

	var rt *engine.Runtime
	if cfg.Runtime.Enabled {
		rt = engine.New(cfg.Runtime.QueueSize)
	}
	reg := prometheus.NewRegistry()
	m := harness.NewMetrics(reg)

	var corpus report.CorpusReport
	err = engine.Scoped(ctx, rt, func(ctx context.Context) error {
		var adapters [2]backend.Adapter
		for i, b := range cfg.Backends {
			a, err := backend.New(b, rt)
			if err != nil {
				return err
			}
			adapters[i] = a
		}

		files, err := dataset.Discover(cfg.Corpus.Root, cfg.Corpus.Extension)
		if err != nil {
			return err
		}
		logger.Info("corpus discovered",
			log.OperationKey, log.OperationLoad,
			log.CountKey, len(files),
		)

		p := harness.NewPipeline(cfg, adapters, logger, harness.WithMetrics(m))
		corpus, err = p.Run(ctx, files)
		return err
	})
	if err != nil {
		logger.Error("run failed", log.ErrAttrKey, err)
		return err
	}

	if err := writeReports(cfg.Output, corpus, stdout, reg, logger); err != nil {
		logger.Error("report failed", log.ErrAttrKey, err)
		return err
	}
	logSummary(logger, report.Summarize(corpus))
	return nil
}

func writeReports(out config.OutputConfig, corpus report.CorpusReport, stdout io.Writer, reg prometheus.Gatherer, logger log.Logger) error {
	if out.Format == "text" || out.Format == "both" {
		if err := report.WriteText(stdout, corpus); err != nil {
			return err
		}
	}
	if out.Format == "csv" || out.Format == "both" {
		if err := report.WriteCSV(out.CSVDir, corpus); err != nil {
			return err
		}
	}
	if out.PlotPath != "" {
		var valErr *errors.ValueError
		switch err := report.WritePlot(out.PlotPath, corpus); {
		case errors.As(err, &valErr):
			logger.Warn("plot skipped", log.ErrAttrKey, err)
		case err != nil:
			return err
		}
	}
	if out.MetricsPath != "" {
		if err := report.WriteMetrics(out.MetricsPath, reg); err != nil {
			return err
		}
	}
	return nil
}

func logSummary(logger log.Logger, s report.Summary) {
	for _, seq := range []struct {
		name  string
		stats report.Stats
	}{
		{"quality", s.Quality},
		{"speed", s.Speed},
		{"disagreement", s.Disagreement},
	} {
		logger.Info("sequence summary",
			log.OperationKey, log.OperationReport,
			"summary.sequence", seq.name,
			log.CountKey, seq.stats.Count,
			"summary.mean", seq.stats.Mean,
			"summary.std", seq.stats.StdDev,
			"summary.median", seq.stats.Median,
			"summary.min", seq.stats.Min,
			"summary.max", seq.stats.Max,
		)
	}
}
