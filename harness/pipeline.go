package harness

import (
	"context"

	"github.com/YuminosukeSato/treebench/backend"
	"github.com/YuminosukeSato/treebench/config"
	"github.com/YuminosukeSato/treebench/dataset"
	"github.com/YuminosukeSato/treebench/metrics"
	"github.com/YuminosukeSato/treebench/pkg/errors"
	"github.com/YuminosukeSato/treebench/pkg/log"
	"github.com/YuminosukeSato/treebench/preprocessing"
	"github.com/YuminosukeSato/treebench/report"
)

// Loader reads one dataset file.
type Loader func(dataset.File) (*dataset.RawTable, error)

// Pipeline reduces a corpus to a report.CorpusReport, strictly sequentially:
// one dataset at a time and backend A before backend B.
type Pipeline struct {
	load            Loader
	preprocessor    *preprocessing.Preprocessor
	runner          *Runner
	adapters        [2]backend.Adapter
	scorers         [2]Scorer
	skipUnimputable bool
	logger          log.Logger
	metrics         *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader replaces dataset.Load.
func WithLoader(l Loader) Option {
	return func(p *Pipeline) {
		p.load = l
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// NewPipeline builds a pipeline comparing adapters[1] (B) against
// adapters[0] (A). cfg.Backends supplies each adapter's zero-division policy.
func NewPipeline(cfg config.Config, adapters [2]backend.Adapter, logger log.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		load:            dataset.Load,
		preprocessor:    preprocessing.NewPreprocessor(cfg.Preprocess.Seed),
		adapters:        adapters,
		skipUnimputable: cfg.Harness.SkipUnimputable,
		logger:          logger,
	}
	for i := range p.scorers {
		policy := metrics.ZeroDivisionZero
		if i < len(cfg.Backends) {
			policy = metrics.ZeroDivision(cfg.Backends[i].ZeroDivision)
		}
		p.scorers[i] = WeightedF(policy)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.runner = NewRunner(cfg.Harness, logger, p.metrics)
	return p
}

// Run evaluates every file in order. A LoadError, an unskippable
// preprocessing error or a cancelled context returns no report; FitError and
// PredictError skip the dataset and list it in CorpusReport.Skipped.
func (p *Pipeline) Run(ctx context.Context, files []dataset.File) (report.CorpusReport, error) {
	agg := report.NewAggregator()

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return report.CorpusReport{}, errors.Wrap(err, "harness: run cancelled")
		}
		logger := p.logger.With(log.DatasetPathKey, file.Path, log.DatasetIndexKey, i)

		result, err := p.evaluate(ctx, file, logger)
		switch {
		case err == nil:
			agg.Add(result)
			p.count(OutcomeEvaluated)
			if p.metrics != nil {
				p.metrics.FMeasure.WithLabelValues(result.A.Name).Set(result.A.FMeasure)
				p.metrics.FMeasure.WithLabelValues(result.B.Name).Set(result.B.FMeasure)
			}
			logger.Info("dataset evaluated",
				log.OperationKey, log.OperationCompare,
				log.FMeasureKey+"."+result.A.Name, result.A.FMeasure,
				log.FMeasureKey+"."+result.B.Name, result.B.FMeasure,
				log.DisagreementKey, result.Disagreement,
			)
		case p.skippable(err):
			agg.Skip(file.Path)
			p.count(OutcomeSkipped)
			p.countError(err)
			logger.Warn("dataset skipped", log.ErrAttrKey, err)
		default:
			p.count(OutcomeFailed)
			p.countError(err)
			logger.Error("run aborted", log.ErrAttrKey, err)
			return report.CorpusReport{}, err
		}
	}

	r := agg.Report()
	p.logger.Info("corpus evaluated",
		log.OperationKey, log.OperationReport,
		log.CountKey, len(files),
		"report.quality", len(r.QualityDeltas),
		"report.speed", len(r.SpeedDeltas),
		"report.skipped", len(r.Skipped),
	)
	return r, nil
}

func (p *Pipeline) evaluate(ctx context.Context, file dataset.File, logger log.Logger) (report.Result, error) {
	table, err := p.load(file)
	if err != nil {
		return report.Result{}, err
	}
	logger.Debug("dataset loaded", log.OperationKey, log.OperationLoad, log.SamplesKey, table.Rows())

	pre, err := p.preprocessor.Transform(table)
	if err != nil {
		return report.Result{}, err
	}
	_, width := pre.X.Dims()
	logger.Debug("dataset preprocessed", log.OperationKey, log.OperationPreprocess, log.FeaturesKey, width)

	folds, err := p.runner.SharedFolds(pre.Labels)
	if err != nil {
		// too few rows for k folds: no backend could be evaluated either
		return report.Result{}, errors.NewPredictError("harness", -1, err)
	}

	var evals [2]Evaluation
	for i, a := range p.adapters {
		evals[i], err = p.runner.Evaluate(ctx, a, pre.X, pre.Labels, folds)
		if err != nil {
			return report.Result{}, err
		}
	}
	return Compare(file.Path, pre.Labels, evals[0], evals[1], p.scorers)
}

func (p *Pipeline) skippable(err error) bool {
	if errors.IsFatal(err) {
		return false
	}
	if errors.IsDatasetLevel(err) {
		return true
	}
	if !p.skipUnimputable {
		return false
	}
	var valErr *errors.ValueError
	return errors.IsImputation(err) || errors.As(err, &valErr)
}

func (p *Pipeline) count(outcome string) {
	if p.metrics != nil {
		p.metrics.DatasetsTotal.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) countError(err error) {
	if p.metrics != nil {
		p.metrics.ErrorsTotal.WithLabelValues(log.ErrorType(err)).Inc()
	}
}
