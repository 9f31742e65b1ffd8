// Package log defines standard attribute keys for harness operations.
//
// Keys follow a hierarchical naming convention ("dataset.path",
// "backend.name") so log lines from different datasets and backends can be
// filtered and joined after a run.

package log

// Run and dataset context
const (
	// RunIDKey identifies one invocation of the harness (a UUID).
	RunIDKey = "run.id"

	// DatasetPathKey is the path of the dataset file being processed.
	DatasetPathKey = "dataset.path"

	// DatasetIndexKey is the position of the dataset in sorted discovery order.
	DatasetIndexKey = "dataset.index"

	// SamplesKey is the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of columns after preprocessing.
	FeaturesKey = "data.features"

	// ClassesKey is the number of distinct labels.
	ClassesKey = "data.classes"
)

// Backend and evaluation context
const (
	// BackendKey is the configured name of a classifier backend.
	BackendKey = "backend.name"

	// OperationKey is the operation being performed.
	// Standard values: "fit", "predict_cv", "compare", "load", "preprocess"
	OperationKey = "op"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// FoldKey is the index of a single fold.
	FoldKey = "cv.fold"

	// SharedFoldsKey reports whether the canonical fold assignment was used.
	SharedFoldsKey = "cv.shared"

	// RandomSeedKey records the seed used for folds or imputation.
	RandomSeedKey = "config.random_seed"
)

// Results
const (
	// DurationMsKey records elapsed time in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// FMeasureKey records a weighted F-measure.
	FMeasureKey = "metrics.f_measure"

	// DisagreementKey records the inter-backend disagreement rate.
	DisagreementKey = "metrics.disagreement"

	// CountKey records the length of an output sequence.
	CountKey = "report.count"
)

// Error context
const (
	// ErrorTypeKey categorizes the error, e.g. "LoadError", "FitError".
	ErrorTypeKey = "error.type"

	// SuggestionKey gives a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationLoad       = "load"
	OperationPreprocess = "preprocess"
	OperationFit        = "fit"
	OperationPredictCV  = "predict_cv"
	OperationCompare    = "compare"
	OperationReport     = "report"
)
