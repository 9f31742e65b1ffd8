package backend

import (
	"sort"

	"github.com/YuminosukeSato/treebench/config"
	"github.com/YuminosukeSato/treebench/core/model"
	"github.com/YuminosukeSato/treebench/engine"
	"github.com/YuminosukeSato/treebench/model_selection"
	"github.com/YuminosukeSato/treebench/pkg/errors"
	"github.com/YuminosukeSato/treebench/sklearn/tree"
	"github.com/YuminosukeSato/treebench/weka/randomtree"
)

// Constructor builds an adapter from its configuration. rt is nil when the
// embedded runtime is disabled.
type Constructor func(cfg config.Backend, rt *engine.Runtime) (Adapter, error)

var registry = map[string]Constructor{
	config.KindCART:       NewCART,
	config.KindRandomTree: NewRandomTree,
}

// New selects the constructor registered for cfg.Kind.
func New(cfg config.Backend, rt *engine.Runtime) (Adapter, error) {
	ctor, ok := registry[cfg.Kind]
	if !ok {
		return nil, errors.NewValidationError("backends.kind", "unknown backend kind", cfg.Kind)
	}
	return ctor(cfg, rt)
}

// Kinds lists the registered backend kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewCART adapts the scikit-learn style decision tree. Its native folds are
// unshuffled stratified k-fold, as cross_val_predict uses for classifiers.
func NewCART(cfg config.Backend, _ *engine.Runtime) (Adapter, error) {
	factory := func(nClasses int) model.Classifier {
		return tree.NewDecisionTreeClassifier(
			tree.WithCriterion(cfg.Criterion),
			tree.WithSplitter(cfg.Splitter),
			tree.WithMaxDepth(cfg.MaxDepth),
			tree.WithMinSamplesLeaf(cfg.MinLeaf),
			tree.WithRandomState(cfg.Seed),
			tree.WithParallelThreshold(cfg.ParallelThreshold),
			tree.WithNClasses(nClasses),
		)
	}
	splitter := func(k int, _ uint64) model_selection.Splitter {
		return model_selection.NewStratifiedKFold(k, false, 0)
	}
	return NewClassifier(cfg.Name, factory, splitter, Direct), nil
}

// NewRandomTree adapts the Weka style random tree. Every call into the tree
// runs on rt, and its native folds shuffle with the seed before stratifying.
func NewRandomTree(cfg config.Backend, rt *engine.Runtime) (Adapter, error) {
	if rt == nil {
		return nil, errors.NewValidationError("runtime.enabled", "randomtree backend requires the embedded runtime", false)
	}
	factory := func(nClasses int) model.Classifier {
		return randomtree.New(
			randomtree.WithKValue(cfg.KValue),
			randomtree.WithMaxDepth(cfg.MaxDepth),
			randomtree.WithMinNum(cfg.MinLeaf),
			randomtree.WithSeed(cfg.Seed),
			randomtree.WithNClasses(nClasses),
		)
	}
	splitter := func(k int, seed uint64) model_selection.Splitter {
		return model_selection.NewStratifiedKFold(k, true, seed)
	}
	return NewClassifier(cfg.Name, factory, splitter, rt.Submit), nil
}
