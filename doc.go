// Package treebench compares two decision-tree classifier backends over a
// corpus of tabular classification datasets.
//
// For every dataset found under a corpus root, treebench imputes missing
// values, one-hot encodes categorical features, and runs k-fold
// cross-validated prediction once for backend A and once for backend B.
// Three sequences come out of a run:
//
//   - quality deltas: F(B) - F(A), the difference in weighted F-measure
//   - speed deltas: T(B) - T(A), the difference in prediction time in seconds
//   - disagreements: the share of rows on which the two backends predict
//     different labels
//
// # Backends
//
// Two backends ship with treebench:
//
//   - cart: a CART decision tree with best or random split selection
//     (sklearn/tree)
//   - randomtree: a random tree that considers K random attributes per node
//     (weka/randomtree), run on the embedded runtime (engine)
//
// # Quick Start
//
//	treebench run --root ./datasets --ext arff
//	treebench run --config treebench.yaml --csv-dir out --plot deltas.png
//	treebench config > treebench.yaml
//
// The harness can also be driven from Go:
//
//	cfg := config.Default()
//	rt := engine.New(cfg.Runtime.QueueSize)
//	err := engine.Scoped(ctx, rt, func(ctx context.Context) error {
//	    a, _ := backend.New(cfg.Backends[0], rt)
//	    b, _ := backend.New(cfg.Backends[1], rt)
//	    files, err := dataset.Discover(cfg.Corpus.Root, cfg.Corpus.Extension)
//	    if err != nil {
//	        return err
//	    }
//	    p := harness.NewPipeline(cfg, [2]backend.Adapter{a, b}, logger)
//	    corpus, err := p.Run(ctx, files)
//	    if err != nil {
//	        return err
//	    }
//	    return report.WriteText(os.Stdout, corpus)
//	})
//
// # Error Handling
//
// A LoadError stops the run and no report is printed. FitError and
// PredictError skip only the current dataset. See pkg/errors.
package treebench
