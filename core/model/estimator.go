// Package model defines the estimator capabilities shared by the tree backends.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
// y はクラスインデックス（0..nClasses-1）で与えられる
type Fitter interface {
	Fit(X mat.Matrix, y []int) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は各行のクラスインデックスを返す
	Predict(X mat.Matrix) ([]int, error)
}

// Classifier combines Fitter and Predictor for index-encoded classification.
type Classifier interface {
	Fitter
	Predictor

	// NClasses is the number of classes the model can emit. Set by the
	// caller (through options) so every fold shares the same label space.
	NClasses() int
}

// Factory builds a fresh, unfitted classifier over nClasses classes.
// Cross-validation calls it once per fold so no state leaks between folds.
type Factory func(nClasses int) Classifier
