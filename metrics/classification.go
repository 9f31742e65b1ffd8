// Package metrics は予測ラベル列を評価する分類指標を提供します。
package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// ZeroDivision は適合率が定義できない（そのクラスが一度も予測されない）場合の扱いを表す
type ZeroDivision string

const (
	// ZeroDivisionZero は未定義の適合率を0とみなし、警告を発行する（scikit-learn互換）
	ZeroDivisionZero ZeroDivision = "zero"
	// ZeroDivisionNaN は未定義の適合率をNaNとし、重み付きF値全体をNaNにする
	ZeroDivisionNaN ZeroDivision = "nan"
)

// ClassScore は1クラス分の適合率・再現率・F1とサポート数
type ClassScore struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// PerClass はクラスごとの適合率・再現率・F1を計算する
// クラスは yTrue と yPred に現れるラベルの和集合を辞書順に並べたもの
func PerClass(yTrue, yPred []string, policy ZeroDivision) ([]ClassScore, error) {
	if err := checkPair("PerClass", yTrue, yPred); err != nil {
		return nil, err
	}
	if policy != ZeroDivisionZero && policy != ZeroDivisionNaN {
		return nil, errors.NewValidationError("zero_division", "must be 'zero' or 'nan'", string(policy))
	}

	support := make(map[string]int)
	predicted := make(map[string]int)
	truePos := make(map[string]int)
	for i := range yTrue {
		support[yTrue[i]]++
		predicted[yPred[i]]++
		if yTrue[i] == yPred[i] {
			truePos[yTrue[i]]++
		}
	}

	labels := make([]string, 0, len(support)+len(predicted))
	for l := range support {
		labels = append(labels, l)
	}
	for l := range predicted {
		if _, ok := support[l]; !ok {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)

	scores := make([]ClassScore, len(labels))
	for i, l := range labels {
		s := ClassScore{Label: l, Support: support[l]}
		tp := float64(truePos[l])

		if predicted[l] == 0 {
			s.Precision = undefined(policy, "precision", fmt.Sprintf("no predicted samples for label %q", l))
		} else {
			s.Precision = tp / float64(predicted[l])
		}
		if support[l] == 0 {
			s.Recall = undefined(policy, "recall", fmt.Sprintf("no true samples for label %q", l))
		} else {
			s.Recall = tp / float64(support[l])
		}

		if math.IsNaN(s.Precision) || math.IsNaN(s.Recall) {
			s.F1 = math.NaN()
		} else {
			s.F1 = errors.Ratio(2*s.Precision*s.Recall, s.Precision+s.Recall, 0)
		}
		scores[i] = s
	}
	return scores, nil
}

// WeightedFMeasure はクラスごとのF1をサポート数で重み付けした平均を返す
//
// サポート数0のクラス（予測にしか現れないラベル）は重み0で寄与しない。
// policy が ZeroDivisionNaN のとき、正解に存在するのに一度も予測されなかった
// クラスがあれば NaN を返す。NaN はエラーではなく未定義値の番兵として扱う。
func WeightedFMeasure(yTrue, yPred []string, policy ZeroDivision) (float64, error) {
	scores, err := PerClass(yTrue, yPred, policy)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, s := range scores {
		if s.Support == 0 {
			continue
		}
		sum += s.F1 * float64(s.Support)
	}
	return sum / float64(len(yTrue)), nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred []string) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	return 1 - mismatchRate(yTrue, yPred), nil
}

// Disagreement は2つの予測列で値が異なる行の割合を返す
// 正解ラベルとは独立した対称な指標で、値域は [0, 1]
func Disagreement(a, b []string) (float64, error) {
	if err := checkPair("Disagreement", a, b); err != nil {
		return 0, err
	}
	return mismatchRate(a, b), nil
}

func mismatchRate(a, b []string) float64 {
	diff := 0
	for i := range a {
		if a[i] != b[i] {
			diff++
		}
	}
	return float64(diff) / float64(len(a))
}

func checkPair(op string, a, b []string) error {
	if len(a) == 0 || len(b) == 0 {
		return errors.NewValueError(op, "empty prediction set")
	}
	if len(a) != len(b) {
		return errors.NewDimensionError(op, len(a), len(b), 0)
	}
	return nil
}

func undefined(policy ZeroDivision, metric, condition string) float64 {
	if policy == ZeroDivisionNaN {
		return math.NaN()
	}
	errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
	return 0
}
