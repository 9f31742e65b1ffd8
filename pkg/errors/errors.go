// Package errors はtreebench全体のエラー分類と警告システムを提供します。
// 致命的なエラー（LoadError）とデータセット単位で回復可能なエラー
// （FitError, PredictError）を型で区別し、ハーネスがその区別に従って
// 実行を中断するか、データセットをスキップするかを決定します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("treebench-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// UndefinedMetricWarning は評価指標が定義できない場合の警告です。
// 例えば、あるクラスが一度も予測されずに適合率が計算できない場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	ハーネス固有のエラー型
//
// ===========================================================================

// LoadError はデータセットファイルを読み込めない場合のエラーです。
// データセットの順序とインデックスが下流の解析で前提とされるため、
// このエラーは実行全体を中断します。
type LoadError struct {
	Path   string
	Line   int // 0 は行番号不明
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("treebench: load %s: %s: %v", loc, e.Reason, e.Err)
	}
	return fmt.Sprintf("treebench: load %s: %s", loc, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *LoadError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Int("line", e.Line).
		Str("reason", e.Reason).
		Str("type", "LoadError")
}

// NewLoadError は新しいLoadErrorを作成し、スタックトレースを付与します。
func NewLoadError(path string, line int, reason string, err error) error {
	return errors.WithStack(&LoadError{Path: path, Line: line, Reason: reason, Err: err})
}

// ImputationError は特徴量の列がすべて欠損しており補完できない場合のエラーです。
type ImputationError struct {
	Column string
	Rows   int
}

func (e *ImputationError) Error() string {
	return fmt.Sprintf("treebench: impute column '%s': all %d values are missing", e.Column, e.Rows)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ImputationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Int("rows", e.Rows).
		Str("type", "ImputationError")
}

// NewImputationError は新しいImputationErrorを作成し、スタックトレースを付与します。
func NewImputationError(column string, rows int) error {
	return errors.WithStack(&ImputationError{Column: column, Rows: rows})
}

// FitError はバックエンドの学習が失敗した場合のエラーです。
// Fold が -1 の場合は全データでのウォームアップ学習を示します。
type FitError struct {
	Backend string
	Fold    int
	Err     error
}

func (e *FitError) Error() string {
	if e.Fold < 0 {
		return fmt.Sprintf("treebench: %s: fit failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("treebench: %s: fit failed on fold %d: %v", e.Backend, e.Fold, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("backend", e.Backend).
		Int("fold", e.Fold).
		Str("type", "FitError")
}

// NewFitError は新しいFitErrorを作成し、スタックトレースを付与します。
func NewFitError(backend string, fold int, err error) error {
	return errors.WithStack(&FitError{Backend: backend, Fold: fold, Err: err})
}

// PredictError はバックエンドの予測が失敗した場合のエラーです。
type PredictError struct {
	Backend string
	Fold    int
	Err     error
}

func (e *PredictError) Error() string {
	if e.Fold < 0 {
		return fmt.Sprintf("treebench: %s: predict failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("treebench: %s: predict failed on fold %d: %v", e.Backend, e.Fold, e.Err)
}

func (e *PredictError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PredictError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("backend", e.Backend).
		Int("fold", e.Fold).
		Str("type", "PredictError")
}

// NewPredictError は新しいPredictErrorを作成し、スタックトレースを付与します。
func NewPredictError(backend string, fold int, err error) error {
	return errors.WithStack(&PredictError{Backend: backend, Fold: fold, Err: err})
}

// ===========================================================================
//
//	汎用のエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で Predict を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("treebench: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("treebench: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は設定値の検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("treebench: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切な場合のエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("treebench: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	分類ヘルパー
//
// ===========================================================================

// IsFatal はエラーが実行全体を中断すべきものかどうかを判定します。
func IsFatal(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}

// IsDatasetLevel はエラーがそのデータセットのみをスキップすべきものかどうかを判定します。
func IsDatasetLevel(err error) bool {
	var fitErr *FitError
	var predictErr *PredictError
	return errors.As(err, &fitErr) || errors.As(err, &predictErr)
}

// IsImputation はエラーがImputationErrorを含むかどうかを判定します。
func IsImputation(err error) bool {
	var impErr *ImputationError
	return errors.As(err, &impErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingleClass は学習データにクラスが1つしかない場合のエラーです。
	ErrSingleClass = New("training data contains a single class")
)
