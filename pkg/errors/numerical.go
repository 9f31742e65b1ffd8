package errors

import (
	"fmt"
	"math"
)

// NonFiniteError reports a NaN or Inf found where only finite values are allowed.
type NonFiniteError struct {
	Operation string
	Row       int
	Col       int
	Value     float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("treebench: %s: non-finite value %v at (%d, %d)", e.Operation, e.Value, e.Row, e.Col)
}

// CheckMatrix returns a NonFiniteError for the first NaN or Inf cell in matrix.
func CheckMatrix(operation string, matrix interface{ Dims() (int, int); At(int, int) float64 }) error {
	rows, cols := matrix.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return WithStack(&NonFiniteError{Operation: operation, Row: i, Col: j, Value: v})
			}
		}
	}
	return nil
}

// Ratio returns numerator/denominator, or fallback when the denominator is zero.
func Ratio(numerator, denominator, fallback float64) float64 {
	if denominator == 0 {
		return fallback
	}
	return numerator / denominator
}
