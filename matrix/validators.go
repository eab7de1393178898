// Package matrix: shared validators used by every kernel to fail fast and
// consistently before doing any numeric work.
package matrix

import (
	"fmt"
	"math"
)

// ValidateNotNil ensures the Matrix is non-nil.
// Returns ErrNilMatrix if m == nil. Complexity: O(1).
func ValidateNotNil(m Matrix) error {
	if m == nil {
		return fmt.Errorf("ValidateNotNil: %w", ErrNilMatrix)
	}

	return nil
}

// ValidateSameShape checks that a and b have identical dimensions.
// Complexity: O(1).
func ValidateSameShape(a, b Matrix) error {
	if err := ValidateNotNil(a); err != nil {
		return wrapf("ValidateSameShape", err)
	}
	if err := ValidateNotNil(b); err != nil {
		return wrapf("ValidateSameShape", err)
	}
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return wrapf("ValidateSameShape", fmt.Errorf(
			"%dx%d != %dx%d: %w", a.Rows(), a.Cols(), b.Rows(), b.Cols(), ErrDimensionMismatch))
	}

	return nil
}

// ValidateSquare checks that m is square (Rows == Cols). Complexity: O(1).
func ValidateSquare(m Matrix) error {
	if err := ValidateNotNil(m); err != nil {
		return wrapf("ValidateSquare", err)
	}
	if m.Rows() != m.Cols() {
		return wrapf("ValidateSquare", fmt.Errorf(
			"%dx%d not square: %w", m.Rows(), m.Cols(), ErrDimensionMismatch))
	}

	return nil
}

// ValidateVecLen checks that x has exactly n entries. Complexity: O(1).
func ValidateVecLen(x []float64, n int) error {
	if len(x) != n {
		return wrapf("ValidateVecLen", fmt.Errorf(
			"len %d != %d: %w", len(x), n, ErrDimensionMismatch))
	}

	return nil
}

// ValidateSymmetric checks that m is square and that |m[i,j]-m[j,i]| <= tol
// for every off-diagonal pair. Complexity: O(n^2).
func ValidateSymmetric(m Matrix, tol float64) error {
	if err := ValidateSquare(m); err != nil {
		return wrapf("ValidateSymmetric", err)
	}
	n := m.Rows()
	var i, j int
	var aij, aji float64
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			aij, _ = m.At(i, j)
			aji, _ = m.At(j, i)
			if math.Abs(aij-aji) > tol {
				return wrapf("ValidateSymmetric", ErrAsymmetry)
			}
		}
	}

	return nil
}
