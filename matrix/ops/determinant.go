// Package ops provides advanced matrix operations for the AYB matrix package.
// Determinant and NormaliseToUnitDet implement the determinant-preserving
// rescaling step the MPN estimator applies to its crosstalk and phasing
// matrices after every iteration.
package ops

import (
	"fmt"
	"math"

	"github.com/seqcore/ayb/matrix"
)

// Determinant returns det(m) via the product of LU's U diagonal, with sign
// correction unnecessary here since LU (lu.go) performs no row pivoting.
// Returns matrix.ErrDimensionMismatch if m is not square.
// Complexity: O(n³).
func Determinant(m matrix.Matrix) (float64, error) {
	_, U, err := LU(m)
	if err != nil {
		return 0, fmt.Errorf("Determinant: %w", err)
	}
	n := m.Rows()
	det := 1.0
	var i int
	var uii float64
	for i = 0; i < n; i++ {
		uii, _ = U.At(i, i)
		det *= uii
	}

	return det, nil
}

// NormaliseToUnitDet rescales m in place by a single scalar factor so that
// |det(m)| == 1, returning the scale factor d = |det(m)|^(1/n) applied
// (m_scaled = m / d). Callers needing a coupled rescale of dependent state
// (e.g. a noise vector tied to the same crosstalk matrix) multiply that
// state by 1/d using the returned factor.
// Returns matrix.ErrNearSingular if d < eps (det(m) too close to zero to
// invert safely).
// Complexity: O(n³).
func NormaliseToUnitDet(m *matrix.Dense, eps float64) (float64, error) {
	det, err := Determinant(m)
	if err != nil {
		return 0, fmt.Errorf("NormaliseToUnitDet: %w", err)
	}
	n := m.Rows()
	absDet := math.Abs(det)
	if absDet < eps {
		return 0, fmt.Errorf("NormaliseToUnitDet: |det|=%g: %w", absDet, matrix.ErrNearSingular)
	}
	d := math.Pow(absDet, 1.0/float64(n))

	var i, j int
	var v float64
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			v, _ = m.At(i, j)
			_ = m.Set(i, j, v/d)
		}
	}

	return d, nil
}
