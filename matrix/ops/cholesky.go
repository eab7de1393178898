// Package ops provides advanced matrix operations for the AYB matrix kernel.
// Cholesky computes the lower-triangular factor of a symmetric
// positive-definite matrix; InvertViaCholesky uses it for a cheaper SPD
// inverse than the general LU-based Inverse.
package ops

import (
	"fmt"
	"math"

	"github.com/seqcore/ayb/matrix"
)

// Cholesky returns the lower-triangular L such that m = L·Lᵀ.
// Blueprint:
//
//	Stage 1 (Validate): m square.
//	Stage 2 (Prepare): allocate L.
//	Stage 3 (Execute): standard column-by-column Cholesky-Crout recursion.
//	Stage 4 (Finalize): return L, or ErrSingular on a non-positive diagonal
//	term (m is not SPD within numerical tolerance).
//
// Complexity: O(n^3) time, O(n^2) memory.
func Cholesky(m matrix.Matrix) (matrix.Matrix, error) {
	// Stage 1: Validate input shape.
	if err := matrix.ValidateSquare(m); err != nil {
		return nil, fmt.Errorf("Cholesky: %w", err)
	}
	n := m.Rows()

	// Stage 2: Prepare result container.
	L, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("Cholesky: %w", err)
	}

	// Stage 3: Column-by-column Cholesky-Crout.
	var (
		i, j, k    int
		sum        float64
		aij, diag  float64
		lik, ljk   float64
		pivotCheck float64
	)
	for j = 0; j < n; j++ {
		// Diagonal entry L[j][j].
		sum = 0.0
		for k = 0; k < j; k++ {
			ljk, _ = L.At(j, k)
			sum += ljk * ljk
		}
		aij, _ = m.At(j, j)
		pivotCheck = aij - sum
		if pivotCheck <= 0 {
			return nil, fmt.Errorf("Cholesky: non-positive pivot at %d: %w", j, ErrSingular)
		}
		diag = math.Sqrt(pivotCheck)
		_ = L.Set(j, j, diag)

		// Below-diagonal entries in column j.
		for i = j + 1; i < n; i++ {
			sum = 0.0
			for k = 0; k < j; k++ {
				lik, _ = L.At(i, k)
				ljk, _ = L.At(j, k)
				sum += lik * ljk
			}
			aij, _ = m.At(i, j)
			_ = L.Set(i, j, (aij-sum)/diag)
		}
	}

	// Stage 4: Return L.
	return L, nil
}

// InvertViaCholesky returns m⁻¹ for symmetric positive-definite m using its
// Cholesky factor and forward/backward substitution per identity column,
// mirroring Inverse's structure but over L instead of L,U.
// Complexity: O(n^3) time, O(n^2) memory.
func InvertViaCholesky(m matrix.Matrix) (matrix.Matrix, error) {
	L, err := Cholesky(m)
	if err != nil {
		return nil, fmt.Errorf("InvertViaCholesky: %w", err)
	}
	n := m.Rows()

	inv, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("InvertViaCholesky: %w", err)
	}
	y := make([]float64, n)
	x := make([]float64, n)

	var col, i, k int
	var sum, lii, lik float64
	for col = 0; col < n; col++ {
		// Forward substitution: L·y = e_col.
		for i = 0; i < n; i++ {
			sum = 0.0
			for k = 0; k < i; k++ {
				lik, _ = L.At(i, k)
				sum += lik * y[k]
			}
			lii, _ = L.At(i, i)
			if i == col {
				y[i] = (1.0 - sum) / lii
			} else {
				y[i] = -sum / lii
			}
		}
		// Backward substitution: Lᵀ·x = y.
		for i = n - 1; i >= 0; i-- {
			sum = 0.0
			for k = i + 1; k < n; k++ {
				lik, _ = L.At(k, i)
				sum += lik * x[k]
			}
			lii, _ = L.At(i, i)
			x[i] = (y[i] - sum) / lii
		}
		for i = 0; i < n; i++ {
			_ = inv.Set(i, col, x[i])
		}
	}

	return inv, nil
}
