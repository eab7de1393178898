// Package ops provides advanced matrix operations for the AYB matrix package.
// SVDSolve solves a (possibly rank-deficient) linear least-squares system
// without a true singular-value decomposition: the pack carries Householder
// QR and Jacobi eigen but no SVD routine, so the normal-equations form
// AᵀA·x = Aᵀb is solved via QR, falling back to a Jacobi-eigen
// pseudo-inverse when QR's pivot shrinks below tol (AᵀA near-singular).
package ops

import (
	"fmt"
	"math"

	"github.com/seqcore/ayb/matrix"
)

// SVDSolve returns the least-squares solution x minimizing ||A·x - b||₂.
// A may be rectangular (rows >= cols); b must have length A.Rows().
// Blueprint:
//
//	Stage 1 (Validate): A non-nil, b length matches A.Rows().
//	Stage 2 (Normal equations): form G = AᵀA (cols×cols) and c = Aᵀb.
//	Stage 3 (Primary solve): QR-decompose G, back-substitute Rx = Qᵀc.
//	Stage 4 (Fallback): if any |R[i][i]| < tol, G is near-singular for the
//	QR path; instead solve via Jacobi eigen on G, inverting eigenvalues
//	above tol and zeroing the rest (Moore-Penrose pseudo-inverse truncation).
//
// Returns matrix.ErrDimensionMismatch on shape errors, matrix.ErrSingular if
// the Jacobi-eigen fallback fails; an all-zero G yields x = 0 and no error.
// Complexity: O(rows*cols^2 + cols^3).
func SVDSolve(A matrix.Matrix, b []float64, tol float64) ([]float64, error) {
	// Stage 1: Validate.
	if err := matrix.ValidateNotNil(A); err != nil {
		return nil, fmt.Errorf("SVDSolve: %w", err)
	}
	rows, cols := A.Rows(), A.Cols()
	if err := matrix.ValidateVecLen(b, rows); err != nil {
		return nil, fmt.Errorf("SVDSolve: %w", err)
	}

	// Stage 2: Normal equations G = AᵀA, c = Aᵀb.
	G, err := matrix.NewDense(cols, cols)
	if err != nil {
		return nil, fmt.Errorf("SVDSolve: %w", err)
	}
	c := make([]float64, cols)
	var i, j, k int
	var aik, ajk, aki, sum float64
	for i = 0; i < cols; i++ {
		for j = 0; j < cols; j++ {
			sum = 0.0
			for k = 0; k < rows; k++ {
				aki, _ = A.At(k, i)
				ajk, _ = A.At(k, j)
				sum += aki * ajk
			}
			_ = G.Set(i, j, sum)
		}
		sum = 0.0
		for k = 0; k < rows; k++ {
			aik, _ = A.At(k, i)
			sum += aik * b[k]
		}
		c[i] = sum
	}

	// Stage 3: Primary solve via QR.
	Q, R, err := QR(G)
	degenerate := err != nil
	if !degenerate {
		var rii float64
		for i = 0; i < cols; i++ {
			rii, _ = R.At(i, i)
			if math.Abs(rii) < tol {
				degenerate = true
				break
			}
		}
	}
	if !degenerate {
		// QR() returns Q already in the Qᵀ orientation (see qr.go), so
		// Qᵀc is Q applied directly as an ordinary matrix-vector product.
		qtc := make([]float64, cols)
		var qij float64
		for i = 0; i < cols; i++ {
			sum = 0.0
			for j = 0; j < cols; j++ {
				qij, _ = Q.At(i, j)
				sum += qij * c[j]
			}
			qtc[i] = sum
		}
		x := make([]float64, cols)
		var rij, xj float64
		for i = cols - 1; i >= 0; i-- {
			sum = qtc[i]
			for j = i + 1; j < cols; j++ {
				rij, _ = R.At(i, j)
				xj = x[j]
				sum -= rij * xj
			}
			rii, _ := R.At(i, i)
			x[i] = sum / rii
		}

		return x, nil
	}

	// Stage 4: Fallback via Jacobi eigen pseudo-inverse.
	eigs, V, err := Eigen(G, 1e-10, 200)
	if err != nil {
		return nil, fmt.Errorf("SVDSolve: %w", matrix.ErrSingular)
	}
	// x = V * diag(1/eig_i if |eig_i|>=tol else 0) * Vᵀ * c
	vtc := make([]float64, cols)
	var vij float64
	for i = 0; i < cols; i++ {
		sum = 0.0
		for j = 0; j < cols; j++ {
			vij, _ = V.At(j, i)
			sum += vij * c[j]
		}
		if math.Abs(eigs[i]) >= tol {
			vtc[i] = sum / eigs[i]
		} else {
			vtc[i] = 0.0
		}
	}
	x := make([]float64, cols)
	for i = 0; i < cols; i++ {
		sum = 0.0
		for j = 0; j < cols; j++ {
			vij, _ = V.At(i, j)
			sum += vij * vtc[j]
		}
		x[i] = sum
	}

	return x, nil
}
