// Package ops provides advanced matrix operations for the AYB matrix kernel.
// This file collects the sentinel errors shared across the package's
// decompositions (Cholesky, Eigen), mirroring the one-errors-file-per-
// package convention of matrix/errors.go.
package ops

import "errors"

var (
	// ErrSingular is returned when a zero or non-positive pivot is
	// encountered during Cholesky factorization (and so by
	// InvertViaCholesky) — spec.md §7's SINGULAR, surfaced by
	// covariance.Finalize's per-cycle inversions.
	ErrSingular = errors.New("ops: matrix is singular")

	// ErrNotSymmetric is returned when Eigen's input violates symmetry
	// within its tolerance.
	ErrNotSymmetric = errors.New("ops: matrix is not symmetric")

	// ErrEigenFailed is returned if the Jacobi sweep does not converge
	// within the caller's iteration budget.
	ErrEigenFailed = errors.New("ops: eigen decomposition did not converge")
)
