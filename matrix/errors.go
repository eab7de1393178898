// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set (unified, consistent).
// This file defines ONLY package-level sentinel errors used across the
// matrix package. All algorithms MUST return these sentinels and tests MUST
// check them via errors.Is. No algorithm panics on a caller-triggered error
// condition. Panics are reserved for programmer errors in private helpers
// (if any).
package matrix

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "matrix: ..." for consistency and to allow
// easy grepping across logs. DO NOT %w wrap these sentinels when returning
// directly; if context is essential, wrap with fmt.Errorf("ctx: %w", ErrX)
// at the outer boundary — callers will still use errors.Is to match.

var (
	// ErrInvalidDimensions indicates that requested matrix dimensions are
	// non-positive. Corresponds to spec.md §7's INVALID_DIM.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrOutOfRange indicates that an index (row or column) is outside
	// valid bounds. Public indexers (At/Set) MUST return this, not panic.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between
	// operands, e.g. Add/Sub on different shapes, Mul with a.Cols !=
	// b.Rows, or a non-square matrix where one is required.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrAsymmetry signals that a matrix expected to be symmetric violated
	// symmetry within the configured tolerance.
	ErrAsymmetry = errors.New("matrix: matrix is not symmetric within tolerance")

	// ErrNaNInf signals a NaN or ±Inf value was encountered where finite
	// values are required by the numeric policy (ingestion, Set, etc.).
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil Matrix (receiver or argument) was
	// used.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrBadShape indicates an invalid view or submatrix window (negative
	// size, or a window exceeding the base matrix's bounds).
	ErrBadShape = errors.New("matrix: invalid shape or window")

	// ErrEigenFailed indicates that the Jacobi eigen routine failed to
	// converge under the given tolerance/iteration budget.
	ErrEigenFailed = errors.New("matrix: eigen decomposition failed")

	// ErrSingular is returned when Inverse meets a zero pivot in its
	// non-pivoting scheme (intentional, for determinism), and when
	// ops.SVDSolve's eigen fallback fails. Corresponds to spec.md §7's
	// SINGULAR.
	ErrSingular = errors.New("matrix: singular matrix")

	// ErrNearSingular is returned by NormaliseToUnitDet when the computed
	// scale factor is below the caller's epsilon. Corresponds to spec.md
	// §7's NEAR_SINGULAR.
	ErrNearSingular = errors.New("matrix: near-singular matrix")
)

// wrapf wraps an underlying error with the given operation tag.
func wrapf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
