// Package ayb implements the base-calling driver: it owns one sub-tile's
// (M, P, N) state, seeds it, alternates the MPN and covariance estimators,
// and emits final base/quality calls through an external sink.
package ayb

import "errors"

// Sentinel errors returned by the driver's own validation; estimator and
// kernel failures are wrapped and surfaced as one of the ExitKind values
// below rather than returned as bare errors from RunSubTile.
var (
	// ErrMatrixDimMismatch indicates an externally supplied seed matrix's
	// dimensions disagree with the sub-tile being processed.
	ErrMatrixDimMismatch = errors.New("ayb: seed matrix dimensions do not match sub-tile")
	// ErrInsufficientCycles indicates the intensity source yielded fewer
	// cycles than the block spec requires.
	ErrInsufficientCycles = errors.New("ayb: intensity source has fewer cycles than requested")
)

// ExitKind classifies how a sub-tile run concluded.
type ExitKind int

const (
	// OK: the sub-tile completed and its calls were emitted.
	OK ExitKind = iota
	// EstimateNonconvergent: the fit broke down numerically (a singular
	// seed or re-estimated M/P inverse, a failed per-cycle covariance
	// inverse, or the MPN estimator failing every inner step of an outer
	// iteration); the sub-tile's calls reflect its last stable fit, or are
	// all Ambig/MinQuality if no fit existed yet.
	EstimateNonconvergent
	// InsufficientCycles: the intensity source has fewer cycles than the
	// block spec requires. Fatal for the run.
	InsufficientCycles
	// BadBlockSpec: the block spec failed to parse or validate. Fatal for
	// the run.
	BadBlockSpec
	// MatrixDimMismatch: an externally supplied seed matrix disagreed with
	// the sub-tile's dimensions. Fatal for the run.
	MatrixDimMismatch
	// OutOfMemory: an allocation failed while processing this sub-tile;
	// the sub-tile is abandoned but the driver proceeds to the next one.
	OutOfMemory
)

// String renders the ExitKind as its spec-level name.
func (k ExitKind) String() string {
	switch k {
	case OK:
		return "OK"
	case EstimateNonconvergent:
		return "ESTIMATE_NONCONVERGENT"
	case InsufficientCycles:
		return "INSUFFICIENT_CYCLES"
	case BadBlockSpec:
		return "BAD_BLOCKSPEC"
	case MatrixDimMismatch:
		return "MATRIX_DIM_MISMATCH"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	default:
		return "UNKNOWN"
	}
}
