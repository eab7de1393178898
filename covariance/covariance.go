// Package covariance accumulates per-cycle residual covariance across a
// tile's clusters and derives the inverse covariance Ω each base call needs.
package covariance

import (
	"fmt"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
	"github.com/seqcore/ayb/matrix/ops"
)

// Accumulator builds the per-cycle residual covariance Vₖ over a forward
// sweep of clusters, then yields cycle_var[k] = tr(Vₖ) and Ωₖ = V⁻¹ₖ.
type Accumulator struct {
	nbase   int
	ncycle  int
	v       []*matrix.Dense // one NBASE×NBASE accumulator per cycle
	sumW    float64
	scratch []float64 // reused NBASE-length residual column
}

// NewAccumulator allocates an Accumulator for ncycle cycles over nbase
// channels. Returns matrix.ErrInvalidDimensions if either is <= 0.
func NewAccumulator(nbase, ncycle int) (*Accumulator, error) {
	if nbase <= 0 || ncycle <= 0 {
		return nil, matrix.ErrInvalidDimensions
	}
	v := make([]*matrix.Dense, ncycle)
	var k int
	var err error
	for k = 0; k < ncycle; k++ {
		v[k], err = matrix.NewDense(nbase, nbase)
		if err != nil {
			return nil, fmt.Errorf("NewAccumulator: %w", err)
		}
	}

	return &Accumulator{
		nbase:   nbase,
		ncycle:  ncycle,
		v:       v,
		scratch: make([]float64, nbase),
	}, nil
}

// ConsumeProcessed accumulates one cluster's contribution into the running
// Vₖ sums and, as a deliberate micro-optimization, overwrites P in place
// with its own residual: this method consumes P, and the caller must not
// reuse it afterward.
//
// For each cycle k, Rᵢ,ₖ = Pᵢ,ₖ − λᵢ·e_{bases[k]} (only the called channel's
// row is shifted by λ; P is rewritten to hold this residual), and
// Vₖ += weight · Rᵢ,ₖ·Rᵢ,ₖᵀ.
//
// Complexity: O(ncycle * nbase²).
func (a *Accumulator) ConsumeProcessed(P *matrix.Dense, lambda, weight float64, bases []basecall.NUC) error {
	if len(bases) != a.ncycle {
		return fmt.Errorf("ConsumeProcessed: bases has %d entries, want %d: %w", len(bases), a.ncycle, matrix.ErrDimensionMismatch)
	}
	if P.Rows() != a.nbase || P.Cols() != a.ncycle {
		return fmt.Errorf("ConsumeProcessed: P is %dx%d, want %dx%d: %w", P.Rows(), P.Cols(), a.nbase, a.ncycle, matrix.ErrDimensionMismatch)
	}

	a.sumW += weight
	var k, b, i, j int
	var v, rb float64
	for k = 0; k < a.ncycle; k++ {
		b = int(bases[k])

		// Overwrite P's column k in place with its residual.
		for i = 0; i < a.nbase; i++ {
			v, _ = P.At(i, k)
			if i == b {
				v -= lambda
			}
			_ = P.Set(i, k, v)
			a.scratch[i] = v
		}

		// Accumulate weight * R Rᵀ into V_k.
		vk := a.v[k]
		for i = 0; i < a.nbase; i++ {
			rb = a.scratch[i]
			if rb == 0 {
				continue
			}
			for j = 0; j < a.nbase; j++ {
				cur, _ := vk.At(i, j)
				_ = vk.Set(i, j, cur+weight*rb*a.scratch[j])
			}
		}
	}

	return nil
}

// Result holds the finalized per-cycle residual variance and inverse
// covariance.
type Result struct {
	CycleVar []float64
	Omega    []*matrix.Dense
}

// Finalize divides every Vₖ by the accumulated cluster weight, reports
// cycle_var[k] = tr(Vₖ), and inverts each Vₖ into Ωₖ via its Cholesky
// factor — Vₖ is a weighted sum of outer products RRᵀ and so is always
// symmetric positive-semidefinite, making the SPD-specialised
// ops.InvertViaCholesky a cheaper and more direct choice than the general
// LU-based matrix.Inverse.
// Returns ops.ErrSingular (wrapped) if a per-cycle covariance is not
// positive-definite (a non-positive Cholesky pivot); the caller is expected
// to treat that cycle's fit as a failed inner step per the estimator's
// convergence contract.
// Complexity: O(ncycle * nbase³).
func (a *Accumulator) Finalize() (Result, error) {
	if a.sumW <= 0 {
		return Result{}, fmt.Errorf("Finalize: total weight %g: %w", a.sumW, matrix.ErrSingular)
	}

	cycleVar := make([]float64, a.ncycle)
	omega := make([]*matrix.Dense, a.ncycle)
	var k, i int
	for k = 0; k < a.ncycle; k++ {
		vk := a.v[k]
		inv := 1.0 / a.sumW
		var j int
		var cur float64
		for i = 0; i < a.nbase; i++ {
			for j = 0; j < a.nbase; j++ {
				cur, _ = vk.At(i, j)
				_ = vk.Set(i, j, cur*inv)
			}
		}

		var trace float64
		for i = 0; i < a.nbase; i++ {
			cur, _ = vk.At(i, i)
			trace += cur
		}
		cycleVar[k] = trace

		invMat, err := ops.InvertViaCholesky(vk)
		if err != nil {
			return Result{}, fmt.Errorf("Finalize: cycle %d: %w", k, err)
		}
		invDense, ok := invMat.(*matrix.Dense)
		if !ok {
			invDense, err = matrix.NewDense(a.nbase, a.nbase)
			if err != nil {
				return Result{}, fmt.Errorf("Finalize: %w", err)
			}
			if err = matrix.CopyInto(invDense, invMat); err != nil {
				return Result{}, fmt.Errorf("Finalize: %w", err)
			}
		}
		omega[k] = invDense
	}

	return Result{CycleVar: cycleVar, Omega: omega}, nil
}
