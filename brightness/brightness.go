// Package brightness estimates a cluster's multiplicative scale λ (one scalar per cluster)
// from its processed intensities: an ordinary-least-squares pass for the
// initial call, and a variance-weighted pass once per-cycle residual
// variances are available.
package brightness

import (
	"fmt"
	"math"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
)

// EstimateOLS fits λ by ordinary least squares on the regression
// p_{b,k} = λ·1{bases[k]=b}: the closed-form minimizer is the mean, over
// cycles, of the processed intensity at the called channel.
// Returns 0 if K (len(bases)) <= 0, or if the result is negative or
// non-finite (never propagates NaN/Inf to the caller).
// Complexity: O(K).
func EstimateOLS(P matrix.Matrix, bases []NucSlice) (float64, error) {
	k := len(bases)
	if k <= 0 {
		return 0, nil
	}
	if P.Cols() != k {
		return 0, fmt.Errorf("EstimateOLS: P has %d columns, want %d: %w", P.Cols(), k, matrix.ErrDimensionMismatch)
	}

	var sum float64
	var i int
	var v float64
	for i = 0; i < k; i++ {
		v, _ = P.At(int(bases[i]), i)
		sum += v
	}
	lambda := sum / float64(k)

	return clampNonNegative(lambda), nil
}

// NucSlice is a called base index, aliasing basecall.NUC so brightness does
// not force callers into basecall's full Call type for a simple bases[]
// lookup key.
type NucSlice = basecall.NUC

// EstimateWLS fits λ by least squares weighted by 1/cycleVar[k], excluding
// any cycle with cycleVar[k] <= 0 (that cycle contributes no information).
// Falls back to lambdaPrev if no cycle qualifies, or if the result would be
// negative or non-finite.
// Complexity: O(K).
func EstimateWLS(P matrix.Matrix, bases []NucSlice, lambdaPrev float64, cycleVar []float64) (float64, error) {
	k := len(bases)
	if len(cycleVar) != k {
		return 0, fmt.Errorf("EstimateWLS: cycleVar has %d entries, want %d: %w", len(cycleVar), k, matrix.ErrDimensionMismatch)
	}
	if P.Cols() != k {
		return 0, fmt.Errorf("EstimateWLS: P has %d columns, want %d: %w", P.Cols(), k, matrix.ErrDimensionMismatch)
	}

	var num, den float64
	var i int
	var v, wgt float64
	for i = 0; i < k; i++ {
		if cycleVar[i] <= 0 {
			continue
		}
		wgt = 1.0 / cycleVar[i]
		v, _ = P.At(int(bases[i]), i)
		num += wgt * v
		den += wgt
	}
	if den <= 0 {
		return clampNonNegative(lambdaPrev), nil
	}
	lambda := num / den
	if !isFinite(lambda) {
		return clampNonNegative(lambdaPrev), nil
	}

	return clampNonNegative(lambda), nil
}

func clampNonNegative(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}

	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
