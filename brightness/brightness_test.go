// Package brightness_test covers the OLS and WLS brightness estimators,
// including their fallback-to-zero and fallback-to-previous paths.
package brightness_test

import (
	"testing"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/brightness"
	"github.com/seqcore/ayb/matrix"
	"github.com/stretchr/testify/require"
)

// TestEstimateOLS checks the closed-form mean-at-called-channel estimate.
func TestEstimateOLS(t *testing.T) {
	P, _ := matrix.FromArray(4, 3, []float64{
		2, 3, 4, // channel A
		0, 0, 0, // channel C
		0, 0, 0, // channel G
		0, 0, 0, // channel T
	})
	bases := []brightness.NucSlice{basecall.BaseA, basecall.BaseA, basecall.BaseA}
	lambda, err := brightness.EstimateOLS(P, bases)
	require.NoError(t, err)
	require.InDelta(t, 3.0, lambda, 1e-9) // mean(2,3,4)
}

// TestEstimateOLSEmptyBases checks the K<=0 fallback to 0.
func TestEstimateOLSEmptyBases(t *testing.T) {
	P, _ := matrix.NewDense(4, 1)
	lambda, err := brightness.EstimateOLS(P, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, lambda)
}

// TestEstimateOLSClampsNegative checks a negative mean clamps to 0 rather
// than propagating.
func TestEstimateOLSClampsNegative(t *testing.T) {
	P, _ := matrix.FromArray(4, 2, []float64{
		-2, -4,
		0, 0,
		0, 0,
		0, 0,
	})
	bases := []brightness.NucSlice{basecall.BaseA, basecall.BaseA}
	lambda, err := brightness.EstimateOLS(P, bases)
	require.NoError(t, err)
	require.Equal(t, 0.0, lambda)
}

// TestEstimateOLSDimensionMismatch checks P/bases length validation.
func TestEstimateOLSDimensionMismatch(t *testing.T) {
	P, _ := matrix.NewDense(4, 2)
	bases := []brightness.NucSlice{basecall.BaseA, basecall.BaseA, basecall.BaseA}
	_, err := brightness.EstimateOLS(P, bases)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestEstimateWLS checks the variance-weighted average excludes
// non-positive-variance cycles.
func TestEstimateWLS(t *testing.T) {
	P, _ := matrix.FromArray(4, 3, []float64{
		2, 3, 100, // channel A; third cycle has no weight, must be excluded
		0, 0, 0,
		0, 0, 0,
		0, 0, 0,
	})
	bases := []brightness.NucSlice{basecall.BaseA, basecall.BaseA, basecall.BaseA}
	cycleVar := []float64{1.0, 1.0, 0.0} // third cycle excluded
	lambda, err := brightness.EstimateWLS(P, bases, 0, cycleVar)
	require.NoError(t, err)
	require.InDelta(t, 2.5, lambda, 1e-9) // equal weights over first two: mean(2,3)
}

// TestEstimateWLSFallsBackToPrevious checks the all-cycles-excluded path
// returns lambdaPrev.
func TestEstimateWLSFallsBackToPrevious(t *testing.T) {
	P, _ := matrix.FromArray(4, 2, []float64{1, 2, 0, 0, 0, 0, 0, 0})
	bases := []brightness.NucSlice{basecall.BaseA, basecall.BaseA}
	cycleVar := []float64{0, -1}
	lambda, err := brightness.EstimateWLS(P, bases, 4.25, cycleVar)
	require.NoError(t, err)
	require.Equal(t, 4.25, lambda)
}

// TestEstimateWLSDimensionMismatch checks cycleVar/bases/P length validation.
func TestEstimateWLSDimensionMismatch(t *testing.T) {
	P, _ := matrix.NewDense(4, 2)
	bases := []brightness.NucSlice{basecall.BaseA, basecall.BaseA}
	_, err := brightness.EstimateWLS(P, bases, 0, []float64{1.0})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
