// Package covariance_test checks the per-cycle residual covariance
// accumulator, including its documented in-place overwrite of the processed
// intensity it consumes.
package covariance_test

import (
	"testing"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/covariance"
	"github.com/seqcore/ayb/matrix"
	"github.com/stretchr/testify/require"
)

func TestNewAccumulatorInvalidDimensions(t *testing.T) {
	_, err := covariance.NewAccumulator(0, 3)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	_, err = covariance.NewAccumulator(4, 0)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

// TestConsumeProcessedOverwritesInPlace checks the documented contract: P is
// rewritten with its residual against lambda*e_b.
func TestConsumeProcessedOverwritesInPlace(t *testing.T) {
	acc, err := covariance.NewAccumulator(4, 2)
	require.NoError(t, err)

	P, _ := matrix.FromArray(4, 2, []float64{
		3, 0,
		0, 3,
		0, 0,
		0, 0,
	})
	bases := []basecall.NUC{basecall.BaseA, basecall.BaseC}
	require.NoError(t, acc.ConsumeProcessed(P, 3.0, 1.0, bases))

	v, _ := P.At(0, 0)
	require.InDelta(t, 0.0, v, 1e-12) // 3 - lambda(3) at the called channel
	v, _ = P.At(1, 1)
	require.InDelta(t, 0.0, v, 1e-12)
	v, _ = P.At(1, 0)
	require.InDelta(t, 0.0, v, 1e-12) // uncalled channel untouched, was already 0
}

// TestFinalizeCycleVarIsTrace checks cycle_var[k] == tr(V_k), per spec.md
// §4.6, and that Omega inverts V_k.
func TestFinalizeCycleVarIsTrace(t *testing.T) {
	acc, err := covariance.NewAccumulator(2, 1)
	require.NoError(t, err)

	// Two clusters with known residuals against a single-cycle call of A.
	P1, _ := matrix.FromArray(2, 1, []float64{1, 2})
	P2, _ := matrix.FromArray(2, 1, []float64{-1, 2})
	bases := []basecall.NUC{basecall.BaseA}
	require.NoError(t, acc.ConsumeProcessed(P1, 0, 1.0, bases))
	require.NoError(t, acc.ConsumeProcessed(P2, 0, 1.0, bases))

	res, err := acc.Finalize()
	require.NoError(t, err)
	require.Len(t, res.CycleVar, 1)
	require.Len(t, res.Omega, 1)

	// V = ((1,2)(1,2)^T + (-1,2)(-1,2)^T) / 2
	//   = ((1,2)(2,4) + (1,-2)(-2,4)) / 2 = ((2,0)(0,8)) / 2 = diag(1,4)
	require.InDelta(t, 5.0, res.CycleVar[0], 1e-9) // tr(diag(1,4)) = 5

	omega := res.Omega[0]
	v, _ := omega.At(0, 0)
	require.InDelta(t, 1.0, v, 1e-9)
	v, _ = omega.At(1, 1)
	require.InDelta(t, 0.25, v, 1e-9)
	v, _ = omega.At(0, 1)
	require.InDelta(t, 0.0, v, 1e-9)
}

// TestFinalizeNoWeight checks the zero-total-weight guard.
func TestFinalizeNoWeight(t *testing.T) {
	acc, err := covariance.NewAccumulator(2, 1)
	require.NoError(t, err)
	_, err = acc.Finalize()
	require.ErrorIs(t, err, matrix.ErrSingular)
}

// TestConsumeProcessedDimensionMismatch checks bases/P shape validation.
func TestConsumeProcessedDimensionMismatch(t *testing.T) {
	acc, err := covariance.NewAccumulator(2, 2)
	require.NoError(t, err)

	P, _ := matrix.NewDense(2, 2)
	err = acc.ConsumeProcessed(P, 0, 1.0, []basecall.NUC{basecall.BaseA})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	wrongShape, _ := matrix.NewDense(3, 2)
	err = acc.ConsumeProcessed(wrongShape, 0, 1.0, []basecall.NUC{basecall.BaseA, basecall.BaseC})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
