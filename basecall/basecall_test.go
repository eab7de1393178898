// Package basecall_test covers the simple argmax caller and the
// minimum-LS statistical caller with posterior-probability quality,
// including the noiseless-call and quality-monotonicity properties of
// spec.md §8.
package basecall_test

import (
	"math"
	"testing"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
	"github.com/stretchr/testify/require"
)

func identity4(t *testing.T) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(4, 4)
	require.NoError(t, err)
	var i int
	for i = 0; i < 4; i++ {
		require.NoError(t, m.Set(i, i, 1.0))
	}
	return m
}

func TestSimpleArgmax(t *testing.T) {
	require.Equal(t, basecall.BaseC, basecall.Simple([]float64{1, 5, 2, 0}))
	require.Equal(t, basecall.Ambig, basecall.Simple([]float64{3, 3, 3, 3}))
	require.Equal(t, basecall.Ambig, basecall.Simple([]float64{1, math.NaN(), 2, 0}))
	require.Equal(t, basecall.Ambig, basecall.Simple([]float64{1, 2, 3}))
}

// TestStatisticalNoiselessCall checks spec.md §8 property 3: p = lambda*e_b,
// Omega = Id, lambda > 0 -> call == b, quality >= MaxQuality-1.
func TestStatisticalNoiselessCall(t *testing.T) {
	omega := identity4(t)
	bases := []basecall.NUC{basecall.BaseA, basecall.BaseC, basecall.BaseG, basecall.BaseT}
	const lambda = 5.0
	const mu = 1e-7
	for _, b := range bases {
		p := make([]float64, 4)
		p[b] = lambda
		call, err := basecall.Statistical(p, lambda, omega, nil, mu)
		require.NoError(t, err)
		require.Equal(t, b, call.Base)
		require.GreaterOrEqual(t, int(call.Quality), int(basecall.MaxQuality)-1)
	}
}

// TestStatisticalZeroLambda checks the degenerate lambda==0 path.
func TestStatisticalZeroLambda(t *testing.T) {
	omega := identity4(t)
	call, err := basecall.Statistical([]float64{1, 2, 3, 4}, 0, omega, nil, 1e-5)
	require.NoError(t, err)
	require.Equal(t, basecall.BaseA, call.Base)
	require.Equal(t, basecall.MinQuality, call.Quality)
}

// TestStatisticalDimensionMismatch checks p/omega/penalty length validation.
func TestStatisticalDimensionMismatch(t *testing.T) {
	omega := identity4(t)
	_, err := basecall.Statistical([]float64{1, 2, 3}, 1.0, omega, nil, 1e-5)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	_, err = basecall.Statistical([]float64{1, 2, 3, 4}, 1.0, omega, []float64{1, 2}, 1e-5)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestQualityMonotoneInMaxProb checks spec.md §8 property 4: as mu shrinks
// toward 0, quality is monotone non-decreasing as the call becomes more
// confident (smaller residual against the called channel).
func TestQualityMonotoneInMaxProb(t *testing.T) {
	omega := identity4(t)
	mu := 1e-8

	weak, err := basecall.Statistical([]float64{0.2, 0, 0, 0}, 1.0, omega, nil, mu)
	require.NoError(t, err)
	strong, err := basecall.Statistical([]float64{1.0, 0, 0, 0}, 1.0, omega, nil, mu)
	require.NoError(t, err)

	require.LessOrEqual(t, int(weak.Quality), int(strong.Quality))
}
