// Package mpn_test checks the alternating least-squares estimator recovers
// near-identity crosstalk/phasing parameters from noiseless synthetic data,
// per spec.md §8 property 5, plus its input validation.
package mpn_test

import (
	"testing"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
	"github.com/seqcore/ayb/mpn"
	"github.com/stretchr/testify/require"
)

func frobeniusDelta(t *testing.T, a, b *matrix.Dense) float64 {
	t.Helper()
	require.Equal(t, a.Rows(), b.Rows())
	require.Equal(t, a.Cols(), b.Cols())
	var sum float64
	var i, j int
	for i = 0; i < a.Rows(); i++ {
		for j = 0; j < a.Cols(); j++ {
			av, _ := a.At(i, j)
			bv, _ := b.At(i, j)
			d := av - bv
			sum += d * d
		}
	}

	return sum
}

// TestEstimateRecoversIdentityCrosstalkAndPhasing builds noiseless synthetic
// clusters (I = lambda*S, since the generating M and P are both identity)
// and checks the estimator pulls a slightly perturbed starting M back toward
// identity within a handful of iterations.
func TestEstimateRecoversIdentityCrosstalkAndPhasing(t *testing.T) {
	combos := [][2]basecall.NUC{
		{basecall.BaseA, basecall.BaseA},
		{basecall.BaseC, basecall.BaseC},
		{basecall.BaseA, basecall.BaseC},
		{basecall.BaseC, basecall.BaseA},
	}
	lambdas := []float64{2.0, 3.0}

	var clusters []mpn.Cluster
	for _, lambda := range lambdas {
		for _, combo := range combos {
			var vals []float64
			switch {
			case combo[0] == basecall.BaseA && combo[1] == basecall.BaseA:
				vals = []float64{1, 1, 0, 0}
			case combo[0] == basecall.BaseC && combo[1] == basecall.BaseC:
				vals = []float64{0, 0, 1, 1}
			case combo[0] == basecall.BaseA && combo[1] == basecall.BaseC:
				vals = []float64{1, 0, 0, 1}
			default:
				vals = []float64{0, 1, 1, 0}
			}
			scaled := make([]float64, len(vals))
			for i, v := range vals {
				scaled[i] = v * lambda
			}
			I, err := matrix.FromArray(2, 2, scaled)
			require.NoError(t, err)
			clusters = append(clusters, mpn.Cluster{
				I:      I,
				Bases:  []basecall.NUC{combo[0], combo[1]},
				Lambda: lambda,
			})
		}
	}

	M, err := matrix.FromArray(2, 2, []float64{1.0, 0.02, 0.02, 1.0}) // slightly perturbed
	require.NoError(t, err)
	P, err := matrix.FromArray(2, 2, []float64{1, 0, 0, 1})
	require.NoError(t, err)
	N, err := matrix.NewDense(2, 2)
	require.NoError(t, err)

	state := &mpn.State{M: M, P: P, N: N}
	_, err = mpn.Estimate(state, clusters, 5)
	require.NoError(t, err)

	trueM, _ := matrix.FromArray(2, 2, []float64{1, 0, 0, 1})
	trueP, _ := matrix.FromArray(2, 2, []float64{1, 0, 0, 1})
	require.Less(t, frobeniusDelta(t, state.M, trueM), 0.1)
	require.Less(t, frobeniusDelta(t, state.P, trueP), 0.1)
}

// TestEstimateNoClusters checks the empty-input guard.
func TestEstimateNoClusters(t *testing.T) {
	M, _ := matrix.NewDense(2, 2)
	_ = M.Set(0, 0, 1.0)
	_ = M.Set(1, 1, 1.0)
	P, _ := matrix.NewDense(2, 2)
	_ = P.Set(0, 0, 1.0)
	_ = P.Set(1, 1, 1.0)
	N, _ := matrix.NewDense(2, 2)

	state := &mpn.State{M: M, P: P, N: N}
	_, err := mpn.Estimate(state, nil, 3)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}
