// Package intensity_test verifies the processed-intensity kernel against
// spec.md §8 property 1: process() followed by reapplying M,P,N reproduces
// the original intensities.
package intensity_test

import (
	"testing"

	"github.com/seqcore/ayb/intensity"
	"github.com/seqcore/ayb/matrix"
	"github.com/stretchr/testify/require"
)

// buildInverseTransposes computes (M^-1)^T and (P^-1)^T for the given M, P.
func buildInverseTransposes(t *testing.T, M, P *matrix.Dense) (*matrix.Dense, *matrix.Dense) {
	t.Helper()
	Mi, err := matrix.Inverse(M)
	require.NoError(t, err)
	Pi, err := matrix.Inverse(P)
	require.NoError(t, err)
	MiT, err := matrix.Transpose(Mi)
	require.NoError(t, err)
	PiT, err := matrix.Transpose(Pi)
	require.NoError(t, err)

	return MiT.(*matrix.Dense), PiT.(*matrix.Dense)
}

// TestProcessRoundTrip builds I = M*S*P + N for a known S (an indicator
// matrix scaled by lambda) and checks Process recovers S*lambda.
func TestProcessRoundTrip(t *testing.T) {
	M, _ := matrix.FromArray(4, 4, []float64{
		1.0, 0.1, 0.0, 0.0,
		0.05, 1.0, 0.1, 0.0,
		0.0, 0.05, 1.0, 0.1,
		0.0, 0.0, 0.05, 1.0,
	})
	P, _ := matrix.FromArray(3, 3, []float64{
		1.0, 0.1, 0.0,
		0.0, 1.0, 0.1,
		0.0, 0.0, 1.0,
	})
	N, _ := matrix.FromArray(4, 3, []float64{
		0.1, 0.1, 0.1,
		0.1, 0.1, 0.1,
		0.1, 0.1, 0.1,
		0.1, 0.1, 0.1,
	})
	lambda := 2.5
	S, _ := matrix.FromArray(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		0, 0, 0,
	})

	MS, err := matrix.Mul(M, S)
	require.NoError(t, err)
	MSP, err := matrix.Mul(MS, P)
	require.NoError(t, err)
	scaled, err := matrix.Scale(MSP, lambda)
	require.NoError(t, err)
	Isum, err := matrix.Add(scaled, N)
	require.NoError(t, err)
	I := Isum.(*matrix.Dense)

	MiT, PiT := buildInverseTransposes(t, M, P)
	out, err := intensity.Process(I, MiT, PiT, N, nil)
	require.NoError(t, err)

	var r, c int
	for r = 0; r < 4; r++ {
		for c = 0; c < 3; c++ {
			want, _ := S.At(r, c)
			want *= lambda
			got, _ := out.At(r, c)
			require.InDeltaf(t, want, got, 1e-6, "entry (%d,%d)", r, c)
		}
	}
}

// TestProcessReusesOut checks the caller-owned out buffer is reused, not
// reallocated, when shapes already match.
func TestProcessReusesOut(t *testing.T) {
	M, _ := matrix.NewDense(4, 4)
	var i int
	for i = 0; i < 4; i++ {
		_ = M.Set(i, i, 1.0)
	}
	P, _ := matrix.NewDense(2, 2)
	_ = P.Set(0, 0, 1.0)
	_ = P.Set(1, 1, 1.0)
	N, _ := matrix.NewDense(4, 2)
	I, _ := matrix.FromArray(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	out, _ := matrix.NewDense(4, 2)
	MiT, PiT := buildInverseTransposes(t, M, P)
	got, err := intensity.Process(I, MiT, PiT, N, out)
	require.NoError(t, err)
	require.Same(t, out, got)
	v, _ := got.At(0, 0)
	require.InDelta(t, 1.0, v, 1e-9)
}

// TestProcessDimensionMismatch checks shape validation surfaces
// ErrDimensionMismatch rather than panicking.
func TestProcessDimensionMismatch(t *testing.T) {
	M, _ := matrix.NewDense(4, 4)
	var i int
	for i = 0; i < 4; i++ {
		_ = M.Set(i, i, 1.0)
	}
	P, _ := matrix.NewDense(2, 2)
	_ = P.Set(0, 0, 1.0)
	_ = P.Set(1, 1, 1.0)
	N, _ := matrix.NewDense(4, 3) // wrong cycle count
	I, _ := matrix.NewDense(4, 2)

	MiT, PiT := buildInverseTransposes(t, M, P)
	_, err := intensity.Process(I, MiT, PiT, N, nil)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
