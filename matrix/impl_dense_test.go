// Package matrix_test contains unit tests for the Dense implementation
// of the Matrix interface and the array-level kernel built on it.
package matrix_test

import (
	"math"
	"testing"

	"github.com/seqcore/ayb/matrix"
	"github.com/stretchr/testify/require"
)

// TestNewDenseInvalidDimensions ensures NewDense rejects non-positive shapes.
func TestNewDenseInvalidDimensions(t *testing.T) {
	_, err := matrix.NewDense(0, 5)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	_, err = matrix.NewDense(5, 0)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

// TestRowsCols verifies Rows()/Cols() report the requested shape.
func TestRowsCols(t *testing.T) {
	m, err := matrix.NewDense(3, 4)
	require.NoError(t, err)
	require.Equal(t, 3, m.Rows())
	require.Equal(t, 4, m.Cols())
}

// TestAtSetOutOfBounds ensures At/Set return ErrOutOfRange, never panic.
func TestAtSetOutOfBounds(t *testing.T) {
	m, err := matrix.NewDense(2, 2)
	require.NoError(t, err)

	_, err = m.At(-1, 0)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	_, err = m.At(0, 2)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	err = m.Set(2, 0, 1.23)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
}

// TestSetGet validates Set() followed by At() on valid indices.
func TestSetGet(t *testing.T) {
	m, err := matrix.NewDense(2, 3)
	require.NoError(t, err)

	require.NoError(t, m.Set(1, 2, 7.89))
	v, err := m.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, 7.89, v)
}

// TestSetRejectsNonFinite ensures the default numeric policy rejects NaN/Inf.
func TestSetRejectsNonFinite(t *testing.T) {
	m, err := matrix.NewDense(1, 1)
	require.NoError(t, err)

	err = m.Set(0, 0, math.NaN())
	require.ErrorIs(t, err, matrix.ErrNaNInf)

	err = m.Set(0, 0, math.Inf(1))
	require.ErrorIs(t, err, matrix.ErrNaNInf)
}

// TestFromArrayCopyInto covers the row-major ingestion path and CopyInto's
// reallocate-on-mismatch behaviour.
func TestFromArrayCopyInto(t *testing.T) {
	src := []float64{1, 2, 3, 4, 5, 6}
	m, err := matrix.FromArray(2, 3, src)
	require.NoError(t, err)
	v, _ := m.At(1, 2)
	require.Equal(t, 6.0, v)

	_, err = matrix.FromArray(2, 2, src)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	dst, err := matrix.NewDense(1, 1)
	require.NoError(t, err)
	require.NoError(t, matrix.CopyInto(dst, m))
	require.Equal(t, 2, dst.Rows())
	require.Equal(t, 3, dst.Cols())
	v, _ = dst.At(0, 0)
	require.Equal(t, 1.0, v)
}

// TestClone ensures Clone is an independent deep copy.
func TestClone(t *testing.T) {
	m, err := matrix.NewDense(2, 2)
	require.NoError(t, err)
	require.NoError(t, m.Set(0, 0, 5))

	c := m.Clone()
	require.NoError(t, m.Set(0, 0, 9))
	v, _ := c.At(0, 0)
	require.Equal(t, 5.0, v)
}

// TestAddSubMul covers the canonical Add/Sub/Mul family and their
// dimension-mismatch errors.
func TestAddSubMul(t *testing.T) {
	a, _ := matrix.FromArray(2, 2, []float64{1, 2, 3, 4})
	b, _ := matrix.FromArray(2, 2, []float64{5, 6, 7, 8})

	sum, err := matrix.Add(a, b)
	require.NoError(t, err)
	v, _ := sum.At(1, 1)
	require.Equal(t, 12.0, v)

	diff, err := matrix.Sub(a, b)
	require.NoError(t, err)
	v, _ = diff.At(0, 0)
	require.Equal(t, -4.0, v)

	prod, err := matrix.Mul(a, b)
	require.NoError(t, err)
	v, _ = prod.At(0, 0)
	require.Equal(t, 19.0, v) // 1*5 + 2*7

	bad, _ := matrix.NewDense(3, 3)
	_, err = matrix.Add(a, bad)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestTranspose checks Transpose on a rectangular matrix.
func TestTranspose(t *testing.T) {
	m, _ := matrix.FromArray(2, 3, []float64{1, 2, 3, 4, 5, 6})
	tr, err := matrix.Transpose(m)
	require.NoError(t, err)
	require.Equal(t, 3, tr.Rows())
	require.Equal(t, 2, tr.Cols())
	v, _ := tr.At(2, 1)
	require.Equal(t, 6.0, v)
}

// TestTransposeInPlace checks the in-place variant on a square matrix.
func TestTransposeInPlace(t *testing.T) {
	m, _ := matrix.FromArray(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, matrix.TransposeInPlace(m))
	v, _ := m.At(0, 1)
	require.Equal(t, 3.0, v)
	v, _ = m.At(1, 0)
	require.Equal(t, 2.0, v)
}

// TestScale checks scalar scaling.
func TestScale(t *testing.T) {
	m, _ := matrix.FromArray(1, 3, []float64{1, 2, 3})
	out, err := matrix.Scale(m, 2.0)
	require.NoError(t, err)
	v, _ := out.At(0, 2)
	require.Equal(t, 6.0, v)
}

// TestAppendColumns checks appending a column range onto an empty and a
// non-empty destination.
func TestAppendColumns(t *testing.T) {
	src, _ := matrix.FromArray(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	dst, err := matrix.AppendColumns(nil, src, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 2, dst.Rows())
	require.Equal(t, 2, dst.Cols())
	v, _ := dst.At(0, 0)
	require.Equal(t, 2.0, v)

	dst2, err := matrix.AppendColumns(dst, src, 3, 3)
	require.NoError(t, err)
	require.Equal(t, 3, dst2.Cols())
	v, _ = dst2.At(0, 2)
	require.Equal(t, 4.0, v)
}

// TestBlockDiagonal extracts diagonal 2x2 blocks from a 4x4 matrix.
func TestBlockDiagonal(t *testing.T) {
	m, _ := matrix.FromArray(4, 4, []float64{
		1, 2, 0, 0,
		3, 4, 0, 0,
		0, 0, 5, 6,
		0, 0, 7, 8,
	})
	blocks, err := matrix.BlockDiagonal(m, 2, 2)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	v, _ := blocks[1].At(0, 1)
	require.Equal(t, 6.0, v)
}

// TestXMY checks the bilinear form xᵀMy.
func TestXMY(t *testing.T) {
	m, _ := matrix.FromArray(2, 2, []float64{1, 0, 0, 1})
	x := []float64{1, 2}
	y := []float64{3, 4}
	got, err := matrix.XMY(x, m, y)
	require.NoError(t, err)
	require.Equal(t, 11.0, got) // identity: x.y = 3+8
}
