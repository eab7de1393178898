// Package matrix provides the dense row-major linear-algebra kernel the AYB
// base-calling core is built on: allocation, element access, the canonical
// Add/Sub/Mul/Transpose/Scale family, and the decompositions (LU, QR,
// Cholesky, Jacobi eigen) used by the brightness, base-calling, covariance
// and MPN-estimation packages.
//
// Matrix provides a uniform abstraction over two-dimensional mutable arrays
// of float64 values. Dense is the only implementation the core ships; the
// interface exists so algorithms in this module operate generically and so
// tests can substitute lightweight doubles.
//
// Complexity:
//
//	Rows() and Cols() run in O(1) time.
//	At() and Set() perform bounds checking in O(1) time, returning an error
//	on invalid indices.
//	Clone() performs a deep copy in O(rows*cols) time, allocating new storage.
package matrix

// DefaultValidateNaNInf is the default numeric policy for freshly allocated
// Dense matrices: reject NaN/±Inf writes. AYB's model state never holds
// non-finite crosstalk, phasing or noise entries (spec.md §3), so catching
// them at the point of Set is cheaper than tracing them back from a later
// singular-matrix failure.
const DefaultValidateNaNInf = true

// Matrix represents a two-dimensional mutable array of float64 values.
// Each method enforces bounds checking and returns clear errors on misuse.
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	// Complexity: O(1).
	Rows() int

	// Cols returns the number of columns in the matrix.
	// Complexity: O(1).
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i<0, i>=Rows(), j<0 or j>=Cols().
	// Complexity: O(1).
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if indices are invalid, ErrNaNInf if the
	// receiver enforces a finite-value policy and v is not finite.
	// Complexity: O(1).
	Set(i, j int, v float64) error

	// Clone returns a deep copy of the matrix.
	// The returned Matrix is independent of the original.
	// Complexity: O(rows*cols).
	Clone() Matrix
}

// matrixErrorf wraps an underlying error with the given operation tag.
func matrixErrorf(tag string, err error) error {
	return wrapf(tag, err)
}

// FromArray copies r*c values from src (row-major order) into a new Dense.
// Complexity: O(r*c).
func FromArray(rows, cols int, src []float64) (*Dense, error) {
	if len(src) != rows*cols {
		return nil, ErrDimensionMismatch
	}
	m, err := NewDense(rows, cols)
	if err != nil {
		return nil, err
	}
	copy(m.data, src)

	return m, nil
}

// CopyInto copies src's values into dst, reallocating dst's backing storage
// if the shapes differ. Complexity: O(rows*cols).
func CopyInto(dst *Dense, src Matrix) error {
	if err := ValidateNotNil(src); err != nil {
		return matrixErrorf("CopyInto", err)
	}
	rows, cols := src.Rows(), src.Cols()
	if dst.r != rows || dst.c != cols {
		dst.r, dst.c = rows, cols
		dst.data = make([]float64, rows*cols)
	}
	if sd, ok := src.(*Dense); ok {
		copy(dst.data, sd.data)
		return nil
	}
	var i, j int
	var v float64
	var err error
	for i = 0; i < rows; i++ {
		for j = 0; j < cols; j++ {
			v, err = src.At(i, j)
			if err != nil {
				return matrixErrorf("CopyInto", err)
			}
			dst.data[i*cols+j] = v
		}
	}

	return nil
}
