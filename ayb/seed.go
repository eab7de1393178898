package ayb

import "github.com/seqcore/ayb/matrix"

// defaultCrosstalkPrior is the built-in 4x4 crosstalk matrix used when no
// external seed is supplied: a near-diagonal matrix whose off-diagonals
// encode the standard Illumina A/C/G/T channel bleed-through pattern (each
// channel leaks a little into every other channel, most into its immediate
// neighbours and least into the opposite channel).
//
// Row/column order is A, C, G, T.
var defaultCrosstalkPrior = [][]float64{
	{1.00, 0.10, 0.03, 0.01},
	{0.08, 1.00, 0.07, 0.02},
	{0.02, 0.06, 1.00, 0.09},
	{0.01, 0.03, 0.11, 1.00},
}

// BuiltinCrosstalk returns a fresh copy of the default crosstalk prior as a
// *matrix.Dense, sized nbase x nbase (nbase must be 4; any other value is
// an error since the prior is only defined for the four-channel case).
func BuiltinCrosstalk(nbase int) (*matrix.Dense, error) {
	if nbase != len(defaultCrosstalkPrior) {
		return nil, matrix.ErrInvalidDimensions
	}
	m, err := matrix.NewDense(nbase, nbase)
	if err != nil {
		return nil, err
	}
	var i, j int
	for i = 0; i < nbase; i++ {
		for j = 0; j < nbase; j++ {
			_ = m.Set(i, j, defaultCrosstalkPrior[i][j])
		}
	}

	return m, nil
}

// identity returns a fresh n x n identity matrix.
func identity(n int) (*matrix.Dense, error) {
	m, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	var i int
	for i = 0; i < n; i++ {
		_ = m.Set(i, i, 1.0)
	}

	return m, nil
}

// zeros returns a fresh rows x cols zero matrix.
func zeros(rows, cols int) (*matrix.Dense, error) {
	return matrix.NewDense(rows, cols)
}
