// Package intensity implements the processed-intensity kernel the driver
// uses for base-calling and as the covariance estimator's input:
// out = M⁻¹ · (I − N) · P⁻¹, computed from the caller's pre-transposed
// inverses so the hot inner loop reads contiguous row-major memory.
package intensity

import (
	"fmt"

	"github.com/seqcore/ayb/matrix"
)

// Process computes out = M⁻¹·(I−N)·P⁻¹ for one cluster's B×K intensities.
// miT is (M⁻¹)ᵀ (B×B), piT is (P⁻¹)ᵀ (K×K); both are supplied pre-inverted
// and pre-transposed by the driver, which recomputes them once per
// iteration rather than once per cluster.
//
// Blueprint:
//
//	Stage 1 (Validate): I, N share shape B×K; miT is B×B; piT is K×K.
//	Stage 2 (Residual): diff = I − N.
//	Stage 3 (Recover): Mi = miTᵀ, Pi = piTᵀ (undo the caller's transpose).
//	Stage 4 (Apply): out = Mi · diff · Pi.
//	Stage 5 (Finalize): copy the result into out, allocating if out is nil.
//
// Contract: does not mutate I, miT, piT, or N. out is reused if non-nil and
// already B×K, else (re)allocated.
// Complexity: O(B²K + BK²).
func Process(I, miT, piT, N matrix.Matrix, out *matrix.Dense) (*matrix.Dense, error) {
	// Stage 1: Validate shapes.
	if err := matrix.ValidateNotNil(I); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	if err := matrix.ValidateSameShape(I, N); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	b, k := I.Rows(), I.Cols()
	if err := matrix.ValidateSquare(miT); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	if miT.Rows() != b {
		return nil, fmt.Errorf("Process: miT %dx%d != B=%d: %w", miT.Rows(), miT.Cols(), b, matrix.ErrDimensionMismatch)
	}
	if err := matrix.ValidateSquare(piT); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	if piT.Rows() != k {
		return nil, fmt.Errorf("Process: piT %dx%d != K=%d: %w", piT.Rows(), piT.Cols(), k, matrix.ErrDimensionMismatch)
	}

	// Stage 2: Residual I − N.
	diff, err := matrix.Sub(I, N)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	// Stage 3: Recover Mi, Pi from the caller's pre-transposed inverses.
	Mi, err := matrix.Transpose(miT)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	Pi, err := matrix.Transpose(piT)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	// Stage 4: out = Mi · diff · Pi.
	left, err := matrix.Mul(Mi, diff)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	result, err := matrix.Mul(left, Pi)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	// Stage 5: Copy into out, allocating if necessary.
	if out == nil {
		out, err = matrix.NewDense(b, k)
		if err != nil {
			return nil, fmt.Errorf("Process: %w", err)
		}
	}
	if err = matrix.CopyInto(out, result); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	return out, nil
}
