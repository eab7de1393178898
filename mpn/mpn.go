// Package mpn implements the MPN (crosstalk/phasing/noise) parameter
// estimator: the alternating least-squares loop that updates the phasing
// matrix P and noise N with the crosstalk matrix M held fixed, then updates
// M and N with P held fixed, renormalising both to unit determinant with a
// coupled rescale of per-cluster brightness between passes.
//
// The block system spec.md describes as a single (K+B)·K-sized Lhs is
// solved here as K independent (K+B)×(K+B) systems, one per output cycle —
// P's column k (and N's column k) only ever appears in cycle k's equations,
// so the larger block-diagonal system decomposes exactly along columns.
// The (M,N) half profiles N out column-by-column (a per-column weighted
// mean residual) and solves the remaining B×B system for M directly, since
// M is shared across every cycle and cannot be split the same way.
package mpn

import (
	"fmt"
	"math"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
	"github.com/seqcore/ayb/matrix/ops"
	"github.com/seqcore/ayb/stats"
)

// NormaliseEps is the determinant-floor passed to ops.NormaliseToUnitDet for
// both M and P, matching the tolerance spec.md's renormalisation step uses.
const NormaliseEps = 3e-8

// SVDTol is the pivot tolerance below which SVDSolve falls back to its
// Jacobi-eigen pseudo-inverse path.
const SVDTol = 1e-10

// Cluster is one cluster's contribution to the estimator: its raw
// intensities, current base calls, and current brightness estimate.
type Cluster struct {
	I      *matrix.Dense
	Bases  []basecall.NUC
	Lambda float64
}

// State is the crosstalk/phasing/noise triple the estimator updates in
// place; the per-cluster brightness it rescales during renormalisation is
// each Cluster's Lambda.
type State struct {
	M *matrix.Dense // B×B
	P *matrix.Dense // K×K
	N *matrix.Dense // B×K
}

// Result reports the pre-fit residual sum of squares (unweighted, summed over
// clusters), its improvement (pre-fit minus post-fit sum), and the
// per-cluster robustness weights computed during the weighting pass that
// opens Estimate.
type Result struct {
	SumLSS      float64
	Improvement float64
	Weights     []float64
}

// indicator builds the B×K indicator matrix S for a cluster's base calls:
// S[b,k] = 1 if bases[k] == b, else 0.
func indicator(b, k int, bases []basecall.NUC) (*matrix.Dense, error) {
	S, err := matrix.NewDense(b, k)
	if err != nil {
		return nil, err
	}
	var c int
	for c = 0; c < k; c++ {
		_ = S.Set(int(bases[c]), c, 1.0)
	}

	return S, nil
}

// predicted computes E = lambda*M*S*P + N for one cluster.
func predicted(M, S, P, N matrix.Matrix, lambda float64) (*matrix.Dense, error) {
	MS, err := matrix.Mul(M, S)
	if err != nil {
		return nil, err
	}
	MSP, err := matrix.Mul(MS, P)
	if err != nil {
		return nil, err
	}
	scaled, err := matrix.Scale(MSP, lambda)
	if err != nil {
		return nil, err
	}
	sum, err := matrix.Add(scaled, N)
	if err != nil {
		return nil, err
	}
	d, ok := sum.(*matrix.Dense)
	if !ok {
		d, err = matrix.NewDense(sum.Rows(), sum.Cols())
		if err != nil {
			return nil, err
		}
		if err = matrix.CopyInto(d, sum); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// lss returns the Frobenius-squared residual between I and E.
func lss(I, E matrix.Matrix) (float64, error) {
	diff, err := matrix.Sub(I, E)
	if err != nil {
		return 0, err
	}
	d := diff.(*matrix.Dense)
	var sum float64
	for _, v := range denseData(d) {
		sum += v * v
	}

	return sum, nil
}

// denseData exposes a *Dense's backing slice read-only via its public
// At-based copy, since the flat field is unexported outside package matrix.
func denseData(d *matrix.Dense) []float64 {
	rows, cols := d.Rows(), d.Cols()
	out := make([]float64, 0, rows*cols)
	var i, j int
	for i = 0; i < rows; i++ {
		for j = 0; j < cols; j++ {
			v, _ := d.At(i, j)
			out = append(out, v)
		}
	}

	return out
}

// weights computes the per-cluster Cauchy robustness weight from the
// current residual sums of squares, per spec.md §4.5 step 1.
func weights(lssVals []float64) ([]float64, float64, error) {
	mean, err := stats.Mean(lssVals)
	if err != nil {
		return nil, 0, err
	}
	variance, err := stats.Variance(lssVals)
	if err != nil {
		return nil, 0, err
	}
	w := make([]float64, len(lssVals))
	var sumLSS float64
	var i int
	for i = 0; i < len(lssVals); i++ {
		delta := lssVals[i] - mean
		w[i] = stats.Cauchy(delta*delta, variance)
		sumLSS += lssVals[i]
	}

	return w, sumLSS, nil
}

// updatePN solves for P and N with M fixed, one independent (K+B)×(K+B)
// system per output cycle k.
func updatePN(state *State, clusters []Cluster, Sis []*matrix.Dense, w []float64, b, k int) error {
	newP, err := matrix.NewDense(k, k)
	if err != nil {
		return err
	}
	newN, err := matrix.NewDense(b, k)
	if err != nil {
		return err
	}

	dim := k + b
	var col int
	for col = 0; col < k; col++ {
		G, err := matrix.NewDense(dim, dim)
		if err != nil {
			return err
		}
		rhs := make([]float64, dim)

		var ci int
		for ci = 0; ci < len(clusters); ci++ {
			wi := w[ci]
			if wi <= 0 {
				continue
			}
			A, err := matrix.Mul(state.M, Sis[ci]) // B×K
			if err != nil {
				return err
			}
			A, err = matrix.Scale(A, clusters[ci].Lambda)
			if err != nil {
				return err
			}
			Ad := A.(*matrix.Dense)

			var bi, kp, bi2, kp2 int
			var aval, aval2 float64
			// Top-left K×K block: wi * Aᵀ A.
			for kp = 0; kp < k; kp++ {
				for kp2 = 0; kp2 < k; kp2++ {
					var sum float64
					for bi = 0; bi < b; bi++ {
						aval, _ = Ad.At(bi, kp)
						aval2, _ = Ad.At(bi, kp2)
						sum += aval * aval2
					}
					cur, _ := G.At(kp, kp2)
					_ = G.Set(kp, kp2, cur+wi*sum)
				}
			}
			// Off-diagonal K×B and B×K blocks: wi * Aᵀ and wi * A.
			for kp = 0; kp < k; kp++ {
				for bi2 = 0; bi2 < b; bi2++ {
					aval, _ = Ad.At(bi2, kp)
					cur, _ := G.At(kp, k+bi2)
					_ = G.Set(kp, k+bi2, cur+wi*aval)
					cur2, _ := G.At(k+bi2, kp)
					_ = G.Set(k+bi2, kp, cur2+wi*aval)
				}
			}
			// Bottom-right B×B block: wi * Id.
			for bi = 0; bi < b; bi++ {
				cur, _ := G.At(k+bi, k+bi)
				_ = G.Set(k+bi, k+bi, cur+wi)
			}
			// Rhs: wi * Aᵀ * I[:,col] and wi * I[:,col].
			var icol float64
			for bi = 0; bi < b; bi++ {
				icol, _ = clusters[ci].I.At(bi, col)
				for kp = 0; kp < k; kp++ {
					aval, _ = Ad.At(bi, kp)
					rhs[kp] += wi * aval * icol
				}
				rhs[k+bi] += wi * icol
			}
		}

		x, err := ops.SVDSolve(G, rhs, SVDTol)
		if err != nil {
			return fmt.Errorf("updatePN: column %d: %w", col, err)
		}
		var kp, bi int
		for kp = 0; kp < k; kp++ {
			_ = newP.Set(kp, col, x[kp])
		}
		for bi = 0; bi < b; bi++ {
			_ = newN.Set(bi, col, x[k+bi])
		}
	}

	if err = matrix.CopyInto(state.P, newP); err != nil {
		return err
	}

	return matrix.CopyInto(state.N, newN)
}

// updateMN solves for M with P fixed, profiling N out as a per-column
// weighted mean residual, then closes N from the solved M.
func updateMN(state *State, clusters []Cluster, Sis []*matrix.Dense, w []float64, b, k int) error {
	// C_i = lambda_i * (S_i * P), one B×K matrix per cluster.
	Cs := make([]*matrix.Dense, len(clusters))
	var ci int
	for ci = 0; ci < len(clusters); ci++ {
		SP, err := matrix.Mul(Sis[ci], state.P)
		if err != nil {
			return err
		}
		scaled, err := matrix.Scale(SP, clusters[ci].Lambda)
		if err != nil {
			return err
		}
		Cs[ci] = scaled.(*matrix.Dense)
	}

	// Weighted per-column means of I and C, used to profile N out.
	sumW := 0.0
	for ci = 0; ci < len(clusters); ci++ {
		sumW += w[ci]
	}
	if sumW <= 0 {
		return fmt.Errorf("updateMN: %w", matrix.ErrSingular)
	}

	Ibar, err := matrix.NewDense(b, k)
	if err != nil {
		return err
	}
	Cbar, err := matrix.NewDense(b, k)
	if err != nil {
		return err
	}
	var bIdx, kIdx int
	for ci = 0; ci < len(clusters); ci++ {
		wi := w[ci]
		if wi <= 0 {
			continue
		}
		for bIdx = 0; bIdx < b; bIdx++ {
			for kIdx = 0; kIdx < k; kIdx++ {
				iv, _ := clusters[ci].I.At(bIdx, kIdx)
				cv, _ := Cs[ci].At(bIdx, kIdx)
				curI, _ := Ibar.At(bIdx, kIdx)
				curC, _ := Cbar.At(bIdx, kIdx)
				_ = Ibar.Set(bIdx, kIdx, curI+wi*iv)
				_ = Cbar.Set(bIdx, kIdx, curC+wi*cv)
			}
		}
	}
	for bIdx = 0; bIdx < b; bIdx++ {
		for kIdx = 0; kIdx < k; kIdx++ {
			curI, _ := Ibar.At(bIdx, kIdx)
			curC, _ := Cbar.At(bIdx, kIdx)
			_ = Ibar.Set(bIdx, kIdx, curI/sumW)
			_ = Cbar.Set(bIdx, kIdx, curC/sumW)
		}
	}

	// Shared B×B Gram matrix over centered C, and B right-hand sides (one
	// per output row), since every row of M shares the same design.
	G, err := matrix.NewDense(b, b)
	if err != nil {
		return err
	}
	rhs := make([][]float64, b)
	var r int
	for r = 0; r < b; r++ {
		rhs[r] = make([]float64, b)
	}

	for ci = 0; ci < len(clusters); ci++ {
		wi := w[ci]
		if wi <= 0 {
			continue
		}
		for kIdx = 0; kIdx < k; kIdx++ {
			cvec := make([]float64, b)
			ivec := make([]float64, b)
			for bIdx = 0; bIdx < b; bIdx++ {
				cv, _ := Cs[ci].At(bIdx, kIdx)
				cb, _ := Cbar.At(bIdx, kIdx)
				cvec[bIdx] = cv - cb
				iv, _ := clusters[ci].I.At(bIdx, kIdx)
				ib, _ := Ibar.At(bIdx, kIdx)
				ivec[bIdx] = iv - ib
			}
			var p, q int
			for p = 0; p < b; p++ {
				for q = 0; q < b; q++ {
					cur, _ := G.At(p, q)
					_ = G.Set(p, q, cur+wi*cvec[p]*cvec[q])
				}
				for r = 0; r < b; r++ {
					rhs[r][p] += wi * cvec[p] * ivec[r]
				}
			}
		}
	}

	newM, err := matrix.NewDense(b, b)
	if err != nil {
		return err
	}
	for r = 0; r < b; r++ {
		x, err := ops.SVDSolve(G, rhs[r], SVDTol)
		if err != nil {
			return fmt.Errorf("updateMN: row %d: %w", r, err)
		}
		var q int
		for q = 0; q < b; q++ {
			_ = newM.Set(r, q, x[q])
		}
	}

	// Close N from the solved M and the profiled column means.
	newN, err := matrix.NewDense(b, k)
	if err != nil {
		return err
	}
	for kIdx = 0; kIdx < k; kIdx++ {
		for bIdx = 0; bIdx < b; bIdx++ {
			ib, _ := Ibar.At(bIdx, kIdx)
			var sum float64
			var q int
			for q = 0; q < b; q++ {
				mv, _ := newM.At(bIdx, q)
				cb, _ := Cbar.At(q, kIdx)
				sum += mv * cb
			}
			_ = newN.Set(bIdx, kIdx, ib-sum)
		}
	}

	if err = matrix.CopyInto(state.M, newM); err != nil {
		return err
	}

	return matrix.CopyInto(state.N, newN)
}

// Estimate runs one MPN parameter-estimation loop: a weighting pass, then
// niter alternating (P,N)/(M,N) updates with determinant renormalisation
// and coupled brightness rescaling between them.
//
// Returns ErrNonconvergent if both halves of every inner iteration fail —
// the caller (the AYB driver) maps that to the ESTIMATE_NONCONVERGENT exit
// kind for the sub-tile being processed.
// Complexity: O(niter * ncluster * K * (K+B)^3) dominated by the per-column
// SVDSolve calls.
func Estimate(state *State, clusters []Cluster, niter int) (Result, error) {
	if len(clusters) == 0 {
		return Result{}, fmt.Errorf("Estimate: no clusters: %w", matrix.ErrInvalidDimensions)
	}
	b := state.M.Rows()
	k := state.P.Rows()

	Sis := make([]*matrix.Dense, len(clusters))
	var ci int
	var err error
	for ci = 0; ci < len(clusters); ci++ {
		Sis[ci], err = indicator(b, k, clusters[ci].Bases)
		if err != nil {
			return Result{}, fmt.Errorf("Estimate: %w", err)
		}
	}

	computeLSS := func() ([]float64, error) {
		out := make([]float64, len(clusters))
		var i int
		for i = 0; i < len(clusters); i++ {
			E, err := predicted(state.M, Sis[i], state.P, state.N, clusters[i].Lambda)
			if err != nil {
				return nil, err
			}
			out[i], err = lss(clusters[i].I, E)
			if err != nil {
				return nil, err
			}
		}

		return out, nil
	}

	lssStart, err := computeLSS()
	if err != nil {
		return Result{}, fmt.Errorf("Estimate: %w", err)
	}
	w, sumLSS, err := weights(lssStart)
	if err != nil {
		return Result{}, fmt.Errorf("Estimate: %w", err)
	}

	anyOK := false
	var iter int
	for iter = 0; iter < niter; iter++ {
		pnErr := updatePN(state, clusters, Sis, w, b, k)
		if pnErr == nil {
			if dp, nerr := ops.NormaliseToUnitDet(state.P, NormaliseEps); nerr == nil {
				for ci = 0; ci < len(clusters); ci++ {
					clusters[ci].Lambda *= dp
				}
			}
		}

		mnErr := updateMN(state, clusters, Sis, w, b, k)
		if mnErr == nil {
			if dm, nerr := ops.NormaliseToUnitDet(state.M, NormaliseEps); nerr == nil {
				for ci = 0; ci < len(clusters); ci++ {
					clusters[ci].Lambda *= dm
				}
			}
		}

		if pnErr == nil || mnErr == nil {
			anyOK = true
		}
	}
	if niter > 0 && !anyOK {
		return Result{SumLSS: math.NaN(), Improvement: math.NaN(), Weights: w}, ErrNonconvergent
	}

	lssEnd, err := computeLSS()
	if err != nil {
		return Result{}, fmt.Errorf("Estimate: %w", err)
	}
	var sumLSSEnd float64
	for _, v := range lssEnd {
		sumLSSEnd += v
	}

	return Result{
		SumLSS:      sumLSS,
		Improvement: sumLSS - sumLSSEnd,
		Weights:     w,
	}, nil
}
