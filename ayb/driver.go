package ayb

import (
	"errors"
	"fmt"

	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/blockspec"
	"github.com/seqcore/ayb/brightness"
	"github.com/seqcore/ayb/covariance"
	"github.com/seqcore/ayb/intensity"
	"github.com/seqcore/ayb/matrix"
	"github.com/seqcore/ayb/mpn"
	"github.com/seqcore/ayb/tile"
)

// State is one sub-tile's owned (M, P, N) fit plus every cluster's current
// call state. It is built once by seed, mutated in place across NIter
// iterations, and discarded when the sub-tile finishes — never shared
// across sub-tiles.
type State struct {
	M *matrix.Dense
	P *matrix.Dense
	N *matrix.Dense

	nbase  int
	ncycle int

	bases  [][]basecall.NUC
	quals  [][]basecall.Quality
	lambda []float64
}

// seedState builds a sub-tile's initial State from cfg's seed matrices,
// falling back to the built-in crosstalk prior, a zero noise matrix and an
// identity phasing matrix for any seed that is not supplied.
func seedState(sub tile.SubTile, nbase int, cfg Config) (*State, error) {
	var M, N, P *matrix.Dense
	var err error

	if cfg.CrosstalkSeed != nil {
		if sr, sc := cfg.CrosstalkSeed.Shape(); sr != nbase || sc != nbase {
			return nil, fmt.Errorf("seedState: crosstalk seed is:\n%swant %dx%d: %w", cfg.CrosstalkSeed, nbase, nbase, ErrMatrixDimMismatch)
		}
		M, err = matrix.NewDense(nbase, nbase)
		if err != nil {
			return nil, err
		}
		if err = matrix.CopyInto(M, cfg.CrosstalkSeed); err != nil {
			return nil, err
		}
	} else {
		M, err = BuiltinCrosstalk(nbase)
		if err != nil {
			return nil, err
		}
	}

	if cfg.NoiseSeed != nil {
		if sr, sc := cfg.NoiseSeed.Shape(); sr != nbase || sc != sub.K {
			return nil, fmt.Errorf("seedState: noise seed is:\n%swant %dx%d: %w", cfg.NoiseSeed, nbase, sub.K, ErrMatrixDimMismatch)
		}
		N, err = matrix.NewDense(nbase, sub.K)
		if err != nil {
			return nil, err
		}
		if err = matrix.CopyInto(N, cfg.NoiseSeed); err != nil {
			return nil, err
		}
	} else {
		N, err = zeros(nbase, sub.K)
		if err != nil {
			return nil, err
		}
	}

	if cfg.PhasingSeed != nil {
		if sr, sc := cfg.PhasingSeed.Shape(); sr != sub.K || sc != sub.K {
			return nil, fmt.Errorf("seedState: phasing seed is:\n%swant %dx%d: %w", cfg.PhasingSeed, sub.K, sub.K, ErrMatrixDimMismatch)
		}
		P, err = matrix.NewDense(sub.K, sub.K)
		if err != nil {
			return nil, err
		}
		if err = matrix.CopyInto(P, cfg.PhasingSeed); err != nil {
			return nil, err
		}
	} else {
		P, err = identity(sub.K)
		if err != nil {
			return nil, err
		}
	}

	return &State{
		M:      M,
		P:      P,
		N:      N,
		nbase:  nbase,
		ncycle: sub.K,
		bases:  make([][]basecall.NUC, sub.NCluster),
		quals:  make([][]basecall.Quality, sub.NCluster),
		lambda: make([]float64, sub.NCluster),
	}, nil
}

// invertedTransposes recomputes Mi^T and Pi^T (the transposes of M and P's
// inverses) from the current state, as intensity.Process requires.
func invertedTransposes(M, P *matrix.Dense) (miT, piT *matrix.Dense, err error) {
	Mi, err := matrix.Inverse(M)
	if err != nil {
		return nil, nil, err
	}
	Pi, err := matrix.Inverse(P)
	if err != nil {
		return nil, nil, err
	}
	miTi, err := matrix.Transpose(Mi)
	if err != nil {
		return nil, nil, err
	}
	piTi, err := matrix.Transpose(Pi)
	if err != nil {
		return nil, nil, err
	}
	miT, err = asDense(miTi)
	if err != nil {
		return nil, nil, err
	}
	piT, err = asDense(piTi)
	if err != nil {
		return nil, nil, err
	}

	return miT, piT, nil
}

func asDense(m matrix.Matrix) (*matrix.Dense, error) {
	if d, ok := m.(*matrix.Dense); ok {
		return d, nil
	}
	d, err := matrix.NewDense(m.Rows(), m.Cols())
	if err != nil {
		return nil, err
	}
	if err = matrix.CopyInto(d, m); err != nil {
		return nil, err
	}

	return d, nil
}

// isSingular reports whether err is (or wraps) one of the matrix kernel's
// singularity sentinels — spec.md §7's SINGULAR/NEAR_SINGULAR — as opposed
// to a structural failure (bad dimensions, allocation).
func isSingular(err error) bool {
	return errors.Is(err, matrix.ErrSingular) || errors.Is(err, matrix.ErrNearSingular)
}

// fillAmbiguous sets every cluster's call to Ambig/MinQuality across the
// whole sub-tile, for the case where the estimator fails before any real
// call exists to fall back to.
func fillAmbiguous(st *State) {
	var ci, k int
	for ci = 0; ci < len(st.bases); ci++ {
		bases := make([]basecall.NUC, st.ncycle)
		quals := make([]basecall.Quality, st.ncycle)
		for k = 0; k < st.ncycle; k++ {
			bases[k] = basecall.Ambig
			quals[k] = basecall.MinQuality
		}
		st.bases[ci] = bases
		st.quals[ci] = quals
	}
}

// columnOf extracts column k of m as a length-Rows() slice.
func columnOf(m *matrix.Dense, k int) []float64 {
	out := make([]float64, m.Rows())
	var i int
	for i = 0; i < m.Rows(); i++ {
		out[i], _ = m.At(i, k)
	}

	return out
}

// RunSubTile runs the full sub-tile lifecycle of spec §4.8: seed, initial
// calls, then NIter main-loop iterations, each ending in a re-call of the
// sub-tile. It does not emit — the caller (Run) hands the returned
// bases/quals to a CallSink.
//
// Returns EstimateNonconvergent (not an error) if the MPN estimator failed
// to converge; the returned bases/quals still reflect the last stable fit
// before the failure, or an all-Ambig/MinQuality call set if the failure
// happened before any fit existed (e.g. a singular seed matrix, spec.md §8
// scenario S4).
func RunSubTile(sub tile.SubTile, cfg Config) (bases [][]basecall.NUC, quals [][]basecall.Quality, kind ExitKind, err error) {
	nbase := basecall.NBASE

	// Stage 1/2: allocate and seed.
	st, err := seedState(sub, nbase, cfg)
	if err != nil {
		if errors.Is(err, ErrMatrixDimMismatch) {
			return nil, nil, MatrixDimMismatch, err
		}

		return nil, nil, OutOfMemory, err
	}

	miT, piT, err := invertedTransposes(st.M, st.P)
	if err != nil {
		if isSingular(err) {
			// spec.md §8 S4: an ill-conditioned seed (e.g. an all-zero
			// PhasingSeed) makes the very first inverse fail before any
			// cluster has a call; there is no "last stable fit" to fall
			// back to, so every call is reported Ambig/MinQuality and the
			// sub-tile is isolated as non-convergent rather than aborting
			// the run.
			fillAmbiguous(st)

			return st.bases, st.quals, EstimateNonconvergent, nil
		}

		return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: initial inverse: %w", err)
	}

	// Stage 3: initial calls.
	processed := make([]*matrix.Dense, sub.NCluster)
	var ci int
	for ci = 0; ci < sub.NCluster; ci++ {
		p, perr := intensity.Process(sub.Clusters[ci].Intensity, miT, piT, st.N, nil)
		if perr != nil {
			return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", perr)
		}
		processed[ci] = p

		bases := make([]basecall.NUC, st.ncycle)
		quals := make([]basecall.Quality, st.ncycle)
		var k int
		for k = 0; k < st.ncycle; k++ {
			bases[k] = basecall.Simple(columnOf(p, k))
			quals[k] = basecall.MinQuality
		}
		st.bases[ci] = bases
		st.quals[ci] = quals

		lambda, lerr := brightness.EstimateOLS(p, bases)
		if lerr != nil {
			return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", lerr)
		}
		st.lambda[ci] = lambda
	}

	// Stage 4: main loop.
	nonconvergent := false
	var iter int
	for iter = 0; iter < cfg.NIter; iter++ {
		clusters := make([]mpn.Cluster, sub.NCluster)
		for ci = 0; ci < sub.NCluster; ci++ {
			clusters[ci] = mpn.Cluster{
				I:      sub.Clusters[ci].Intensity,
				Bases:  st.bases[ci],
				Lambda: st.lambda[ci],
			}
		}

		_, estErr := mpn.Estimate(&mpn.State{M: st.M, P: st.P, N: st.N}, clusters, 1)
		if estErr != nil {
			if errors.Is(estErr, mpn.ErrNonconvergent) {
				nonconvergent = true
				break
			}

			return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", estErr)
		}
		for ci = 0; ci < sub.NCluster; ci++ {
			st.lambda[ci] = clusters[ci].Lambda
		}

		miT, piT, err = invertedTransposes(st.M, st.P)
		if err != nil {
			nonconvergent = true
			break
		}

		acc, aerr := covariance.NewAccumulator(nbase, st.ncycle)
		if aerr != nil {
			return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", aerr)
		}
		for ci = 0; ci < sub.NCluster; ci++ {
			p, perr := intensity.Process(sub.Clusters[ci].Intensity, miT, piT, st.N, processed[ci])
			if perr != nil {
				return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", perr)
			}
			processed[ci] = p
			if cerr := acc.ConsumeProcessed(p, st.lambda[ci], 1.0, st.bases[ci]); cerr != nil {
				return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", cerr)
			}
		}

		covResult, cerr := acc.Finalize()
		if cerr != nil {
			nonconvergent = true
			break
		}

		for ci = 0; ci < sub.NCluster; ci++ {
			p, perr := intensity.Process(sub.Clusters[ci].Intensity, miT, piT, st.N, processed[ci])
			if perr != nil {
				return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", perr)
			}
			processed[ci] = p

			lambda, lerr := brightness.EstimateWLS(p, st.bases[ci], st.lambda[ci], covResult.CycleVar)
			if lerr != nil {
				return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", lerr)
			}
			st.lambda[ci] = lambda

			var k int
			newBases := make([]basecall.NUC, st.ncycle)
			newQuals := make([]basecall.Quality, st.ncycle)
			for k = 0; k < st.ncycle; k++ {
				call, serr := basecall.Statistical(columnOf(p, k), st.lambda[ci], covResult.Omega[k], nil, cfg.Mu)
				if serr != nil {
					return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", serr)
				}
				newBases[k] = call.Base
				newQuals[k] = call.Quality
			}
			st.bases[ci] = newBases
			st.quals[ci] = newQuals

			lambda, lerr = brightness.EstimateWLS(p, st.bases[ci], st.lambda[ci], covResult.CycleVar)
			if lerr != nil {
				return nil, nil, OutOfMemory, fmt.Errorf("RunSubTile: %w", lerr)
			}
			st.lambda[ci] = lambda
		}
	}

	if nonconvergent {
		return st.bases, st.quals, EstimateNonconvergent, nil
	}

	return st.bases, st.quals, OK, nil
}

// flattenCalls lays out one sub-tile's per-cluster bases/quals as the flat,
// row-major (cluster, cycle) slices CallSink.Emit expects.
func flattenCalls(bases [][]basecall.NUC, quals [][]basecall.Quality, ncluster, k int) ([]basecall.NUC, []basecall.Quality) {
	flatBases := make([]basecall.NUC, ncluster*k)
	flatQuals := make([]basecall.Quality, ncluster*k)
	var i, j int
	for i = 0; i < ncluster; i++ {
		for j = 0; j < k; j++ {
			flatBases[i*k+j] = bases[i][j]
			flatQuals[i*k+j] = quals[i][j]
		}
	}

	return flatBases, flatQuals
}

// resolveSeeds overlays any externally supplied seed matrices from matSrc
// onto cfg, returning a new Config (cfg itself is left untouched). A nil
// matSrc, or a method reporting ok == false, leaves the corresponding seed
// unset (the built-in default applies).
func resolveSeeds(cfg Config, matSrc MatrixSource) (Config, error) {
	if matSrc == nil {
		return cfg, nil
	}

	m, ok, err := matSrc.Crosstalk()
	if err != nil {
		return cfg, fmt.Errorf("resolveSeeds: %w", err)
	}
	if ok {
		cfg.CrosstalkSeed = m
	}

	n, ok, err := matSrc.Noise()
	if err != nil {
		return cfg, fmt.Errorf("resolveSeeds: %w", err)
	}
	if ok {
		cfg.NoiseSeed = n
	}

	p, ok, err := matSrc.Phasing()
	if err != nil {
		return cfg, fmt.Errorf("resolveSeeds: %w", err)
	}
	if ok {
		cfg.PhasingSeed = p
	}

	return cfg, nil
}

// Run is the driver's single entry point: it loads the tile, resolves any
// externally supplied seeds, splits it into sub-tiles per cfg.BlockSpec,
// runs the AYB fit on each, and emits every sub-tile's calls to sink in
// block order.
//
// A sub-tile that fails to converge or runs out of memory is isolated —
// its failure is folded into the returned ExitKind but does not stop the
// remaining sub-tiles from running. BadBlockSpec, InsufficientCycles, and
// MatrixDimMismatch are fatal for the whole run and return immediately.
func Run(src IntensitySource, matSrc MatrixSource, sink CallSink, cfg Config) (ExitKind, error) {
	blocks, err := blockspec.Parse(cfg.BlockSpec)
	if err != nil {
		return BadBlockSpec, fmt.Errorf("Run: %w", err)
	}
	requested := blockspec.TotalCycles(blocks)

	raw, err := src.Load(requested)
	if err != nil {
		if errors.Is(err, ErrInsufficientCycles) {
			return InsufficientCycles, fmt.Errorf("Run: %w", err)
		}

		return OutOfMemory, fmt.Errorf("Run: %w", err)
	}
	if raw.KTotal < requested {
		return InsufficientCycles, fmt.Errorf("Run: %w", ErrInsufficientCycles)
	}

	cfg, err = resolveSeeds(cfg, matSrc)
	if err != nil {
		return MatrixDimMismatch, fmt.Errorf("Run: %w", err)
	}

	subtiles, err := tile.Split(raw, blocks)
	if err != nil {
		return BadBlockSpec, fmt.Errorf("Run: %w", err)
	}

	worst := OK
	var sub tile.SubTile
	var id int
	for id, sub = range subtiles {
		bases, quals, kind, rerr := RunSubTile(sub, cfg)
		if rerr != nil {
			if kind == MatrixDimMismatch {
				return kind, rerr
			}
			worst = kind

			continue
		}
		if kind != OK && worst == OK {
			worst = kind
		}

		flatBases, flatQuals := flattenCalls(bases, quals, sub.NCluster, sub.K)
		if eerr := sink.Emit(flatBases, flatQuals, sub.NCluster, sub.K, id); eerr != nil {
			return OutOfMemory, fmt.Errorf("Run: sub-tile %d emit: %w", id, eerr)
		}
	}

	return worst, nil
}
