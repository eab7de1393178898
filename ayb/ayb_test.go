// Package ayb_test covers the driver's functional-options config, the
// sub-tile lifecycle's deterministic initial-call stage, and the run-level
// fatal-error classification (bad block spec, insufficient cycles, seed
// dimension mismatch).
package ayb_test

import (
	"testing"

	"github.com/seqcore/ayb/ayb"
	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
	"github.com/seqcore/ayb/tile"
	"github.com/stretchr/testify/require"
)

func identityN(t *testing.T, n int) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(n, n)
	require.NoError(t, err)
	var i int
	for i = 0; i < n; i++ {
		require.NoError(t, m.Set(i, i, 1.0))
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := ayb.DefaultConfig()
	require.Equal(t, 1e-5, cfg.Mu)
	require.Equal(t, 3, cfg.NIter)
	require.Equal(t, "1R", cfg.BlockSpec)
	require.Nil(t, cfg.CrosstalkSeed)
}

func TestNewConfigAppliesOptionsInOrder(t *testing.T) {
	seed := identityN(t, 4)
	cfg := ayb.NewConfig(
		ayb.WithMu(1e-3),
		ayb.WithNIter(7),
		ayb.WithBlockSpec("4R,2I"),
		ayb.WithOutputFormat("fastq"),
		ayb.WithCrosstalkSeed(seed),
	)
	require.Equal(t, 1e-3, cfg.Mu)
	require.Equal(t, 7, cfg.NIter)
	require.Equal(t, "4R,2I", cfg.BlockSpec)
	require.Equal(t, "fastq", cfg.OutputFormat)
	require.Same(t, seed, cfg.CrosstalkSeed)
}

func TestWithMuPanicsOnNonPositive(t *testing.T) {
	require.Panics(t, func() { ayb.WithMu(0) })
	require.Panics(t, func() { ayb.WithMu(-1) })
}

func TestWithNIterPanicsBelowOne(t *testing.T) {
	require.Panics(t, func() { ayb.WithNIter(0) })
}

func TestExitKindString(t *testing.T) {
	require.Equal(t, "OK", ayb.OK.String())
	require.Equal(t, "ESTIMATE_NONCONVERGENT", ayb.EstimateNonconvergent.String())
	require.Equal(t, "INSUFFICIENT_CYCLES", ayb.InsufficientCycles.String())
	require.Equal(t, "BAD_BLOCKSPEC", ayb.BadBlockSpec.String())
	require.Equal(t, "MATRIX_DIM_MISMATCH", ayb.MatrixDimMismatch.String())
	require.Equal(t, "OUT_OF_MEMORY", ayb.OutOfMemory.String())
}

func TestBuiltinCrosstalkRejectsWrongSize(t *testing.T) {
	_, err := ayb.BuiltinCrosstalk(3)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

// TestRunSubTileInitialCallIsNoiselessExact checks the deterministic
// initial-call stage (NIter=0 skips the estimation loop entirely): with
// identity M, P and zero N seeded exactly, Process recovers the noiseless
// intensity exactly and the Simple caller returns the true bases, matching
// spec.md §8 property 3's noiseless-call intent at the driver level.
func TestRunSubTileInitialCallIsNoiselessExact(t *testing.T) {
	I, err := matrix.FromArray(4, 2, []float64{
		0, 5,
		0, 0,
		5, 0,
		0, 0,
	}) // cycle 0 calls G, cycle 1 calls A, lambda=5
	require.NoError(t, err)

	sub := tile.SubTile{
		NCluster: 1,
		K:        2,
		Clusters: []tile.Cluster{{Lane: 1, TileNum: 1, Intensity: I}},
	}

	cfg := ayb.Config{
		Mu:            1e-5,
		NIter:         0,
		CrosstalkSeed: identityN(t, 4),
		PhasingSeed:   identityN(t, 2),
		NoiseSeed:     mustZeros(t, 4, 2),
	}

	bases, quals, kind, err := ayb.RunSubTile(sub, cfg)
	require.NoError(t, err)
	require.Equal(t, ayb.OK, kind)
	require.Equal(t, [][]basecall.NUC{{basecall.BaseG, basecall.BaseA}}, bases)
	require.Equal(t, [][]basecall.Quality{{basecall.MinQuality, basecall.MinQuality}}, quals)
}

// TestRunSubTileSeedDimMismatch checks S6: an externally supplied seed whose
// shape disagrees with the sub-tile is rejected before any estimation runs.
func TestRunSubTileSeedDimMismatch(t *testing.T) {
	I, _ := matrix.NewDense(4, 2)
	sub := tile.SubTile{
		NCluster: 1,
		K:        2,
		Clusters: []tile.Cluster{{Intensity: I}},
	}
	cfg := ayb.Config{
		Mu:            1e-5,
		NIter:         1,
		CrosstalkSeed: identityN(t, 3), // wrong: nbase is always 4
	}

	_, _, kind, err := ayb.RunSubTile(sub, cfg)
	require.Error(t, err)
	require.Equal(t, ayb.MatrixDimMismatch, kind)
	require.ErrorIs(t, err, ayb.ErrMatrixDimMismatch)
}

// TestRunSubTileSingularPhasingSeedIsNonconvergent checks S4: an
// ill-conditioned externally supplied seed (PhasingSeed = all-zeros) makes
// the very first M/P inversion fail before any cluster has been called.
// Per spec.md §8 scenario S4 this is reported as EstimateNonconvergent, not
// a fatal error, with every call falling back to Ambig/MinQuality since no
// prior fit exists to preserve.
func TestRunSubTileSingularPhasingSeedIsNonconvergent(t *testing.T) {
	I, err := matrix.FromArray(4, 2, []float64{
		0, 5,
		0, 0,
		5, 0,
		0, 0,
	})
	require.NoError(t, err)

	sub := tile.SubTile{
		NCluster: 1,
		K:        2,
		Clusters: []tile.Cluster{{Lane: 1, TileNum: 1, Intensity: I}},
	}

	cfg := ayb.Config{
		Mu:            1e-5,
		NIter:         1,
		CrosstalkSeed: identityN(t, 4),
		PhasingSeed:   mustZeros(t, 2, 2), // singular: all-zero phasing matrix
		NoiseSeed:     mustZeros(t, 4, 2),
	}

	bases, quals, kind, err := ayb.RunSubTile(sub, cfg)
	require.NoError(t, err)
	require.Equal(t, ayb.EstimateNonconvergent, kind)
	require.Equal(t, [][]basecall.NUC{{basecall.Ambig, basecall.Ambig}}, bases)
	require.Equal(t, [][]basecall.Quality{{basecall.MinQuality, basecall.MinQuality}}, quals)
}

func mustZeros(t *testing.T, rows, cols int) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(rows, cols)
	require.NoError(t, err)
	return m
}

// fakeSource implements ayb.IntensitySource over a fixed Raw tile.
type fakeSource struct {
	raw *tile.Raw
}

func (f *fakeSource) Load(requestedCycles int) (*tile.Raw, error) {
	if f.raw.KTotal < requestedCycles {
		return nil, ayb.ErrInsufficientCycles
	}
	return f.raw, nil
}

// shortSource always reports it cannot satisfy the requested cycle count.
type shortSource struct{}

func (shortSource) Load(requestedCycles int) (*tile.Raw, error) {
	return nil, ayb.ErrInsufficientCycles
}

// fakeSink captures every sub-tile Emit call for inspection.
type fakeSink struct {
	bases  [][]basecall.NUC
	quals  [][]basecall.Quality
	ncl    []int
	k      []int
	subIDs []int
}

func (f *fakeSink) Emit(bases []basecall.NUC, quals []basecall.Quality, ncluster, k int, subTileID int) error {
	f.bases = append(f.bases, bases)
	f.quals = append(f.quals, quals)
	f.ncl = append(f.ncl, ncluster)
	f.k = append(f.k, k)
	f.subIDs = append(f.subIDs, subTileID)
	return nil
}

// TestRunInsufficientCycles checks S5: a source that cannot satisfy the
// block spec's requested cycle count is fatal for the whole run.
func TestRunInsufficientCycles(t *testing.T) {
	cfg := ayb.NewConfig(ayb.WithBlockSpec("3R"))
	kind, err := ayb.Run(shortSource{}, nil, &fakeSink{}, cfg)
	require.Error(t, err)
	require.Equal(t, ayb.InsufficientCycles, kind)
	require.ErrorIs(t, err, ayb.ErrInsufficientCycles)
}

// TestRunBadBlockSpec checks a malformed block spec is fatal and reported
// before any intensity source is touched.
func TestRunBadBlockSpec(t *testing.T) {
	cfg := ayb.NewConfig(ayb.WithBlockSpec("0R"))
	kind, err := ayb.Run(shortSource{}, nil, &fakeSink{}, cfg)
	require.Error(t, err)
	require.Equal(t, ayb.BadBlockSpec, kind)
}

// TestRunSuccessPath runs the full Run orchestration over a single
// noiseless sub-tile with NIter=0, checking the emitted calls match the
// deterministic initial-call stage and carry the correct sub-tile shape.
func TestRunSuccessPath(t *testing.T) {
	I, _ := matrix.FromArray(4, 2, []float64{
		0, 5,
		0, 0,
		5, 0,
		0, 0,
	})
	raw := &tile.Raw{
		NCluster: 1,
		KTotal:   2,
		Clusters: []tile.Cluster{{Intensity: I}},
	}

	cfg := ayb.Config{
		Mu:            1e-5,
		NIter:         0,
		BlockSpec:     "2R",
		CrosstalkSeed: identityN(t, 4),
		PhasingSeed:   identityN(t, 2),
		NoiseSeed:     mustZeros(t, 4, 2),
	}

	sink := &fakeSink{}
	kind, err := ayb.Run(&fakeSource{raw: raw}, nil, sink, cfg)
	require.NoError(t, err)
	require.Equal(t, ayb.OK, kind)
	require.Len(t, sink.bases, 1)
	require.Equal(t, []basecall.NUC{basecall.BaseG, basecall.BaseA}, sink.bases[0])
	require.Equal(t, 1, sink.ncl[0])
	require.Equal(t, 2, sink.k[0])
	require.Equal(t, 0, sink.subIDs[0])
}
