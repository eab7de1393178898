package tile

import (
	"fmt"

	"github.com/seqcore/ayb/blockspec"
	"github.com/seqcore/ayb/matrix"
)

// Cluster is one cluster's raw intensities plus its position identity,
// which a sub-tile carries through unchanged.
type Cluster struct {
	Lane     int
	TileNum  int
	X        float64
	Y        float64
	Intensity *matrix.Dense // B x K
}

// Raw is an intensity source's unsplit tile: every cluster's full B x
// KTotal intensity matrix.
type Raw struct {
	NCluster int
	KTotal   int
	Clusters []Cluster
}

// SubTile is one contiguous (per the block spec) cycle range, independent
// of every other sub-tile once split.
type SubTile struct {
	NCluster int
	K        int
	Clusters []Cluster
}

type colRange struct {
	start, end int
}

// Split carves raw into sub-tiles per blocks, per the traversal:
// IGNORE advances the cursor and drops its columns; READ begins a new
// sub-tile and appends its columns; CONCAT appends its columns to the
// current sub-tile (the caller must have validated this structurally via
// blockspec.Parse, which blockspec.Parse guarantees already ties every
// CONCAT to a preceding READ).
//
// Returns ErrCycleMismatch if the spec's total cycle count does not equal
// raw.KTotal.
// Complexity: O(len(blocks) + ncluster * KTotal).
func Split(raw *Raw, blocks []blockspec.Block) ([]SubTile, error) {
	if blockspec.TotalCycles(blocks) != raw.KTotal {
		return nil, fmt.Errorf("Split: %w", ErrCycleMismatch)
	}

	var ranges [][]colRange
	col := 0
	var b blockspec.Block
	for _, b = range blocks {
		switch b.Kind {
		case blockspec.Ignore:
			col += b.Num
		case blockspec.Read:
			ranges = append(ranges, []colRange{{col, col + b.Num}})
			col += b.Num
		case blockspec.Concat:
			last := len(ranges) - 1
			ranges[last] = append(ranges[last], colRange{col, col + b.Num})
			col += b.Num
		}
	}

	subtiles := make([]SubTile, len(ranges))
	var si int
	for si = 0; si < len(ranges); si++ {
		k := 0
		var r colRange
		for _, r = range ranges[si] {
			k += r.end - r.start
		}

		clusters := make([]Cluster, raw.NCluster)
		var ci int
		for ci = 0; ci < raw.NCluster; ci++ {
			src := raw.Clusters[ci]
			dst, err := matrix.NewDense(src.Intensity.Rows(), k)
			if err != nil {
				return nil, fmt.Errorf("Split: %w", err)
			}

			rows := src.Intensity.Rows()
			destCol := 0
			var row, c int
			for _, r = range ranges[si] {
				// win is a read-only window borrowed from src.Intensity for
				// this contiguous cycle range; it is never retained past
				// this copy into dst, the sub-tile's own owned matrix.
				win, werr := src.Intensity.View(0, r.start, rows, r.end-r.start)
				if werr != nil {
					return nil, fmt.Errorf("Split: %w", werr)
				}
				for c = 0; c < win.Cols(); c++ {
					for row = 0; row < rows; row++ {
						v, _ := win.At(row, c)
						_ = dst.Set(row, destCol, v)
					}
					destCol++
				}
			}

			clusters[ci] = Cluster{
				Lane:      src.Lane,
				TileNum:   src.TileNum,
				X:         src.X,
				Y:         src.Y,
				Intensity: dst,
			}
		}

		subtiles[si] = SubTile{NCluster: raw.NCluster, K: k, Clusters: clusters}
	}

	return subtiles, nil
}
