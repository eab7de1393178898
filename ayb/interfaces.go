package ayb

import (
	"github.com/seqcore/ayb/basecall"
	"github.com/seqcore/ayb/matrix"
	"github.com/seqcore/ayb/tile"
)

// IntensitySource supplies the raw tile this module splits and processes.
// Implementations own wire format and file discovery; this module only
// consumes the parsed result.
type IntensitySource interface {
	// Load returns a Raw tile with at least requestedCycles cycles per
	// cluster. Returns ErrInsufficientCycles if fewer are available.
	Load(requestedCycles int) (*tile.Raw, error)
}

// MatrixSource supplies up to three externally computed seed matrices. Any
// method may return ok == false to mean "not supplied"; the driver then
// uses its built-in default for that matrix.
type MatrixSource interface {
	Crosstalk() (m *matrix.Dense, ok bool, err error)
	Noise() (n *matrix.Dense, ok bool, err error)
	Phasing() (p *matrix.Dense, ok bool, err error)
}

// CallSink receives one sub-tile's finished base and quality calls.
// bases and quals are both ncluster*k long, row-major by cluster
// (cluster i's cycle j call is at index i*k+j).
type CallSink interface {
	Emit(bases []basecall.NUC, quals []basecall.Quality, ncluster, k int, subTileID int) error
}
