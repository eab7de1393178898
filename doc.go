// Package ayb is the base-calling core for an Illumina-style sequencer: it
// jointly fits a crosstalk matrix, a phasing matrix, and a noise vector
// from per-cluster fluorescence intensities, then emits a nucleotide call
// and quality score for every cycle of every cluster.
//
// What is ayb?
//
//	A single-threaded, dependency-light statistical core that brings
//	together:
//
//	  - A dense matrix kernel: LU, QR, Cholesky, and Jacobi-eigen
//	    decompositions, determinant-preserving rescaling, and a
//	    least-squares solver built from them.
//	  - The MPN estimator: alternating least squares over the crosstalk
//	    matrix M, the phasing matrix P, and the noise vector N, weighted by
//	    a Cauchy robustness term on each cluster's residual.
//	  - A minimum-least-squares base caller with a posterior-probability
//	    quality score, and the per-cycle residual covariance estimator
//	    that feeds it.
//	  - A block-spec parser and datablock engine that carve a raw tile's
//	    cycles into independent sub-tiles before any of the above runs.
//
// Design posture:
//
//   - No global or process-wide state: every run is a pure function of a
//     tile, a Config built once via functional options, and an optional
//     set of externally supplied seed matrices.
//   - No panics on caller-triggered error conditions beyond the
//     ayb.WithMu/ayb.WithNIter range checks: every component returns a
//     typed sentinel error (see each package's errors.go).
//   - A failing sub-tile is isolated — it never aborts the rest of a run.
//
// Everything lives in subpackages:
//
//	matrix/      — dense matrix type, linear algebra, and advanced
//	               decompositions (matrix/ops)
//	stats/       — mean/variance/Cauchy-weight/regression primitives and
//	               Weibull statistics
//	intensity/   — processed-intensity kernel (C2)
//	brightness/  — per-cluster brightness estimation (C3)
//	basecall/    — base and quality calling (C4)
//	mpn/         — the joint (M, P, N) estimator (C5)
//	covariance/  — per-cycle residual covariance estimator (C6)
//	tile/        — datablock engine: raw tile → independent sub-tiles (C7)
//	ayb/         — the driver that ties every component together (C8)
//	blockspec/   — the block-spec mini-language parser (C9)
//
// This package itself holds no code; it exists to document the module as
// a whole. Start with the ayb subpackage's Config and Run.
package doc
