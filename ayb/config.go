package ayb

import "github.com/seqcore/ayb/matrix"

// Config is the immutable tuning surface for a run: built once via
// DefaultConfig and functional options, then passed read-only into every
// sub-tile the driver processes. No field is read from global state.
//
//   - Mu               – posterior-probability numerical-branch tolerance
//     for the base caller (must be > 0). Default 1e-5.
//   - NIter            – number of outer MPN/covariance iterations per
//     sub-tile (must be >= 1). Default 3.
//   - BlockSpec        – the block-spec string the tile engine parses.
//     Default "1R" (treat the whole tile as one sub-tile).
//   - OutputFormat     – an opaque tag handed to the caller's CallSink;
//     this module interprets it only as a pass-through value.
//   - CrosstalkSeed, NoiseSeed, PhasingSeed – optional externally supplied
//     M0, N0, P0. Nil means use the built-in default seed for that matrix.
type Config struct {
	Mu             float64
	NIter          int
	BlockSpec      string
	OutputFormat   string
	CrosstalkSeed  *matrix.Dense
	NoiseSeed      *matrix.Dense
	PhasingSeed    *matrix.Dense
}

// Option is a functional option over Config.
type Option func(*Config)

// DefaultConfig returns a Config with the defaults documented on Config's
// fields and no seed matrices.
func DefaultConfig() Config {
	return Config{
		Mu:           1e-5,
		NIter:        3,
		BlockSpec:    "1R",
		OutputFormat: "",
	}
}

// WithMu sets the posterior-probability tolerance. Panics if mu <= 0: this
// mirrors the teacher's functional-option validation posture of failing
// fast at configuration time rather than deep inside a run.
func WithMu(mu float64) Option {
	if mu <= 0 {
		panic("ayb: Mu must be > 0")
	}
	return func(c *Config) {
		c.Mu = mu
	}
}

// WithNIter sets the outer iteration count. Panics if niter < 1.
func WithNIter(niter int) Option {
	if niter < 1 {
		panic("ayb: NIter must be >= 1")
	}
	return func(c *Config) {
		c.NIter = niter
	}
}

// WithBlockSpec sets the block-spec string the tile engine parses.
func WithBlockSpec(spec string) Option {
	return func(c *Config) {
		c.BlockSpec = spec
	}
}

// WithOutputFormat sets the opaque output-format tag passed to CallSink
// implementations.
func WithOutputFormat(format string) Option {
	return func(c *Config) {
		c.OutputFormat = format
	}
}

// WithCrosstalkSeed supplies an externally seeded M0.
func WithCrosstalkSeed(m *matrix.Dense) Option {
	return func(c *Config) {
		c.CrosstalkSeed = m
	}
}

// WithNoiseSeed supplies an externally seeded N0.
func WithNoiseSeed(n *matrix.Dense) Option {
	return func(c *Config) {
		c.NoiseSeed = n
	}
}

// WithPhasingSeed supplies an externally seeded P0.
func WithPhasingSeed(p *matrix.Dense) Option {
	return func(c *Config) {
		c.PhasingSeed = p
	}
}

// NewConfig applies opts over DefaultConfig, left-to-right, and returns the
// resulting immutable Config.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}

	return cfg
}
