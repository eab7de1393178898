// Package basecall implements the per-cycle base-and-quality decision: the
// minimum-least-squares argmin over the four nucleotide channels, its
// posterior-probability quality mapping, and the simple argmax caller used
// before any model fit exists.
package basecall

import (
	"fmt"
	"math"

	"github.com/seqcore/ayb/matrix"
)

// NUC is a called nucleotide, one of the four channels or AMBIG.
type NUC int

const (
	BaseA NUC = iota
	BaseC
	BaseG
	BaseT
	Ambig
)

// NBASE is the number of real nucleotide channels (excludes Ambig).
const NBASE = 4

// String renders the nucleotide as its single-letter code.
func (n NUC) String() string {
	switch n {
	case BaseA:
		return "A"
	case BaseC:
		return "C"
	case BaseG:
		return "G"
	case BaseT:
		return "T"
	default:
		return "N"
	}
}

// Quality is a Phred-like integer quality score.
type Quality int

const (
	// MinQuality is the lowest reportable quality score.
	MinQuality Quality = 0
	// MaxQuality is the historical AYB quality ceiling.
	MaxQuality Quality = 62
)

// Call is one cycle's {base, quality} decision.
type Call struct {
	Base    NUC
	Quality Quality
}

// Simple returns the argmax base over p, the caller used for the initial
// pass before any (M,P,N) fit exists. Returns Ambig if p is all-equal or
// contains a non-finite value.
// Complexity: O(len(p)).
func Simple(p []float64) NUC {
	if len(p) != NBASE {
		return Ambig
	}
	var i int
	for i = 0; i < NBASE; i++ {
		if math.IsNaN(p[i]) || math.IsInf(p[i], 0) {
			return Ambig
		}
	}
	best := 0
	allEqual := true
	for i = 1; i < NBASE; i++ {
		if p[i] != p[0] {
			allEqual = false
		}
		if p[i] > p[best] {
			best = i
		}
	}
	if allEqual {
		return Ambig
	}

	return NUC(best)
}

// qualityFromProb maps a posterior probability post in [0,1) onto
// [MinQuality, MaxQuality] via the Phred-like transform
// q = round(-10*log10(1-post)), clamped at both ends. ABI-stable per the
// base-calling contract: downstream tooling parses this exact mapping.
func qualityFromProb(post float64) Quality {
	if post >= 1.0 {
		return MaxQuality
	}
	if post <= 0 {
		return MinQuality
	}
	q := math.Round(-10.0 * math.Log10(1.0-post))
	if q < float64(MinQuality) {
		return MinQuality
	}
	if q > float64(MaxQuality) {
		return MaxQuality
	}

	return Quality(q)
}

// Statistical performs the full minimum-LS base call with posterior-
// probability quality for one cycle.
//
// p is the processed intensity vector for this cycle (length NBASE), lambda
// the cluster's brightness, omega the NBASE×NBASE inverse residual
// covariance for this cycle, penalty an optional per-base additive term
// (nil means all-zero), and mu the posterior-probability numerical-branch
// tolerance (> 0).
//
// Blueprint:
//
//	Stage 1 (Degenerate): lambda == 0 → {BaseA, MinQuality}.
//	Stage 2 (Statistic): stat[b] = λ²Ω_bb − 2λ·Σⱼ p_j Ω_bj + penalty[b].
//	Stage 3 (Decision): call = argmin stat (ties broken by channel order
//	A<C<G<T, i.e. first-found wins).
//	Stage 4 (Posterior): compute max_prob = exp(-½(K + min)) where
//	K = pᵀΩp, then post via the numerically stable branch selected by
//	comparing max_prob against mu.
//	Stage 5 (Quality): q = qualityFromProb(post).
//
// Complexity: O(NBASE²).
func Statistical(p []float64, lambda float64, omega matrix.Matrix, penalty []float64, mu float64) (Call, error) {
	if len(p) != NBASE {
		return Call{}, fmt.Errorf("Statistical: p has %d entries, want %d: %w", len(p), NBASE, matrix.ErrDimensionMismatch)
	}
	if omega.Rows() != NBASE || omega.Cols() != NBASE {
		return Call{}, fmt.Errorf("Statistical: omega is %dx%d, want %dx%d: %w", omega.Rows(), omega.Cols(), NBASE, NBASE, matrix.ErrDimensionMismatch)
	}
	if penalty == nil {
		penalty = make([]float64, NBASE)
	} else if len(penalty) != NBASE {
		return Call{}, fmt.Errorf("Statistical: penalty has %d entries, want %d: %w", len(penalty), NBASE, matrix.ErrDimensionMismatch)
	}

	// Stage 1: Degenerate brightness.
	if lambda == 0 {
		return Call{Base: BaseA, Quality: MinQuality}, nil
	}

	// Stage 2: Per-base quadratic statistic.
	var stat [NBASE]float64
	var b, j int
	var omegaBJ, omegaBB, sum float64
	for b = 0; b < NBASE; b++ {
		omegaBB, _ = omega.At(b, b)
		sum = 0.0
		for j = 0; j < NBASE; j++ {
			omegaBJ, _ = omega.At(b, j)
			sum += p[j] * omegaBJ
		}
		stat[b] = lambda*lambda*omegaBB - 2*lambda*sum + penalty[b]
	}

	// Stage 3: argmin with first-found tie-break.
	call := 0
	minStat := stat[0]
	for b = 1; b < NBASE; b++ {
		if stat[b] < minStat {
			minStat = stat[b]
			call = b
		}
	}

	// Stage 4: posterior probability.
	K, err := matrix.XMY(p, omega, p)
	if err != nil {
		return Call{}, fmt.Errorf("Statistical: %w", err)
	}
	maxProb := math.Exp(-0.5 * (K + minStat))

	tot := 0.0
	for b = 0; b < NBASE; b++ {
		tot += math.Exp(-0.5 * (stat[b] - minStat))
	}

	var post float64
	expPenalty := math.Exp(-0.5 * penalty[call])
	if maxProb < mu {
		post = (expPenalty*mu + maxProb) / (4*mu + maxProb*tot)
	} else {
		post = (expPenalty*mu/maxProb + 1) / (4*mu/maxProb + tot)
	}

	// Stage 5: quality mapping.
	return Call{Base: NUC(call), Quality: qualityFromProb(post)}, nil
}
