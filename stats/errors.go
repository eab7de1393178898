// Package stats: sentinel error set.
package stats

import "errors"

var (
	// ErrEmptySample indicates a statistic was requested over zero samples.
	ErrEmptySample = errors.New("stats: empty sample")

	// ErrInvalidParam indicates a distribution parameter violated its domain
	// (e.g. a non-positive Weibull shape or scale).
	ErrInvalidParam = errors.New("stats: invalid distribution parameter")

	// ErrFitFailed indicates a Weibull maximum-likelihood fit did not
	// converge within its iteration budget.
	ErrFitFailed = errors.New("stats: weibull fit did not converge")
)
