// Package mpn: sentinel errors for the MPN (M, P, N) parameter estimator.
package mpn

import "errors"

// ErrNonconvergent is returned when both the (P,N) and (M,N) halves of every
// inner iteration of an Estimate call fail to produce a usable update; the
// driver maps this to
// the ESTIMATE_NONCONVERGENT exit kind for the sub-tile.
var ErrNonconvergent = errors.New("mpn: estimator did not converge")
