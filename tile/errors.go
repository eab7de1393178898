// Package tile splits a raw cycle range into independent sub-tiles per a
// parsed block spec, and carries per-cluster position identity through the
// split.
package tile

import "errors"

// ErrCycleMismatch is returned when a block spec's total cycle count does
// not equal the raw tile's K.
var ErrCycleMismatch = errors.New("tile: block spec cycle count does not match tile")
