// Package blockspec parses the block-spec mini-language that tells the
// tile engine how to carve a raw cycle range into sub-tiles.
package blockspec

import "errors"

var (
	// ErrBadBlockSpec is returned for any parse or semantic failure: an
	// unrecognised token, a zero or negative count, or a CONCAT with no
	// preceding READ/CONCAT to attach to.
	ErrBadBlockSpec = errors.New("blockspec: malformed block spec")
	// ErrNoBlocks is returned when the spec is empty or contains no READ
	// block at all.
	ErrNoBlocks = errors.New("blockspec: spec has no READ block")
)
