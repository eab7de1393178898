// Package blockspec_test exercises the block-spec grammar and its failure
// modes.
package blockspec_test

import (
	"testing"

	"github.com/seqcore/ayb/blockspec"
	"github.com/stretchr/testify/require"
)

// TestParseExampleSpec checks the spec.md §8 property 6 example spec
// "3R,2C,2I,3R".
func TestParseExampleSpec(t *testing.T) {
	blocks, err := blockspec.Parse("3R,2C,2I,3R")
	require.NoError(t, err)
	require.Equal(t, []blockspec.Block{
		{Kind: blockspec.Read, Num: 3},
		{Kind: blockspec.Concat, Num: 2},
		{Kind: blockspec.Ignore, Num: 2},
		{Kind: blockspec.Read, Num: 3},
	}, blocks)
	require.Equal(t, 10, blockspec.TotalCycles(blocks))
}

// TestParseCaseInsensitiveAndWhitespace checks lowercase tokens and
// surrounding whitespace are accepted.
func TestParseCaseInsensitiveAndWhitespace(t *testing.T) {
	blocks, err := blockspec.Parse(" 4r , 1c ")
	require.NoError(t, err)
	require.Equal(t, []blockspec.Block{
		{Kind: blockspec.Read, Num: 4},
		{Kind: blockspec.Concat, Num: 1},
	}, blocks)
}

func TestParseEmptySpec(t *testing.T) {
	_, err := blockspec.Parse("")
	require.ErrorIs(t, err, blockspec.ErrNoBlocks)

	_, err = blockspec.Parse("   ")
	require.ErrorIs(t, err, blockspec.ErrNoBlocks)
}

// TestParseNoReadBlock checks a spec with only CONCAT/IGNORE tokens fails,
// since CONCAT also requires a preceding READ.
func TestParseNoReadBlock(t *testing.T) {
	_, err := blockspec.Parse("3I")
	require.ErrorIs(t, err, blockspec.ErrNoBlocks)
}

func TestParseConcatWithoutRead(t *testing.T) {
	_, err := blockspec.Parse("3C")
	require.ErrorIs(t, err, blockspec.ErrBadBlockSpec)
}

func TestParseBadCount(t *testing.T) {
	_, err := blockspec.Parse("0R")
	require.ErrorIs(t, err, blockspec.ErrBadBlockSpec)

	_, err = blockspec.Parse("-1R")
	require.ErrorIs(t, err, blockspec.ErrBadBlockSpec)
}

func TestParseUnrecognisedToken(t *testing.T) {
	_, err := blockspec.Parse("3X")
	require.ErrorIs(t, err, blockspec.ErrBadBlockSpec)
}

// TestParseConcatAfterIgnoreStillAttaches checks IGNORE does not reset
// haveCurrent: a CONCAT following an IGNORE that itself follows a READ is
// valid.
func TestParseConcatAfterIgnoreStillAttaches(t *testing.T) {
	blocks, err := blockspec.Parse("2R,1I,1C")
	require.NoError(t, err)
	require.Equal(t, []blockspec.Block{
		{Kind: blockspec.Read, Num: 2},
		{Kind: blockspec.Ignore, Num: 1},
		{Kind: blockspec.Concat, Num: 1},
	}, blocks)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "R", blockspec.Read.String())
	require.Equal(t, "C", blockspec.Concat.String())
	require.Equal(t, "I", blockspec.Ignore.String())
}
