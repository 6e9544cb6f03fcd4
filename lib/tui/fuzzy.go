// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sort"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching a pattern against a text.
// Score is zero for no match. Positions are the matched rune indexes
// in ascending order, for highlight rendering.
type FuzzyResult struct {
	Score     int
	Positions []int
}

func init() {
	// The algo package requires Init to populate its character
	// classification tables before matching.
	algo.Init("default")
}

// NewFuzzySlab allocates a scratch slab for FuzzyMatch. One slab per
// widget; the slab is not safe for concurrent use.
func NewFuzzySlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// FuzzyMatch runs fzf's V2 fuzzy matching algorithm. Matching is
// case-insensitive (the pattern is lowercased; fzf lowercases text
// characters during comparison) with unicode normalization. An empty
// pattern scores zero.
//
// slab may be nil; passing a reused slab avoids per-call allocation
// in type-to-filter loops.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}

	lowered := make([]rune, len(pattern))
	for index, character := range pattern {
		lowered[index] = unicode.ToLower(character)
	}

	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}

	matched := FuzzyResult{Score: result.Score}
	if positions != nil {
		// fzf reports positions in reverse traversal order.
		matched.Positions = append(matched.Positions, *positions...)
		sort.Ints(matched.Positions)
	}
	return matched
}
