// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initAlgo = sync.OnceFunc(func() { algo.Init("default") })

// FuzzyResult is the outcome of matching one candidate.
type FuzzyResult struct {
	Matched bool
	Score   int
	// Positions are the rune indices of the matched characters.
	Positions []int
}

// FuzzyMatch matches pattern against text the way fzf does,
// case-insensitively. An empty pattern matches everything with score 0.
func FuzzyMatch(text, pattern string) FuzzyResult {
	if pattern == "" {
		return FuzzyResult{Matched: true}
	}
	initAlgo()

	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, []rune(strings.ToLower(pattern)), true, nil)
	if result.Start < 0 {
		return FuzzyResult{}
	}
	matched := FuzzyResult{Matched: true, Score: result.Score}
	if positions != nil {
		matched.Positions = slices.Sorted(slices.Values(*positions))
	}
	return matched
}

// Ranked is a candidate with its match score.
type Ranked struct {
	Text  string
	Score int
}

// Rank returns the candidates matching pattern, best first. Ties go to
// the shorter candidate, then lexical order.
func Rank(candidates []string, pattern string) []Ranked {
	var ranked []Ranked
	for _, candidate := range candidates {
		result := FuzzyMatch(candidate, pattern)
		if result.Matched {
			ranked = append(ranked, Ranked{Text: candidate, Score: result.Score})
		}
	}
	slices.SortFunc(ranked, func(a, b Ranked) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		if len(a.Text) != len(b.Text) {
			return cmp.Compare(len(a.Text), len(b.Text))
		}
		return strings.Compare(a.Text, b.Text)
	})
	return ranked
}
