// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "testing"

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		text    string
		pattern string
		matched bool
	}{
		{"agent-claude-webapp", "web", true},
		{"agent-claude-webapp", "WEB", true},
		{"agent-claude-webapp", "cwa", true},
		{"agent-claude-webapp", "codex", false},
		{"agent-codex-api", "", true},
	}
	for _, test := range tests {
		result := FuzzyMatch(test.text, test.pattern)
		if result.Matched != test.matched {
			t.Errorf("FuzzyMatch(%q, %q).Matched = %v, want %v", test.text, test.pattern, result.Matched, test.matched)
		}
	}
}

func TestFuzzyMatchPositions(t *testing.T) {
	result := FuzzyMatch("agent-codex-api", "api")
	if !result.Matched {
		t.Fatal("no match")
	}
	want := []int{12, 13, 14}
	if len(result.Positions) != len(want) {
		t.Fatalf("Positions = %v, want %v", result.Positions, want)
	}
	for i := range want {
		if result.Positions[i] != want[i] {
			t.Errorf("Positions = %v, want %v", result.Positions, want)
			break
		}
	}
}

func TestRank(t *testing.T) {
	candidates := []string{
		"agent-claude-webapp-2",
		"agent-codex-api",
		"agent-claude-webapp",
	}

	ranked := Rank(candidates, "webapp")
	if len(ranked) != 2 {
		t.Fatalf("Rank = %+v, want the two webapp sessions", ranked)
	}
	if ranked[0].Text != "agent-claude-webapp" {
		t.Errorf("best match = %q, want the shorter id on a tie", ranked[0].Text)
	}

	if ranked := Rank(candidates, "zzz"); len(ranked) != 0 {
		t.Errorf("Rank(zzz) = %+v, want none", ranked)
	}
}

func TestStateColor(t *testing.T) {
	theme := DefaultTheme
	if theme.StateColor("prompt", false) != theme.StateDead {
		t.Error("dead session not drawn with StateDead")
	}
	if theme.StateColor("selection", true) != theme.StateSelection {
		t.Error("selection color")
	}
	if theme.StateColor("", true) != theme.FaintText {
		t.Error("unknown state not faint")
	}
}
