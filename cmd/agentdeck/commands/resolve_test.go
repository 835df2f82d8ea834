// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strings"
	"testing"
)

func TestMatchSession(t *testing.T) {
	ids := []string{"agent-claude-api", "agent-claude-web", "agent-codex-api"}

	tests := []struct {
		name      string
		query     string
		want      string
		wantError string
	}{
		{name: "exact id", query: "agent-claude-api", want: "agent-claude-api"},
		{name: "only fuzzy match", query: "codex", want: "agent-codex-api"},
		{name: "suffix", query: "web", want: "agent-claude-web"},
		{name: "tied scores", query: "api", wantError: "ambiguous"},
		{name: "no match", query: "zzz", wantError: "no session matches"},
		{name: "empty", query: "", wantError: "empty"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := matchSession(ids, test.query)
			if test.wantError != "" {
				if err == nil || !strings.Contains(err.Error(), test.wantError) {
					t.Fatalf("matchSession(%q) = %q, %v; want error containing %q", test.query, got, err, test.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("matchSession(%q): %v", test.query, err)
			}
			if got != test.want {
				t.Errorf("matchSession(%q) = %q, want %q", test.query, got, test.want)
			}
		})
	}
}

func TestMatchSessionAmbiguityListsCandidates(t *testing.T) {
	ids := []string{"agent-claude-x1", "agent-claude-x2"}
	_, err := matchSession(ids, "x")
	if err == nil {
		t.Fatal("expected an ambiguity error")
	}
	for _, id := range ids {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error %q does not name %s", err, id)
		}
	}
}
