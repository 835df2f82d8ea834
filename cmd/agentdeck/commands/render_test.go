// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/agentdeck/agentdeck/lib/schema"
	"github.com/agentdeck/agentdeck/lib/tui"
)

func TestRenderSnippet(t *testing.T) {
	tests := []struct {
		snippet string
		want    string
	}{
		{"plain text", "plain text"},
		{"fix the <b>parser</b> bug", "fix the parser bug"},
		{"<b>a</b> and <b>b</b>", "a and b"},
		{"unterminated <b>mark", "unterminated <b>mark"},
		{"two\nlines", "two lines"},
	}
	for _, test := range tests {
		got := ansi.Strip(renderSnippet(tui.DefaultTheme, test.snippet))
		if got != test.want {
			t.Errorf("renderSnippet(%q) = %q, want %q", test.snippet, got, test.want)
		}
	}
}

func TestAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		then time.Time
		want string
	}{
		{time.Time{}, "-"},
		{now.Add(-12 * time.Second), "12s"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-50 * time.Hour), "2d"},
		{now.Add(time.Minute), "0s"},
	}
	for _, test := range tests {
		if got := ago(test.then, now); got != test.want {
			t.Errorf("ago(%v) = %q, want %q", test.then, got, test.want)
		}
	}
}

func TestRenderSessionsMarksDead(t *testing.T) {
	now := time.Now()
	table := ansi.Strip(renderSessions(tui.DefaultTheme, []schema.SessionInfo{
		{ID: "agent-claude-api", Alive: true, LastState: "prompt", LastOutput: schema.WireTime(now)},
		{ID: "agent-codex-web", Alive: false, LastState: "working"},
	}, now))

	lines := strings.Split(table, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2:\n%s", len(lines), table)
	}
	if !strings.Contains(lines[1], "agent-claude-api") || !strings.Contains(lines[1], "prompt") {
		t.Errorf("live row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "dead") || strings.Contains(lines[2], "working") {
		t.Errorf("dead row = %q", lines[2])
	}
}

func TestRenderStateSelection(t *testing.T) {
	rendered := ansi.Strip(renderState(tui.DefaultTheme, "agent-claude-api", schema.StateResponse{
		State:          "selection",
		Question:       "Do you want to proceed?",
		ArrowNavigable: true,
		SelectedIndex:  1,
		Items: []schema.MenuItem{
			{Number: 1, Label: "Yes"},
			{Number: 2, Label: "No", Description: "tell Claude what to do"},
		},
	}))
	for _, want := range []string{"Do you want to proceed?", "1. Yes", "❯ 2. No", "tell Claude what to do"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered state missing %q:\n%s", want, rendered)
		}
	}
}
