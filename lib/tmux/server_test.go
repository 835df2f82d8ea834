// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package tmux_test

import (
	"context"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/agentdeck/agentdeck/lib/tmux"
)

func TestNewSessionAndHasSession(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()

	if err := server.NewSession(ctx, "agent-claude-api", tmux.SessionOptions{}, "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	exists, err := server.HasSession(ctx, "agent-claude-api")
	if err != nil || !exists {
		t.Fatalf("HasSession = %v, %v; want true, nil", exists, err)
	}

	// Exact matching: a prefix of an existing name is a different session.
	exists, err = server.HasSession(ctx, "agent-claude")
	if err != nil || exists {
		t.Fatalf("HasSession(prefix) = %v, %v; want false, nil", exists, err)
	}
}

func TestHasSessionWithoutServer(t *testing.T) {
	server := tmux.NewTestServer(t)
	server.KillServer(context.Background())

	exists, err := server.HasSession(t.Context(), "anything")
	if err != nil || exists {
		t.Fatalf("HasSession on stopped server = %v, %v; want false, nil", exists, err)
	}
	names, err := server.ListSessions(t.Context())
	if err != nil || len(names) != 0 {
		t.Fatalf("ListSessions on stopped server = %v, %v; want empty, nil", names, err)
	}
}

func TestNewSessionAppliesOptions(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()
	dir := t.TempDir()

	err := server.NewSession(ctx, "sized", tmux.SessionOptions{
		Width:        120,
		Height:       40,
		HistoryLimit: 1234,
		Dir:          dir,
		RemainOnExit: true,
	}, "sleep", "infinity")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	output, err := server.Run(ctx, "display-message", "-p", "-t", "=sized:",
		"#{window_width} #{window_height} #{history_limit}")
	if err != nil {
		t.Fatalf("display-message: %v", err)
	}
	if got := strings.TrimSpace(output); got != "120 40 1234" {
		t.Errorf("width height history_limit = %q, want %q", got, "120 40 1234")
	}

	path, err := server.CurrentPath(ctx, "sized")
	if err != nil {
		t.Fatalf("CurrentPath: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if path != resolved {
		t.Errorf("CurrentPath = %q, want %q", path, dir)
	}
}

func TestListSessions(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()

	for _, name := range []string{"agent-codex-a", "agent-codex-b"} {
		if err := server.NewSession(ctx, name, tmux.SessionOptions{}, "sleep", "infinity"); err != nil {
			t.Fatalf("NewSession %s: %v", name, err)
		}
	}

	names, err := server.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	for _, want := range []string{"_guard", "agent-codex-a", "agent-codex-b"} {
		if !slices.Contains(names, want) {
			t.Errorf("ListSessions = %v, missing %q", names, want)
		}
	}
}

func TestKillSession(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()

	if err := server.NewSession(ctx, "doomed", tmux.SessionOptions{}, "sleep", "infinity"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := server.KillSession(ctx, "doomed"); err != nil {
		t.Fatalf("KillSession: %v", err)
	}
	if exists, _ := server.HasSession(ctx, "doomed"); exists {
		t.Fatal("session still exists after KillSession")
	}
	if err := server.KillSession(ctx, "doomed"); err != nil {
		t.Fatalf("second KillSession returned error: %v", err)
	}
}

func TestSendKeysAndCapture(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()

	if err := server.NewSession(ctx, "typing", tmux.SessionOptions{}, "cat"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := server.SendKeys(ctx, "typing", true, "hello; world;"); err != nil {
		t.Fatalf("SendKeys literal: %v", err)
	}
	if err := server.SendKeys(ctx, "typing", false, "Enter"); err != nil {
		t.Fatalf("SendKeys Enter: %v", err)
	}

	waitFor(t, func() bool {
		visible, err := server.CaptureVisible(ctx, "typing")
		return err == nil && strings.Count(visible, "hello; world;") >= 2
	})
}

func TestCaptureAllIncludesHistory(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()

	err := server.NewSession(ctx, "scroller", tmux.SessionOptions{Width: 80, Height: 10, RemainOnExit: true},
		"sh", "-c", "for i in $(seq 1 50); do echo line-$i; done")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	waitFor(t, func() bool {
		dead, _, err := server.PaneStatus(ctx, "scroller")
		return err == nil && dead
	})

	depth, err := server.HistorySize(ctx, "scroller")
	if err != nil {
		t.Fatalf("HistorySize: %v", err)
	}
	if depth == 0 {
		t.Fatal("HistorySize = 0 after printing 50 lines into a 10-line pane")
	}

	all, err := server.CaptureAll(ctx, "scroller")
	if err != nil {
		t.Fatalf("CaptureAll: %v", err)
	}
	if !strings.Contains(all, "line-1\n") || !strings.Contains(all, "line-50") {
		t.Errorf("CaptureAll missing first or last line:\n%s", all)
	}

	visible, err := server.CaptureVisible(ctx, "scroller")
	if err != nil {
		t.Fatalf("CaptureVisible: %v", err)
	}
	if strings.Contains(visible, "line-1\n") {
		t.Error("CaptureVisible includes scrollback")
	}
}

func TestPaneStatusReportsExitCode(t *testing.T) {
	server := tmux.NewTestServer(t)
	ctx := t.Context()

	if err := server.NewSession(ctx, "exits", tmux.SessionOptions{RemainOnExit: true}, "sh", "-c", "exit 42"); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	var dead bool
	var code int
	waitFor(t, func() bool {
		var err error
		dead, code, err = server.PaneStatus(ctx, "exits")
		return err == nil && dead
	})
	if code != 42 {
		t.Errorf("exit code = %d, want 42", code)
	}
	if exists, _ := server.HasSession(ctx, "exits"); !exists {
		t.Error("session disappeared despite remain-on-exit")
	}
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	for !condition() {
		if t.Context().Err() != nil {
			t.Fatal("timed out waiting for tmux state")
		}
		runtime.Gosched()
	}
}
