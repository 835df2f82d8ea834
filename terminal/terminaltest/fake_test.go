// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package terminaltest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/agentdeck/agentdeck/terminal"
)

func TestFakeScrollbackIncludesScreen(t *testing.T) {
	fake := New()
	fake.Add("s", "/src")
	fake.Print("s", "a", "b")
	fake.SetScreen("s", "c\nd\n")

	lines, err := fake.CaptureScrollback(context.Background(), "s")
	if err != nil {
		t.Fatalf("CaptureScrollback: %v", err)
	}
	if want := []string{"a", "b", "c", "d"}; !slices.Equal(lines, want) {
		t.Errorf("CaptureScrollback = %q, want %q", lines, want)
	}
	if depth, _ := fake.HistorySize(context.Background(), "s"); depth != 2 {
		t.Errorf("HistorySize = %d, want 2", depth)
	}
}

func TestFakeFailures(t *testing.T) {
	fake := New()
	fake.Add("s", "/src")
	boom := errors.New("boom")

	fake.Fail("HistorySize", boom)
	if _, err := fake.HistorySize(context.Background(), "s"); !errors.Is(err, boom) {
		t.Fatalf("HistorySize error = %v, want boom", err)
	}
	if _, err := fake.CapturePane(context.Background(), "s"); err != nil {
		t.Fatalf("CapturePane should not fail: %v", err)
	}

	fake.Fail("HistorySize", nil)
	if _, err := fake.HistorySize(context.Background(), "s"); err != nil {
		t.Fatalf("HistorySize after clearing failure: %v", err)
	}
	if calls := fake.Calls("HistorySize"); calls != 2 {
		t.Errorf("Calls(HistorySize) = %d, want 2", calls)
	}
}

func TestFakeMissingSession(t *testing.T) {
	fake := New()
	if _, err := fake.CapturePane(context.Background(), "ghost"); !errors.Is(err, terminal.ErrNoSession) {
		t.Fatalf("CapturePane error = %v, want ErrNoSession", err)
	}
	if alive, _ := fake.IsAlive(context.Background(), "ghost"); alive {
		t.Fatal("missing session reported alive")
	}
}
