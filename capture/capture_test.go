// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/ledger"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/lib/testutil"
	"github.com/agentdeck/agentdeck/registry"
	"github.com/agentdeck/agentdeck/terminal/terminaltest"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewLines(t *testing.T) {
	tests := []struct {
		name     string
		previous []string
		current  []string
		want     []string
	}{
		{
			name:    "first capture",
			current: []string{"a", "b"},
			want:    []string{"a", "b"},
		},
		{
			name:     "appended lines",
			previous: []string{"a", "b", "c", "d", "e", "f", "g"},
			current:  []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"},
			want:     []string{"h", "i"},
		},
		{
			name:     "scrolled out of a saturated buffer",
			previous: []string{"a", "b", "c", "d", "e", "f", "g"},
			current:  []string{"e", "f", "g", "h", "i", "j", "k"},
			want:     []string{"e", "f", "g", "h", "i", "j", "k"},
		},
		{
			name:     "fingerprint at the end",
			previous: []string{"a", "b", "c", "d", "e", "f"},
			current:  []string{"b", "c", "d", "e", "f"},
			want:     []string{},
		},
		{
			name:     "short previous",
			previous: []string{"x", "y"},
			current:  []string{"w", "x", "y", "z"},
			want:     []string{"z"},
		},
		{
			name:     "first occurrence wins",
			previous: []string{"", "", "", "", ""},
			current:  []string{"", "", "", "", "", "new", "", "", "", "", ""},
			want:     []string{"new", "", "", "", "", ""},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := NewLines(test.previous, test.current, 5)
			if !slices.Equal(got, test.want) {
				t.Errorf("NewLines = %q, want %q", got, test.want)
			}
		})
	}
}

// flakyStore fails Append while failing is set.
type flakyStore struct {
	*ledger.Ledger
	failing atomic.Bool
}

func (f *flakyStore) Append(ctx context.Context, sessionID string, lines []string, kind ledger.Kind) (ledger.Chunk, error) {
	if f.failing.Load() {
		return ledger.Chunk{}, fmt.Errorf("disk full: %w", ledger.ErrUnavailable)
	}
	return f.Ledger.Append(ctx, sessionID, lines, kind)
}

type observation struct {
	sessionID string
	state     classify.State
}

type recordingNotifier struct {
	mu        sync.Mutex
	observed  []observation
	forgotten []string
}

func (r *recordingNotifier) CheckAndNotify(_ context.Context, sessionID string, state classify.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed = append(r.observed, observation{sessionID, state})
	return false
}

func (r *recordingNotifier) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, sessionID)
}

func (r *recordingNotifier) states(sessionID string) []classify.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []classify.State
	for _, seen := range r.observed {
		if seen.sessionID == sessionID {
			states = append(states, seen.state)
		}
	}
	return states
}

type fixture struct {
	scheduler *Scheduler
	driver    *terminaltest.Fake
	registry  *registry.Registry
	store     *flakyStore
	notifier  *recordingNotifier
	clock     *clock.FakeClock
	session   string
}

func newFixture(t *testing.T, configure func(*Config)) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	fake := clock.Fake(epoch)
	driver := terminaltest.New()

	sessions, err := registry.New(registry.Config{
		Driver:  driver,
		Catalog: agentkind.DefaultCatalog(),
		Clock:   fake,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	store, err := ledger.Open(ledger.Config{
		Path:   filepath.Join(t.TempDir(), "output.db"),
		Clock:  fake,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := filepath.Join(t.TempDir(), "api")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	session, err := sessions.Create(context.Background(), registry.CreateParams{WorkingDir: dir})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f := &fixture{
		driver:   driver,
		registry: sessions,
		store:    &flakyStore{Ledger: store},
		notifier: &recordingNotifier{},
		clock:    fake,
		session:  session.ID,
	}

	cfg := Config{
		Driver:   driver,
		Registry: sessions,
		Store:    f.store,
		Notifier: f.notifier,
		Clock:    fake,
		Logger:   logger,
	}
	if configure != nil {
		configure(&cfg)
	}
	f.scheduler, err = New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func (f *fixture) tick() {
	f.scheduler.Tick(context.Background())
}

// chunks returns the stored chunks of the fixture session, oldest first.
func (f *fixture) chunks(t *testing.T) []ledger.Chunk {
	t.Helper()
	page, err := f.store.Read(context.Background(), f.session, time.Time{}, 100)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	slices.Reverse(page.Chunks)
	return page.Chunks
}

func numbered(from, to int) []string {
	var lines []string
	for i := from; i <= to; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	return lines
}

func TestScrollbackAppendsOnlyNewLines(t *testing.T) {
	f := newFixture(t, nil)

	f.driver.Print(f.session, numbered(1, 7)...)
	f.tick()
	f.driver.Print(f.session, numbered(8, 9)...)
	f.tick()

	chunks := f.chunks(t)
	if len(chunks) != 2 {
		t.Fatalf("stored %d chunks, want 2", len(chunks))
	}
	if want := strings.Join(numbered(1, 7), "\n"); chunks[0].Content != want {
		t.Errorf("first chunk = %q, want %q", chunks[0].Content, want)
	}
	if want := strings.Join(numbered(8, 9), "\n"); chunks[1].Content != want {
		t.Errorf("second chunk = %q, want %q", chunks[1].Content, want)
	}
	if chunks[1].Kind != ledger.KindScrollback {
		t.Errorf("Kind = %q, want %q", chunks[1].Kind, ledger.KindScrollback)
	}
	if session, _ := f.registry.Peek(f.session); session.HistoryDepth != 9 {
		t.Errorf("HistoryDepth = %d, want 9", session.HistoryDepth)
	}
}

func TestUnchangedDepthSkipsScrollback(t *testing.T) {
	f := newFixture(t, nil)

	f.driver.Print(f.session, numbered(1, 3)...)
	f.tick()
	captures := f.driver.Calls("CaptureScrollback")

	f.driver.SetScreen(f.session, "✻ Thinking…")
	f.tick()
	f.tick()

	if got := f.driver.Calls("CaptureScrollback"); got != captures {
		t.Errorf("CaptureScrollback called %d more times on unchanged depth", got-captures)
	}
	if got := len(f.chunks(t)); got != 1 {
		t.Errorf("stored %d chunks, want 1", got)
	}
	if calls := f.driver.Calls("CapturePane"); calls != 3 {
		t.Errorf("CapturePane called %d times, want one per tick", calls)
	}
}

func TestVisiblePaneNeverStored(t *testing.T) {
	f := newFixture(t, nil)

	f.driver.SetScreen(f.session, "⏺ Reading 3 files…\nspinner line that redraws")
	f.tick()
	f.tick()

	if chunks := f.chunks(t); len(chunks) != 0 {
		t.Errorf("stored %d chunks from the visible pane", len(chunks))
	}
	session, _ := f.registry.Peek(f.session)
	if session.LastState != classify.Working {
		t.Errorf("LastState = %q, want %q", session.LastState, classify.Working)
	}
	if !strings.Contains(session.LastOutput, "Reading 3 files") {
		t.Errorf("LastOutput = %q", session.LastOutput)
	}
	if states := f.notifier.states(f.session); len(states) != 2 {
		t.Errorf("notifier saw %d states, want 2", len(states))
	}
}

func TestProcessExitFinalCapture(t *testing.T) {
	f := newFixture(t, nil)

	f.driver.Print(f.session, numbered(1, 7)...)
	f.tick()

	f.driver.Print(f.session, numbered(8, 9)...)
	f.driver.SetScreen(f.session, "goodbye\n\n\n")
	f.driver.Exit(f.session)
	f.clock.Advance(time.Minute)
	f.tick()

	chunks := f.chunks(t)
	if len(chunks) != 2 {
		t.Fatalf("stored %d chunks, want 2", len(chunks))
	}
	final := chunks[1]
	if final.Kind != ledger.KindFinal {
		t.Errorf("Kind = %q, want %q", final.Kind, ledger.KindFinal)
	}
	if want := "line 8\nline 9\ngoodbye"; final.Content != want {
		t.Errorf("final chunk = %q, want %q", final.Content, want)
	}

	session, _ := f.registry.Peek(f.session)
	if session.Alive {
		t.Fatal("exited session still alive")
	}
	if want := epoch.Add(time.Minute); !session.EndedAt.Equal(want) {
		t.Errorf("EndedAt = %v, want %v", session.EndedAt, want)
	}
	if f.driver.Exists(f.session) {
		t.Error("terminal session not torn down")
	}

	checks := f.driver.Calls("IsProcessDead")
	f.tick()
	if f.driver.Calls("IsProcessDead") != checks {
		t.Error("dead session still polled")
	}
	if len(f.chunks(t)) != 2 {
		t.Error("final capture ran twice")
	}
}

func TestLedgerFailureRetriesWithoutLoss(t *testing.T) {
	f := newFixture(t, nil)

	f.store.failing.Store(true)
	f.driver.Print(f.session, numbered(1, 4)...)
	f.tick()
	f.tick()
	if chunks := f.chunks(t); len(chunks) != 0 {
		t.Fatalf("stored %d chunks while failing", len(chunks))
	}
	if session, _ := f.registry.Peek(f.session); !session.Alive {
		t.Fatal("ledger failure marked the session dead")
	}

	f.store.failing.Store(false)
	f.tick()
	f.tick()

	chunks := f.chunks(t)
	if len(chunks) != 1 {
		t.Fatalf("stored %d chunks after recovery, want 1", len(chunks))
	}
	if want := strings.Join(numbered(1, 4), "\n"); chunks[0].Content != want {
		t.Errorf("chunk = %q, want %q", chunks[0].Content, want)
	}
}

func TestFinalCaptureRetriedOnLedgerFailure(t *testing.T) {
	f := newFixture(t, nil)

	f.driver.Print(f.session, "last words")
	f.driver.Exit(f.session)
	f.store.failing.Store(true)
	f.tick()

	if !f.driver.Exists(f.session) {
		t.Fatal("session torn down before its output was stored")
	}

	f.store.failing.Store(false)
	f.tick()
	chunks := f.chunks(t)
	if len(chunks) != 1 || chunks[0].Content != "last words" {
		t.Fatalf("chunks = %+v, want the final output", chunks)
	}
	if f.driver.Exists(f.session) {
		t.Error("terminal session not torn down after retry")
	}
}

func TestRepeatedDriverFailuresMarkDead(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.MaxFailures = 3 })

	f.driver.Fail("HistorySize", errors.New("tmux timed out"))
	f.tick()
	f.tick()
	if session, _ := f.registry.Peek(f.session); !session.Alive {
		t.Fatal("session dead before MaxFailures")
	}
	f.tick()
	if session, _ := f.registry.Peek(f.session); session.Alive {
		t.Fatal("session alive after MaxFailures consecutive failures")
	}
	if !slices.Contains(f.notifier.forgotten, f.session) {
		t.Error("notifier not told to forget the session")
	}
}

func TestDriverFailureCountResets(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.MaxFailures = 2 })

	f.driver.Fail("CapturePane", errors.New("tmux timed out"))
	f.tick()
	f.driver.Fail("CapturePane", nil)
	f.tick()
	f.driver.Fail("CapturePane", errors.New("tmux timed out"))
	f.tick()

	if session, _ := f.registry.Peek(f.session); !session.Alive {
		t.Error("non-consecutive failures marked the session dead")
	}
}

func TestVanishedSessionMarkedDead(t *testing.T) {
	f := newFixture(t, nil)

	f.driver.Vanish(f.session)
	f.tick()

	if session, _ := f.registry.Peek(f.session); session.Alive {
		t.Error("vanished session still alive")
	}
}

func TestSurveyAnsweredOncePerAppearance(t *testing.T) {
	f := newFixture(t, nil)
	survey := "How is Claude doing this session? (optional)\n  1: Bad    2: Fine   3: Good   0: Dismiss"

	f.driver.SetScreen(f.session, survey)
	f.tick()
	f.tick()
	f.driver.SetScreen(f.session, "> ")
	f.tick()
	f.driver.SetScreen(f.session, survey)
	f.tick()

	var answers int
	for _, input := range f.driver.Inputs(f.session) {
		if input.Keys == "0" && input.Literal {
			answers++
		}
	}
	if answers != 2 {
		t.Errorf("sent %d survey answers, want 2", answers)
	}
}

func TestSeedsFingerprintFromLedger(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.store.Append(context.Background(), f.session, numbered(1, 7), ledger.KindScrollback); err != nil {
		t.Fatalf("Append: %v", err)
	}
	f.driver.Print(f.session, numbered(1, 8)...)
	f.tick()

	chunks := f.chunks(t)
	if len(chunks) != 2 {
		t.Fatalf("stored %d chunks, want 2", len(chunks))
	}
	if chunks[1].Content != "line 8" {
		t.Errorf("chunk after restart = %q, want %q", chunks[1].Content, "line 8")
	}
}

func TestSaturatedHistoryKeepsCapturing(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.HistoryLimit = 7 })

	f.driver.SetHistory(f.session, numbered(1, 7))
	f.tick()
	f.driver.SetHistory(f.session, numbered(3, 9))
	f.tick()

	chunks := f.chunks(t)
	if len(chunks) != 2 {
		t.Fatalf("stored %d chunks, want 2", len(chunks))
	}
	if want := "line 8\nline 9"; chunks[1].Content != want {
		t.Errorf("second chunk = %q, want %q", chunks[1].Content, want)
	}
}

func TestKilledSessionIsForgotten(t *testing.T) {
	f := newFixture(t, nil)

	f.tick()
	if err := f.registry.Kill(context.Background(), f.session); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	f.tick()

	if !slices.Contains(f.notifier.forgotten, f.session) {
		t.Error("notifier not told to forget a killed session")
	}
}

func TestRunTicksOnInterval(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.Interval = time.Second })
	f.driver.Print(f.session, "hello")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()

	f.clock.WaitForTimers(1)
	f.clock.Advance(time.Second)
	testutil.RequireEventually(t, func() bool {
		return f.driver.Calls("CapturePane") >= 1
	}, 5*time.Second, "waiting for first tick")

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for Run to return")

	if chunks := f.chunks(t); len(chunks) != 1 || chunks[0].Content != "hello" {
		t.Errorf("chunks = %+v, want one chunk with hello", chunks)
	}
}
