// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/terminal/terminaltest"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	registry *Registry
	driver   *terminaltest.Fake
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	driver := terminaltest.New()
	fake := clock.Fake(epoch)
	registry, err := New(Config{
		Driver:  driver,
		Catalog: agentkind.DefaultCatalog(),
		Clock:   fake,
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{registry: registry, driver: driver, clock: fake}
}

func projectDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	return dir
}

func (f *fixture) create(t *testing.T, params CreateParams) Session {
	t.Helper()
	session, err := f.registry.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("Create(%+v): %v", params, err)
	}
	return session
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"api", "api"},
		{"My Project", "my-project"},
		{"  spaced  ", "spaced"},
		{"under_score-dash", "under_score-dash"},
		{"a.b:c", "a-b-c"},
		{"---", "session"},
		{"", "session"},
		{"résumé", "r-sum"},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrst"},
	}
	for _, test := range tests {
		if got := Slug(test.input); got != test.want {
			t.Errorf("Slug(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	dir := projectDir(t, "Payments API")

	session := f.create(t, CreateParams{WorkingDir: dir})
	if session.ID != "agent-claude-payments-api" {
		t.Errorf("ID = %q, want agent-claude-payments-api", session.ID)
	}
	if !session.Alive || !session.EndedAt.IsZero() {
		t.Errorf("new session Alive = %v, EndedAt = %v", session.Alive, session.EndedAt)
	}
	if session.Agent != agentkind.Claude {
		t.Errorf("Agent = %q, want claude", session.Agent)
	}
	if !session.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", session.CreatedAt, epoch)
	}
	if !f.driver.Exists(session.ID) {
		t.Fatal("driver session was not created")
	}
	if command := f.driver.Command(session.ID); !strings.Contains(command, dir) || !strings.Contains(command, "claude") {
		t.Errorf("launch command = %q", command)
	}
}

func TestCreateWithTitleAndAgent(t *testing.T) {
	f := newFixture(t)

	session := f.create(t, CreateParams{
		WorkingDir: projectDir(t, "web"),
		Title:      "Fix Login Bug",
		Agent:      agentkind.Codex,
	})
	if session.ID != "agent-codex-fix-login-bug" {
		t.Errorf("ID = %q, want agent-codex-fix-login-bug", session.ID)
	}
}

func TestCreateSuffixesCollisions(t *testing.T) {
	f := newFixture(t)
	dir := projectDir(t, "api")

	first := f.create(t, CreateParams{WorkingDir: dir})
	second := f.create(t, CreateParams{WorkingDir: dir})
	third := f.create(t, CreateParams{WorkingDir: dir})

	want := []string{"agent-claude-api", "agent-claude-api-2", "agent-claude-api-3"}
	for i, got := range []string{first.ID, second.ID, third.ID} {
		if got != want[i] {
			t.Errorf("session %d ID = %q, want %q", i, got, want[i])
		}
	}
}

func TestCreateAvoidsForeignDriverSession(t *testing.T) {
	f := newFixture(t)
	f.driver.Add("agent-claude-api", "/elsewhere")

	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})
	if session.ID != "agent-claude-api-2" {
		t.Errorf("ID = %q, want agent-claude-api-2", session.ID)
	}
}

func TestCreateDoesNotReuseDeadID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})
	if err := f.registry.Kill(ctx, first.ID); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	second := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})
	if second.ID == first.ID {
		t.Fatalf("dead id %q was reused", first.ID)
	}
}

func TestCreateRejectsMissingDirectory(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Create(context.Background(), CreateParams{
		WorkingDir: filepath.Join(t.TempDir(), "missing"),
	})
	if !errors.Is(err, ErrInvalidWorkingDir) {
		t.Errorf("Create error = %v, want ErrInvalidWorkingDir", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.registry.Create(context.Background(), CreateParams{WorkingDir: file}); !errors.Is(err, ErrInvalidWorkingDir) {
		t.Errorf("Create on a file error = %v, want ErrInvalidWorkingDir", err)
	}
}

func TestGetMarksVanishedSessionDead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	f.clock.Advance(time.Minute)
	f.driver.Vanish(session.ID)

	got, err := f.registry.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Alive {
		t.Fatal("vanished session still alive")
	}
	if want := epoch.Add(time.Minute); !got.EndedAt.Equal(want) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, want)
	}

	// The same name reappearing must not revive the record.
	f.driver.Add(session.ID, "/tmp")
	f.clock.Advance(time.Minute)
	again, err := f.registry.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Alive || !again.EndedAt.Equal(got.EndedAt) {
		t.Errorf("dead session changed: Alive = %v, EndedAt = %v", again.Alive, again.EndedAt)
	}
}

func TestGetUnknown(t *testing.T) {
	f := newFixture(t)
	if _, err := f.registry.Get(context.Background(), "agent-claude-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestGetKeepsSessionWhenDriverFails(t *testing.T) {
	f := newFixture(t)
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	f.driver.Fail("IsAlive", errors.New("tmux hung"))
	got, err := f.registry.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Alive {
		t.Error("driver failure marked the session dead")
	}
}

func TestListRevalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	api := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})
	f.clock.Advance(time.Second)
	web := f.create(t, CreateParams{WorkingDir: projectDir(t, "web")})
	f.driver.Vanish(api.ID)

	sessions, err := f.registry.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("List returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != api.ID || sessions[1].ID != web.ID {
		t.Errorf("List order = [%s, %s], want oldest first", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].Alive || !sessions[1].Alive {
		t.Errorf("Alive = [%v, %v], want [false, true]", sessions[0].Alive, sessions[1].Alive)
	}
	if alive := f.registry.Alive(); len(alive) != 1 || alive[0] != web.ID {
		t.Errorf("Alive() = %v, want [%s]", alive, web.ID)
	}
}

// interleavingDriver runs onList once, right after the underlying
// driver has produced its session list.
type interleavingDriver struct {
	*terminaltest.Fake
	onList func()
}

func (d *interleavingDriver) ListSessions(ctx context.Context) ([]string, error) {
	live, err := d.Fake.ListSessions(ctx)
	if hook := d.onList; hook != nil {
		d.onList = nil
		hook()
	}
	return live, err
}

func TestListIgnoresSessionCreatedDuringSnapshot(t *testing.T) {
	driver := &interleavingDriver{Fake: terminaltest.New()}
	registry, err := New(Config{
		Driver:  driver,
		Catalog: agentkind.DefaultCatalog(),
		Clock:   clock.Fake(epoch),
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	dir := projectDir(t, "api")

	var created Session
	driver.onList = func() {
		created, err = registry.Create(ctx, CreateParams{WorkingDir: dir})
		if err != nil {
			t.Errorf("Create: %v", err)
		}
	}
	if _, err := registry.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create never ran")
	}
	if !driver.Exists(created.ID) {
		t.Fatalf("driver has no session %s", created.ID)
	}
	session, ok := registry.Peek(created.ID)
	if !ok || !session.Alive || !session.EndedAt.IsZero() {
		t.Errorf("session created during List = %+v, want alive", session)
	}
}

func TestKill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	if err := f.registry.Kill(ctx, session.ID); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if f.driver.Exists(session.ID) {
		t.Error("driver session survived Kill")
	}
	if err := f.registry.Kill(ctx, session.ID); err != nil {
		t.Errorf("second Kill: %v", err)
	}
	if calls := f.driver.Calls("Kill"); calls != 1 {
		t.Errorf("driver Kill called %d times, want 1", calls)
	}
	if err := f.registry.Kill(ctx, "agent-claude-nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Kill unknown error = %v, want ErrNotFound", err)
	}
}

func TestKillDriverFailureKeepsSessionAlive(t *testing.T) {
	f := newFixture(t)
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	f.driver.Fail("Kill", errors.New("tmux hung"))
	if err := f.registry.Kill(context.Background(), session.ID); err == nil {
		t.Fatal("Kill succeeded despite driver failure")
	}
	if got, _ := f.registry.Peek(session.ID); !got.Alive {
		t.Error("failed Kill marked the session dead")
	}
}

func TestMarkDeadOnce(t *testing.T) {
	f := newFixture(t)
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	first := epoch.Add(time.Hour)
	if !f.registry.MarkDead(session.ID, first) {
		t.Fatal("first MarkDead reported no transition")
	}
	if f.registry.MarkDead(session.ID, first.Add(time.Hour)) {
		t.Error("second MarkDead reported a transition")
	}
	got, _ := f.registry.Peek(session.ID)
	if !got.EndedAt.Equal(first) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, first)
	}
	if f.registry.MarkDead("agent-claude-nope", first) {
		t.Error("MarkDead of unknown session reported a transition")
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	if err := f.registry.Remove(session.ID); !errors.Is(err, ErrSessionAlive) {
		t.Errorf("Remove alive error = %v, want ErrSessionAlive", err)
	}
	f.registry.MarkDead(session.ID, epoch)
	if err := f.registry.Remove(session.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := f.registry.Peek(session.ID); ok {
		t.Error("removed session still present")
	}
	if err := f.registry.Remove(session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProtectsLifecycleFields(t *testing.T) {
	f := newFixture(t)
	session := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})

	err := f.registry.Update(session.ID, func(s *Session) {
		s.LastOutput = "> "
		s.LastState = classify.Prompt
		s.HistoryDepth = 42
		s.Alive = false
		s.ID = "hijacked"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, ok := f.registry.Peek(session.ID)
	if !ok {
		t.Fatal("session disappeared")
	}
	if got.LastOutput != "> " || got.LastState != classify.Prompt || got.HistoryDepth != 42 {
		t.Errorf("capture fields not updated: %+v", got)
	}
	if !got.Alive {
		t.Error("Update changed Alive")
	}
	if err := f.registry.Update("agent-claude-nope", func(*Session) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update unknown error = %v, want ErrNotFound", err)
	}
}

func TestRehydrate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.driver.Add("agent-claude-api", "/work/api")
	f.driver.Add("agent-codex-web", "/work/web")
	f.driver.Add("scratch", "/tmp")
	ended := epoch.Add(-time.Hour)

	restored, archived := f.registry.Rehydrate(ctx,
		[]string{"agent-claude-api", "agent-codex-web", "scratch"},
		[]Historic{
			{ID: "agent-claude-api", LastOutput: ended},
			{ID: "agent-claude-old", LastOutput: ended},
		},
		nil,
	)
	if restored != 2 || archived != 1 {
		t.Fatalf("Rehydrate = (%d, %d), want (2, 1)", restored, archived)
	}

	api, _ := f.registry.Peek("agent-claude-api")
	if !api.Alive || api.WorkingDir != "/work/api" || api.Agent != agentkind.Claude {
		t.Errorf("agent-claude-api = %+v", api)
	}
	web, _ := f.registry.Peek("agent-codex-web")
	if web.Agent != agentkind.Codex {
		t.Errorf("agent-codex-web Agent = %q", web.Agent)
	}
	old, ok := f.registry.Peek("agent-claude-old")
	if !ok || old.Alive || !old.EndedAt.Equal(ended) {
		t.Errorf("agent-claude-old = %+v, want dead with EndedAt %v", old, ended)
	}
	if _, ok := f.registry.Peek("scratch"); ok {
		t.Error("foreign session was registered")
	}
}

func TestRehydrateNeverRevivesDead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registry.Rehydrate(ctx, nil, []Historic{{ID: "agent-claude-api", LastOutput: epoch}}, nil)
	f.driver.Add("agent-claude-api", "/work/api")
	restored, _ := f.registry.Rehydrate(ctx, []string{"agent-claude-api"}, nil, nil)
	if restored != 0 {
		t.Errorf("restored = %d, want 0", restored)
	}
	if got, _ := f.registry.Peek("agent-claude-api"); got.Alive {
		t.Error("dead session revived")
	}
}

func TestRehydrateAllowedDirs(t *testing.T) {
	f := newFixture(t)

	f.driver.Add("agent-claude-api", "/work/api")
	f.driver.Add("agent-claude-home", "/home/me/notes")
	f.driver.Add("agent-claude-sibling", "/workshop")

	restored, _ := f.registry.Rehydrate(context.Background(),
		[]string{"agent-claude-api", "agent-claude-home", "agent-claude-sibling"},
		nil,
		[]string{"/work"},
	)
	if restored != 1 {
		t.Fatalf("restored = %d, want 1", restored)
	}
	if _, ok := f.registry.Peek("agent-claude-api"); !ok {
		t.Error("session under allowed dir was skipped")
	}
}

func TestCounts(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, CreateParams{WorkingDir: projectDir(t, "api")})
	f.create(t, CreateParams{WorkingDir: projectDir(t, "web")})
	f.registry.MarkDead(first.ID, epoch)

	if alive, dead := f.registry.Counts(); alive != 1 || dead != 1 {
		t.Errorf("Counts = (%d, %d), want (1, 1)", alive, dead)
	}
}
