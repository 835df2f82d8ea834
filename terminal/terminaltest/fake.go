// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package terminaltest provides an in-memory terminal.Driver.
//
// A Fake holds a scripted screen and scrollback per session. Tests
// mutate them with SetScreen, Print, Exit and Vanish, inject failures
// with Fail, and inspect what was typed with Inputs.
package terminaltest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/agentdeck/agentdeck/terminal"
)

// Input is one Send call as observed by the Fake.
type Input struct {
	Keys    string
	Enter   bool
	Literal bool
}

type session struct {
	dir     string
	command string
	history []string
	screen  string
	dead    bool
	inputs  []Input
}

// Fake is a concurrency-safe in-memory terminal.Driver.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]*session
	failures map[string]error
	calls    map[string]int
}

var _ terminal.Driver = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		sessions: make(map[string]*session),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Add registers a running session as if it had been created outside
// agentdeck.
func (f *Fake) Add(id, dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = &session{dir: dir}
}

// SetScreen replaces the visible area of a session.
func (f *Fake) SetScreen(id, screen string) {
	f.with(id, func(s *session) { s.screen = screen })
}

// Print appends lines to the session's scrollback.
func (f *Fake) Print(id string, lines ...string) {
	f.with(id, func(s *session) { s.history = append(s.history, lines...) })
}

// SetHistory replaces the session's scrollback.
func (f *Fake) SetHistory(id string, lines []string) {
	f.with(id, func(s *session) { s.history = slices.Clone(lines) })
}

// Exit marks the session's process as exited; the session remains.
func (f *Fake) Exit(id string) {
	f.with(id, func(s *session) { s.dead = true })
}

// Vanish removes a session without going through Kill, like a user
// running tmux kill-session by hand.
func (f *Fake) Vanish(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
}

// Fail makes every call of the named operation return err until
// cleared with Fail(operation, nil). Operation names are the Driver
// method names ("CaptureScrollback", "HistorySize", ...); "*" fails
// every operation.
func (f *Fake) Fail(operation string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, operation)
		return
	}
	f.failures[operation] = err
}

// Calls returns how many times the named operation has been invoked.
func (f *Fake) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

// Inputs returns everything sent to a session, in order.
func (f *Fake) Inputs(id string) []Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return slices.Clone(s.inputs)
	}
	return nil
}

// Command returns the command a session was created with.
func (f *Fake) Command(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return s.command
	}
	return ""
}

// Exists reports whether the session is present.
func (f *Fake) Exists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[id]
	return ok
}

func (f *Fake) with(id string, fn func(*session)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		panic("terminaltest: unknown session " + id)
	}
	fn(s)
}

// begin records a call and returns the injected failure, if any.
// Must be called with f.mu held.
func (f *Fake) begin(operation string) error {
	f.calls[operation]++
	if err, ok := f.failures[operation]; ok {
		return err
	}
	return f.failures["*"]
}

// lookup returns the session or ErrNoSession. Must be called with
// f.mu held.
func (f *Fake) lookup(id string) (*session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, terminal.ErrNoSession)
	}
	return s, nil
}

func (f *Fake) Create(_ context.Context, id string, options terminal.CreateOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Create"); err != nil {
		return err
	}
	if _, exists := f.sessions[id]; exists {
		return fmt.Errorf("duplicate session: %s", id)
	}
	f.sessions[id] = &session{dir: options.Dir, command: options.Command}
	return nil
}

func (f *Fake) Send(_ context.Context, id string, keys string, enter, literal bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Send"); err != nil {
		return err
	}
	s, err := f.lookup(id)
	if err != nil {
		return err
	}
	s.inputs = append(s.inputs, Input{Keys: keys, Enter: enter, Literal: literal})
	return nil
}

func (f *Fake) CapturePane(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CapturePane"); err != nil {
		return "", err
	}
	s, err := f.lookup(id)
	if err != nil {
		return "", err
	}
	return s.screen, nil
}

func (f *Fake) CaptureScrollback(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CaptureScrollback"); err != nil {
		return nil, err
	}
	s, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	lines := slices.Clone(s.history)
	if s.screen != "" {
		lines = append(lines, splitLines(s.screen)...)
	}
	return lines, nil
}

func (f *Fake) HistorySize(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("HistorySize"); err != nil {
		return 0, err
	}
	s, err := f.lookup(id)
	if err != nil {
		return 0, err
	}
	return len(s.history), nil
}

func (f *Fake) IsProcessDead(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("IsProcessDead"); err != nil {
		return false, err
	}
	s, ok := f.sessions[id]
	return ok && s.dead, nil
}

func (f *Fake) Kill(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Kill"); err != nil {
		return err
	}
	delete(f.sessions, id)
	return nil
}

func (f *Fake) IsAlive(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("IsAlive"); err != nil {
		return false, err
	}
	_, ok := f.sessions[id]
	return ok, nil
}

func (f *Fake) ListSessions(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListSessions"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(f.sessions))
	for id := range f.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *Fake) Path(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Path"); err != nil {
		return "", err
	}
	s, err := f.lookup(id)
	if err != nil {
		return "", err
	}
	return s.dir, nil
}

func splitLines(screen string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(screen); i++ {
		if screen[i] == '\n' {
			lines = append(lines, screen[start:i])
			start = i + 1
		}
	}
	if start < len(screen) {
		lines = append(lines, screen[start:])
	}
	return lines
}
