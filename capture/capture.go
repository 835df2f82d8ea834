// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture runs the background loop that moves terminal output
// into the ledger and feeds screen state to the notification gate.
//
// Each tick visits every live session in turn:
//
//   - If the session's process has exited, the whole buffer is
//     captured one last time, the terminal session is torn down and the
//     session is marked dead.
//   - If the scrollback depth is unchanged the scrollback is left alone.
//     This is the common case and costs one driver call.
//   - Otherwise the scrollback (never the visible pane, which redraws in
//     place) is captured and the lines not seen before are appended.
//     New lines are found by locating the previous capture's last few
//     lines, the fingerprint, in the new capture.
//   - Finally the visible pane is classified and the result recorded in
//     the registry and passed to the gate.
//
// A failure in one session is logged and retried next tick without
// touching other sessions. Sessions whose driver calls keep failing
// are eventually marked dead.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/ledger"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/registry"
	"github.com/agentdeck/agentdeck/terminal"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultInterval         = 2 * time.Second
	DefaultFingerprintLines = 5
	DefaultMaxFailures      = 3
)

// Store is the part of the ledger the scheduler writes to.
type Store interface {
	Append(ctx context.Context, sessionID string, lines []string, kind ledger.Kind) (ledger.Chunk, error)
	Read(ctx context.Context, sessionID string, before time.Time, limit int) (ledger.Page, error)
}

// Notifier receives every classified state. CheckAndNotify reports
// whether it started a notification.
type Notifier interface {
	CheckAndNotify(ctx context.Context, sessionID string, state classify.State) bool
	Forget(sessionID string)
}

// Config holds the scheduler's dependencies and tuning.
type Config struct {
	Driver   terminal.Driver
	Registry *registry.Registry
	Store    Store

	// Notifier may be nil.
	Notifier Notifier

	Clock  clock.Clock
	Logger *slog.Logger

	Interval         time.Duration
	FingerprintLines int
	MaxFailures      int

	// HistoryLimit is the multiplexer's scrollback limit. Once a
	// session's depth reaches it the depth stops changing even though
	// output keeps scrolling, so such sessions always take the scroll
	// path. Zero disables the check.
	HistoryLimit int
}

// tracking is the scheduler's private per-session state.
type tracking struct {
	// seeded is set once the fingerprint has been initialized from the
	// newest stored chunk.
	seeded      bool
	fingerprint []string

	depth    int
	hasDepth bool

	failures int

	// answered is set while an auto-response is on screen and has
	// already been sent.
	answered bool
}

// Scheduler is the capture loop. Ticks never overlap.
type Scheduler struct {
	driver   terminal.Driver
	registry *registry.Registry
	store    Store
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger

	interval         time.Duration
	fingerprintLines int
	maxFailures      int
	historyLimit     int

	tickMu  sync.Mutex
	tracked map[string]*tracking
}

// New validates cfg and returns a stopped scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("capture: Driver is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("capture: Registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("capture: Store is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("capture: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("capture: Logger is required")
	}

	scheduler := &Scheduler{
		driver:           cfg.Driver,
		registry:         cfg.Registry,
		store:            cfg.Store,
		notifier:         cfg.Notifier,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		interval:         cfg.Interval,
		fingerprintLines: cfg.FingerprintLines,
		maxFailures:      cfg.MaxFailures,
		historyLimit:     cfg.HistoryLimit,
		tracked:          make(map[string]*tracking),
	}
	if scheduler.interval <= 0 {
		scheduler.interval = DefaultInterval
	}
	if scheduler.fingerprintLines <= 0 {
		scheduler.fingerprintLines = DefaultFingerprintLines
	}
	if scheduler.maxFailures <= 0 {
		scheduler.maxFailures = DefaultMaxFailures
	}
	return scheduler, nil
}

// Run ticks every interval until ctx is cancelled. A tick in progress
// when ctx is cancelled runs to completion before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("capture loop started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("capture loop stopped")
			return
		case <-ticker.C:
			s.Tick(context.WithoutCancel(ctx))
		}
	}
}

// Tick processes every live session once.
func (s *Scheduler) Tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	alive := s.registry.Alive()
	for id := range s.tracked {
		if !slices.Contains(alive, id) {
			s.untrack(id)
		}
	}

	for _, id := range alive {
		state, ok := s.tracked[id]
		if !ok {
			state = &tracking{}
			s.tracked[id] = state
		}
		s.tickSession(ctx, id, state)
	}
}

func (s *Scheduler) untrack(id string) {
	delete(s.tracked, id)
	if s.notifier != nil {
		s.notifier.Forget(id)
	}
}

func (s *Scheduler) tickSession(ctx context.Context, id string, state *tracking) {
	dead, err := s.driver.IsProcessDead(ctx, id)
	if err != nil {
		s.driverFailed(id, state, "process check", err)
		return
	}
	if dead {
		s.finalCapture(ctx, id, state)
		return
	}

	depth, err := s.driver.HistorySize(ctx, id)
	if err != nil {
		s.driverFailed(id, state, "history size", err)
		return
	}
	saturated := s.historyLimit > 0 && depth >= s.historyLimit
	if !state.hasDepth || depth != state.depth || saturated {
		if !s.captureScrollback(ctx, id, state, depth) {
			return
		}
	}

	screen, err := s.driver.CapturePane(ctx, id)
	if err != nil {
		s.driverFailed(id, state, "capture pane", err)
		return
	}
	state.failures = 0

	parsed := classify.Classify(screen)
	s.registry.Update(id, func(session *registry.Session) {
		session.LastOutput = screen
		session.LastState = parsed.State
	})
	if s.notifier != nil {
		s.notifier.CheckAndNotify(ctx, id, parsed.State)
	}
	s.autoRespond(ctx, id, state, parsed)
}

// captureScrollback appends the unseen part of the scrollback. It
// returns false when a driver failure ended the session's tick. Ledger
// failures leave the fingerprint and depth untouched so the same lines
// are offered again next tick.
func (s *Scheduler) captureScrollback(ctx context.Context, id string, state *tracking, depth int) bool {
	lines, err := s.driver.CaptureScrollback(ctx, id)
	if err != nil {
		s.driverFailed(id, state, "capture scrollback", err)
		return false
	}
	if depth > len(lines) {
		depth = len(lines)
	}
	scrollback := lines[:depth]

	if err := s.seed(ctx, id, state); err != nil {
		s.logger.Warn("reading stored output failed, will retry", "session_id", id, "error", err)
		return true
	}

	fresh := NewLines(state.fingerprint, scrollback, s.fingerprintLines)
	if len(fresh) > 0 {
		if _, err := s.store.Append(ctx, id, fresh, ledger.KindScrollback); err != nil {
			s.logger.Warn("appending output failed, will retry", "session_id", id, "lines", len(fresh), "error", err)
			return true
		}
	}

	if len(scrollback) > 0 {
		state.fingerprint = tail(scrollback, s.fingerprintLines)
	}
	state.depth = depth
	state.hasDepth = true
	s.registry.Update(id, func(session *registry.Session) {
		session.HistoryDepth = depth
	})
	return true
}

// seed loads the fingerprint from the newest stored chunk the first
// time a session is seen, so a restart does not store the retained
// scrollback a second time.
func (s *Scheduler) seed(ctx context.Context, id string, state *tracking) error {
	if state.seeded {
		return nil
	}
	page, err := s.store.Read(ctx, id, time.Time{}, 1)
	if err != nil {
		return err
	}
	if len(page.Chunks) > 0 {
		state.fingerprint = tail(strings.Split(page.Chunks[0].Content, "\n"), s.fingerprintLines)
	}
	state.seeded = true
	return nil
}

// finalCapture stores whatever the exited process left behind and
// retires the session. If the capture or the append fails the terminal
// session is kept so the next tick can try again.
func (s *Scheduler) finalCapture(ctx context.Context, id string, state *tracking) {
	lines, err := s.driver.CaptureScrollback(ctx, id)
	if err != nil {
		s.driverFailed(id, state, "final capture", err)
		return
	}
	lines = trimTrailingBlank(lines)

	if err := s.seed(ctx, id, state); err != nil {
		s.logger.Warn("reading stored output failed, will retry", "session_id", id, "error", err)
		return
	}
	fresh := NewLines(state.fingerprint, lines, s.fingerprintLines)
	if len(fresh) > 0 {
		if _, err := s.store.Append(ctx, id, fresh, ledger.KindFinal); err != nil {
			s.logger.Warn("appending final output failed, will retry", "session_id", id, "error", err)
			return
		}
	}

	if err := s.driver.Kill(ctx, id); err != nil {
		s.logger.Warn("tearing down exited session failed", "session_id", id, "error", err)
	}
	s.registry.MarkDead(id, s.clock.Now())
	s.untrack(id)
	s.logger.Info("session process exited",
		"session_id", id,
		"total_lines", len(lines),
		"new_lines", len(fresh),
	)
}

func (s *Scheduler) driverFailed(id string, state *tracking, operation string, err error) {
	if errors.Is(err, terminal.ErrNoSession) {
		s.registry.MarkDead(id, s.clock.Now())
		s.untrack(id)
		s.logger.Info("terminal session disappeared", "session_id", id)
		return
	}

	state.failures++
	s.logger.Warn("capture failed",
		"session_id", id,
		"operation", operation,
		"consecutive_failures", state.failures,
		"error", err,
	)
	if state.failures >= s.maxFailures {
		s.registry.MarkDead(id, s.clock.Now())
		s.untrack(id)
		s.logger.Error("marking unreachable session dead", "session_id", id, "failures", state.failures)
	}
}

// autoRespond answers prompts such as the rating survey once per
// appearance.
func (s *Scheduler) autoRespond(ctx context.Context, id string, state *tracking, parsed classify.Parsed) {
	if parsed.AutoResponse == "" {
		state.answered = false
		return
	}
	if state.answered {
		return
	}
	if err := s.driver.Send(ctx, id, parsed.AutoResponse, false, true); err != nil {
		s.logger.Warn("sending auto-response failed", "session_id", id, "error", err)
		return
	}
	state.answered = true
	s.logger.Info("sent auto-response", "session_id", id, "keys", parsed.AutoResponse)
}

// NewLines returns the part of current that follows the first
// occurrence of the last k lines of previous. If previous is empty or
// its tail does not occur in current, all of current is new.
func NewLines(previous, current []string, k int) []string {
	fingerprint := tail(previous, k)
	if len(fingerprint) == 0 {
		return current
	}
	for i := 0; i+len(fingerprint) <= len(current); i++ {
		if slices.Equal(current[i:i+len(fingerprint)], fingerprint) {
			return current[i+len(fingerprint):]
		}
	}
	return current
}

func tail(lines []string, k int) []string {
	if k <= 0 || len(lines) == 0 {
		return nil
	}
	return slices.Clone(lines[max(len(lines)-k, 0):])
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}
