// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry is the in-memory table of agent sessions.
//
// The registry owns every [Session] record. Sessions move from alive to
// dead exactly once, through an explicit kill, a process exit noticed
// by the capture loop, or a liveness check that finds the terminal
// session gone. A dead session is never revived: if the driver later
// reports a session with the same id, the registry keeps the dead
// record and new sessions get a suffixed id instead.
//
// Callers receive copies; the registry's own records are only mutated
// under its lock.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/terminal"
)

var (
	// ErrNotFound reports an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrSessionDead rejects an operation that needs a live session.
	ErrSessionDead = errors.New("session has ended")

	// ErrSessionAlive rejects removing a session that is still running.
	ErrSessionAlive = errors.New("session is still alive")

	// ErrInvalidWorkingDir reports a working directory that does not
	// exist or is not a directory.
	ErrInvalidWorkingDir = errors.New("working directory not found")
)

// maxSlugLength caps the title-derived part of a session id.
const maxSlugLength = 20

// Session is a snapshot of one session record.
type Session struct {
	ID         string
	Agent      agentkind.Kind
	WorkingDir string
	Alive      bool
	CreatedAt  time.Time

	// EndedAt is zero while the session is alive and set exactly once
	// when it dies.
	EndedAt time.Time

	// LastOutput is the most recent visible-pane capture.
	LastOutput string

	// LastState is the classification of LastOutput.
	LastState classify.State

	// HistoryDepth is the scrollback depth recorded by the last
	// capture.
	HistoryDepth int
}

// CreateParams describes a session to start.
type CreateParams struct {
	// WorkingDir must be an existing directory. A leading "~" is
	// expanded to the home directory.
	WorkingDir string

	// Title names the session. Empty uses the directory's base name.
	Title string

	// Agent defaults to agentkind.Claude.
	Agent agentkind.Kind
}

// Historic is a session known only from stored output.
type Historic struct {
	ID string

	// LastOutput is the time of the newest stored chunk; it becomes the
	// session's EndedAt.
	LastOutput time.Time
}

// Config holds the dependencies of a Registry. All fields are
// required.
type Config struct {
	Driver  terminal.Driver
	Catalog *agentkind.Catalog
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Registry is safe for concurrent use.
type Registry struct {
	driver  terminal.Driver
	catalog *agentkind.Catalog
	clock   clock.Clock
	logger  *slog.Logger

	// createMu serializes id allocation with driver session creation so
	// two concurrent creates cannot pick the same id.
	createMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New returns an empty registry.
func New(cfg Config) (*Registry, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("registry: Driver is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("registry: Catalog is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("registry: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("registry: Logger is required")
	}
	return &Registry{
		driver:   cfg.Driver,
		catalog:  cfg.Catalog,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts the agent in a new terminal session and registers it.
func (r *Registry) Create(ctx context.Context, params CreateParams) (Session, error) {
	dir, err := resolveDir(params.WorkingDir)
	if err != nil {
		return Session{}, err
	}

	kind := params.Agent
	if kind == "" {
		kind = agentkind.Claude
	}
	adapter, err := r.catalog.Adapter(kind)
	if err != nil {
		return Session{}, err
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	live, err := r.driver.ListSessions(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("listing terminal sessions: %w", err)
	}

	name := params.Title
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(dir)
	}
	id := r.allocateID(kind.SessionPrefix()+Slug(name), dir, live)

	err = r.driver.Create(ctx, id, terminal.CreateOptions{
		Dir:     dir,
		Command: adapter.LaunchCommand(dir),
	})
	if err != nil {
		return Session{}, fmt.Errorf("creating session %s: %w", id, err)
	}

	session := &Session{
		ID:         id,
		Agent:      kind,
		WorkingDir: dir,
		Alive:      true,
		CreatedAt:  r.clock.Now(),
	}
	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		r.logger.Warn("working directory is not a git repository", "session_id", id, "working_dir", dir)
	}
	r.logger.Info("session created", "session_id", id, "agent", kind, "working_dir", dir)
	return *session, nil
}

func resolveDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %q: %w", dir, err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidWorkingDir)
	}
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidWorkingDir, dir, err)
	}
	info, err := os.Stat(absolute)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidWorkingDir, absolute)
	}
	return absolute, nil
}

// allocateID returns base, or base-2, base-3, ... for the first
// candidate unused by any tracked session and by the driver. A second
// session in an already-used directory always gets a suffix.
func (r *Registry) allocateID(base, dir string, live []string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	taken := func(id string) bool {
		_, tracked := r.sessions[id]
		return tracked || slices.Contains(live, id)
	}

	sameDir := false
	for _, session := range r.sessions {
		if session.WorkingDir == dir {
			sameDir = true
			break
		}
	}
	if !sameDir && !taken(base) {
		return base
	}
	for suffix := 2; ; suffix++ {
		candidate := base + "-" + strconv.Itoa(suffix)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Slug reduces a title to the characters allowed in a session id:
// lowercase ASCII letters, digits, '-' and '_'. Anything else becomes
// '-'. The result is at most 20 bytes and never empty.
func Slug(title string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteByte('-')
		}
	}
	slug := strings.Trim(builder.String(), "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if slug == "" {
		return "session"
	}
	return slug
}

// Get returns the session, first confirming with the driver that a
// session believed alive still exists.
func (r *Registry) Get(ctx context.Context, id string) (Session, error) {
	session, ok := r.Peek(id)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !session.Alive {
		return session, nil
	}

	alive, err := r.driver.IsAlive(ctx, id)
	if err != nil {
		r.logger.Warn("liveness check failed", "session_id", id, "error", err)
		return session, nil
	}
	if !alive {
		r.MarkDead(id, r.clock.Now())
		session, _ = r.Peek(id)
	}
	return session, nil
}

// Peek returns the session without consulting the driver.
func (r *Registry) Peek(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// List returns every session, oldest first. Sessions believed alive
// are checked against the driver's session list; if the driver cannot
// be reached the records are returned unchanged.
//
// Only sessions registered before the driver snapshot is taken are
// checked. A session created while the snapshot is in flight is
// registered after its terminal session exists, so it is left alone.
func (r *Registry) List(ctx context.Context) ([]Session, error) {
	candidates := r.Alive()
	if live, err := r.driver.ListSessions(ctx); err != nil {
		r.logger.Warn("liveness check failed", "error", err)
	} else {
		now := r.clock.Now()
		for _, id := range candidates {
			if !slices.Contains(live, id) {
				r.MarkDead(id, now)
			}
		}
	}

	r.mu.RLock()
	sessions := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, *session)
	}
	r.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sessions, nil
}

// Alive returns the ids of sessions currently believed alive, sorted.
func (r *Registry) Alive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, session := range r.sessions {
		if session.Alive {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Counts returns how many sessions are alive and dead, without
// consulting the driver.
func (r *Registry) Counts() (alive, dead int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.Alive {
			alive++
		} else {
			dead++
		}
	}
	return alive, dead
}

// Kill tears down the terminal session and marks the record dead.
// Killing a session that is already dead succeeds without touching
// the driver.
func (r *Registry) Kill(ctx context.Context, id string) error {
	session, ok := r.Peek(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !session.Alive {
		return nil
	}
	if err := r.driver.Kill(ctx, id); err != nil {
		return fmt.Errorf("killing session %s: %w", id, err)
	}
	if r.MarkDead(id, r.clock.Now()) {
		r.logger.Info("session killed", "session_id", id)
	}
	return nil
}

// MarkDead records that the session ended at endedAt. It reports
// whether this call performed the transition; a session that is
// already dead or unknown is left alone.
func (r *Registry) MarkDead(id string, endedAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || !session.Alive {
		return false
	}
	session.Alive = false
	session.EndedAt = endedAt
	return true
}

// Remove drops a dead session from the table.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if session.Alive {
		return fmt.Errorf("%w: %s", ErrSessionAlive, id)
	}
	delete(r.sessions, id)
	r.logger.Info("session removed", "session_id", id)
	return nil
}

// Update applies fn to the stored record. fn may change the capture
// fields; changes to ID, Alive, EndedAt, Agent and CreatedAt are
// discarded.
func (r *Registry) Update(id string, fn func(*Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := *session
	fn(&updated)
	session.WorkingDir = updated.WorkingDir
	session.LastOutput = updated.LastOutput
	session.LastState = updated.LastState
	session.HistoryDepth = updated.HistoryDepth
	return nil
}

// Rehydrate rebuilds the table after a restart. Terminal sessions in
// alive whose id carries a known agent prefix are registered as alive;
// when allowedDirs is non-empty, only those whose working directory
// lies under one of them. Then every historic session not already
// known is registered as dead. Ids already present are never touched.
// It returns how many sessions of each kind were added.
func (r *Registry) Rehydrate(ctx context.Context, alive []string, historic []Historic, allowedDirs []string) (restored, archived int) {
	now := r.clock.Now()

	for _, id := range alive {
		kind, ok := agentkind.FromSessionID(id)
		if !ok {
			continue
		}
		if _, known := r.Peek(id); known {
			continue
		}
		dir, err := r.driver.Path(ctx, id)
		if err != nil {
			r.logger.Warn("cannot read session directory", "session_id", id, "error", err)
		}
		if len(allowedDirs) > 0 && !underAny(dir, allowedDirs) {
			r.logger.Info("skipping session outside allowed directories", "session_id", id, "working_dir", dir)
			continue
		}
		if r.insertIfAbsent(&Session{ID: id, Agent: kind, WorkingDir: dir, Alive: true, CreatedAt: now}) {
			restored++
		}
	}

	for _, record := range historic {
		kind, _ := agentkind.FromSessionID(record.ID)
		endedAt := record.LastOutput
		if endedAt.IsZero() {
			endedAt = now
		}
		if r.insertIfAbsent(&Session{ID: record.ID, Agent: kind, EndedAt: endedAt}) {
			archived++
		}
	}

	r.logger.Info("registry rehydrated", "alive", restored, "history_only", archived)
	return restored, archived
}

func (r *Registry) insertIfAbsent(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return false
	}
	r.sessions[session.ID] = session
	return true
}

func underAny(dir string, roots []string) bool {
	if dir == "" {
		return false
	}
	for _, root := range roots {
		relative, err := filepath.Rel(filepath.Clean(root), filepath.Clean(dir))
		if err == nil && relative != ".." && !strings.HasPrefix(relative, "../") {
			return true
		}
	}
	return false
}
