// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package deck is the orchestrator tying the agentdeck components
// together. One Deck is built at process start, started once, and
// stopped on shutdown; every entry point (the control socket handlers,
// tests) goes through its methods.
//
// Stop ends the capture loop and waits for pending notifications. It
// leaves terminal sessions running so a restarted daemon can adopt
// them.
package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/agentdeck/agentdeck/capture"
	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/ledger"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/notify"
	"github.com/agentdeck/agentdeck/registry"
	"github.com/agentdeck/agentdeck/terminal"
)

// ErrNotifyDisabled is returned by subscription operations on a deck
// built without a subscription store.
var ErrNotifyDisabled = errors.New("push notifications are not configured")

// Config holds the dependencies and settings of a Deck.
type Config struct {
	Driver  terminal.Driver
	Ledger  *ledger.Ledger
	Catalog *agentkind.Catalog
	Clock   clock.Clock
	Logger  *slog.Logger

	// Subscriptions and Pusher enable push notifications. Both nil
	// disables them.
	Subscriptions *notify.Store
	Pusher        notify.Pusher

	// VAPIDPublicKey is handed to browsers that want to subscribe.
	VAPIDPublicKey string

	// PublicURL is the base URL of notification links.
	PublicURL string

	// RecentDirsPath persists recently used working directories. Empty
	// keeps them in memory only.
	RecentDirsPath string

	// RehydrateDirs limits which running sessions Start adopts.
	RehydrateDirs []string

	// Capture tunes the background loop; zero fields use the capture
	// package defaults.
	Capture CaptureSettings

	// InputSettle is the pause between typing text and pressing Enter.
	// Default: 150ms.
	InputSettle time.Duration

	// Clipboard fills the clipboard for PasteImage. Nil uses
	// SystemClipboard.
	Clipboard Clipboard

	// DebugWorkingDir is where DebugSession starts its helper. Empty
	// uses the directory of the session being debugged.
	DebugWorkingDir string

	// DebugPollInterval and DebugPollAttempts bound the wait for a
	// debug helper to reach its prompt. Defaults: 2s and 30.
	DebugPollInterval time.Duration
	DebugPollAttempts int
}

// CaptureSettings mirrors the tunables of capture.Config.
type CaptureSettings struct {
	Interval         time.Duration
	FingerprintLines int
	MaxFailures      int
	HistoryLimit     int
}

// Deck is safe for concurrent use once started.
type Deck struct {
	driver        terminal.Driver
	ledger        *ledger.Ledger
	catalog       *agentkind.Catalog
	clock         clock.Clock
	logger        *slog.Logger
	registry      *registry.Registry
	scheduler     *capture.Scheduler
	gate          *notify.Gate
	subscriptions *notify.Store
	recent        *recentDirs
	clipboard     Clipboard
	debug         debugSettings

	vapidPublicKey string
	rehydrateDirs  []string
	inputSettle    time.Duration
	startedAt      time.Time

	// background outlives requests; Stop cancels it and waits for
	// the goroutines started on it.
	background       context.Context
	cancelBackground context.CancelFunc
	workers          sync.WaitGroup

	captureMu   sync.Mutex
	lastCapture map[string]string

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// New wires the components. Nothing runs until Start.
func New(cfg Config) (*Deck, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("deck: Driver is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("deck: Ledger is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = agentkind.DefaultCatalog()
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("deck: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("deck: Logger is required")
	}
	if (cfg.Subscriptions == nil) != (cfg.Pusher == nil) {
		return nil, fmt.Errorf("deck: Subscriptions and Pusher must be set together")
	}

	sessions, err := registry.New(registry.Config{
		Driver:  cfg.Driver,
		Catalog: cfg.Catalog,
		Clock:   cfg.Clock,
		Logger:  cfg.Logger.With("component", "registry"),
	})
	if err != nil {
		return nil, err
	}

	deck := &Deck{
		driver:         cfg.Driver,
		ledger:         cfg.Ledger,
		catalog:        cfg.Catalog,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		registry:       sessions,
		subscriptions:  cfg.Subscriptions,
		recent:         newRecentDirs(cfg.RecentDirsPath),
		vapidPublicKey: cfg.VAPIDPublicKey,
		rehydrateDirs:  cfg.RehydrateDirs,
		inputSettle:    cfg.InputSettle,
		clipboard:      cfg.Clipboard,
		debug: debugSettings{
			workingDir: cfg.DebugWorkingDir,
			interval:   cfg.DebugPollInterval,
			attempts:   cfg.DebugPollAttempts,
		},
		lastCapture: make(map[string]string),
	}
	if deck.inputSettle <= 0 {
		deck.inputSettle = 150 * time.Millisecond
	}
	if deck.clipboard == nil {
		deck.clipboard = SystemClipboard{}
	}
	if deck.debug.interval <= 0 {
		deck.debug.interval = 2 * time.Second
	}
	if deck.debug.attempts <= 0 {
		deck.debug.attempts = 30
	}
	deck.background, deck.cancelBackground = context.WithCancel(context.Background())

	var notifier capture.Notifier
	if cfg.Subscriptions != nil {
		deck.gate, err = notify.NewGate(notify.GateConfig{
			Subscriptions: cfg.Subscriptions,
			Pusher:        cfg.Pusher,
			PublicURL:     cfg.PublicURL,
			Logger:        cfg.Logger.With("component", "notify"),
		})
		if err != nil {
			return nil, err
		}
		notifier = deck.gate
	}

	deck.scheduler, err = capture.New(capture.Config{
		Driver:           cfg.Driver,
		Registry:         sessions,
		Store:            cfg.Ledger,
		Notifier:         notifier,
		Clock:            cfg.Clock,
		Logger:           cfg.Logger.With("component", "capture"),
		Interval:         cfg.Capture.Interval,
		FingerprintLines: cfg.Capture.FingerprintLines,
		MaxFailures:      cfg.Capture.MaxFailures,
		HistoryLimit:     cfg.Capture.HistoryLimit,
	})
	if err != nil {
		return nil, err
	}
	return deck, nil
}

// Start rebuilds the session table from the driver and the ledger and
// launches the capture loop. It fails if the ledger cannot be read;
// an unreachable driver only means no running session is adopted.
func (d *Deck) Start(ctx context.Context) error {
	d.lifecycleMu.Lock()
	defer d.lifecycleMu.Unlock()
	if d.cancel != nil {
		return fmt.Errorf("deck: already started")
	}

	if err := d.rehydrate(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.done = make(chan struct{})
	d.startedAt = d.clock.Now()
	go func() {
		defer close(d.done)
		d.scheduler.Run(runCtx)
	}()
	return nil
}

func (d *Deck) rehydrate(ctx context.Context) error {
	alive, err := d.driver.ListSessions(ctx)
	if err != nil {
		d.logger.Warn("listing terminal sessions failed, adopting none", "error", err)
		alive = nil
	}

	ids, err := d.ledger.SessionIDs(ctx)
	if err != nil {
		return fmt.Errorf("deck: reading session history: %w", err)
	}
	historic := make([]registry.Historic, 0, len(ids))
	for _, id := range ids {
		latest, _, err := d.ledger.LatestTimestamp(ctx, id)
		if err != nil {
			return fmt.Errorf("deck: reading session history: %w", err)
		}
		historic = append(historic, registry.Historic{ID: id, LastOutput: latest})
	}

	d.registry.Rehydrate(ctx, alive, historic, d.rehydrateDirs)
	if d.gate != nil {
		d.seedGate(ctx)
	}
	return nil
}

// seedGate records the current screen state of every adopted session
// so a restart does not notify for sessions already waiting.
func (d *Deck) seedGate(ctx context.Context) {
	for _, id := range d.registry.Alive() {
		screen, err := d.driver.CapturePane(ctx, id)
		if err != nil {
			d.logger.Warn("capturing adopted session failed", "session_id", id, "error", err)
			continue
		}
		d.gate.Seed(id, classify.Classify(screen).State)
	}
}

// Stop ends the capture loop after its current tick, abandons pending
// debug handoffs and waits for in-flight notifications. Safe to call
// more than once.
func (d *Deck) Stop() {
	d.lifecycleMu.Lock()
	cancel, done := d.cancel, d.done
	d.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	d.cancelBackground()
	d.workers.Wait()
	if d.gate != nil {
		d.gate.Close()
	}
}

// Tick runs one capture pass immediately.
func (d *Deck) Tick(ctx context.Context) {
	d.scheduler.Tick(ctx)
}

// Status summarizes the deck for health checks.
type Status struct {
	Uptime time.Duration
	Alive  int
	Dead   int
}

// Status counts sessions without consulting the driver.
func (d *Deck) Status() Status {
	alive, dead := d.registry.Counts()
	status := Status{Alive: alive, Dead: dead}
	if !d.startedAt.IsZero() {
		status.Uptime = d.clock.Now().Sub(d.startedAt)
	}
	return status
}

// CreateSession starts a new agent session.
func (d *Deck) CreateSession(ctx context.Context, params registry.CreateParams) (registry.Session, error) {
	session, err := d.registry.Create(ctx, params)
	if err != nil {
		return registry.Session{}, err
	}
	if err := d.recent.Record(session.WorkingDir); err != nil {
		d.logger.Warn("recording recent directory failed", "error", err)
	}
	return session, nil
}

// ListSessions returns every known session, alive and dead.
func (d *Deck) ListSessions(ctx context.Context) ([]registry.Session, error) {
	return d.registry.List(ctx)
}

// GetSession returns one session.
func (d *Deck) GetSession(ctx context.Context, id string) (registry.Session, error) {
	return d.registry.Get(ctx, id)
}

// KillSession terminates a session. Killing a dead session succeeds.
func (d *Deck) KillSession(ctx context.Context, id string) error {
	if err := d.registry.Kill(ctx, id); err != nil {
		return err
	}
	d.forget(id)
	return nil
}

// RemoveSession archives a dead session's output and drops it from the
// session table.
func (d *Deck) RemoveSession(ctx context.Context, id string) error {
	session, ok := d.registry.Peek(id)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	if session.Alive {
		return fmt.Errorf("%w: %s", registry.ErrSessionAlive, id)
	}
	if err := d.ledger.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := d.registry.Remove(id); err != nil {
		return err
	}
	d.forget(id)
	return nil
}

func (d *Deck) forget(id string) {
	d.captureMu.Lock()
	delete(d.lastCapture, id)
	d.captureMu.Unlock()
	if d.gate != nil {
		d.gate.Forget(id)
	}
}

// History pages backwards through a session's stored output.
func (d *Deck) History(ctx context.Context, id string, before time.Time, limit int) (ledger.Page, error) {
	return d.ledger.Read(ctx, id, before, limit)
}

// Search queries stored output across sessions.
func (d *Deck) Search(ctx context.Context, query ledger.Query) (ledger.SearchResults, error) {
	return d.ledger.Search(ctx, query)
}

// Export writes a session's stored transcript to w.
func (d *Deck) Export(ctx context.Context, id string, w io.Writer) error {
	return d.ledger.Export(ctx, id, w)
}

// RecentDirs returns up to ten recently used working directories,
// newest first, with the home directory shown as "~".
func (d *Deck) RecentDirs() []string {
	return d.recent.List()
}

// AgentInfo describes one supported agent kind.
type AgentInfo struct {
	Kind          agentkind.Kind
	Shortcuts     map[string]agentkind.Shortcut
	SlashCommands []agentkind.SlashCommand
}

// Agents lists the supported agent kinds.
func (d *Deck) Agents() []AgentInfo {
	var agents []AgentInfo
	for _, kind := range agentkind.Kinds() {
		adapter, err := d.catalog.Adapter(kind)
		if err != nil {
			continue
		}
		agents = append(agents, AgentInfo{
			Kind:          kind,
			Shortcuts:     adapter.Shortcuts(),
			SlashCommands: adapter.SlashCommands(),
		})
	}
	return agents
}

// VAPIDPublicKey returns the key browsers subscribe with, empty when
// notifications are disabled.
func (d *Deck) VAPIDPublicKey() string {
	return d.vapidPublicKey
}

// Subscribe registers a browser endpoint for a session's
// notifications.
func (d *Deck) Subscribe(ctx context.Context, subscription notify.Subscription) error {
	if d.subscriptions == nil {
		return ErrNotifyDisabled
	}
	if _, ok := d.registry.Peek(subscription.SessionID); !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, subscription.SessionID)
	}
	return d.subscriptions.Subscribe(ctx, subscription)
}

// Unsubscribe removes one endpoint/session subscription.
func (d *Deck) Unsubscribe(ctx context.Context, endpoint, sessionID string) error {
	if d.subscriptions == nil {
		return ErrNotifyDisabled
	}
	return d.subscriptions.Unsubscribe(ctx, endpoint, sessionID)
}

// SessionsForEndpoint lists the sessions an endpoint is subscribed to.
func (d *Deck) SessionsForEndpoint(ctx context.Context, endpoint string) ([]string, error) {
	if d.subscriptions == nil {
		return nil, ErrNotifyDisabled
	}
	return d.subscriptions.SessionsForEndpoint(ctx, endpoint)
}
