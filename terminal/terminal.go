// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package terminal defines how agentdeck talks to the terminal
// multiplexer hosting agent sessions.
//
// [Driver] is the narrow interface the registry, the capture loop and
// the orchestrator depend on. [Tmux] implements it on lib/tmux;
// [Bounded] wraps any Driver with a concurrency cap and a per-call
// timeout so a hung multiplexer cannot stall callers indefinitely.
// Package terminaltest provides an in-memory Driver for tests.
package terminal

import (
	"context"
	"errors"
)

var (
	// ErrNoSession reports that the addressed session does not exist.
	ErrNoSession = errors.New("terminal session not found")

	// ErrUnreachable reports that the driver did not answer in time.
	// Callers treat it as transient.
	ErrUnreachable = errors.New("terminal driver unreachable")
)

// CreateOptions describes a new session.
type CreateOptions struct {
	// Dir is the starting directory.
	Dir string

	// Command is a shell command line run in the session.
	Command string
}

// Driver controls terminal sessions addressed by id. Implementations
// must be safe for concurrent use.
type Driver interface {
	// Create starts a detached session. The pane must survive its
	// process exiting so the final output can be captured.
	Create(ctx context.Context, id string, options CreateOptions) error

	// Send delivers keys to the session. literal types keys verbatim;
	// otherwise they are multiplexer key names ("Escape", "C-c").
	// enter presses Enter afterwards.
	Send(ctx context.Context, id string, keys string, enter, literal bool) error

	// CapturePane returns the visible screen.
	CapturePane(ctx context.Context, id string) (string, error)

	// CaptureScrollback returns every line of the pane: the scrollback
	// first, then the visible area.
	CaptureScrollback(ctx context.Context, id string) ([]string, error)

	// HistorySize returns the number of scrollback lines above the
	// visible area.
	HistorySize(ctx context.Context, id string) (int, error)

	// IsProcessDead reports whether the pane's process has exited while
	// the session still exists. A missing session is not dead, it is
	// gone; see IsAlive.
	IsProcessDead(ctx context.Context, id string) (bool, error)

	// Kill destroys the session. Killing a missing session succeeds.
	Kill(ctx context.Context, id string) error

	// IsAlive reports whether the session exists. An error means the
	// driver could not tell.
	IsAlive(ctx context.Context, id string) (bool, error)

	// ListSessions returns the ids of all existing sessions.
	ListSessions(ctx context.Context) ([]string, error)

	// Path returns the current working directory of the session's
	// foreground process.
	Path(ctx context.Context, id string) (string, error)
}
