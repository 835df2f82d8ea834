// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentdeck/agentdeck/lib/tmux"
)

// TmuxOptions shapes every session the Tmux driver creates.
type TmuxOptions struct {
	Width        int
	Height       int
	HistoryLimit int
}

// Tmux is a Driver backed by a tmux server. Session ids are tmux
// session names.
type Tmux struct {
	server  *tmux.Server
	options TmuxOptions
}

// NewTmux returns a Driver on server.
func NewTmux(server *tmux.Server, options TmuxOptions) *Tmux {
	return &Tmux{server: server, options: options}
}

func (d *Tmux) Create(ctx context.Context, id string, options CreateOptions) error {
	var command []string
	if options.Command != "" {
		command = []string{options.Command}
	}
	return d.server.NewSession(ctx, id, tmux.SessionOptions{
		Width:        d.options.Width,
		Height:       d.options.Height,
		HistoryLimit: d.options.HistoryLimit,
		Dir:          options.Dir,
		RemainOnExit: true,
	}, command...)
}

func (d *Tmux) Send(ctx context.Context, id string, keys string, enter, literal bool) error {
	if literal {
		if keys != "" {
			if err := d.server.SendKeys(ctx, id, true, keys); err != nil {
				return wrapMissing(id, err)
			}
		}
		if enter {
			return wrapMissing(id, d.server.SendKeys(ctx, id, false, "Enter"))
		}
		return nil
	}

	args := []string{keys}
	if enter {
		args = append(args, "Enter")
	}
	return wrapMissing(id, d.server.SendKeys(ctx, id, false, args...))
}

func (d *Tmux) CapturePane(ctx context.Context, id string) (string, error) {
	output, err := d.server.CaptureVisible(ctx, id)
	return output, wrapMissing(id, err)
}

func (d *Tmux) CaptureScrollback(ctx context.Context, id string) ([]string, error) {
	output, err := d.server.CaptureAll(ctx, id)
	if err != nil {
		return nil, wrapMissing(id, err)
	}
	return strings.Split(strings.TrimSuffix(output, "\n"), "\n"), nil
}

func (d *Tmux) HistorySize(ctx context.Context, id string) (int, error) {
	size, err := d.server.HistorySize(ctx, id)
	return size, wrapMissing(id, err)
}

func (d *Tmux) IsProcessDead(ctx context.Context, id string) (bool, error) {
	dead, _, err := d.server.PaneStatus(ctx, id)
	if err != nil {
		if tmux.IsMissing(err) {
			return false, nil
		}
		return false, err
	}
	return dead, nil
}

func (d *Tmux) Kill(ctx context.Context, id string) error {
	return d.server.KillSession(ctx, id)
}

func (d *Tmux) IsAlive(ctx context.Context, id string) (bool, error) {
	return d.server.HasSession(ctx, id)
}

func (d *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	return d.server.ListSessions(ctx)
}

func (d *Tmux) Path(ctx context.Context, id string) (string, error) {
	path, err := d.server.CurrentPath(ctx, id)
	return path, wrapMissing(id, err)
}

// wrapMissing turns tmux's "can't find session" into ErrNoSession.
func wrapMissing(id string, err error) error {
	if err != nil && tmux.IsMissing(err) {
		return fmt.Errorf("%s: %w", id, ErrNoSession)
	}
	return err
}
