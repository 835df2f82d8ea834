// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmux is a typed wrapper around the tmux command line.
//
// Every command goes through Server, which injects the -S socket flag
// when one is configured. An empty socket path targets the user's
// default tmux server, which is how agent sessions are normally hosted
// so that `tmux attach -t <session>` works from any terminal.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Server is a tmux server identified by its socket path.
type Server struct {
	socketPath string
	configFile string // passed as "-f <path>" when a command may start the server
}

// NewServer returns a Server for socketPath. An empty socketPath means
// tmux's default server. configFile is passed as -f on commands that
// can start the server; "/dev/null" keeps ~/.tmux.conf out of tests.
func NewServer(socketPath, configFile string) *Server {
	return &Server{socketPath: socketPath, configFile: configFile}
}

// SocketPath returns the configured socket path ("" for the default
// server).
func (s *Server) SocketPath() string {
	return s.socketPath
}

// SessionOptions shapes a new session.
type SessionOptions struct {
	// Width and Height size the detached window. Zero leaves tmux's
	// default.
	Width, Height int

	// HistoryLimit is the scrollback depth. tmux applies history-limit
	// when a pane is created, so it is set server-wide immediately
	// before new-session in the same invocation.
	HistoryLimit int

	// Dir is the starting directory of the pane.
	Dir string

	// RemainOnExit keeps the pane after its command exits so the final
	// output can still be captured and the exit detected.
	RemainOnExit bool
}

// NewSession creates a detached session running command (the default
// shell if empty).
func (s *Server) NewSession(ctx context.Context, name string, options SessionOptions, command ...string) error {
	var args []string
	if s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	args = append(args, s.socketArgs()...)

	if options.HistoryLimit > 0 {
		args = append(args,
			"start-server", ";",
			"set-option", "-g", "history-limit", strconv.Itoa(options.HistoryLimit), ";")
	}

	args = append(args, "new-session", "-d", "-s", name)
	if options.Width > 0 && options.Height > 0 {
		args = append(args, "-x", strconv.Itoa(options.Width), "-y", strconv.Itoa(options.Height))
	}
	if options.Dir != "" {
		args = append(args, "-c", options.Dir)
	}
	args = append(args, command...)

	output, err := exec.CommandContext(ctx, "tmux", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			name, err, strings.TrimSpace(string(output)))
	}

	if options.RemainOnExit {
		if err := s.SetOption(ctx, name, "remain-on-exit", "on"); err != nil {
			return err
		}
	}
	return nil
}

// HasSession reports whether the session exists. A missing session or
// a server that is not running is (false, nil); any other tmux failure
// is returned as an error so callers can tell "gone" from "unreachable".
func (s *Server) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := s.Run(ctx, "has-session", "-t", exactTarget(name))
	if err == nil {
		return true, nil
	}
	if IsMissing(err) {
		return false, nil
	}
	return false, err
}

// ListSessions returns the names of all sessions on the server. A
// server that is not running has no sessions.
func (s *Server) ListSessions(ctx context.Context) ([]string, error) {
	output, err := s.Run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if IsMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// KillSession terminates a session. A session that is already gone is
// not an error.
func (s *Server) KillSession(ctx context.Context, name string) error {
	_, err := s.Run(ctx, "kill-session", "-t", exactTarget(name))
	if err != nil && !IsMissing(err) {
		return err
	}
	return nil
}

// KillServer stops the server and every session on it. A stopped
// server is not an error.
func (s *Server) KillServer(ctx context.Context) error {
	_, err := s.Run(ctx, "kill-server")
	if err != nil && !IsMissing(err) && !strings.Contains(err.Error(), "server exited unexpectedly") {
		return err
	}
	return nil
}

// SetOption sets key=value on the named session, or globally (-g) if
// sessionName is empty.
func (s *Server) SetOption(ctx context.Context, sessionName, key, value string) error {
	args := []string{"set-option", "-g", key, value}
	if sessionName != "" {
		args = []string{"set-option", "-t", paneTarget(sessionName), key, value}
	}
	if _, err := s.Run(ctx, args...); err != nil {
		return fmt.Errorf("setting %s=%s: %w", key, value, err)
	}
	return nil
}

// SendKeys sends keys to the session's active pane. With literal set,
// keys are typed verbatim (send-keys -l); otherwise tmux interprets key
// names such as Enter, Escape or C-c.
func (s *Server) SendKeys(ctx context.Context, name string, literal bool, keys ...string) error {
	args := []string{"send-keys", "-t", paneTarget(name)}
	if literal {
		args = append(args, "-l")
	}
	for _, key := range keys {
		args = append(args, escapeSeparator(key))
	}
	_, err := s.Run(ctx, args...)
	return err
}

// escapeSeparator protects an argument ending in ";", which tmux would
// otherwise take as a command separator and drop.
func escapeSeparator(argument string) string {
	if strings.HasSuffix(argument, ";") && !strings.HasSuffix(argument, `\;`) {
		return argument[:len(argument)-1] + `\;`
	}
	return argument
}

// CaptureVisible returns the currently visible contents of the
// session's active pane.
func (s *Server) CaptureVisible(ctx context.Context, name string) (string, error) {
	return s.Run(ctx, "capture-pane", "-p", "-t", paneTarget(name))
}

// CaptureAll returns the whole scrollback followed by the visible
// area. The first #{history_size} lines are the scrollback.
func (s *Server) CaptureAll(ctx context.Context, name string) (string, error) {
	return s.Run(ctx, "capture-pane", "-p", "-t", paneTarget(name), "-S", "-")
}

// HistorySize returns the number of scrollback lines above the visible
// area of the active pane.
func (s *Server) HistorySize(ctx context.Context, name string) (int, error) {
	return s.displayInt(ctx, name, "#{history_size}")
}

// CurrentPath returns the working directory of the active pane's
// foreground process.
func (s *Server) CurrentPath(ctx context.Context, name string) (string, error) {
	output, err := s.Run(ctx, "display-message", "-p", "-t", paneTarget(name), "#{pane_current_path}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// paneStatusRetryDelay and paneStatusMaxRetries bound the wait for tmux
// to populate pane_dead_status after it has already set pane_dead=1.
const (
	paneStatusRetryDelay = 50 * time.Millisecond
	paneStatusMaxRetries = 5
)

// PaneStatus reports whether the active pane's command has exited and
// with what code. Requires remain-on-exit; without it the pane (and
// the session) disappear with the process. Signal deaths are reported
// as 128+signal.
func (s *Server) PaneStatus(ctx context.Context, name string) (dead bool, exitCode int, err error) {
	for attempt := 0; ; attempt++ {
		output, err := s.Run(ctx, "display-message", "-p", "-t", paneTarget(name),
			"#{pane_dead} #{pane_dead_status} #{pane_dead_signal}")
		if err != nil {
			return false, 0, err
		}
		dead, exitCode, settled, err := parsePaneStatus(output)
		if err != nil || !dead || settled || attempt >= paneStatusMaxRetries {
			return dead, exitCode, err
		}
		select {
		case <-ctx.Done():
			return true, 0, nil
		case <-time.After(paneStatusRetryDelay):
		}
	}
}

// parsePaneStatus decodes "<dead> <status> <signal>". Empty fields
// collapse, so "0", "1 42", "1  15" and "1" are all valid. settled is
// false when the pane is dead but tmux has not filled in either
// status field yet.
func parsePaneStatus(output string) (dead bool, exitCode int, settled bool, err error) {
	parts := strings.SplitN(strings.TrimRight(output, "\n"), " ", 3)
	if len(parts) == 0 || parts[0] == "" {
		return false, 0, false, fmt.Errorf("empty pane status output")
	}
	deadValue, err := strconv.Atoi(parts[0])
	if err != nil {
		return false, 0, false, fmt.Errorf("parsing pane_dead %q: %w", parts[0], err)
	}
	if deadValue == 0 {
		return false, 0, true, nil
	}

	if len(parts) >= 3 && parts[2] != "" {
		signal, err := strconv.Atoi(parts[2])
		if err != nil {
			return true, -1, true, fmt.Errorf("parsing pane_dead_signal %q: %w", parts[2], err)
		}
		return true, 128 + signal, true, nil
	}
	if len(parts) >= 2 && parts[1] != "" {
		status, err := strconv.Atoi(parts[1])
		if err != nil {
			return true, -1, true, fmt.Errorf("parsing pane_dead_status %q: %w", parts[1], err)
		}
		return true, status, true, nil
	}
	return true, 0, false, nil
}

// Run executes a tmux subcommand against this server and returns its
// output. The socket flag is prepended automatically:
//
//	output, err := server.Run(ctx, "list-panes", "-t", name, "-F", "#{pane_index}")
func (s *Server) Run(ctx context.Context, args ...string) (string, error) {
	output, err := s.CommandContext(ctx, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// CommandContext returns an unstarted *exec.Cmd for a tmux subcommand
// against this server, for callers that need the terminal (attach).
func (s *Server) CommandContext(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "tmux", append(s.socketArgs(), args...)...)
}

func (s *Server) socketArgs() []string {
	if s.socketPath == "" {
		return nil
	}
	return []string{"-S", s.socketPath}
}

func (s *Server) displayInt(ctx context.Context, name, format string) (int, error) {
	output, err := s.Run(ctx, "display-message", "-p", "-t", paneTarget(name), format)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", format, strings.TrimSpace(output), err)
	}
	return value, nil
}

// exactTarget prefixes a session name with "=" so tmux matches it
// exactly instead of by prefix ("agent-claude-api" must not resolve
// to "agent-claude-api-2").
func exactTarget(name string) string {
	return "=" + name
}

// paneTarget addresses the active pane of the session's current
// window, still matching the session name exactly.
func paneTarget(name string) string {
	return "=" + name + ":"
}

// IsMissing reports whether a tmux error means the target session or
// the whole server does not exist.
func IsMissing(err error) bool {
	message := err.Error()
	return strings.Contains(message, "can't find session") ||
		strings.Contains(message, "no server running") ||
		strings.Contains(message, "session not found") ||
		strings.Contains(message, "error connecting to")
}
