// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package agentkind

import (
	"maps"
	"strings"
)

// Shortcut is what a shortcut word expands to: a tmux key name (or
// literal text) and whether Enter follows it.
type Shortcut struct {
	Keys  string `json:"keys"`
	Enter bool   `json:"enter,omitempty"`
}

// SlashCommand is an agent command offered to clients as a button.
type SlashCommand struct {
	Text string `json:"text"`
	// Enter sends Enter after the text.
	Enter bool `json:"enter"`
	// Confirm asks the client to confirm first (destructive commands
	// such as /clear).
	Confirm bool `json:"confirm,omitempty"`
}

// Adapter is the launch and input behaviour of one agent kind.
type Adapter struct {
	kind          Kind
	command       string
	shortcuts     map[string]Shortcut
	slashCommands []SlashCommand
}

// Kind returns the adapter's kind.
func (a *Adapter) Kind() Kind { return a.kind }

// LaunchCommand returns the shell command that starts the agent in
// dir. tmux runs it with sh -c; the agent replaces the shell so the
// pane dies exactly when the agent exits.
func (a *Adapter) LaunchCommand(dir string) string {
	return "cd " + shellQuote(dir) + " && exec " + a.command
}

// ExpandShortcut maps a shortcut word ("stop", "up", ...) to keys.
// Matching ignores case and surrounding whitespace. ok is false for
// ordinary text.
func (a *Adapter) ExpandShortcut(text string) (shortcut Shortcut, ok bool) {
	shortcut, ok = a.shortcuts[strings.ToLower(strings.TrimSpace(text))]
	return shortcut, ok
}

// Shortcuts returns a copy of the shortcut table.
func (a *Adapter) Shortcuts() map[string]Shortcut {
	return maps.Clone(a.shortcuts)
}

// SlashCommands returns the agent's slash commands.
func (a *Adapter) SlashCommands() []SlashCommand {
	return append([]SlashCommand(nil), a.slashCommands...)
}

// terminalShortcuts are the keys every full-screen agent TUI responds
// to.
var terminalShortcuts = map[string]Shortcut{
	"stop":   {Keys: "Escape"},
	"cancel": {Keys: "C-c"},
	"up":     {Keys: "Up"},
	"down":   {Keys: "Down"},
	"enter":  {Keys: "Enter"},
}

func builtin(kind Kind) *Adapter {
	shortcuts := maps.Clone(terminalShortcuts)
	switch kind {
	case Claude:
		// Shift+Tab cycles Claude's permission modes.
		shortcuts["tab"] = Shortcut{Keys: "BTab"}
		return &Adapter{
			kind:      Claude,
			command:   "claude",
			shortcuts: shortcuts,
			slashCommands: []SlashCommand{
				{Text: "/context", Enter: true},
				{Text: "/clear", Enter: true, Confirm: true},
				{Text: "/compact", Enter: true, Confirm: true},
			},
		}
	case Codex:
		return &Adapter{
			kind:      Codex,
			command:   "codex",
			shortcuts: shortcuts,
			slashCommands: []SlashCommand{
				{Text: "/model", Enter: true},
			},
		}
	}
	panic("agentkind: no builtin adapter for " + string(kind))
}

// shellQuote single-quotes s for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
