// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// SessionInfo describes one agent session.
type SessionInfo struct {
	ID         string `json:"id" cbor:"id"`
	Agent      string `json:"agent" cbor:"agent"`
	WorkingDir string `json:"working_dir,omitempty" cbor:"working_dir,omitempty"`
	Alive      bool   `json:"alive" cbor:"alive"`

	CreatedAt  int64 `json:"created_at,omitempty" cbor:"created_at,omitempty"`
	EndedAt    int64 `json:"ended_at,omitempty" cbor:"ended_at,omitempty"`
	LastOutput int64 `json:"last_output,omitempty" cbor:"last_output,omitempty"`

	// LastState is the most recent classification: "working",
	// "selection", "prompt", or empty before the first capture.
	LastState string `json:"last_state,omitempty" cbor:"last_state,omitempty"`

	HistoryDepth int `json:"history_depth" cbor:"history_depth"`
}

// StatusResponse is the result of [ActionStatus].
type StatusResponse struct {
	Version       string  `json:"version" cbor:"version"`
	UptimeSeconds float64 `json:"uptime_seconds" cbor:"uptime_seconds"`
	Alive         int     `json:"alive" cbor:"alive"`
	Dead          int     `json:"dead" cbor:"dead"`
	NotifyEnabled bool    `json:"notify_enabled" cbor:"notify_enabled"`
}

// SessionRequest names a session. Used by get, kill, remove, output,
// state, and export.
type SessionRequest struct {
	Session string `cbor:"session"`
}

// CreateRequest is the request for [ActionCreate]. Agent defaults to
// "claude".
type CreateRequest struct {
	WorkingDir string `cbor:"working_dir"`
	Title      string `cbor:"title,omitempty"`
	Agent      string `cbor:"agent,omitempty"`
}

// ListResponse is the result of [ActionList].
type ListResponse struct {
	Sessions []SessionInfo `json:"sessions" cbor:"sessions"`
}

// OutputResponse is the result of [ActionOutput]. Changed reports
// whether Content differs from the previous output request for the
// same session.
type OutputResponse struct {
	Content string `json:"content" cbor:"content"`
	Changed bool   `json:"changed" cbor:"changed"`
}

// MenuItem is one numbered choice of a selection screen.
type MenuItem struct {
	Number      int    `json:"number" cbor:"number"`
	Label       string `json:"label" cbor:"label"`
	Description string `json:"description,omitempty" cbor:"description,omitempty"`
	Freeform    bool   `json:"freeform,omitempty" cbor:"freeform,omitempty"`
}

// StateResponse is the result of [ActionState].
type StateResponse struct {
	State          string     `json:"state" cbor:"state"`
	Items          []MenuItem `json:"items,omitempty" cbor:"items,omitempty"`
	SelectedIndex  int        `json:"selected_index" cbor:"selected_index"`
	ArrowNavigable bool       `json:"arrow_navigable,omitempty" cbor:"arrow_navigable,omitempty"`
	Question       string     `json:"question,omitempty" cbor:"question,omitempty"`
}

// SendRequest is the request for [ActionSend]. Text that matches a
// shortcut of the session's agent is expanded to its keys.
type SendRequest struct {
	Session string `cbor:"session"`
	Text    string `cbor:"text"`
}

// KeysRequest is the request for [ActionKeys]: raw tmux key names, or
// literal text when Literal is set.
type KeysRequest struct {
	Session string `cbor:"session"`
	Keys    string `cbor:"keys"`
	Enter   bool   `cbor:"enter,omitempty"`
	Literal bool   `cbor:"literal,omitempty"`
}

// SelectRequest is the request for [ActionSelect].
type SelectRequest struct {
	Session      string `cbor:"session"`
	Item         int    `cbor:"item"`
	FreeformText string `cbor:"freeform_text,omitempty"`
}

// PasteImageRequest is the request for [ActionPaste]. Path must be an
// absolute path readable by the daemon.
type PasteImageRequest struct {
	Session string `cbor:"session"`
	Path    string `cbor:"path"`
}

// DebugRequest is the request for [ActionDebug]. The response is the
// [SessionInfo] of the helper session.
type DebugRequest struct {
	Session     string `cbor:"session"`
	Description string `cbor:"description,omitempty"`
}

// ShortcutInfo is the key sequence a shortcut word expands to.
type ShortcutInfo struct {
	Keys  string `json:"keys" cbor:"keys"`
	Enter bool   `json:"enter,omitempty" cbor:"enter,omitempty"`
}

// SlashCommandInfo is one entry of an agent's slash-command catalogue.
type SlashCommandInfo struct {
	Text    string `json:"text" cbor:"text"`
	Enter   bool   `json:"enter,omitempty" cbor:"enter,omitempty"`
	Confirm bool   `json:"confirm,omitempty" cbor:"confirm,omitempty"`
}

// AgentInfo describes one supported agent kind.
type AgentInfo struct {
	Kind          string                  `json:"kind" cbor:"kind"`
	Shortcuts     map[string]ShortcutInfo `json:"shortcuts" cbor:"shortcuts"`
	SlashCommands []SlashCommandInfo      `json:"slash_commands" cbor:"slash_commands"`
}

// AgentsResponse is the result of [ActionAgents].
type AgentsResponse struct {
	Agents []AgentInfo `json:"agents" cbor:"agents"`
}

// RecentDirsResponse is the result of [ActionRecentDirs], most recent
// first.
type RecentDirsResponse struct {
	Dirs []string `json:"dirs" cbor:"dirs"`
}
