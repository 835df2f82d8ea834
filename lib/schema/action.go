// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Control socket actions. The "action" field of every request selects
// one of these.
const (
	ActionStatus = "status"
	ActionAgents = "agents"

	ActionList   = "list"
	ActionCreate = "create"
	ActionGet    = "get"
	ActionKill   = "kill"
	ActionRemove = "remove"

	ActionOutput = "output"
	ActionState  = "state"
	ActionSend   = "send"
	ActionKeys   = "keys"
	ActionSelect = "select"
	ActionPaste  = "paste-image"
	ActionDebug  = "debug"

	ActionHistory = "history"
	ActionSearch  = "search"
	ActionExport  = "export"

	ActionSubscribe     = "subscribe"
	ActionUnsubscribe   = "unsubscribe"
	ActionSubscriptions = "subscriptions"
	ActionVAPIDKey      = "vapid-key"

	ActionRecentDirs = "recent-dirs"
)
