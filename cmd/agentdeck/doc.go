// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// agentdeck is the command-line client of agentdeck-daemon. It creates
// and lists agent sessions, shows what an agent is waiting for,
// answers it, and searches captured output.
//
// Session arguments accept any unambiguous fuzzy fragment of a session
// id: "agentdeck send web 'run the tests'" reaches agent-claude-webapp
// when no other session matches "web" as well.
//
// The daemon's socket is found through $AGENTDECK_SOCKET, else the
// socket_path of the config file ($AGENTDECK_CONFIG), else
// ~/.local/state/agentdeck/agentdeck.sock.
package main
