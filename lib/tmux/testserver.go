// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package tmux

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/agentdeck/agentdeck/lib/testutil"
)

// NewTestServer starts an isolated tmux server for a test and kills it
// on cleanup. It skips the test when no tmux binary is installed.
//
// The server lives on a short /tmp socket, loads -f /dev/null, and is
// kept alive by a "_guard" session running "sleep infinity". Tests must
// only talk to tmux through the returned Server: a bare "tmux" command
// targets the user's default server.
func NewTestServer(t *testing.T) *Server {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}

	socketPath := filepath.Join(testutil.SocketDir(t), "tmux.sock")
	server := NewServer(socketPath, "/dev/null")

	if err := server.NewSession(t.Context(), "_guard", SessionOptions{}, "sleep", "infinity"); err != nil {
		t.Fatalf("start tmux test server: %v", err)
	}

	t.Cleanup(func() {
		server.KillServer(context.Background())
	})
	return server
}
