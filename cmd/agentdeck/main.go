// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentdeck/agentdeck/cmd/agentdeck/commands"
	"github.com/agentdeck/agentdeck/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return commands.Root(commands.DefaultEnv()).Execute(ctx, os.Args[1:])
}
