// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the agentdeck CLI command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/agentdeck/agentdeck/cmd/agentdeck/cli"
	"github.com/agentdeck/agentdeck/lib/config"
	"github.com/agentdeck/agentdeck/lib/service"
	"github.com/agentdeck/agentdeck/lib/tui"
	"github.com/agentdeck/agentdeck/lib/version"
)

// SocketEnvVar overrides the daemon socket path.
const SocketEnvVar = "AGENTDECK_SOCKET"

// Env is what commands need from the outside world.
type Env struct {
	Stdout io.Writer
	Logger *slog.Logger
	Theme  tui.Theme

	// Config loads the configuration (socket path, tmux socket).
	Config func() (*config.Config, error)
}

// DefaultEnv is the environment of the real binary.
func DefaultEnv() *Env {
	return &Env{
		Stdout: os.Stdout,
		Logger: cli.NewCommandLogger(slog.LevelInfo),
		Theme:  tui.DefaultTheme,
		Config: config.Load,
	}
}

func (env *Env) client() (*service.ServiceClient, error) {
	if socketPath := os.Getenv(SocketEnvVar); socketPath != "" {
		return service.NewServiceClient(socketPath), nil
	}
	cfg, err := env.Config()
	if err != nil {
		return nil, err
	}
	return service.NewServiceClient(cfg.SocketPath), nil
}

// call runs one action against the daemon.
func (env *Env) call(ctx context.Context, action string, fields map[string]any, result any) error {
	client, err := env.client()
	if err != nil {
		return err
	}
	return client.Call(ctx, action, fields, result)
}

// Root builds the command tree.
func Root(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "agentdeck",
		Summary: "Drive coding agents running in tmux sessions through agentdeck-daemon.",
		Subcommands: []*cli.Command{
			listCommand(env),
			createCommand(env),
			showCommand(env),
			attachCommand(env),
			killCommand(env),
			removeCommand(env),

			outputCommand(env),
			stateCommand(env),
			sendCommand(env),
			keysCommand(env),
			selectCommand(env),
			pasteCommand(env),
			debugCommand(env),

			historyCommand(env),
			searchCommand(env),
			exportCommand(env),

			agentsCommand(env),
			recentCommand(env),
			statusCommand(env),
			vapidKeyCommand(env),
			subscriptionsCommand(env),

			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(ctx context.Context, args []string) error {
					fmt.Fprintf(env.Stdout, "agentdeck %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, minimum int, usage string) error {
	if len(args) < minimum {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
