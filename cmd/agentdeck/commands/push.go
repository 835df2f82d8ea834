// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/agentdeck/agentdeck/cmd/agentdeck/cli"
	"github.com/agentdeck/agentdeck/lib/schema"
)

func statusCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "status",
		Summary: "Check that the daemon is running",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			var status schema.StatusResponse
			if err := env.call(ctx, schema.ActionStatus, nil, &status); err != nil {
				return err
			}
			if done, err := output.EmitJSON(status); done {
				return err
			}
			uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)
			notifications := "off"
			if status.NotifyEnabled {
				notifications = "on"
			}
			fmt.Fprintf(env.Stdout, "agentdeck-daemon %s\nup %s, %d live and %d dead sessions, notifications %s\n",
				status.Version, uptime, status.Alive, status.Dead, notifications)
			return nil
		},
	}
}

func agentsCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "agents",
		Summary: "List agent kinds with their shortcuts and slash commands",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			var agents schema.AgentsResponse
			if err := env.call(ctx, schema.ActionAgents, nil, &agents); err != nil {
				return err
			}
			if done, err := output.EmitJSON(agents.Agents); done {
				return err
			}
			for _, agent := range agents.Agents {
				words := make([]string, 0, len(agent.Shortcuts))
				for word := range agent.Shortcuts {
					words = append(words, word)
				}
				slices.Sort(words)
				commands := make([]string, 0, len(agent.SlashCommands))
				for _, command := range agent.SlashCommands {
					commands = append(commands, command.Text)
				}
				fmt.Fprintf(env.Stdout, "%s\n  shortcuts: %s\n  commands:  %s\n",
					agent.Kind, strings.Join(words, " "), strings.Join(commands, " "))
			}
			return nil
		},
	}
}

func vapidKeyCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "vapid-key",
		Summary: "Print the public key browsers use to subscribe to notifications",
		Run: func(ctx context.Context, args []string) error {
			var key schema.VAPIDKeyResponse
			if err := env.call(ctx, schema.ActionVAPIDKey, nil, &key); err != nil {
				return err
			}
			fmt.Fprintln(env.Stdout, key.PublicKey)
			return nil
		},
	}
}

func subscriptionsCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "subscriptions",
		Summary: "List the sessions a push endpoint is subscribed to",
		Usage:   "agentdeck subscriptions [flags] <endpoint-url>",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck subscriptions <endpoint-url>"); err != nil {
				return err
			}
			var subscriptions schema.SubscriptionsResponse
			if err := env.call(ctx, schema.ActionSubscriptions, map[string]any{"endpoint": args[0]}, &subscriptions); err != nil {
				return err
			}
			if done, err := output.EmitJSON(subscriptions.Sessions); done {
				return err
			}
			for _, session := range subscriptions.Sessions {
				fmt.Fprintln(env.Stdout, session)
			}
			return nil
		},
	}
}
