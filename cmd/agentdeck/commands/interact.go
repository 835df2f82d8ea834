// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/agentdeck/agentdeck/cmd/agentdeck/cli"
	"github.com/agentdeck/agentdeck/lib/schema"
)

func outputCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "output",
		Summary: "Print the visible screen of a session",
		Usage:   "agentdeck output [flags] <session>",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck output <session>"); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			var screen schema.OutputResponse
			if err := env.call(ctx, schema.ActionOutput, map[string]any{"session": id}, &screen); err != nil {
				return err
			}
			if done, err := output.EmitJSON(screen); done {
				return err
			}
			fmt.Fprintln(env.Stdout, strings.TrimRight(screen.Content, "\n"))
			return nil
		},
	}
}

func stateCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "state",
		Summary: "Show whether a session is working or waiting, and its menu",
		Usage:   "agentdeck state [flags] <session>",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck state <session>"); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			var state schema.StateResponse
			if err := env.call(ctx, schema.ActionState, map[string]any{"session": id}, &state); err != nil {
				return err
			}
			if done, err := output.EmitJSON(state); done {
				return err
			}
			fmt.Fprintln(env.Stdout, renderState(env.Theme, id, state))
			return nil
		},
	}
}

func sendCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "send",
		Summary: "Type text into a session and press Enter (shortcut words such as 'stop' send keys)",
		Usage:   "agentdeck send <session> <text>...",
		Examples: []cli.Example{
			{Command: "agentdeck send api 'add a regression test for the parser'"},
			{Description: "Interrupt the agent", Command: "agentdeck send api stop"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "agentdeck send <session> <text>..."); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			return env.call(ctx, schema.ActionSend, map[string]any{
				"session": id,
				"text":    strings.Join(args[1:], " "),
			}, nil)
		},
	}
}

func keysCommand(env *Env) *cli.Command {
	var enter, literal bool
	return &cli.Command{
		Name:    "keys",
		Summary: "Send raw tmux keys to a session",
		Usage:   "agentdeck keys [flags] <session> <keys>",
		Examples: []cli.Example{
			{Description: "Press Ctrl-C", Command: "agentdeck keys api C-c"},
			{Description: "Type text without shortcut expansion", Command: "agentdeck keys --literal --enter api stop"},
		},
		Flags: func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&enter, "enter", false, "press Enter afterwards")
			flagSet.BoolVar(&literal, "literal", false, "send the keys as literal text")
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "agentdeck keys <session> <keys>"); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			return env.call(ctx, schema.ActionKeys, map[string]any{
				"session": id,
				"keys":    strings.Join(args[1:], " "),
				"enter":   enter,
				"literal": literal,
			}, nil)
		},
	}
}

func selectCommand(env *Env) *cli.Command {
	var text string
	return &cli.Command{
		Name:    "select",
		Summary: "Choose a numbered item of the menu a session is showing",
		Usage:   "agentdeck select [flags] <session> <number>",
		Flags: func(flagSet *pflag.FlagSet) {
			flagSet.StringVar(&text, "text", "", "text to type into a free-form item after choosing it")
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "agentdeck select <session> <number>"); err != nil {
				return err
			}
			number, err := strconv.Atoi(args[1])
			if err != nil || number < 1 {
				return fmt.Errorf("item must be a positive number, got %q", args[1])
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			fields := map[string]any{"session": id, "item": number}
			if text != "" {
				fields["freeform_text"] = text
			}
			return env.call(ctx, schema.ActionSelect, fields, nil)
		},
	}
}

func pasteCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "paste",
		Summary: "Paste a PNG or JPEG image into a session without submitting it",
		Usage:   "agentdeck paste <session> <image-file>",
		Examples: []cli.Example{
			{Command: "agentdeck paste api ~/Desktop/layout-bug.png"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "agentdeck paste <session> <image-file>"); err != nil {
				return err
			}
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			return env.call(ctx, schema.ActionPaste, map[string]any{"session": id, "path": path}, nil)
		},
	}
}

func debugCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "debug",
		Summary: "Start a helper agent that is shown a session's screen and your description",
		Usage:   "agentdeck debug [flags] <session> [description]...",
		Examples: []cli.Example{
			{Command: "agentdeck debug api 'keeps retrying the same failing migration'"},
		},
		Flags: output.Register,
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck debug <session> [description]..."); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			var helper schema.SessionInfo
			if err := env.call(ctx, schema.ActionDebug, map[string]any{
				"session":     id,
				"description": strings.Join(args[1:], " "),
			}, &helper); err != nil {
				return err
			}
			if done, err := output.EmitJSON(helper); done {
				return err
			}
			fmt.Fprintln(env.Stdout, helper.ID)
			return nil
		},
	}
}
