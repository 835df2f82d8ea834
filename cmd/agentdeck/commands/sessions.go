// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/agentdeck/agentdeck/cmd/agentdeck/cli"
	"github.com/agentdeck/agentdeck/lib/schema"
	"github.com/agentdeck/agentdeck/lib/service"
)

func listCommand(env *Env) *cli.Command {
	var (
		output   = cli.JSONOutput{Out: env.Stdout}
		liveOnly bool
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List sessions with their last known state",
		Flags: func(flagSet *pflag.FlagSet) {
			output.Register(flagSet)
			flagSet.BoolVar(&liveOnly, "live", false, "hide dead sessions")
		},
		Run: func(ctx context.Context, args []string) error {
			var list schema.ListResponse
			if err := env.call(ctx, schema.ActionList, nil, &list); err != nil {
				return err
			}
			sessions := list.Sessions
			if liveOnly {
				sessions = sessions[:0:0]
				for _, session := range list.Sessions {
					if session.Alive {
						sessions = append(sessions, session)
					}
				}
			}
			if done, err := output.EmitJSON(sessions); done {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(env.Stdout, "no sessions")
				return nil
			}
			fmt.Fprintln(env.Stdout, renderSessions(env.Theme, sessions, time.Now()))
			return nil
		},
	}
}

func createCommand(env *Env) *cli.Command {
	var (
		output = cli.JSONOutput{Out: env.Stdout}
		title  string
		agent  string
	)
	return &cli.Command{
		Name:    "create",
		Summary: "Start an agent in a new tmux session",
		Usage:   "agentdeck create [flags] [directory]",
		Examples: []cli.Example{
			{Description: "Claude in the current directory", Command: "agentdeck create ."},
			{Description: "Codex with a readable session name", Command: "agentdeck create --agent codex --title 'api review' ~/src/api"},
		},
		Flags: func(flagSet *pflag.FlagSet) {
			output.Register(flagSet)
			flagSet.StringVar(&title, "title", "", "session name (default: the directory name)")
			flagSet.StringVar(&agent, "agent", "", "agent kind: claude or codex (default claude)")
		},
		Run: func(ctx context.Context, args []string) error {
			fields := map[string]any{}
			if len(args) > 0 {
				dir, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				fields["working_dir"] = dir
			}
			if title != "" {
				fields["title"] = title
			}
			if agent != "" {
				fields["agent"] = agent
			}

			var session schema.SessionInfo
			if err := env.call(ctx, schema.ActionCreate, fields, &session); err != nil {
				return err
			}
			if done, err := output.EmitJSON(session); done {
				return err
			}
			fmt.Fprintln(env.Stdout, session.ID)
			return nil
		},
	}
}

func showCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "show",
		Summary: "Show one session",
		Usage:   "agentdeck show [flags] <session>",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck show <session>"); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			var session schema.SessionInfo
			if err := env.call(ctx, schema.ActionGet, map[string]any{"session": id}, &session); err != nil {
				return err
			}
			if done, err := output.EmitJSON(session); done {
				return err
			}
			fmt.Fprintln(env.Stdout, renderSessions(env.Theme, []schema.SessionInfo{session}, time.Now()))
			return nil
		},
	}
}

func killCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "kill",
		Summary: "Stop a session's agent and tmux session; its output stays searchable",
		Usage:   "agentdeck kill <session>",
		Run: func(ctx context.Context, args []string) error {
			return env.sessionAction(ctx, args, schema.ActionKill, "agentdeck kill <session>")
		},
	}
}

func removeCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "remove",
		Summary: "Forget a dead session and archive its output",
		Usage:   "agentdeck remove <session>",
		Run: func(ctx context.Context, args []string) error {
			err := env.sessionAction(ctx, args, schema.ActionRemove, "agentdeck remove <session>")
			if service.IsCode(err, service.CodeRejected) {
				return fmt.Errorf("%w (stop it first with 'agentdeck kill %s')", err, args[0])
			}
			return err
		},
	}
}

// sessionAction resolves args[0] and calls action with it.
func (env *Env) sessionAction(ctx context.Context, args []string, action, usage string) error {
	if err := requireArgs(args, 1, usage); err != nil {
		return err
	}
	id, err := env.resolveSession(ctx, args[0])
	if err != nil {
		return err
	}
	if err := env.call(ctx, action, map[string]any{"session": id}, nil); err != nil {
		return err
	}
	env.Logger.Info(action+" done", "session_id", id)
	return nil
}

func attachCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "attach",
		Summary: "Attach this terminal to a session's tmux session",
		Usage:   "agentdeck attach <session>",
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck attach <session>"); err != nil {
				return err
			}
			if !cli.IsTerminal(os.Stdin) {
				return fmt.Errorf("attach needs an interactive terminal")
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			tmuxBinary, err := exec.LookPath("tmux")
			if err != nil {
				return fmt.Errorf("tmux not found in PATH: %w", err)
			}
			argv := []string{"tmux"}
			if cfg.Tmux.Socket != "" {
				argv = append(argv, "-S", cfg.Tmux.Socket)
			}
			argv = append(argv, "attach-session", "-t", "="+id)
			return syscall.Exec(tmuxBinary, argv, os.Environ())
		},
	}
}

func recentCommand(env *Env) *cli.Command {
	output := cli.JSONOutput{Out: env.Stdout}
	return &cli.Command{
		Name:    "recent",
		Summary: "List recently used working directories",
		Flags:   output.Register,
		Run: func(ctx context.Context, args []string) error {
			var recent schema.RecentDirsResponse
			if err := env.call(ctx, schema.ActionRecentDirs, nil, &recent); err != nil {
				return err
			}
			if done, err := output.EmitJSON(recent.Dirs); done {
				return err
			}
			for _, dir := range recent.Dirs {
				fmt.Fprintln(env.Stdout, dir)
			}
			return nil
		},
	}
}
