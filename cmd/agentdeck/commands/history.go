// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/agentdeck/agentdeck/cmd/agentdeck/cli"
	"github.com/agentdeck/agentdeck/lib/schema"
)

func historyCommand(env *Env) *cli.Command {
	var (
		output = cli.JSONOutput{Out: env.Stdout}
		limit  int
		before int64
	)
	return &cli.Command{
		Name:    "history",
		Summary: "Print stored output of a session, oldest first",
		Usage:   "agentdeck history [flags] <session>",
		Flags: func(flagSet *pflag.FlagSet) {
			output.Register(flagSet)
			flagSet.IntVar(&limit, "limit", 50, "chunks per page")
			flagSet.Int64Var(&before, "before", 0, "page cursor (the earliest_ts of the previous page)")
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck history <session>"); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			var page schema.HistoryResponse
			err = env.call(ctx, schema.ActionHistory, map[string]any{
				"session": id,
				"before":  before,
				"limit":   limit,
			}, &page)
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(page); done {
				return err
			}

			chunks := slices.Clone(page.Chunks)
			slices.Reverse(chunks)
			for _, chunk := range chunks {
				fmt.Fprintln(env.Stdout, chunk.Content)
			}
			if page.EarliestTimestamp != 0 {
				env.Logger.Info("more history", "next", fmt.Sprintf("agentdeck history --before %d %s", page.EarliestTimestamp, id))
			}
			return nil
		},
	}
}

func searchCommand(env *Env) *cli.Command {
	var (
		output  = cli.JSONOutput{Out: env.Stdout}
		session string
		limit   int
	)
	return &cli.Command{
		Name:    "search",
		Summary: "Full-text search over stored output; exits 1 when nothing matches",
		Usage:   "agentdeck search [flags] <words>...",
		Flags: func(flagSet *pflag.FlagSet) {
			output.Register(flagSet)
			flagSet.StringVar(&session, "session", "", "only search this session")
			flagSet.IntVar(&limit, "limit", 20, "maximum results")
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck search <words>..."); err != nil {
				return err
			}
			fields := map[string]any{"query": strings.Join(args, " "), "limit": limit}
			if session != "" {
				id, err := env.resolveSession(ctx, session)
				if err != nil {
					return err
				}
				fields["session"] = id
			}

			var results schema.SearchResponse
			if err := env.call(ctx, schema.ActionSearch, fields, &results); err != nil {
				return err
			}
			if done, err := output.EmitJSON(results); done {
				return err
			}
			if results.TotalMatches == 0 {
				fmt.Fprintln(env.Stdout, "no matches")
				return &cli.ExitError{Code: 1}
			}
			for _, hit := range results.Results {
				stamp := schema.FromWireTime(hit.Timestamp).Local().Format(time.DateTime)
				fmt.Fprintf(env.Stdout, "%s  %s  %s\n", hit.Session, stamp, renderSnippet(env.Theme, hit.Snippet))
			}
			if results.TotalMatches > len(results.Results) {
				fmt.Fprintf(env.Stdout, "(%d of %d matches)\n", len(results.Results), results.TotalMatches)
			}
			return nil
		},
	}
}

func exportCommand(env *Env) *cli.Command {
	var (
		outputPath string
		compress   bool
	)
	return &cli.Command{
		Name:    "export",
		Summary: "Write the full stored transcript of a session",
		Usage:   "agentdeck export [flags] <session>",
		Examples: []cli.Example{
			{Description: "Archive a finished session", Command: "agentdeck export --zstd -o api.log.zst api"},
		},
		Flags: func(flagSet *pflag.FlagSet) {
			flagSet.StringVarP(&outputPath, "output", "o", "", "file to write (default stdout)")
			flagSet.BoolVar(&compress, "zstd", false, "compress with zstd")
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, "agentdeck export <session>"); err != nil {
				return err
			}
			id, err := env.resolveSession(ctx, args[0])
			if err != nil {
				return err
			}
			var transcript schema.ExportResponse
			if err := env.call(ctx, schema.ActionExport, map[string]any{"session": id}, &transcript); err != nil {
				return err
			}

			destination := env.Stdout
			if outputPath != "" {
				file, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer file.Close()
				destination = file
			} else if file, ok := destination.(*os.File); ok && compress && cli.IsTerminal(file) {
				return fmt.Errorf("refusing to write compressed output to a terminal; use -o")
			}

			if err := writeTranscript(destination, transcript.Content, compress); err != nil {
				return fmt.Errorf("writing transcript: %w", err)
			}
			return nil
		},
	}
}

// writeTranscript writes content to w, zstd-compressed when compress
// is set.
func writeTranscript(w io.Writer, content []byte, compress bool) error {
	if !compress {
		_, err := w.Write(content)
		return err
	}
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if _, err := encoder.Write(content); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}
