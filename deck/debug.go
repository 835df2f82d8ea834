// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/registry"
)

// debugSubmitPause separates the handoff message from the extra Enter
// that submits it once the agent has taken the paste.
const debugSubmitPause = 300 * time.Millisecond

type debugSettings struct {
	workingDir string
	interval   time.Duration
	attempts   int
}

// DebugSession starts a helper agent titled "debug" and hands it the
// screen of session id together with the user's description of what
// went wrong. The helper is returned as soon as it exists; the handoff
// happens in the background once the helper shows its prompt, and is
// abandoned if the prompt does not appear within the poll budget.
func (d *Deck) DebugSession(ctx context.Context, id, description string) (registry.Session, error) {
	target, err := d.registry.Get(ctx, id)
	if err != nil {
		return registry.Session{}, err
	}
	screen := target.LastOutput
	if target.Alive {
		if live, err := d.driver.CapturePane(ctx, id); err == nil {
			screen = live
		} else {
			d.logger.Warn("capturing debugged session failed, using last output", "session_id", id, "error", err)
		}
	}

	workingDir := d.debug.workingDir
	if workingDir == "" {
		workingDir = target.WorkingDir
	}
	helper, err := d.CreateSession(ctx, registry.CreateParams{
		WorkingDir: workingDir,
		Title:      "debug",
		Agent:      agentkind.Claude,
	})
	if err != nil {
		return registry.Session{}, err
	}

	message := debugMessage(target, description, screen)
	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		d.handOff(d.background, helper.ID, message)
	}()
	return helper, nil
}

func (d *Deck) handOff(ctx context.Context, helperID, message string) {
	logger := d.logger.With("session_id", helperID)
	for attempt := 0; attempt < d.debug.attempts; attempt++ {
		if err := d.pause(ctx, d.debug.interval); err != nil {
			return
		}
		helper, err := d.registry.Get(ctx, helperID)
		if err != nil || !helper.Alive {
			logger.Warn("debug session went away before its prompt appeared")
			return
		}
		screen, err := d.driver.CapturePane(ctx, helperID)
		if err != nil {
			continue
		}
		if classify.Classify(screen).State != classify.Prompt {
			continue
		}

		if err := d.SendInput(ctx, helperID, message); err != nil {
			logger.Error("handing off to debug session failed", "error", err)
			return
		}
		if err := d.pause(ctx, debugSubmitPause); err != nil {
			return
		}
		if err := d.send(ctx, helperID, "Enter", false, false); err != nil {
			logger.Error("submitting debug handoff failed", "error", err)
			return
		}
		logger.Info("debug handoff delivered", "attempts", attempt+1)
		return
	}
	logger.Warn("debug session never showed a prompt", "attempts", d.debug.attempts)
}

func debugMessage(target registry.Session, description, screen string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Help me debug the %s agent session %s running in %s.\n", target.Agent, target.ID, target.WorkingDir)
	if description = strings.TrimSpace(description); description != "" {
		fmt.Fprintf(&b, "What went wrong: %s\n", description)
	}
	b.WriteString("This is its terminal as it looks now:\n<terminal-capture>\n")
	b.WriteString(strings.TrimRight(screen, "\n"))
	b.WriteString("\n</terminal-capture>")
	return b.String()
}
