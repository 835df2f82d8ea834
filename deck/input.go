// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package deck

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/registry"
)

// ErrItemNotFound is returned by SelectItem when the screen shows no
// menu item with the requested number.
var ErrItemNotFound = errors.New("selection item not found")

const (
	arrowPause     = 50 * time.Millisecond
	freeformSettle = 200 * time.Millisecond
)

// Output is one interactive capture of a session's visible pane.
type Output struct {
	Content string

	// Changed reports whether Content differs from the previous
	// CaptureNow for the same session.
	Changed bool
}

func (d *Deck) requireAlive(ctx context.Context, id string) (registry.Session, error) {
	session, err := d.registry.Get(ctx, id)
	if err != nil {
		return registry.Session{}, err
	}
	if !session.Alive {
		return registry.Session{}, fmt.Errorf("%w: %s", registry.ErrSessionDead, id)
	}
	return session, nil
}

// CaptureNow returns the visible pane of a live session.
func (d *Deck) CaptureNow(ctx context.Context, id string) (Output, error) {
	if _, err := d.requireAlive(ctx, id); err != nil {
		return Output{}, err
	}
	content, err := d.driver.CapturePane(ctx, id)
	if err != nil {
		return Output{}, fmt.Errorf("capturing %s: %w", id, err)
	}

	d.captureMu.Lock()
	previous, seen := d.lastCapture[id]
	d.lastCapture[id] = content
	d.captureMu.Unlock()

	return Output{Content: content, Changed: !seen || previous != content}, nil
}

// State classifies the visible pane of a live session. The result is
// recorded on the session and offered to the notification gate.
func (d *Deck) State(ctx context.Context, id string) (classify.Parsed, error) {
	if _, err := d.requireAlive(ctx, id); err != nil {
		return classify.Parsed{}, err
	}
	screen, err := d.driver.CapturePane(ctx, id)
	if err != nil {
		return classify.Parsed{}, fmt.Errorf("capturing %s: %w", id, err)
	}

	parsed := classify.Classify(screen)
	d.registry.Update(id, func(session *registry.Session) {
		session.LastOutput = screen
		session.LastState = parsed.State
	})
	if d.gate != nil {
		d.gate.CheckAndNotify(ctx, id, parsed.State)
	}
	return parsed, nil
}

// SendInput delivers user input. A shortcut word ("stop", "up", ...)
// is expanded to keys; anything else is typed literally and followed
// by Enter after a short pause, so the agent sees the text before the
// submit.
func (d *Deck) SendInput(ctx context.Context, id, text string) error {
	session, err := d.requireAlive(ctx, id)
	if err != nil {
		return err
	}
	adapter, err := d.catalog.Adapter(session.Agent)
	if err != nil {
		return err
	}

	if shortcut, ok := adapter.ExpandShortcut(text); ok {
		d.logger.Info("shortcut expanded", "session_id", id, "shortcut", text, "keys", shortcut.Keys)
		return d.send(ctx, id, shortcut.Keys, shortcut.Enter, false)
	}

	if err := d.send(ctx, id, text, false, true); err != nil {
		return err
	}
	if err := d.pause(ctx, d.inputSettle); err != nil {
		return err
	}
	return d.send(ctx, id, "Enter", false, false)
}

// SendKeys delivers keys without shortcut expansion. literal types
// keys as text; otherwise they are key names such as "Escape".
func (d *Deck) SendKeys(ctx context.Context, id, keys string, enter, literal bool) error {
	if _, err := d.requireAlive(ctx, id); err != nil {
		return err
	}
	return d.send(ctx, id, keys, enter, literal)
}

// SelectItem picks the numbered menu item currently on screen. Menus
// with a highlight marker are driven with arrow keys, others by typing
// the number. When freeform is not empty it is typed afterwards into
// the text field the item opened.
func (d *Deck) SelectItem(ctx context.Context, id string, number int, freeform string) error {
	if _, err := d.requireAlive(ctx, id); err != nil {
		return err
	}
	screen, err := d.driver.CapturePane(ctx, id)
	if err != nil {
		return fmt.Errorf("capturing %s: %w", id, err)
	}
	parsed := classify.Classify(screen)

	target := -1
	for i, item := range parsed.Items {
		if item.Number == number {
			target = i
			break
		}
	}
	if target < 0 {
		return fmt.Errorf("%w: %d in %s", ErrItemNotFound, number, id)
	}

	if parsed.ArrowNavigable {
		delta := target - parsed.SelectedIndex
		key := "Down"
		if delta < 0 {
			key, delta = "Up", -delta
		}
		for range delta {
			if err := d.send(ctx, id, key, false, false); err != nil {
				return err
			}
			if err := d.pause(ctx, arrowPause); err != nil {
				return err
			}
		}
	} else if err := d.send(ctx, id, strconv.Itoa(number), false, true); err != nil {
		return err
	}

	if err := d.pause(ctx, d.inputSettle); err != nil {
		return err
	}
	if err := d.send(ctx, id, "Enter", false, false); err != nil {
		return err
	}

	if freeform == "" {
		return nil
	}
	if err := d.pause(ctx, freeformSettle); err != nil {
		return err
	}
	return d.send(ctx, id, freeform, true, true)
}

// PasteImage puts an image file on the clipboard and presses Ctrl-V
// in a live session, without Enter, so the user can add a message
// before submitting.
func (d *Deck) PasteImage(ctx context.Context, id, path string) error {
	if _, err := d.requireAlive(ctx, id); err != nil {
		return err
	}
	format, err := DetectImageFormat(path)
	if err != nil {
		return err
	}
	if err := d.clipboard.CopyImage(ctx, path, format); err != nil {
		return fmt.Errorf("copying %s to the clipboard: %w", path, err)
	}
	if err := d.pause(ctx, clipboardSettle); err != nil {
		return err
	}
	d.logger.Info("image pasted", "session_id", id, "path", path, "format", string(format))
	return d.send(ctx, id, "C-v", false, false)
}

func (d *Deck) send(ctx context.Context, id, keys string, enter, literal bool) error {
	if err := d.driver.Send(ctx, id, keys, enter, literal); err != nil {
		return fmt.Errorf("sending to %s: %w", id, err)
	}
	return nil
}

func (d *Deck) pause(ctx context.Context, duration time.Duration) error {
	select {
	case <-d.clock.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
