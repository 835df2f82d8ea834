// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Bounded limits how many driver calls run at once and how long each
// may take. Interactive requests and the capture loop share one
// Bounded so neither can starve the process of subprocess slots.
//
// A call that exceeds the timeout (including time spent waiting for a
// slot) fails with an error wrapping ErrUnreachable.
type Bounded struct {
	inner   Driver
	slots   *semaphore.Weighted
	timeout time.Duration
}

// NewBounded wraps inner. concurrency must be at least 1.
func NewBounded(inner Driver, concurrency int, timeout time.Duration) *Bounded {
	return &Bounded{
		inner:   inner,
		slots:   semaphore.NewWeighted(int64(max(concurrency, 1))),
		timeout: timeout,
	}
}

var _ Driver = (*Bounded)(nil)

func call[T any](b *Bounded, ctx context.Context, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.slots.Acquire(callCtx, 1); err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s: no driver slot within %v: %w", operation, b.timeout, ErrUnreachable)
	}
	defer b.slots.Release(1)

	result, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return zero, fmt.Errorf("%s: timed out after %v: %w (%v)", operation, b.timeout, ErrUnreachable, err)
	}
	return result, err
}

func (b *Bounded) Create(ctx context.Context, id string, options CreateOptions) error {
	_, err := call(b, ctx, "create", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Create(ctx, id, options)
	})
	return err
}

func (b *Bounded) Send(ctx context.Context, id string, keys string, enter, literal bool) error {
	_, err := call(b, ctx, "send", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Send(ctx, id, keys, enter, literal)
	})
	return err
}

func (b *Bounded) CapturePane(ctx context.Context, id string) (string, error) {
	return call(b, ctx, "capture pane", func(ctx context.Context) (string, error) {
		return b.inner.CapturePane(ctx, id)
	})
}

func (b *Bounded) CaptureScrollback(ctx context.Context, id string) ([]string, error) {
	return call(b, ctx, "capture scrollback", func(ctx context.Context) ([]string, error) {
		return b.inner.CaptureScrollback(ctx, id)
	})
}

func (b *Bounded) HistorySize(ctx context.Context, id string) (int, error) {
	return call(b, ctx, "history size", func(ctx context.Context) (int, error) {
		return b.inner.HistorySize(ctx, id)
	})
}

func (b *Bounded) IsProcessDead(ctx context.Context, id string) (bool, error) {
	return call(b, ctx, "process status", func(ctx context.Context) (bool, error) {
		return b.inner.IsProcessDead(ctx, id)
	})
}

func (b *Bounded) Kill(ctx context.Context, id string) error {
	_, err := call(b, ctx, "kill", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Kill(ctx, id)
	})
	return err
}

func (b *Bounded) IsAlive(ctx context.Context, id string) (bool, error) {
	return call(b, ctx, "liveness", func(ctx context.Context) (bool, error) {
		return b.inner.IsAlive(ctx, id)
	})
}

func (b *Bounded) ListSessions(ctx context.Context) ([]string, error) {
	return call(b, ctx, "list sessions", func(ctx context.Context) ([]string, error) {
		return b.inner.ListSessions(ctx)
	})
}

func (b *Bounded) Path(ctx context.Context, id string) (string, error) {
	return call(b, ctx, "path", func(ctx context.Context) (string, error) {
		return b.inner.Path(ctx, id)
	})
}
