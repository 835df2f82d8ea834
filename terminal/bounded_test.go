// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package terminal_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/terminal"
	"github.com/agentdeck/agentdeck/terminal/terminaltest"
)

// blockingDriver blocks CapturePane until released or the call's
// context ends, counting how many calls are in flight at once.
type blockingDriver struct {
	*terminaltest.Fake
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (d *blockingDriver) CapturePane(ctx context.Context, id string) (string, error) {
	current := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		peak := d.peak.Load()
		if current <= peak || d.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	select {
	case <-d.release:
		return "screen", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestBoundedCapsConcurrency(t *testing.T) {
	inner := &blockingDriver{Fake: terminaltest.New(), release: make(chan struct{})}
	bounded := terminal.NewBounded(inner, 2, 10*time.Second)

	var waitGroup sync.WaitGroup
	for range 6 {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			if _, err := bounded.CapturePane(context.Background(), "s"); err != nil {
				t.Errorf("CapturePane: %v", err)
			}
		}()
	}

	for inner.inFlight.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	close(inner.release)
	waitGroup.Wait()

	if peak := inner.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent calls = %d, want <= 2", peak)
	}
}

func TestBoundedTimeoutIsUnreachable(t *testing.T) {
	inner := &blockingDriver{Fake: terminaltest.New(), release: make(chan struct{})}
	bounded := terminal.NewBounded(inner, 1, 20*time.Millisecond)

	_, err := bounded.CapturePane(context.Background(), "s")
	if !errors.Is(err, terminal.ErrUnreachable) {
		t.Fatalf("CapturePane error = %v, want ErrUnreachable", err)
	}
}

func TestBoundedCallerCancellationIsNotUnreachable(t *testing.T) {
	inner := &blockingDriver{Fake: terminaltest.New(), release: make(chan struct{})}
	bounded := terminal.NewBounded(inner, 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := bounded.CapturePane(ctx, "s")
	if err == nil || errors.Is(err, terminal.ErrUnreachable) {
		t.Fatalf("CapturePane error = %v, want plain cancellation", err)
	}
}

func TestBoundedPassesThroughErrors(t *testing.T) {
	fake := terminaltest.New()
	bounded := terminal.NewBounded(fake, 4, time.Second)

	_, err := bounded.HistorySize(context.Background(), "missing")
	if !errors.Is(err, terminal.ErrNoSession) {
		t.Fatalf("HistorySize error = %v, want ErrNoSession", err)
	}

	fake.Add("present", "/src")
	path, err := bounded.Path(context.Background(), "present")
	if err != nil || path != "/src" {
		t.Fatalf("Path = %q, %v; want /src", path, err)
	}
}
