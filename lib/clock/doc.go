// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for agentdeck components.
//
// Anything that reads the wall clock, waits, or ticks takes a Clock
// instead of calling the time package directly. Binaries pass Real();
// tests pass Fake() and move time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	scheduler := capture.New(capture.Config{Clock: c, ...})
//	go scheduler.Run(ctx)
//	c.WaitForTimers(1)         // the run loop has created its ticker
//	c.Advance(2 * time.Second) // deliver exactly one tick
package clock
