// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/lib/testutil"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "push.db")
	}
	store, err := OpenStore(StoreConfig{
		Path:   path,
		Clock:  clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func subscription(endpoint, session string) Subscription {
	return Subscription{Endpoint: endpoint, P256dh: "p256dh-" + endpoint, Auth: "auth", SessionID: session}
}

func TestStoreSubscribe(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()

	for _, sub := range []Subscription{
		subscription("https://push.example/phone", "agent-claude-api"),
		subscription("https://push.example/phone", "agent-codex-web"),
		subscription("https://push.example/laptop", "agent-claude-api"),
		subscription("https://push.example/phone", "agent-claude-api"),
	} {
		if err := store.Subscribe(ctx, sub); err != nil {
			t.Fatalf("Subscribe(%+v): %v", sub, err)
		}
	}

	sessions, err := store.SessionsForEndpoint(ctx, "https://push.example/phone")
	if err != nil {
		t.Fatalf("SessionsForEndpoint: %v", err)
	}
	if !slices.Equal(sessions, []string{"agent-claude-api", "agent-codex-web"}) {
		t.Errorf("SessionsForEndpoint = %v", sessions)
	}

	subs, err := store.ForSession(ctx, "agent-claude-api")
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("ForSession returned %d subscriptions, want 2", len(subs))
	}
	for _, sub := range subs {
		if sub.P256dh != "p256dh-"+sub.Endpoint || sub.Auth != "auth" || sub.SessionID != "agent-claude-api" {
			t.Errorf("subscription = %+v", sub)
		}
	}
}

func TestStoreSubscribeRotatesKeys(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()

	store.Subscribe(ctx, subscription("https://push.example/phone", "agent-claude-api"))
	store.Subscribe(ctx, subscription("https://push.example/phone", "agent-codex-web"))

	rotated := subscription("https://push.example/phone", "agent-claude-api")
	rotated.P256dh, rotated.Auth = "new-key", "new-auth"
	if err := store.Subscribe(ctx, rotated); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for _, session := range []string{"agent-claude-api", "agent-codex-web"} {
		subs, err := store.ForSession(ctx, session)
		if err != nil {
			t.Fatalf("ForSession: %v", err)
		}
		if len(subs) != 1 || subs[0].P256dh != "new-key" || subs[0].Auth != "new-auth" {
			t.Errorf("%s subscriptions = %+v, want rotated keys", session, subs)
		}
	}
}

func TestStoreSubscribeValidates(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()

	for _, sub := range []Subscription{
		{P256dh: "k", Auth: "a", SessionID: "s"},
		{Endpoint: "https://push.example/x", P256dh: "k", Auth: "a"},
		{Endpoint: "https://push.example/x", SessionID: "s"},
	} {
		if err := store.Subscribe(ctx, sub); err == nil {
			t.Errorf("Subscribe(%+v) succeeded", sub)
		}
	}
}

func TestStoreUnsubscribeAndRemoveEndpoint(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()

	store.Subscribe(ctx, subscription("https://push.example/phone", "agent-claude-api"))
	store.Subscribe(ctx, subscription("https://push.example/phone", "agent-codex-web"))
	store.Subscribe(ctx, subscription("https://push.example/laptop", "agent-claude-api"))

	if err := store.Unsubscribe(ctx, "https://push.example/laptop", "agent-claude-api"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := store.Unsubscribe(ctx, "https://push.example/laptop", "agent-claude-api"); err != nil {
		t.Fatalf("repeated Unsubscribe: %v", err)
	}

	removed, err := store.RemoveEndpoint(ctx, "https://push.example/phone")
	if err != nil {
		t.Fatalf("RemoveEndpoint: %v", err)
	}
	if removed != 2 {
		t.Errorf("RemoveEndpoint removed %d, want 2", removed)
	}

	for _, session := range []string{"agent-claude-api", "agent-codex-web"} {
		subs, err := store.ForSession(ctx, session)
		if err != nil {
			t.Fatalf("ForSession: %v", err)
		}
		if len(subs) != 0 {
			t.Errorf("%s still has subscriptions: %+v", session, subs)
		}
	}
}

func TestStoreConcurrentSubscribe(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()

	const browsers = 12
	endpoints := make([]string, browsers)
	for i := range endpoints {
		endpoints[i] = "https://push.example/" + testutil.UniqueID("browser")
	}

	var wg sync.WaitGroup
	errs := make(chan error, browsers)
	for _, endpoint := range endpoints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Subscribe(ctx, subscription(endpoint, "agent-claude-api"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	subs, err := store.ForSession(ctx, "agent-claude-api")
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(subs) != browsers {
		t.Errorf("ForSession returned %d subscriptions, want %d", len(subs), browsers)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "push.db")
	ctx := context.Background()

	first, err := OpenStore(StoreConfig{
		Path:   path,
		Clock:  clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := first.Subscribe(ctx, subscription("https://push.example/phone", "agent-claude-api")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := openTestStore(t, path)
	sessions, err := second.SessionsForEndpoint(ctx, "https://push.example/phone")
	if err != nil {
		t.Fatalf("SessionsForEndpoint: %v", err)
	}
	if !slices.Equal(sessions, []string{"agent-claude-api"}) {
		t.Errorf("SessionsForEndpoint after reopen = %v", sessions)
	}
}

func TestEndpointKeyIsStable(t *testing.T) {
	a := endpointKey("https://push.example/phone")
	if a != endpointKey("https://push.example/phone") {
		t.Error("endpointKey is not deterministic")
	}
	if a == endpointKey("https://push.example/laptop") {
		t.Error("different endpoints share a key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex characters", len(a))
	}
}
