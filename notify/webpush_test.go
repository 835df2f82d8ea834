// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func browserSubscription(t *testing.T, endpoint string) Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}
	return Subscription{
		Endpoint:  endpoint,
		P256dh:    base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:      base64.RawURLEncoding.EncodeToString(auth),
		SessionID: "agent-claude-api",
	}
}

func TestLoadOrCreateVAPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vapid.json")

	created, fresh, err := LoadOrCreateVAPID(path)
	if err != nil {
		t.Fatalf("LoadOrCreateVAPID: %v", err)
	}
	if !fresh {
		t.Error("first call did not report creation")
	}
	if created.PublicKey == "" || created.PrivateKey == "" {
		t.Fatalf("generated keys are empty: %+v", created)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("key file mode = %o, want 600", mode)
	}

	loaded, fresh, err := LoadOrCreateVAPID(path)
	if err != nil {
		t.Fatalf("second LoadOrCreateVAPID: %v", err)
	}
	if fresh || loaded != created {
		t.Errorf("second call = %+v (created %v), want the stored keys", loaded, fresh)
	}
}

func TestLoadOrCreateVAPIDRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vapid.json")
	if err := os.WriteFile(path, []byte(`{"public_key": ""}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadOrCreateVAPID(path); err == nil {
		t.Error("accepted a key file without keys")
	}
}

func TestWebPush(t *testing.T) {
	keys, _, err := LoadOrCreateVAPID(filepath.Join(t.TempDir(), "vapid.json"))
	if err != nil {
		t.Fatal(err)
	}

	var status atomic.Int32
	status.Store(http.StatusCreated)
	var authorization atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization.Store(r.Header.Get("Authorization"))
		w.WriteHeader(int(status.Load()))
		w.Write([]byte("details"))
	}))
	defer server.Close()

	pusher, err := NewWebPush(WebPushConfig{
		Keys:       keys,
		Subscriber: "mailto:ops@example.com",
		TTL:        time.Hour,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewWebPush: %v", err)
	}
	subscription := browserSubscription(t, server.URL+"/push/abc123")
	ctx := context.Background()

	if err := pusher.Push(ctx, subscription, []byte(`{"title":"AgentDeck"}`)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if header, _ := authorization.Load().(string); !strings.HasPrefix(header, "vapid ") {
		t.Errorf("Authorization = %q, want a VAPID header", header)
	}

	status.Store(http.StatusGone)
	if err := pusher.Push(ctx, subscription, []byte(`{}`)); !errors.Is(err, ErrEndpointGone) {
		t.Errorf("Push on 410 = %v, want ErrEndpointGone", err)
	}

	status.Store(http.StatusNotFound)
	if err := pusher.Push(ctx, subscription, []byte(`{}`)); !errors.Is(err, ErrEndpointGone) {
		t.Errorf("Push on 404 = %v, want ErrEndpointGone", err)
	}

	status.Store(http.StatusInternalServerError)
	err = pusher.Push(ctx, subscription, []byte(`{}`))
	if err == nil || errors.Is(err, ErrEndpointGone) {
		t.Errorf("Push on 500 = %v, want a transient error", err)
	}
	if err != nil && strings.Contains(err.Error(), "abc123") {
		t.Errorf("error %q leaks the endpoint path", err)
	}
}

func TestNewWebPushRequiresKeys(t *testing.T) {
	if _, err := NewWebPush(WebPushConfig{}); err == nil {
		t.Error("NewWebPush accepted empty keys")
	}
}
