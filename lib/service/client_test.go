// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/lib/testutil"
)

func TestClientCall(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("send", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Session string `cbor:"session"`
			Text    string `cbor:"text"`
		}
		if err := DecodeRequest(raw, &request); err != nil {
			return nil, err
		}
		return map[string]string{"echo": request.Session + ":" + request.Text}, nil
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	var result struct {
		Echo string `cbor:"echo"`
	}
	err := client.Call(context.Background(), "send", map[string]any{
		"session": "agent-claude-api",
		"text":    "run the tests",
	}, &result)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Echo != "agent-claude-api:run the tests" {
		t.Errorf("Echo = %q", result.Echo)
	}
}

func TestClientCallNilFieldsAndResult(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	received := make(chan map[string]any, 1)
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		var request map[string]any
		if err := DecodeRequest(raw, &request); err != nil {
			return nil, err
		}
		received <- request
		return map[string]int{"alive": 1}, nil
	})
	startServer(t, server, socketPath)

	if err := NewServiceClient(socketPath).Call(context.Background(), "status", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	request := testutil.RequireReceive(t, received, 5*time.Second, "handler was not invoked")
	if len(request) != 1 || request["action"] != "status" {
		t.Errorf("request = %v, want only the action field", request)
	}
}

func TestClientServiceError(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("kill", func(ctx context.Context, raw []byte) (any, error) {
		return nil, &CodedError{Code: CodeNotFound, Err: errors.New("session not found: agent-claude-x")}
	})
	startServer(t, server, socketPath)

	err := NewServiceClient(socketPath).Call(context.Background(), "kill", map[string]any{"session": "agent-claude-x"}, nil)
	var serviceError *ServiceError
	if !errors.As(err, &serviceError) {
		t.Fatalf("error = %v (%T), want *ServiceError", err, err)
	}
	if serviceError.Action != "kill" || serviceError.Message != "session not found: agent-claude-x" {
		t.Errorf("ServiceError = %+v", serviceError)
	}
	if !IsCode(err, CodeNotFound) || IsCode(err, CodeInternal) {
		t.Errorf("Code = %q, want %q", serviceError.Code, CodeNotFound)
	}
	if err.Error() != "kill: session not found: agent-claude-x" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClientConnectionFailure(t *testing.T) {
	err := NewServiceClient(testSocketPath(t)).Call(context.Background(), "status", nil, nil)
	if err == nil {
		t.Fatal("Call succeeded with no server")
	}
	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		t.Error("connection failure reported as *ServiceError")
	}
	if !strings.Contains(err.Error(), "connecting") {
		t.Errorf("error = %v, want a connection error", err)
	}
}
