// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/agentdeck/agentdeck/deck"
	"github.com/agentdeck/agentdeck/ledger"
	"github.com/agentdeck/agentdeck/lib/agentkind"
	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/lib/schema"
	"github.com/agentdeck/agentdeck/lib/service"
	"github.com/agentdeck/agentdeck/lib/version"
	"github.com/agentdeck/agentdeck/notify"
	"github.com/agentdeck/agentdeck/registry"
	"github.com/agentdeck/agentdeck/terminal"
)

// daemon adapts the Deck to the control socket.
type daemon struct {
	deck              *deck.Deck
	clock             clock.Clock
	startedAt         time.Time
	defaultWorkingDir string
	logger            *slog.Logger
}

func newDaemon(agentDeck *deck.Deck, clk clock.Clock, defaultWorkingDir string, logger *slog.Logger) *daemon {
	return &daemon{
		deck:              agentDeck,
		clock:             clk,
		startedAt:         clk.Now(),
		defaultWorkingDir: defaultWorkingDir,
		logger:            logger,
	}
}

// registerActions registers every control socket action on server.
func (d *daemon) registerActions(server *service.SocketServer) {
	server.SetErrorCoder(errorCode)

	server.Handle(schema.ActionStatus, d.handleStatus)
	server.Handle(schema.ActionAgents, d.handleAgents)

	server.Handle(schema.ActionList, d.handleList)
	server.Handle(schema.ActionCreate, d.handleCreate)
	server.Handle(schema.ActionGet, d.handleGet)
	server.Handle(schema.ActionKill, d.handleKill)
	server.Handle(schema.ActionRemove, d.handleRemove)

	server.Handle(schema.ActionOutput, d.handleOutput)
	server.Handle(schema.ActionState, d.handleState)
	server.Handle(schema.ActionSend, d.handleSend)
	server.Handle(schema.ActionKeys, d.handleKeys)
	server.Handle(schema.ActionSelect, d.handleSelect)
	server.Handle(schema.ActionPaste, d.handlePaste)
	server.Handle(schema.ActionDebug, d.handleDebug)

	server.Handle(schema.ActionHistory, d.handleHistory)
	server.Handle(schema.ActionSearch, d.handleSearch)
	server.Handle(schema.ActionExport, d.handleExport)

	server.Handle(schema.ActionSubscribe, d.handleSubscribe)
	server.Handle(schema.ActionUnsubscribe, d.handleUnsubscribe)
	server.Handle(schema.ActionSubscriptions, d.handleSubscriptions)
	server.Handle(schema.ActionVAPIDKey, d.handleVAPIDKey)

	server.Handle(schema.ActionRecentDirs, d.handleRecentDirs)
}

// errorCode classifies the errors the deck returns.
func errorCode(err error) service.ErrorCode {
	switch {
	case errors.Is(err, ledger.ErrUnavailable), errors.Is(err, terminal.ErrUnreachable), errors.Is(err, deck.ErrNoClipboard):
		return service.CodeUnavailable
	case errors.Is(err, registry.ErrSessionDead), errors.Is(err, registry.ErrSessionAlive):
		return service.CodeRejected
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, terminal.ErrNoSession), errors.Is(err, deck.ErrItemNotFound):
		return service.CodeNotFound
	case errors.Is(err, registry.ErrInvalidWorkingDir), errors.Is(err, deck.ErrUnsupportedImage), errors.Is(err, fs.ErrNotExist):
		return service.CodeInvalidRequest
	case errors.Is(err, deck.ErrNotifyDisabled):
		return service.CodeDisabled
	}
	return ""
}

// decodeSession decodes a request naming a session and checks that
// the name is present.
func decodeSession(raw []byte) (string, error) {
	var request schema.SessionRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return "", err
	}
	if request.Session == "" {
		return "", service.InvalidRequest("missing required field: session")
	}
	return request.Session, nil
}

func (d *daemon) handleStatus(ctx context.Context, raw []byte) (any, error) {
	status := d.deck.Status()
	return schema.StatusResponse{
		Version:       version.Info(),
		UptimeSeconds: d.clock.Now().Sub(d.startedAt).Seconds(),
		Alive:         status.Alive,
		Dead:          status.Dead,
		NotifyEnabled: d.deck.VAPIDPublicKey() != "",
	}, nil
}

func (d *daemon) handleAgents(ctx context.Context, raw []byte) (any, error) {
	agents := d.deck.Agents()
	response := schema.AgentsResponse{Agents: make([]schema.AgentInfo, 0, len(agents))}
	for _, agent := range agents {
		response.Agents = append(response.Agents, agentInfo(agent))
	}
	return response, nil
}

func (d *daemon) handleList(ctx context.Context, raw []byte) (any, error) {
	sessions, err := d.deck.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	response := schema.ListResponse{Sessions: make([]schema.SessionInfo, 0, len(sessions))}
	for _, session := range sessions {
		response.Sessions = append(response.Sessions, sessionInfo(session))
	}
	return response, nil
}

func (d *daemon) handleCreate(ctx context.Context, raw []byte) (any, error) {
	var request schema.CreateRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}

	params := registry.CreateParams{
		WorkingDir: request.WorkingDir,
		Title:      request.Title,
	}
	if params.WorkingDir == "" {
		params.WorkingDir = d.defaultWorkingDir
	}
	if request.Agent != "" {
		kind, err := agentkind.Parse(request.Agent)
		if err != nil {
			return nil, &service.CodedError{Code: service.CodeInvalidRequest, Err: err}
		}
		params.Agent = kind
	}

	session, err := d.deck.CreateSession(ctx, params)
	if err != nil {
		return nil, err
	}
	d.logger.Info("session created", "session_id", session.ID, "working_dir", session.WorkingDir)
	return sessionInfo(session), nil
}

func (d *daemon) handleGet(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	session, err := d.deck.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return sessionInfo(session), nil
}

func (d *daemon) handleKill(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	return nil, d.deck.KillSession(ctx, id)
}

func (d *daemon) handleRemove(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	return nil, d.deck.RemoveSession(ctx, id)
}

func (d *daemon) handleOutput(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	output, err := d.deck.CaptureNow(ctx, id)
	if err != nil {
		return nil, err
	}
	return schema.OutputResponse{Content: output.Content, Changed: output.Changed}, nil
}

func (d *daemon) handleState(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	parsed, err := d.deck.State(ctx, id)
	if err != nil {
		return nil, err
	}
	return stateResponse(parsed), nil
}

func (d *daemon) handleSend(ctx context.Context, raw []byte) (any, error) {
	var request schema.SendRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Session == "" {
		return nil, service.InvalidRequest("missing required field: session")
	}
	return nil, d.deck.SendInput(ctx, request.Session, request.Text)
}

func (d *daemon) handleKeys(ctx context.Context, raw []byte) (any, error) {
	var request schema.KeysRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Session == "" || request.Keys == "" {
		return nil, service.InvalidRequest("missing required field: session and keys are required")
	}
	return nil, d.deck.SendKeys(ctx, request.Session, request.Keys, request.Enter, request.Literal)
}

func (d *daemon) handleSelect(ctx context.Context, raw []byte) (any, error) {
	var request schema.SelectRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Session == "" {
		return nil, service.InvalidRequest("missing required field: session")
	}
	if request.Item < 1 {
		return nil, service.InvalidRequest("item must be a positive number, got %d", request.Item)
	}
	return nil, d.deck.SelectItem(ctx, request.Session, request.Item, request.FreeformText)
}

func (d *daemon) handlePaste(ctx context.Context, raw []byte) (any, error) {
	var request schema.PasteImageRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Session == "" || request.Path == "" {
		return nil, service.InvalidRequest("missing required field: session and path are required")
	}
	if !filepath.IsAbs(request.Path) {
		return nil, service.InvalidRequest("path must be absolute, got %q", request.Path)
	}
	return nil, d.deck.PasteImage(ctx, request.Session, request.Path)
}

func (d *daemon) handleDebug(ctx context.Context, raw []byte) (any, error) {
	var request schema.DebugRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Session == "" {
		return nil, service.InvalidRequest("missing required field: session")
	}
	helper, err := d.deck.DebugSession(ctx, request.Session, request.Description)
	if err != nil {
		return nil, err
	}
	d.logger.Info("debug session created", "session_id", helper.ID, "debugging", request.Session)
	return sessionInfo(helper), nil
}

func (d *daemon) handleHistory(ctx context.Context, raw []byte) (any, error) {
	var request schema.HistoryRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Session == "" {
		return nil, service.InvalidRequest("missing required field: session")
	}
	page, err := d.deck.History(ctx, request.Session, schema.FromWireTime(request.Before), request.Limit)
	if err != nil {
		return nil, err
	}
	return historyResponse(page), nil
}

func (d *daemon) handleSearch(ctx context.Context, raw []byte) (any, error) {
	var request schema.SearchRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	results, err := d.deck.Search(ctx, ledger.Query{
		Text:      request.Query,
		SessionID: request.Session,
		Limit:     request.Limit,
	})
	if err != nil {
		return nil, err
	}
	return searchResponse(results), nil
}

func (d *daemon) handleExport(ctx context.Context, raw []byte) (any, error) {
	id, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	var transcript bytes.Buffer
	if err := d.deck.Export(ctx, id, &transcript); err != nil {
		return nil, err
	}
	return schema.ExportResponse{Content: transcript.Bytes()}, nil
}

func (d *daemon) handleSubscribe(ctx context.Context, raw []byte) (any, error) {
	var request schema.SubscribeRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return nil, d.deck.Subscribe(ctx, notify.Subscription{
		Endpoint:  request.Endpoint,
		P256dh:    request.P256dh,
		Auth:      request.Auth,
		SessionID: request.Session,
	})
}

func (d *daemon) handleUnsubscribe(ctx context.Context, raw []byte) (any, error) {
	var request schema.UnsubscribeRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Endpoint == "" || request.Session == "" {
		return nil, service.InvalidRequest("missing required field: endpoint and session are required")
	}
	return nil, d.deck.Unsubscribe(ctx, request.Endpoint, request.Session)
}

func (d *daemon) handleSubscriptions(ctx context.Context, raw []byte) (any, error) {
	var request schema.EndpointRequest
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Endpoint == "" {
		return nil, service.InvalidRequest("missing required field: endpoint")
	}
	sessions, err := d.deck.SessionsForEndpoint(ctx, request.Endpoint)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []string{}
	}
	return schema.SubscriptionsResponse{Sessions: sessions}, nil
}

func (d *daemon) handleVAPIDKey(ctx context.Context, raw []byte) (any, error) {
	key := d.deck.VAPIDPublicKey()
	if key == "" {
		return nil, deck.ErrNotifyDisabled
	}
	return schema.VAPIDKeyResponse{PublicKey: key}, nil
}

func (d *daemon) handleRecentDirs(ctx context.Context, raw []byte) (any, error) {
	dirs := d.deck.RecentDirs()
	if dirs == nil {
		dirs = []string{}
	}
	return schema.RecentDirsResponse{Dirs: dirs}, nil
}
