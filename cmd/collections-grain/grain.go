// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/collections/collection"
	"github.com/bureau-foundation/collections/lib/codec"
	"github.com/bureau-foundation/collections/lib/hostrpc"
	"github.com/bureau-foundation/collections/lib/netutil"
)

// Grain binds the collection view to host socket actions.
type Grain struct {
	view     *collection.View
	sessions *hostrpc.Sessions[*collection.Session]
	logger   *slog.Logger
}

func newGrain(view *collection.View, logger *slog.Logger) *Grain {
	return &Grain{
		view:     view,
		sessions: hostrpc.NewSessions[*collection.Session](),
		logger:   logger,
	}
}

func (g *Grain) registerActions(server *hostrpc.Server) {
	server.Handle("view_info", g.handleViewInfo)
	server.Handle("new_session", g.handleNewSession)
	server.Handle("close_session", g.handleCloseSession)
	server.Handle("get", g.handleGet)
	server.Handle("post", g.handlePost)
	server.Handle("put", g.handlePut)
	server.Handle("delete", g.handleDelete)
	server.HandleStream("open_web_socket", g.handleOpenWebSocket)
}

type newSessionRequest struct {
	SessionType string `cbor:"session_type"`
	IdentityID  []byte `cbor:"identity_id"`
	Permissions []bool `cbor:"permissions"`
}

type newSessionResponse struct {
	Session string `cbor:"session"`
}

// sessionRequest carries the fields shared by every session-scoped
// action. Content is empty for get and delete.
type sessionRequest struct {
	Session string `cbor:"session"`
	Path    string `cbor:"path"`
	Content []byte `cbor:"content"`
}

func (g *Grain) handleViewInfo(context.Context, []byte) (any, error) {
	return g.view.ViewInfo(), nil
}

func (g *Grain) handleNewSession(_ context.Context, raw []byte) (any, error) {
	var request newSessionRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid new_session request: %w", err)
	}
	session, err := g.view.NewSession(request.SessionType, collection.UserInfo{
		IdentityID:  request.IdentityID,
		Permissions: request.Permissions,
	})
	if err != nil {
		return nil, err
	}
	id := g.sessions.Add(session)
	g.logger.Info("session opened",
		"session", id,
		"identity", session.Identity(),
		"can_write", session.CanWrite(),
	)
	return newSessionResponse{Session: id}, nil
}

func (g *Grain) handleCloseSession(_ context.Context, raw []byte) (any, error) {
	var request sessionRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid close_session request: %w", err)
	}
	if g.sessions.Remove(request.Session) {
		g.logger.Info("session closed", "session", request.Session)
	}
	return nil, nil
}

// sessionCall decodes a session-scoped request and looks up its
// session.
func (g *Grain) sessionCall(action string, raw []byte) (*collection.Session, sessionRequest, error) {
	var request sessionRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, request, fmt.Errorf("invalid %s request: %w", action, err)
	}
	session, ok := g.sessions.Get(request.Session)
	if !ok {
		return nil, request, fmt.Errorf("unknown session %q", request.Session)
	}
	return session, request, nil
}

func (g *Grain) handleGet(ctx context.Context, raw []byte) (any, error) {
	session, request, err := g.sessionCall("get", raw)
	if err != nil {
		return nil, err
	}
	return wireResponse(session.Get(ctx, request.Path))
}

func (g *Grain) handlePost(ctx context.Context, raw []byte) (any, error) {
	session, request, err := g.sessionCall("post", raw)
	if err != nil {
		return nil, err
	}
	return wireResponse(session.Post(ctx, request.Path, request.Content))
}

func (g *Grain) handlePut(ctx context.Context, raw []byte) (any, error) {
	session, request, err := g.sessionCall("put", raw)
	if err != nil {
		return nil, err
	}
	return wireResponse(session.Put(ctx, request.Path, request.Content))
}

func (g *Grain) handleDelete(ctx context.Context, raw []byte) (any, error) {
	session, request, err := g.sessionCall("delete", raw)
	if err != nil {
		return nil, err
	}
	return wireResponse(session.Delete(ctx, request.Path))
}

// handleOpenWebSocket relays client frames from the host stream into a
// collection connection. Server frames go straight to the stream,
// which the connection holds as its client.
func (g *Grain) handleOpenWebSocket(ctx context.Context, raw []byte, stream *hostrpc.Stream) error {
	session, _, err := g.sessionCall("open_web_socket", raw)
	if err != nil {
		return err
	}

	connection := session.OpenWebSocket(ctx, stream)
	defer connection.Close()

	// A heartbeat failure tears the connection down; closing the stream
	// then unblocks Receive below.
	go func() {
		<-connection.Done()
		stream.Close()
	}()

	for {
		message, err := stream.Receive()
		if err != nil {
			if netutil.IsExpectedCloseError(err) {
				return nil
			}
			return err
		}
		if err := connection.SendBytes(ctx, message); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
