// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/collections/lib/codec"
)

// ActionFunc processes a request for one action. raw is the full CBOR
// request, including the "action" field; the handler decodes its own
// fields from it.
//
// A nil result produces {ok: true}. A non-nil result is marshaled into
// the response's data field. An error produces {ok: false, error}.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// StreamFunc processes a streaming action. It is called after the
// server has answered {ok: true} and owns stream until it returns; the
// connection closes afterwards.
type StreamFunc func(ctx context.Context, raw []byte, stream *Stream) error

// Response is the envelope for every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Server serves the grain's actions on a Unix socket.
type Server struct {
	socketPath string
	handlers   map[string]ActionFunc
	streams    map[string]StreamFunc
	logger     *slog.Logger

	activeConnections sync.WaitGroup
}

// NewServer returns a server that will listen on socketPath. Register
// actions before calling Serve.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		streams:    make(map[string]StreamFunc),
		logger:     logger,
	}
}

// Handle registers a request-response action. Panics if the action is
// already registered.
func (s *Server) Handle(action string, handler ActionFunc) {
	s.checkUnregistered(action)
	s.handlers[action] = handler
}

// HandleStream registers a streaming action. Panics if the action is
// already registered.
func (s *Server) HandleStream(action string, handler StreamFunc) {
	s.checkUnregistered(action)
	s.streams[action] = handler
}

func (s *Server) checkUnregistered(action string) {
	_, request := s.handlers[action]
	_, stream := s.streams[action]
	if request || stream {
		panic(fmt.Sprintf("hostrpc.Server: duplicate handler for action %q", action))
	}
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight handlers. Streaming handlers see ctx cancelled and are
// expected to return promptly.
//
// A stale socket file at the configured path is removed first; the
// socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("host socket listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

const (
	// readTimeout bounds how long a caller may take to send its request.
	readTimeout = 30 * time.Second

	// writeTimeout bounds each response or stream message write.
	writeTimeout = 10 * time.Second

	// maxRequestSize caps a single request. POST bodies are descriptors
	// and PUT bodies are descriptions; both are small.
	maxRequestSize = 1024 * 1024
)

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if peer, ok := peerCredentials(conn); ok {
		s.logger.Debug("host connection accepted", "pid", peer.PID, "uid", peer.UID, "gid", peer.GID)
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	decoder := codec.NewDecoder(io.LimitReader(conn, maxRequestSize))
	var raw codec.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}

	if handler, exists := s.streams[header.Action]; exists {
		s.serveStream(ctx, conn, header.Action, raw, handler)
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed", "action", header.Action, "error", err)
		s.writeError(conn, err.Error())
		return
	}
	s.writeSuccess(conn, result)
}

func (s *Server) serveStream(ctx context.Context, conn net.Conn, action string, raw []byte, handler StreamFunc) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The request was read through a size-limited decoder; the stream
	// gets a fresh one over the raw connection with no read deadline.
	conn.SetReadDeadline(time.Time{})
	if !s.writeSuccess(conn, nil) {
		return
	}

	// Unblock Receive when the server shuts down.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := handler(ctx, raw, newStream(conn)); err != nil && ctx.Err() == nil {
		s.logger.Info("stream ended with error", "action", action, "error", err)
	}
}

func (s *Server) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{OK: false, Error: message}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// writeSuccess reports whether the response was written.
func (s *Server) writeSuccess(conn net.Conn, result any) bool {
	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err))
			return false
		}
		response.Data = data
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
		return false
	}
	conn.SetWriteDeadline(time.Time{})
	return true
}
