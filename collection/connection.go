// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/collections/lib/wsframe"
)

// Connection is the server side of one streaming socket. The host
// delivers each client frame through SendBytes. The connection stays
// subscribed to the store until Close, a close frame, a malformed
// frame, or a missed heartbeat.
type Connection struct {
	id        uint64
	store     *Store
	client    Stream
	heartbeat *Heartbeat
	logger    *slog.Logger

	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// Connect subscribes client to store with the given write permission
// and starts the connection's heartbeat. The connection is torn down
// when ctx ends, when Close is called, or when the heartbeat fails.
func Connect(ctx context.Context, store *Store, client Stream, canWrite bool, heartbeatTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(ctx)
	connection := &Connection{
		store:     store,
		client:    client,
		heartbeat: NewHeartbeat(client, store.clock, heartbeatTimeout),
		logger:    store.logger,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	connection.id = store.Subscribe(ctx, client, canWrite)

	store.tasks.Spawn(ctx, fmt.Sprintf("subscriber %d heartbeat", connection.id), func(ctx context.Context) error {
		err := connection.heartbeat.Run(ctx)
		connection.Close()
		return err
	})
	return connection
}

// ID returns the connection's subscriber id.
func (c *Connection) ID() uint64 { return c.id }

// Done is closed once the connection has been torn down.
func (c *Connection) Done() <-chan struct{} { return c.done }

// HeartbeatState returns the liveness state of the connection.
func (c *Connection) HeartbeatState() HeartbeatState { return c.heartbeat.State() }

// SendBytes handles one frame from the client.
func (c *Connection) SendBytes(ctx context.Context, message []byte) error {
	frame, err := wsframe.Decode(message)
	if err != nil {
		c.logger.Warn("malformed frame from client, closing", "subscriber_id", c.id, "error", err)
		c.Close()
		return fmt.Errorf("subscriber %d: %w", c.id, err)
	}

	switch frame.Opcode {
	case wsframe.OpContinuation, wsframe.OpText, wsframe.OpBinary:
		// The browser client never sends application data.
	case wsframe.OpClose:
		c.logger.Debug("client closed stream", "subscriber_id", c.id)
		c.Close()
	case wsframe.OpPing:
		if err := c.client.SendBytes(ctx, wsframe.Encode(wsframe.OpPong, frame.Payload)); err != nil {
			return fmt.Errorf("answering ping on subscriber %d: %w", c.id, err)
		}
	case wsframe.OpPong:
		c.heartbeat.Pong()
	default:
		c.logger.Info("ignoring unrecognized opcode", "subscriber_id", c.id, "opcode", frame.Opcode.String())
	}
	return nil
}

// Close tears the connection down: the heartbeat stops and the
// subscription is removed. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.store.Unsubscribe(c.id)
		close(c.done)
	})
}
