// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/collections/lib/clock"
	"github.com/bureau-foundation/collections/lib/wsframe"
)

// DefaultHeartbeatTimeout is how long a ping may go unanswered.
const DefaultHeartbeatTimeout = 10 * time.Second

// ErrPongTimeout is returned by Heartbeat.Run when the peer did not
// answer a ping before the deadline.
var ErrPongTimeout = errors.New("pong not received before deadline")

// HeartbeatState is the liveness state of one streaming connection.
type HeartbeatState int32

const (
	HeartbeatIdle HeartbeatState = iota
	HeartbeatAwaitingPong
	HeartbeatFailed
)

func (s HeartbeatState) String() string {
	switch s {
	case HeartbeatIdle:
		return "idle"
	case HeartbeatAwaitingPong:
		return "awaiting-pong"
	case HeartbeatFailed:
		return "failed"
	default:
		return fmt.Sprintf("HeartbeatState(%d)", int32(s))
	}
}

// Heartbeat pings a stream and expects a pong before each deadline.
// When a deadline passes with the pong received, the next ping goes
// out immediately.
type Heartbeat struct {
	stream  Stream
	clock   clock.Clock
	timeout time.Duration
	state   atomic.Int32
}

// NewHeartbeat returns an idle heartbeat for stream.
func NewHeartbeat(stream Stream, clk clock.Clock, timeout time.Duration) *Heartbeat {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	return &Heartbeat{stream: stream, clock: clk, timeout: timeout}
}

// State returns the current heartbeat state.
func (h *Heartbeat) State() HeartbeatState {
	return HeartbeatState(h.state.Load())
}

// Pong records that the peer answered.
func (h *Heartbeat) Pong() {
	h.state.CompareAndSwap(int32(HeartbeatAwaitingPong), int32(HeartbeatIdle))
}

// Run drives ping cycles until ctx is cancelled (returning ctx.Err()),
// a ping cannot be sent, or a pong is missed (returning ErrPongTimeout).
func (h *Heartbeat) Run(ctx context.Context) error {
	for {
		// Mark before sending so a pong racing the send is not lost.
		h.state.Store(int32(HeartbeatAwaitingPong))
		if err := h.stream.SendBytes(ctx, wsframe.Ping()); err != nil {
			h.state.Store(int32(HeartbeatFailed))
			return fmt.Errorf("sending ping: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.clock.After(h.timeout):
		}

		if h.State() == HeartbeatAwaitingPong {
			h.state.Store(int32(HeartbeatFailed))
			return fmt.Errorf("%w (%s)", ErrPongTimeout, h.timeout)
		}
	}
}
