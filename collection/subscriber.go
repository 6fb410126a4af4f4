// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/collections/lib/taskset"
)

// Stream is the client side of a streaming socket: each call delivers
// one complete frame to the browser. Implementations must be safe for
// concurrent use; the fan-out sender and the heartbeat both write.
type Stream interface {
	SendBytes(ctx context.Context, frame []byte) error
}

// subscriber delivers frames to one Stream in the order they were
// enqueued. Enqueueing never blocks: a full outbox drops the frame.
type subscriber struct {
	id     uint64
	stream Stream
	outbox chan []byte
	done   chan struct{}
	logger *slog.Logger
}

func newSubscriber(id uint64, stream Stream, capacity int, logger *slog.Logger) *subscriber {
	return &subscriber{
		id:     id,
		stream: stream,
		outbox: make(chan []byte, capacity),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue queues frame for delivery. Returns false if the frame was
// dropped.
func (s *subscriber) enqueue(frame []byte) bool {
	select {
	case s.outbox <- frame:
		return true
	default:
		s.logger.Warn("subscriber outbox full, dropping frame",
			"subscriber_id", s.id,
			"frame_bytes", len(frame),
		)
		return false
	}
}

// close stops the sender. Frames still queued are discarded.
func (s *subscriber) close() {
	close(s.done)
}

// run drains the outbox until the subscriber is closed or ctx ends.
// A failed push is reported and the sender moves on to the next frame.
func (s *subscriber) run(ctx context.Context, tasks *taskset.Set) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case frame := <-s.outbox:
			if err := s.stream.SendBytes(ctx, frame); err != nil {
				tasks.Report(fmt.Sprintf("push to subscriber %d", s.id), err)
			}
		}
	}
}
