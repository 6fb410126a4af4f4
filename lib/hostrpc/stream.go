// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostrpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/collections/lib/codec"
)

// maxMessageSize caps one stream message. Matches the frame codec's
// payload limit plus header room.
const maxMessageSize = 16<<20 + 16

// Message is one unit of a stream. For the streaming socket each
// message carries exactly one WebSocket frame.
type Message struct {
	Bytes []byte `cbor:"bytes"`
}

// Stream is an open bidirectional message stream. Sends are safe for
// concurrent use; Receive must be called from one goroutine.
//
// The opening side must wait for the {ok: true} envelope before
// sending its first message.
type Stream struct {
	conn net.Conn

	sendMu  sync.Mutex
	encoder *codec.Encoder

	decoder *codec.Decoder
}

func newStream(conn net.Conn) *Stream {
	return &Stream{
		conn:    conn,
		encoder: codec.NewEncoder(conn),
		decoder: codec.NewDecoder(conn),
	}
}

// SendBytes writes one message. ctx is honored only as an upper bound
// on the write deadline.
func (s *Stream) SendBytes(ctx context.Context, data []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	s.conn.SetWriteDeadline(deadline)
	if err := s.encoder.Encode(Message{Bytes: data}); err != nil {
		return fmt.Errorf("writing stream message: %w", err)
	}
	return nil
}

// Receive blocks for the next message. It returns io.EOF when the peer
// closes the stream.
func (s *Stream) Receive() ([]byte, error) {
	var message Message
	if err := s.decoder.Decode(&message); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading stream message: %w", err)
	}
	if len(message.Bytes) > maxMessageSize {
		return nil, fmt.Errorf("stream message of %d bytes exceeds %d", len(message.Bytes), maxMessageSize)
	}
	return message.Bytes, nil
}

// Close closes the underlying connection, unblocking Receive on both
// sides.
func (s *Stream) Close() error {
	return s.conn.Close()
}
