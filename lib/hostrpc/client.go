// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostrpc

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/bureau-foundation/collections/lib/codec"
)

// dialTimeout bounds the connect phase only.
const dialTimeout = 5 * time.Second

// responseReadTimeout covers the server's read and write timeouts plus
// handler time.
const responseReadTimeout = 45 * time.Second

// CallError is returned when the remote side answers ok=false.
type CallError struct {
	Action  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("host error on %q: %s", e.Action, e.Message)
}

// Client sends requests to a socket served by the same protocol as
// Server. Each call uses its own connection.
type Client struct {
	socketPath string
}

// NewClient returns a client for socketPath. Nothing is dialed until
// the first call.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends action with fields and decodes the response data into
// result, which may be nil. fields must not contain "action".
//
// An ok=false answer is a *CallError; connection and encoding failures
// are plain errors.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	conn, response, err := c.exchange(ctx, action, fields)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	conn.Close()

	if !response.OK {
		return &CallError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

// OpenStream starts a streaming action and returns the open stream
// once the server has accepted it.
func (c *Client) OpenStream(ctx context.Context, action string, fields map[string]any) (*Stream, error) {
	conn, response, err := c.exchange(ctx, action, fields)
	if err != nil {
		return nil, fmt.Errorf("opening stream %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		conn.Close()
		return nil, &CallError{Action: action, Message: response.Error}
	}
	conn.SetReadDeadline(time.Time{})
	return newStream(conn), nil
}

// exchange writes the request and reads the envelope, leaving the
// connection open for the caller.
func (c *Client) exchange(ctx context.Context, action string, fields map[string]any) (net.Conn, *Response, error) {
	request := make(map[string]any, len(fields)+1)
	maps.Copy(request, fields)
	request["action"] = action

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting: %w", err)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("writing request: %w", err)
	}

	deadline := time.Now().Add(responseReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	// Read exactly one envelope byte-for-byte so that nothing behind
	// it is buffered away from a following stream decoder.
	var response Response
	if err := codec.NewDecoder(&byteReader{r: io.LimitReader(conn, maxRequestSize)}).Decode(&response); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return conn, &response, nil
}

// byteReader hands the decoder one byte per Read.
type byteReader struct{ r io.Reader }

func (b *byteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.r.Read(p[:1])
}
