// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

// Response is the result of a web session request: *Content,
// *Redirect, *ClientError or *NoContent.
type Response interface {
	isResponse()
}

// Content is a successful response with a body.
type Content struct {
	MimeType string
	Body     []byte

	// Encoding is the Content-Encoding of Body, or empty.
	Encoding string

	// StatusCode is 200 when zero.
	StatusCode int

	// ETag is a quoted entity tag, or empty.
	ETag string
}

// Redirect sends the client elsewhere.
type Redirect struct {
	Location    string
	Permanent   bool
	SwitchToGet bool
}

// ClientError reports a request the grain will not satisfy.
type ClientError struct {
	StatusCode  int
	Description string
}

// NoContent is a successful response without a body.
type NoContent struct{}

func (*Content) isResponse()     {}
func (*Redirect) isResponse()    {}
func (*ClientError) isResponse() {}
func (*NoContent) isResponse()   {}
