// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bureau-foundation/collections/collection"
)

// Kinds of webResponse.
const (
	kindContent     = "content"
	kindRedirect    = "redirect"
	kindClientError = "client_error"
	kindNoContent   = "no_content"
)

// webResponse is the CBOR form of a collection.Response. Kind selects
// which of the remaining fields are meaningful.
type webResponse struct {
	Kind string `cbor:"kind"`

	StatusCode int    `cbor:"status_code,omitempty"`
	MimeType   string `cbor:"mime_type,omitempty"`
	Encoding   string `cbor:"encoding,omitempty"`
	ETag       string `cbor:"etag,omitempty"`
	Body       []byte `cbor:"body,omitempty"`

	Location    string `cbor:"location,omitempty"`
	Permanent   bool   `cbor:"permanent,omitempty"`
	SwitchToGet bool   `cbor:"switch_to_get,omitempty"`

	Description string `cbor:"description,omitempty"`
}

// wireResponse converts a session result for the host. A non-nil err
// becomes an ok=false reply.
func wireResponse(response collection.Response, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	switch r := response.(type) {
	case *collection.Content:
		return webResponse{
			Kind:       kindContent,
			StatusCode: r.StatusCode,
			MimeType:   r.MimeType,
			Encoding:   r.Encoding,
			ETag:       r.ETag,
			Body:       r.Body,
		}, nil
	case *collection.Redirect:
		return webResponse{
			Kind:        kindRedirect,
			Location:    r.Location,
			Permanent:   r.Permanent,
			SwitchToGet: r.SwitchToGet,
		}, nil
	case *collection.ClientError:
		return webResponse{
			Kind:        kindClientError,
			StatusCode:  r.StatusCode,
			Description: r.Description,
		}, nil
	case *collection.NoContent:
		return webResponse{Kind: kindNoContent}, nil
	default:
		return nil, fmt.Errorf("unhandled response type %T", response)
	}
}
