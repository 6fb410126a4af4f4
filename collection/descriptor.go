// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/bureau-foundation/collections/lib/codec"
)

// ErrMalformedDescriptor is returned when a POSTed powerbox descriptor
// cannot be decoded.
var ErrMalformedDescriptor = errors.New("malformed powerbox descriptor")

// PowerboxDescriptor describes the capability a user picked in the
// powerbox. The browser posts it base64-encoded alongside the claim
// token.
type PowerboxDescriptor struct {
	Tags []PowerboxTag `cbor:"tags"`
}

// PowerboxTag is one tag of a descriptor. Value is interpreted
// according to ID; for view tags it is a ViewTag.
type PowerboxTag struct {
	ID    uint64           `cbor:"id"`
	Value codec.RawMessage `cbor:"value,omitempty"`
}

// ViewTag is the value of a view powerbox tag.
type ViewTag struct {
	Title string `cbor:"title"`
}

// DescriptorTitle decodes base64 descriptor text and returns the title
// carried by its tags. When several tags are present the last one wins.
func DescriptorTitle(content []byte) (string, error) {
	raw, err := decodeBase64(bytes.TrimSpace(content))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}

	var descriptor PowerboxDescriptor
	if err := codec.Unmarshal(raw, &descriptor); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}

	var title string
	for _, tag := range descriptor.Tags {
		var value ViewTag
		if err := codec.Unmarshal(tag.Value, &value); err != nil {
			return "", fmt.Errorf("%w: tag %d: %v", ErrMalformedDescriptor, tag.ID, err)
		}
		title = value.Title
	}
	return title, nil
}

// decodeBase64 accepts both the standard and URL-safe alphabets, padded
// or not; browsers differ in which one they produce.
func decodeBase64(text []byte) ([]byte, error) {
	var firstErr error
	for _, encoding := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		decoded, err := encoding.DecodeString(string(text))
		if err == nil {
			return decoded, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
