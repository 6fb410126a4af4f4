// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// SavedReference is one saved capability in the collection. The token
// that names it is the store key and the on-disk file name, so it is
// not part of the record itself.
type SavedReference struct {
	Title string `cbor:"title"`

	// DateAdded is milliseconds since the Unix epoch.
	DateAdded uint64 `cbor:"dateAdded"`

	// AddedBy is the hex identity id of the user who saved it.
	AddedBy string `cbor:"addedBy"`
}

// ErrInvalidToken is returned for tokens that cannot name a reference
// file.
var ErrInvalidToken = errors.New("invalid reference token")

// EncodeToken returns the externally visible token for a raw token
// minted by the platform: padded URL-safe base64.
func EncodeToken(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

// ValidateToken reports whether token is a well-formed reference token.
// Tokens become file names, so anything that is not padded URL-safe
// base64 is rejected before it reaches the filesystem.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	if strings.ContainsAny(token, "/\x00") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidToken, token)
	}
	if _, err := base64.URLEncoding.DecodeString(token); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidToken, token, err)
	}
	return nil
}
