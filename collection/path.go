// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNonCanonicalPath is returned for request paths containing ".",
// ".." or an empty segment after the first.
var ErrNonCanonicalPath = errors.New("non-canonical path")

// CheckCanonicalPath rejects paths that could escape the directory
// they are resolved against. A single trailing slash is allowed, as is
// the empty path.
func CheckCanonicalPath(path string) error {
	segments := strings.Split(path, "/")
	// A trailing separator terminates the last segment rather than
	// starting an empty one.
	if segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	for index, segment := range segments {
		if segment == "." || segment == ".." || (segment == "" && index > 0) {
			return fmt.Errorf("%w: %q", ErrNonCanonicalPath, path)
		}
	}
	return nil
}
