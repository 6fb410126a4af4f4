// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// SocketDir creates a temporary directory directly under /tmp, short
// enough for Unix domain socket paths. t.TempDir() can exceed the
// 108-byte sun_path limit under deeply nested TMPDIRs. The directory
// is removed when the test completes.
func SocketDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "grain-")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(directory) })
	return directory
}
