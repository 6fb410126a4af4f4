// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	savedCommit, savedDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = savedCommit, savedDirty })

	GitCommit, GitDirty = "abc1234", "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want the dirty commit", got)
	}
	GitDirty = "false"
	if got := Info(); strings.Contains(got, "-dirty") {
		t.Errorf("Info() = %q for a clean build", got)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	if got := Full(); !strings.Contains(got, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() = %q, missing platform", got)
	}
}
