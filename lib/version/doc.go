// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the grain binary's build information.
//
// Three variables are injected at build time via -ldflags -X:
//
//   - [GitCommit]: short git SHA of the build
//   - [GitDirty]: "true" if there were uncommitted changes
//   - [BuildTime]: UTC timestamp of the build
//
// [Version] is set by hand for releases. Development builds report
// "unknown" and "0.1.0-dev".
//
//	go build -ldflags "-X github.com/bureau-foundation/collections/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/collections-grain
package version
