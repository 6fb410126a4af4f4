// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the grain binary's one raw-output path: the
// fatal error report written before (or instead of) structured
// logging.
package process
