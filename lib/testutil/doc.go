// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for grain packages.
//
// [RequireReceive], [RequireSend], [RequireClosed] and [RequireNoReceive]
// encapsulate the timeout safety valve pattern (select with a real
// time.After fallback) so that individual tests do not need direct
// time.After calls. Everything else in the test suite runs on
// lib/clock's fake clock.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets, whose paths are limited to 108 bytes.
package testutil
