// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Code that stamps references or waits on heartbeat deadlines accepts a
// Clock instead of calling time.Now or time.After directly. Production
// wiring passes Real(); tests pass Fake() and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go heartbeat.Run(ctx)
//	c.WaitForTimers(1)          // the ping deadline is registered
//	c.Advance(10 * time.Second) // fire it deterministically
//
// WaitForTimers removes the race between a goroutine registering its
// deadline and the test advancing past it.
package clock
