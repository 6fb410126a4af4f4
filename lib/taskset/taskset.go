// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskset tracks background goroutines whose failures must not
// take down their siblings. Each failed task is reported to a Reaper;
// the set keeps running. Wait blocks until every spawned task returns.
package taskset

import (
	"context"
	"log/slog"
	"sync"
)

// Reaper receives the error of every task that fails.
type Reaper interface {
	TaskFailed(name string, err error)
}

// LogReaper logs task failures at error level.
type LogReaper struct {
	Logger *slog.Logger
}

// TaskFailed implements Reaper.
func (r LogReaper) TaskFailed(name string, err error) {
	r.Logger.Error("background task failed", "task", name, "error", err)
}

// Set is a group of background tasks sharing one Reaper.
type Set struct {
	reaper Reaper
	tasks  sync.WaitGroup
}

// New returns an empty Set that reports failures to reaper.
func New(reaper Reaper) *Set {
	return &Set{reaper: reaper}
}

// Spawn runs task on a new goroutine. A non-nil return that is not the
// context's own cancellation is handed to the reaper.
func (s *Set) Spawn(ctx context.Context, name string, task func(context.Context) error) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		err := task(ctx)
		if err == nil || (ctx.Err() != nil && err == ctx.Err()) {
			return
		}
		s.reaper.TaskFailed(name, err)
	}()
}

// Report hands a failure that did not end a task to the reaper, for
// long-running tasks that survive individual errors.
func (s *Set) Report(name string, err error) {
	s.reaper.TaskFailed(name, err)
}

// Wait blocks until every spawned task has returned.
func (s *Set) Wait() {
	s.tasks.Wait()
}
