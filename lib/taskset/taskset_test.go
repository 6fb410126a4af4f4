// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskset

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type recordingReaper struct {
	mu       sync.Mutex
	failures map[string]error
}

func (r *recordingReaper) TaskFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[string]error)
	}
	r.failures[name] = err
}

func TestFailureReachesReaperWithoutStoppingSiblings(t *testing.T) {
	t.Parallel()

	reaper := &recordingReaper{}
	set := New(reaper)
	boom := errors.New("boom")

	var completed sync.WaitGroup
	completed.Add(1)
	set.Spawn(context.Background(), "failing", func(context.Context) error { return boom })
	set.Spawn(context.Background(), "healthy", func(context.Context) error {
		completed.Done()
		return nil
	})
	set.Wait()
	completed.Wait()

	if len(reaper.failures) != 1 {
		t.Fatalf("reaper saw %d failures, want 1: %v", len(reaper.failures), reaper.failures)
	}
	if !errors.Is(reaper.failures["failing"], boom) {
		t.Errorf("failing task error = %v, want %v", reaper.failures["failing"], boom)
	}
}

func TestCancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	reaper := &recordingReaper{}
	set := New(reaper)
	ctx, cancel := context.WithCancel(context.Background())

	set.Spawn(ctx, "waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	set.Wait()

	if len(reaper.failures) != 0 {
		t.Errorf("cancelled task reported as failure: %v", reaper.failures)
	}
}

func TestLogReaper(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	reaper := LogReaper{Logger: slog.New(slog.NewTextHandler(&buffer, nil))}
	reaper.TaskFailed("send to subscriber 3", errors.New("broken pipe"))

	output := buffer.String()
	if !strings.Contains(output, "broken pipe") || !strings.Contains(output, "subscriber 3") {
		t.Errorf("log output missing task details: %q", output)
	}
}

func TestReportDoesNotEndTask(t *testing.T) {
	t.Parallel()

	reaper := &recordingReaper{}
	set := New(reaper)
	set.Spawn(context.Background(), "sender", func(context.Context) error {
		set.Report("push 1", errors.New("stream closed"))
		return nil
	})
	set.Wait()

	if reaper.failures["push 1"] == nil {
		t.Errorf("reported failure missing: %v", reaper.failures)
	}
	if _, ok := reaper.failures["sender"]; ok {
		t.Error("successful task recorded as failed")
	}
}
