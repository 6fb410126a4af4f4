// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/collections/lib/clock"
	"github.com/bureau-foundation/collections/lib/taskset"
	"github.com/bureau-foundation/collections/lib/testutil"
	"github.com/bureau-foundation/collections/lib/wsframe"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const receiveTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingStream captures every frame sent to a client. When failure
// is set, SendBytes returns it instead.
type recordingStream struct {
	frames   chan []byte
	rejected chan []byte
	mu       sync.Mutex
	failure  error
}

func newRecordingStream() *recordingStream {
	return &recordingStream{
		frames:   make(chan []byte, 1024),
		rejected: make(chan []byte, 1024),
	}
}

func (s *recordingStream) SendBytes(_ context.Context, frame []byte) error {
	s.mu.Lock()
	failure := s.failure
	s.mu.Unlock()
	if failure != nil {
		s.rejected <- append([]byte(nil), frame...)
		return failure
	}
	s.frames <- append([]byte(nil), frame...)
	return nil
}

func (s *recordingStream) fail(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
}

// nextFrame returns the next frame the stream received, decoded.
func (s *recordingStream) nextFrame(t *testing.T) wsframe.Frame {
	t.Helper()
	data := testutil.RequireReceive(t, s.frames, receiveTimeout, "waiting for frame")
	frame, err := wsframe.Decode(data)
	if err != nil {
		t.Fatalf("client received malformed frame % x: %v", data, err)
	}
	return frame
}

// nextText returns the payload of the next text frame, skipping pings.
func (s *recordingStream) nextText(t *testing.T) string {
	t.Helper()
	for {
		frame := s.nextFrame(t)
		if frame.Opcode == wsframe.OpPing {
			continue
		}
		if frame.Opcode != wsframe.OpText {
			t.Fatalf("frame opcode = %v, want text", frame.Opcode)
		}
		return string(frame.Payload)
	}
}

type recordingReaper struct {
	mu       sync.Mutex
	failures []error
}

func (r *recordingReaper) TaskFailed(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recordingReaper) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

type testStore struct {
	*Store
	directory       string
	descriptionPath string
	clock           *clock.FakeClock
	reaper          *recordingReaper
	tasks           *taskset.Set
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	root := t.TempDir()
	return openTestStore(t, filepath.Join(root, "sturdyrefs"), filepath.Join(root, "description"))
}

func openTestStore(t *testing.T, directory, descriptionPath string) *testStore {
	t.Helper()
	fakeClock := clock.Fake(epoch)
	reaper := &recordingReaper{}
	tasks := taskset.New(reaper)
	store, err := Open(StoreConfig{
		Directory:       directory,
		DescriptionPath: descriptionPath,
		OutboxCapacity:  64,
		Clock:           fakeClock,
		Logger:          testLogger(),
		Tasks:           tasks,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return &testStore{
		Store:           store,
		directory:       directory,
		descriptionPath: descriptionPath,
		clock:           fakeClock,
		reaper:          reaper,
		tasks:           tasks,
	}
}

// subscribe registers a fresh stream and consumes its canWrite and
// description replay.
func (s *testStore) subscribe(t *testing.T, ctx context.Context) (*recordingStream, uint64) {
	t.Helper()
	stream := newRecordingStream()
	id := s.Subscribe(ctx, stream, true)
	if got := stream.nextText(t); got != `{"canWrite":true}` {
		t.Fatalf("first replay frame = %s", got)
	}
	stream.nextText(t)
	return stream, id
}
