// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/bureau-foundation/collections/lib/atomicfile"
	"github.com/bureau-foundation/collections/lib/clock"
	"github.com/bureau-foundation/collections/lib/codec"
	"github.com/bureau-foundation/collections/lib/taskset"
	"github.com/bureau-foundation/collections/lib/wsframe"
)

// DefaultDescription is written when no description file exists.
const DefaultDescription = "this is a description"

// DefaultOutboxCapacity is used when StoreConfig.OutboxCapacity is zero.
const DefaultOutboxCapacity = 256

// ErrInvalidText is returned when a description is not valid UTF-8.
var ErrInvalidText = errors.New("description is not valid UTF-8")

// StoreConfig configures Open.
type StoreConfig struct {
	// Directory holds one CBOR file per saved reference, named by
	// token. Created if absent.
	Directory string

	// DescriptionPath is the description text file. Created with
	// DefaultDescription if absent.
	DescriptionPath string

	// OutboxCapacity bounds each subscriber's queue of undelivered
	// frames.
	OutboxCapacity int

	Clock  clock.Clock
	Logger *slog.Logger

	// Tasks runs subscriber senders and collects push failures.
	Tasks *taskset.Set
}

// Store is the durable set of saved references plus the registry of
// streaming subscribers that observe it. Every mutation and the
// enqueueing of its notification happen under one lock, so each
// subscriber sees notifications in mutation order.
type Store struct {
	directory       string
	descriptionPath string
	outboxCapacity  int
	clock           clock.Clock
	logger          *slog.Logger
	tasks           *taskset.Set

	mu               sync.Mutex
	entries          map[string]SavedReference
	description      string
	subscribers      map[uint64]*subscriber
	nextSubscriberID uint64
}

// Open loads every reference file in config.Directory and the
// description. File names that are not valid tokens are skipped with a
// warning; unreadable or corrupt files are errors.
func Open(config StoreConfig) (*Store, error) {
	if config.OutboxCapacity <= 0 {
		config.OutboxCapacity = DefaultOutboxCapacity
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Tasks == nil {
		config.Tasks = taskset.New(taskset.LogReaper{Logger: config.Logger})
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating reference directory: %w", err)
	}

	store := &Store{
		directory:       config.Directory,
		descriptionPath: config.DescriptionPath,
		outboxCapacity:  config.OutboxCapacity,
		clock:           config.Clock,
		logger:          config.Logger,
		tasks:           config.Tasks,
		entries:         make(map[string]SavedReference),
		subscribers:     make(map[uint64]*subscriber),
	}

	if err := store.loadEntries(); err != nil {
		return nil, err
	}
	if err := store.loadDescription(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) loadEntries() error {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("reading reference directory: %w", err)
	}

	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || atomicfile.IsTemporary(name) {
			continue
		}
		if err := ValidateToken(name); err != nil {
			s.logger.Warn("skipping malformed reference file", "name", name, "error", err)
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.directory, name))
		if err != nil {
			return fmt.Errorf("reading reference %s: %w", name, err)
		}
		var reference SavedReference
		if err := codec.Unmarshal(data, &reference); err != nil {
			return fmt.Errorf("decoding reference %s: %w", name, err)
		}
		s.entries[name] = reference
	}
	return nil
}

func (s *Store) loadDescription() error {
	data, err := os.ReadFile(s.descriptionPath)
	if errors.Is(err, fs.ErrNotExist) {
		if err := atomicfile.WriteFile(s.descriptionPath, []byte(DefaultDescription), 0o644); err != nil {
			return fmt.Errorf("initializing description: %w", err)
		}
		s.description = DefaultDescription
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading description: %w", err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("reading description %s: %w", s.descriptionPath, ErrInvalidText)
	}
	s.description = string(data)
	return nil
}

// Insert persists a new reference under the token derived from
// rawToken and broadcasts it. An existing reference with the same
// token is replaced. Nothing changes in memory if the write fails.
func (s *Store) Insert(rawToken []byte, title, addedBy string) (string, error) {
	token := EncodeToken(rawToken)
	reference := SavedReference{
		Title:     title,
		DateAdded: uint64(s.clock.Now().UnixMilli()),
		AddedBy:   addedBy,
	}

	data, err := codec.Marshal(reference)
	if err != nil {
		return "", fmt.Errorf("encoding reference %s: %w", token, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicfile.WriteFile(filepath.Join(s.directory, token), data, 0o644); err != nil {
		return "", fmt.Errorf("writing reference %s: %w", token, err)
	}
	if _, exists := s.entries[token]; exists {
		s.logger.Info("replacing existing reference", "token", token)
	}
	s.entries[token] = reference
	s.broadcastLocked(Insert{Token: token, Reference: reference})
	return token, nil
}

// Remove deletes the reference named token. A token with no file is
// not an error, and the Remove notification is broadcast either way.
func (s *Store) Remove(token string) error {
	if err := ValidateToken(token); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicfile.Remove(filepath.Join(s.directory, token)); err != nil {
		return err
	}
	delete(s.entries, token)
	s.broadcastLocked(Remove{Token: token})
	return nil
}

// UpdateDescription replaces the description text and broadcasts it.
func (s *Store) UpdateDescription(text []byte) error {
	if !utf8.Valid(text) {
		return ErrInvalidText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicfile.WriteFile(s.descriptionPath, text, 0o644); err != nil {
		return fmt.Errorf("writing description: %w", err)
	}
	s.description = string(text)
	s.broadcastLocked(Description(s.description))
	return nil
}

// Description returns the current description text.
func (s *Store) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description
}

// Entries returns a copy of the stored references keyed by token.
func (s *Store) Entries() map[string]SavedReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries)
}

// Lookup returns the reference named token.
func (s *Store) Lookup(token string) (SavedReference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reference, ok := s.entries[token]
	return reference, ok
}

// Subscribe registers stream for notifications and returns its id. The
// subscriber first receives its write permission, then the
// description, then one Insert per stored reference. Delivery runs on
// a background task bound to ctx; push failures are logged, never
// returned.
func (s *Store) Subscribe(ctx context.Context, stream Stream, canWrite bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubscriberID
	s.nextSubscriberID++

	// The replay must never be dropped, so the outbox has room for it
	// on top of the usual headroom.
	sub := newSubscriber(id, stream, s.outboxCapacity+len(s.entries)+2, s.logger)
	s.enqueueLocked(sub, CanWrite(canWrite))
	s.enqueueLocked(sub, Description(s.description))
	for token, reference := range s.entries {
		s.enqueueLocked(sub, Insert{Token: token, Reference: reference})
	}
	s.subscribers[id] = sub

	s.tasks.Spawn(ctx, fmt.Sprintf("subscriber %d sender", id), func(ctx context.Context) error {
		return sub.run(ctx, s.tasks)
	})

	s.logger.Debug("subscriber registered", "subscriber_id", id, "can_write", canWrite)
	return id
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (s *Store) Unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return
	}
	delete(s.subscribers, id)
	sub.close()
	s.logger.Debug("subscriber removed", "subscriber_id", id)
}

// SubscriberCount returns the number of registered subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Broadcast sends n to every current subscriber.
func (s *Store) Broadcast(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(n)
}

// broadcastLocked frames n once and queues it on every subscriber.
// Must be called with s.mu held.
func (s *Store) broadcastLocked(n Notification) {
	frame, err := s.frame(n)
	if err != nil {
		s.logger.Error("encoding notification", "error", err)
		return
	}
	for _, sub := range s.subscribers {
		sub.enqueue(frame)
	}
}

func (s *Store) enqueueLocked(sub *subscriber, n Notification) {
	frame, err := s.frame(n)
	if err != nil {
		s.logger.Error("encoding notification", "error", err, "subscriber_id", sub.id)
		return
	}
	sub.enqueue(frame)
}

func (s *Store) frame(n Notification) ([]byte, error) {
	payload, err := MarshalNotification(n)
	if err != nil {
		return nil, err
	}
	return wsframe.EncodeText(payload), nil
}
