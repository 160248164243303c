// Package memory keeps records in process memory. It backs local development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
)

// Store is an in-process realtime document store.
type Store struct {
	mu   sync.Mutex
	data map[models.Collection]map[string]models.Document
	feed *records.Feed

	// failWith makes every write fail; tests use it to simulate an outage.
	failWith error
}

// New returns an empty store.
func New(logger *zap.Logger) *Store {
	s := &Store{data: make(map[models.Collection]map[string]models.Document)}
	s.feed = records.NewFeed(s.load, logger)
	return s
}

// Subscribe implements records.Backend.
func (s *Store) Subscribe(ctx context.Context, c models.Collection, listener records.Listener) (*records.Subscription, error) {
	return s.feed.Subscribe(ctx, c, listener)
}

// Append implements records.Backend.
func (s *Store) Append(ctx context.Context, c models.Collection, doc models.Document) (string, error) {
	s.mu.Lock()
	if err := s.failure(); err != nil {
		s.mu.Unlock()
		return "", models.StoreFailure("append", c, err)
	}
	id := records.NewID()
	if s.data[c] == nil {
		s.data[c] = make(map[string]models.Document)
	}
	s.data[c][id] = cloneDocument(doc)
	s.mu.Unlock()

	s.notify(ctx, c)
	return id, nil
}

// UpdateFields implements records.Backend.
func (s *Store) UpdateFields(ctx context.Context, c models.Collection, id string, fields models.Document) error {
	s.mu.Lock()
	if err := s.failure(); err != nil {
		s.mu.Unlock()
		return models.StoreFailure("update", c, err)
	}
	current, ok := s.data[c][id]
	if !ok {
		s.mu.Unlock()
		return models.StoreFailure("update", c, fmt.Errorf("%s: %w", id, models.ErrRecordNotFound))
	}
	merged := cloneDocument(current)
	for k, v := range fields {
		merged[k] = v
	}
	s.data[c][id] = merged
	s.mu.Unlock()

	s.notify(ctx, c)
	return nil
}

// DeleteOne implements records.Backend. Deleting a missing id is not an error.
func (s *Store) DeleteOne(ctx context.Context, c models.Collection, id string) error {
	s.mu.Lock()
	if err := s.failure(); err != nil {
		s.mu.Unlock()
		return models.StoreFailure("delete", c, err)
	}
	delete(s.data[c], id)
	s.mu.Unlock()

	s.notify(ctx, c)
	return nil
}

// DeleteAll implements records.Backend.
func (s *Store) DeleteAll(ctx context.Context, c models.Collection) error {
	s.mu.Lock()
	if err := s.failure(); err != nil {
		s.mu.Unlock()
		return models.StoreFailure("clear", c, err)
	}
	delete(s.data, c)
	s.mu.Unlock()

	s.notify(ctx, c)
	return nil
}

// FailWrites makes subsequent writes return err; nil restores normal operation.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Close drops every subscription.
func (s *Store) Close() {
	s.feed.Close()
}

func (s *Store) failure() error {
	return s.failWith
}

func (s *Store) notify(ctx context.Context, c models.Collection) {
	_ = s.feed.Refresh(ctx, c)
}

func (s *Store) load(_ context.Context, c models.Collection) (records.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(records.Snapshot, len(s.data[c]))
	for id, doc := range s.data[c] {
		snap[id] = cloneDocument(doc)
	}
	return snap, nil
}

func cloneDocument(doc models.Document) models.Document {
	out := make(models.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
