package records

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// Loader reads a whole collection from a backend.
type Loader func(ctx context.Context, c models.Collection) (Snapshot, error)

// Feed fans collection snapshots out to subscribers. Backends call Refresh after
// each write or remote change notification; reads are serialized so every
// subscriber observes states in the order they were read.
type Feed struct {
	load   Loader
	logger *zap.Logger

	readMu sync.Mutex

	mu     sync.Mutex
	nextID uint64
	subs   map[models.Collection]map[uint64]*Subscription
}

// NewFeed builds a feed that reads collections with load.
func NewFeed(load Loader, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		load:   load,
		logger: logger,
		subs:   make(map[models.Collection]map[uint64]*Subscription),
	}
}

// Subscribe registers listener and queues the current collection as its first snapshot.
func (f *Feed) Subscribe(ctx context.Context, c models.Collection, listener Listener) (*Subscription, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	snap, err := f.load(ctx, c)
	if err != nil {
		return nil, models.StoreFailure("subscribe", c, err)
	}

	f.mu.Lock()
	f.nextID++
	sub := newSubscription(f, c, f.nextID, listener)
	if f.subs[c] == nil {
		f.subs[c] = make(map[uint64]*Subscription)
	}
	f.subs[c][sub.id] = sub
	f.mu.Unlock()

	sub.push(snap)
	go sub.run()

	f.logger.Debug("subscriber added", zap.String("collection", string(c)), zap.Uint64("subscription", sub.id))
	return sub, nil
}

// Refresh reloads c and pushes it to every subscriber. It is a no-op without subscribers.
func (f *Feed) Refresh(ctx context.Context, c models.Collection) error {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	if f.Subscribers(c) == 0 {
		return nil
	}

	snap, err := f.load(ctx, c)
	if err != nil {
		f.logger.Warn("collection refresh failed", zap.String("collection", string(c)), zap.Error(err))
		return models.StoreFailure("refresh", c, err)
	}

	f.mu.Lock()
	targets := make([]*Subscription, 0, len(f.subs[c]))
	for _, sub := range f.subs[c] {
		targets = append(targets, sub)
	}
	f.mu.Unlock()

	for _, sub := range targets {
		sub.push(snap)
	}
	return nil
}

// Subscribers reports how many live subscriptions c has.
func (f *Feed) Subscribers(c models.Collection) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[c])
}

// Close unsubscribes everyone; used when a backend shuts down.
func (f *Feed) Close() {
	f.mu.Lock()
	var all []*Subscription
	for _, byID := range f.subs {
		for _, sub := range byID {
			all = append(all, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[sub.collection], sub.id)
}

// Subscription is one live stream of snapshots. Delivery happens on a dedicated
// goroutine, in order; a newer snapshot replaces one that has not been delivered yet.
type Subscription struct {
	feed       *Feed
	id         uint64
	collection models.Collection
	listener   Listener

	mu      sync.Mutex
	pending Snapshot
	queued  bool

	// deliver is held for the closed check and the listener call together.
	deliver sync.Mutex
	closed  atomic.Bool
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscription(f *Feed, c models.Collection, id uint64, listener Listener) *Subscription {
	return &Subscription{
		feed:       f,
		id:         id,
		collection: c,
		listener:   listener,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Collection returns the namespace this subscription observes.
func (s *Subscription) Collection() models.Collection {
	return s.collection
}

// Unsubscribe stops delivery. It is idempotent. It waits for a listener call in
// progress, so once it returns the listener is not running and will not be called
// again. A listener must not unsubscribe its own subscription.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.feed.remove(s)

		s.mu.Lock()
		s.pending = nil
		s.queued = false
		s.mu.Unlock()

		close(s.done)

		// Wait out a listener call in progress.
		s.deliver.Lock()
		s.deliver.Unlock()

		s.feed.logger.Debug("subscriber removed", zap.String("collection", string(s.collection)), zap.Uint64("subscription", s.id))
	})
}

func (s *Subscription) push(snap Snapshot) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.pending = snap
	s.queued = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		snap, ok := s.pending, s.queued
		s.pending, s.queued = nil, false
		s.mu.Unlock()

		if ok {
			s.deliverSnapshot(snap)
		}
	}
}

func (s *Subscription) deliverSnapshot(snap Snapshot) {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.closed.Load() {
		return
	}
	s.listener(snap)
}
