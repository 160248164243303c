// Package redis stores records as JSON values in one Redis hash per collection
// and announces changes on a pub/sub channel so every instance refreshes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
)

const maxMergeAttempts = 5

// Store is a records.Backend on Redis.
type Store struct {
	client *goredis.Client
	prefix string
	feed   *records.Feed
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Connect parses url, pings the server and returns a store.
func Connect(ctx context.Context, url, prefix string, logger *zap.Logger) (*Store, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, prefix, logger), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{client: client, prefix: prefix, logger: logger}
	s.feed = records.NewFeed(s.load, logger)
	return s
}

func (s *Store) key(c models.Collection) string {
	return fmt.Sprintf("%s:records:%s", s.prefix, c)
}

func (s *Store) channel() string {
	return s.prefix + ":changes"
}

// Start listens for change announcements from every instance.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	pubsub := s.client.Subscribe(ctx, s.channel())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c, err := models.ParseCollection(msg.Payload)
				if err != nil {
					s.logger.Debug("ignoring change announcement", zap.String("payload", msg.Payload))
					continue
				}
				_ = s.feed.Refresh(ctx, c)
			}
		}
	}()
}

// Close stops listening, drops subscriptions and closes the client.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.feed.Close()
	return s.client.Close()
}

// Subscribe implements records.Backend.
func (s *Store) Subscribe(ctx context.Context, c models.Collection, listener records.Listener) (*records.Subscription, error) {
	return s.feed.Subscribe(ctx, c, listener)
}

// Append implements records.Backend.
func (s *Store) Append(ctx context.Context, c models.Collection, doc models.Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s record: %w", c, err)
	}
	id := records.NewID()
	if err := s.client.HSet(ctx, s.key(c), id, raw).Err(); err != nil {
		return "", models.StoreFailure("append", c, err)
	}
	s.changed(ctx, c)
	return id, nil
}

// UpdateFields implements records.Backend. The read-merge-write runs in a WATCH
// transaction and is retried when another writer touched the hash meanwhile.
func (s *Store) UpdateFields(ctx context.Context, c models.Collection, id string, fields models.Document) error {
	key := s.key(c)
	txf := func(tx *goredis.Tx) error {
		current, err := tx.HGet(ctx, key, id).Bytes()
		if errors.Is(err, goredis.Nil) {
			return fmt.Errorf("%s: %w", id, models.ErrRecordNotFound)
		}
		if err != nil {
			return err
		}
		merged, err := mergeDocument(current, fields)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, id, merged)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return models.StoreFailure("update", c, err)
	}
	s.changed(ctx, c)
	return nil
}

// DeleteOne implements records.Backend.
func (s *Store) DeleteOne(ctx context.Context, c models.Collection, id string) error {
	if err := s.client.HDel(ctx, s.key(c), id).Err(); err != nil {
		return models.StoreFailure("delete", c, err)
	}
	s.changed(ctx, c)
	return nil
}

// DeleteAll implements records.Backend.
func (s *Store) DeleteAll(ctx context.Context, c models.Collection) error {
	if err := s.client.Del(ctx, s.key(c)).Err(); err != nil {
		return models.StoreFailure("clear", c, err)
	}
	s.changed(ctx, c)
	return nil
}

func (s *Store) changed(ctx context.Context, c models.Collection) {
	if err := s.client.Publish(ctx, s.channel(), string(c)).Err(); err != nil {
		s.logger.Warn("change announcement failed", zap.String("collection", string(c)), zap.Error(err))
	}
	_ = s.feed.Refresh(ctx, c)
}

func (s *Store) load(ctx context.Context, c models.Collection) (records.Snapshot, error) {
	values, err := s.client.HGetAll(ctx, s.key(c)).Result()
	if err != nil {
		return nil, err
	}
	snap := make(records.Snapshot, len(values))
	for id, raw := range values {
		var doc models.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			s.logger.Warn("skip undecodable redis record", zap.String("collection", string(c)), zap.String("id", id), zap.Error(err))
			continue
		}
		snap[id] = doc
	}
	return snap, nil
}

// mergeDocument overwrites the top-level fields of a stored JSON document.
func mergeDocument(current []byte, fields models.Document) ([]byte, error) {
	var doc models.Document
	if err := json.Unmarshal(current, &doc); err != nil {
		return nil, fmt.Errorf("decode stored record: %w", err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return json.Marshal(doc)
}
