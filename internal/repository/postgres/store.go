// Package postgres stores records as jsonb rows and follows changes with LISTEN/NOTIFY.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
)

const (
	notifyChannel = "records_changed"
	relistenDelay = 2 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	doc        JSONB NOT NULL,
	seq        BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS records_collection_seq_idx ON records (collection, seq);
`

// Store is a records.Backend on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	feed   *records.Feed
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Connect opens a pool, verifies it and creates the schema.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return New(pool, logger), nil
}

// New wraps an existing pool whose schema is in place.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{pool: pool, logger: logger}
	s.feed = records.NewFeed(s.load, logger)
	return s
}

// Start listens for change notifications from every instance.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ctx.Err() == nil {
			if err := s.listen(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("listen for record changes failed", zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(relistenDelay):
				}
			}
		}
	}()
}

func (s *Store) listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", notifyChannel, err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		c, err := models.ParseCollection(n.Payload)
		if err != nil {
			continue
		}
		_ = s.feed.Refresh(ctx, c)
	}
}

// Close stops listening, drops subscriptions and closes the pool.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.feed.Close()
	s.pool.Close()
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
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO records (collection, id, doc) VALUES ($1, $2, $3::jsonb)`,
		string(c), id, string(raw)); err != nil {
		return "", models.StoreFailure("append", c, err)
	}
	s.changed(ctx, c)
	return id, nil
}

// UpdateFields implements records.Backend with a jsonb top-level merge.
func (s *Store) UpdateFields(ctx context.Context, c models.Collection, id string, fields models.Document) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", c, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET doc = doc || $3::jsonb WHERE collection = $1 AND id = $2`,
		string(c), id, string(raw))
	if err != nil {
		return models.StoreFailure("update", c, err)
	}
	if tag.RowsAffected() == 0 {
		return models.StoreFailure("update", c, fmt.Errorf("%s: %w", id, models.ErrRecordNotFound))
	}
	s.changed(ctx, c)
	return nil
}

// DeleteOne implements records.Backend.
func (s *Store) DeleteOne(ctx context.Context, c models.Collection, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, string(c), id); err != nil {
		return models.StoreFailure("delete", c, err)
	}
	s.changed(ctx, c)
	return nil
}

// DeleteAll implements records.Backend.
func (s *Store) DeleteAll(ctx context.Context, c models.Collection) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM records WHERE collection = $1`, string(c)); err != nil {
		return models.StoreFailure("clear", c, err)
	}
	s.changed(ctx, c)
	return nil
}

func (s *Store) changed(ctx context.Context, c models.Collection) {
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(c)); err != nil {
		s.logger.Warn("change notification failed", zap.String("collection", string(c)), zap.Error(err))
	}
	_ = s.feed.Refresh(ctx, c)
}

func (s *Store) load(ctx context.Context, c models.Collection) (records.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, doc FROM records WHERE collection = $1 ORDER BY seq`, string(c))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := make(records.Snapshot)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc models.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.logger.Warn("skip undecodable postgres record", zap.String("collection", string(c)), zap.String("id", id), zap.Error(err))
			continue
		}
		snap[id] = doc
	}
	return snap, rows.Err()
}
