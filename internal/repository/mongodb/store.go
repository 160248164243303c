// Package mongodb stores records in MongoDB and archives daily reports there.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
)

// Store is a records.Backend on MongoDB. Each collection maps to a MongoDB
// collection of the same name; the record id is the ObjectID hex string.
type Store struct {
	db           *mongo.Database
	feed         *records.Feed
	logger       *zap.Logger
	pollInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore wraps db. Call Start to follow remote changes.
func NewStore(client *mongo.Client, dbName string, pollInterval time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	s := &Store{
		db:           client.Database(dbName),
		logger:       logger,
		pollInterval: pollInterval,
	}
	s.feed = records.NewFeed(s.load, logger)
	return s
}

// Start follows every collection with a change stream, or polls when the server
// does not support change streams (standalone deployments).
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, c := range models.Collections {
		s.wg.Add(1)
		go func(c models.Collection) {
			defer s.wg.Done()
			s.follow(ctx, c)
		}(c)
	}
}

func (s *Store) follow(ctx context.Context, c models.Collection) {
	stream, err := s.db.Collection(string(c)).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		s.logger.Info("change streams unavailable, polling instead",
			zap.String("collection", string(c)), zap.Duration("interval", s.pollInterval), zap.Error(err))
		s.poll(ctx, c)
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		_ = s.feed.Refresh(ctx, c)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger.Warn("change stream stopped, polling instead", zap.String("collection", string(c)), zap.Error(err))
		s.poll(ctx, c)
	}
}

func (s *Store) poll(ctx context.Context, c models.Collection) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.feed.Refresh(ctx, c)
		}
	}
}

// Close stops following changes and drops every subscription.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.feed.Close()
}

// Subscribe implements records.Backend.
func (s *Store) Subscribe(ctx context.Context, c models.Collection, listener records.Listener) (*records.Subscription, error) {
	return s.feed.Subscribe(ctx, c, listener)
}

// Append implements records.Backend.
func (s *Store) Append(ctx context.Context, c models.Collection, doc models.Document) (string, error) {
	oid := primitive.NewObjectID()
	payload := bson.M{"_id": oid}
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		payload[k] = v
	}
	if _, err := s.db.Collection(string(c)).InsertOne(ctx, payload); err != nil {
		return "", models.StoreFailure("append", c, err)
	}
	_ = s.feed.Refresh(ctx, c)
	return oid.Hex(), nil
}

// UpdateFields implements records.Backend.
func (s *Store) UpdateFields(ctx context.Context, c models.Collection, id string, fields models.Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.StoreFailure("update", c, fmt.Errorf("%s: %w", id, models.ErrRecordNotFound))
	}
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		set[k] = v
	}
	res, err := s.db.Collection(string(c)).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return models.StoreFailure("update", c, err)
	}
	if res.MatchedCount == 0 {
		return models.StoreFailure("update", c, fmt.Errorf("%s: %w", id, models.ErrRecordNotFound))
	}
	_ = s.feed.Refresh(ctx, c)
	return nil
}

// DeleteOne implements records.Backend.
func (s *Store) DeleteOne(ctx context.Context, c models.Collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.db.Collection(string(c)).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return models.StoreFailure("delete", c, err)
	}
	_ = s.feed.Refresh(ctx, c)
	return nil
}

// DeleteAll implements records.Backend.
func (s *Store) DeleteAll(ctx context.Context, c models.Collection) error {
	if _, err := s.db.Collection(string(c)).DeleteMany(ctx, bson.M{}); err != nil {
		return models.StoreFailure("clear", c, err)
	}
	_ = s.feed.Refresh(ctx, c)
	return nil
}

func (s *Store) load(ctx context.Context, c models.Collection) (records.Snapshot, error) {
	cursor, err := s.db.Collection(string(c)).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	snap := make(records.Snapshot)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		id, doc, err := toDocument(raw)
		if err != nil {
			s.logger.Warn("skip document without object id", zap.String("collection", string(c)), zap.Error(err))
			continue
		}
		snap[id] = doc
	}
	return snap, cursor.Err()
}

var errMissingID = errors.New("document has no _id")

// toDocument converts a decoded BSON document into the plain wire shape.
func toDocument(raw bson.M) (string, models.Document, error) {
	var id string
	switch v := raw["_id"].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case string:
		id = v
	default:
		return "", nil, errMissingID
	}

	doc := make(models.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = plain(v)
	}
	return id, doc, nil
}

func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	case int32:
		return int64(t)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UnixMilli()
	default:
		return v
	}
}
