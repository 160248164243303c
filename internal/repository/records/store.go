// Package records defines the contract every record backend implements and the
// typed adapter the rest of the application talks to.
package records

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// Snapshot is a full collection keyed by record id. Listeners must treat it as read-only.
type Snapshot map[string]models.Document

// Listener receives every snapshot of a subscribed collection.
type Listener func(Snapshot)

// Backend is a realtime document store holding one id->document map per collection.
type Backend interface {
	// Subscribe delivers the current collection immediately, then again after every change.
	Subscribe(ctx context.Context, c models.Collection, listener Listener) (*Subscription, error)
	// Append stores doc under a new, insertion-ordered id.
	Append(ctx context.Context, c models.Collection, doc models.Document) (string, error)
	// UpdateFields overwrites only the supplied top-level fields of an existing record.
	UpdateFields(ctx context.Context, c models.Collection, id string, fields models.Document) error
	DeleteOne(ctx context.Context, c models.Collection, id string) error
	DeleteAll(ctx context.Context, c models.Collection) error
}

// NewID returns a time-ordered unique id; lexical order follows creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SortedIDs returns the snapshot keys in ascending (insertion) order.
func (s Snapshot) SortedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
