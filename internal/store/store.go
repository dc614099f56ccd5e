package store

import (
	"context"
	"errors"

	"github.com/partsync/partsync/internal/model"
)

var (
	// ErrNotFound is returned by Find when no record exists for the id.
	ErrNotFound = errors.New("record not found")

	// ErrLocked is returned when the store is open elsewhere. Callers must
	// surface this to the human rather than auto-retry: the usual cause is
	// another partsync process or a database browser holding the file.
	ErrLocked = errors.New("record store is locked")
)

// RecordStore is the persistence boundary for pricing records.
//
// Implementations must be safe for one writer and any number of readers;
// the coordinator serializes all writes itself.
type RecordStore interface {
	// Find returns the record with the given id, or ErrNotFound.
	Find(ctx context.Context, id string) (*model.Record, error)

	// Upsert inserts or replaces the record keyed by its ID.
	Upsert(ctx context.Context, record *model.Record) error

	// Close releases underlying resources.
	Close() error
}
