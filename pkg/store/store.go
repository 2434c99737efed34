// Package store keeps packaged report archives addressable by ID.
//
// The report server uploads archives here and the viewer fetches them back.
// Two backends are provided:
//
//   - [FileStore]: one file per report under a directory (single host)
//   - [RedisStore]: reports as Redis values with an optional TTL (shared)
//
// [MemoryStore] is an in-process implementation for tests and previews.
//
// Report IDs are UUID strings. Backends reject anything else with
// INVALID_INPUT, so an ID can never escape the store's namespace.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// Store persists report archives.
type Store interface {
	// Put stores data under id, replacing any previous value.
	Put(ctx context.Context, id string, data []byte) error

	// Get returns the archive for id. A missing report is (nil, false, nil).
	Get(ctx context.Context, id string) ([]byte, bool, error)

	// Delete removes id. Deleting a missing report is not an error.
	Delete(ctx context.Context, id string) error

	// Name identifies the backend in logs and hooks.
	Name() string

	// Close releases backend resources.
	Close() error
}

// DefaultTTL is how long RedisStore keeps a report. Zero would keep it forever.
const DefaultTTL = 7 * 24 * time.Hour

// NewID returns a fresh random report ID.
func NewID() string { return uuid.NewString() }

// ValidateID checks that id is a canonical UUID string.
func ValidateID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return errs.New(errs.ErrCodeInvalidInput, "invalid report id %q", id)
	}
	return nil
}
