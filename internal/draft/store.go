// Package draft persists unsubmitted form snapshots.
//
// A draft lives in a single slot per logical key; the last Save wins.
// Backends are interchangeable behind Store so tests can use MemoryStore.
package draft

import (
	"context"
	"errors"
)

// Draft slots, one per form mode.
const (
	// NewOfficialKey is the slot for "new official" drafts.
	NewOfficialKey = "barangay-official-draft"
	// EditOfficialKey holds the last draft saved from any edit form. Edit
	// forms never restore it; it is inspected with the draft commands.
	EditOfficialKey = "barangay-official-edit-draft"
)

// ErrNotFound is returned by Load when no draft is stored under key.
var ErrNotFound = errors.New("draft not found")

// Store is a key/value store for serialized drafts.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
