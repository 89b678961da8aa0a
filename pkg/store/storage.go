package store

import (
	"context"
)

// Storage is the byte level backend the contact document and its backups
// are written to. Implementations must be safe for concurrent use.
type Storage interface {
	// Write replaces the data stored under key.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the data stored under key or os.ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns the keys starting with prefix, newest (alphabetically last) first.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key, missing keys are not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
