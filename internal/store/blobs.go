// Package store persists the dashboard's two JSON collection documents.
// Documents are read and written whole; there is no partial access.
package store

import (
	"context"
	"errors"
)

// ErrNotExist is returned by a blob backend when a document has never been
// written. Collections masks it to the empty value for that document.
var ErrNotExist = errors.New("store: document does not exist")

// Blobs is a keyed blob store with read-whole/write-whole semantics. Both
// collection documents live behind this interface so the storage backend can
// change without touching reconciliation logic.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	Ping(ctx context.Context) error
}
