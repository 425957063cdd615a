// Package storage provides the snapshot persistence boundary: a key-value
// string store the ledger saves into and restores from. Schema evolution is
// handled by the ledger's merge-on-load, not by the store.
package storage

import (
	"context"
	"errors"
)

// KV is a versioned-by-key snapshot store.
type KV interface {
	// Load returns the value for key, with ok=false when the key is absent.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	// Save persists value under key. A rejected write wraps ErrWriteRejected;
	// callers keep their in-memory state and surface a warning instead of
	// rolling back.
	Save(ctx context.Context, key, value string) error
}

// ErrWriteRejected marks a persistence write the backing store refused,
// typically because a quota was exceeded.
var ErrWriteRejected = errors.New("storage write rejected")
