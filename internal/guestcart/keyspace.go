package guestcart

import (
	"log/slog"
	"strings"

	"github.com/utafrali/storefront/internal/storage"
)

// Keyspace hands out one Store per guest over a shared storage medium.
type Keyspace struct {
	storage storage.Storage
	prefix  string
	logger  *slog.Logger
	locks   *keyLocks
}

// NewKeyspace creates a keyspace whose records live under "<prefix>:<guestID>".
// An empty prefix falls back to DefaultKey.
func NewKeyspace(st storage.Storage, prefix string, logger *slog.Logger) *Keyspace {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultKey
	}
	return &Keyspace{
		storage: st,
		prefix:  prefix,
		logger:  logger,
		locks:   newKeyLocks(),
	}
}

// For returns the store of a single guest. Stores of the same guest share a
// lock, so concurrent requests for one guest do not overwrite each other.
func (k *Keyspace) For(guestID string) *Store {
	return newStore(k.storage, k.Key(guestID), k.logger, k.locks)
}

// Key returns the storage key of guestID's cart.
func (k *Keyspace) Key(guestID string) string {
	return k.prefix + ":" + guestID
}
