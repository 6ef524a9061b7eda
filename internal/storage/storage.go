package storage

import "context"

// Storage is the key-value medium a guest cart is persisted in.
type Storage interface {
	// Get returns the value stored under key. A missing key yields an error
	// wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Mutation tells an Updater what to do with a key once an UpdateFunc returns.
type Mutation int

const (
	// Keep leaves the stored value untouched.
	Keep Mutation = iota
	// Put stores the returned value.
	Put
	// Delete removes the key.
	Delete
)

// UpdateFunc computes the next value of a key from its current one. found is
// false when the key is missing. It may be called more than once when a
// concurrent writer wins, so it must not have side effects.
type UpdateFunc func(current string, found bool) (next string, m Mutation)

// Updater is implemented by backends that can read-modify-write a key
// atomically, also against other processes sharing the medium.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
