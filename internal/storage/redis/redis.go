package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxUpdateAttempts bounds optimistic retries when another writer touches the
// key between WATCH and EXEC.
const maxUpdateAttempts = 10

// Storage implements storage.Storage on Redis. Every write refreshes the
// key's TTL so abandoned guest carts expire on their own.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed storage. A zero ttl stores keys without expiry.
func New(client *redis.Client, ttl time.Duration) *Storage {
	return &Storage{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the raw value stored under key.
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("key", key)
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value under key with the configured TTL.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Update applies fn to key with WATCH/MULTI, retrying when another client
// changes the key first. A Put refreshes the TTL.
func (s *Storage) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		found := true
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return err
			}
			found = false
		}

		next, m := fn(current, found)
		if m == storage.Keep {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if m == storage.Delete {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, s.ttl)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("redis update %s: %w", key, err)
		}
	}
	return fmt.Errorf("redis update %s: gave up after %d attempts: %w", key, maxUpdateAttempts, redis.TxFailedErr)
}

// Ping checks the connection to Redis.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
