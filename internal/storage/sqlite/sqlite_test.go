package sqlite

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func openTestStorage(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t, filepath.Join(t.TempDir(), "guest.db"))

	_, err := s.Get(ctx, "guest_cart:g1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.Set(ctx, "guest_cart:g1", "v1"))
	require.NoError(t, s.Set(ctx, "guest_cart:g1", "v2"))

	got, err := s.Get(ctx, "guest_cart:g1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, s.Remove(ctx, "guest_cart:g1"))
	_, err = s.Get(ctx, "guest_cart:g1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, s.Remove(ctx, "guest_cart:g1"))
	assert.NoError(t, s.Ping(ctx))
}

func TestStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "guest.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "guest_cart:g1", "persisted"))
	require.NoError(t, first.Close())

	second := openTestStorage(t, path)
	got, err := second.Get(ctx, "guest_cart:g1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestStorage_ClosedHandleErrors(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "guest.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Error(t, s.Set(ctx, "k", "v"))
}

func increment(current string, found bool) (string, storage.Mutation) {
	n := 0
	if found {
		n, _ = strconv.Atoi(current)
	}
	return strconv.Itoa(n + 1), storage.Put
}

func TestStorage_Update_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t, filepath.Join(t.TempDir(), "guest.db"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Update(ctx, "counter", increment))
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "20", got)
}

func TestStorage_Update_KeepAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t, filepath.Join(t.TempDir(), "guest.db"))

	require.NoError(t, s.Update(ctx, "k", func(_ string, found bool) (string, storage.Mutation) {
		assert.False(t, found)
		return "", storage.Keep
	}))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Update(ctx, "k", func(string, bool) (string, storage.Mutation) {
		return "", storage.Delete
	}))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
