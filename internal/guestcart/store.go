// Package guestcart keeps the cart of an unauthenticated shopper in a
// key-value storage medium.
//
// Store never returns errors: a storage or decoding fault is logged and the
// cart behaves as if it were empty, so a broken medium degrades the cart
// instead of breaking the page that renders it.
package guestcart

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// DefaultKey is the storage key used by browser clients for their guest cart.
const DefaultKey = "guest_cart"

var storageErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "guest_cart_storage_errors_total",
		Help: "Guest cart storage faults swallowed by the store, by operation",
	},
	[]string{"op"},
)

// Store reads and mutates a single guest cart record.
//
// Mutations hold a per-key lock from read to write, and go through
// storage.Updater when the medium offers one so that writers in other
// processes are not lost either.
type Store struct {
	storage storage.Storage
	key     string
	logger  *slog.Logger
	locks   *keyLocks
}

// NewStore creates a store for the record under key. A nil storage models an
// unavailable medium: reads are absent and writes are dropped.
func NewStore(st storage.Storage, key string, logger *slog.Logger) *Store {
	return newStore(st, key, logger, newKeyLocks())
}

func newStore(st storage.Storage, key string, logger *slog.Logger, locks *keyLocks) *Store {
	return &Store{
		storage: st,
		key:     key,
		logger:  logger,
		locks:   locks,
	}
}

// Key returns the storage key of the record.
func (s *Store) Key() string {
	return s.key
}

// Read returns the stored cart, or nil when there is none or it cannot be read.
func (s *Store) Read(ctx context.Context) *domain.GuestCart {
	if s.storage == nil {
		return nil
	}

	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.fault(ctx, "read", "error reading guest cart", err)
		}
		return nil
	}
	return s.decode(ctx, raw, true)
}

func (s *Store) decode(ctx context.Context, raw string, found bool) *domain.GuestCart {
	if !found || raw == "" {
		return nil
	}

	var cart domain.GuestCart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		s.fault(ctx, "decode", "error decoding guest cart", err)
		return nil
	}
	if cart.Products == nil {
		cart.Products = []domain.GuestCartItem{}
	}
	return &cart
}

// Write persists cart. A nil cart, or one without a product list, deletes the record.
func (s *Store) Write(ctx context.Context, cart *domain.GuestCart) {
	s.mutate(ctx, func(*domain.GuestCart) (*domain.GuestCart, bool) {
		return cart, true
	})
}

// AddItem adds quantity of productID to the cart, creating the cart on first
// use. Adding a product already in the cart accumulates its quantity and
// keeps the snapshot taken when it was first added.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int, snapshot *domain.ProductSnapshot) *domain.GuestCart {
	return s.mutate(ctx, func(cart *domain.GuestCart) (*domain.GuestCart, bool) {
		if cart == nil {
			cart = domain.NewGuestCart()
		}

		if i := cart.FindItemIndex(productID); i > -1 {
			cart.Products[i].Quantity += quantity
		} else {
			cart.Products = append(cart.Products, domain.GuestCartItem{
				ProductID: productID,
				Quantity:  quantity,
				Product:   snapshot,
			})
		}

		cart.Recalculate()
		return cart, true
	})
}

// UpdateItemQuantity sets the absolute quantity of productID. A quantity of
// zero or less removes the item; an unknown product leaves the cart unchanged.
func (s *Store) UpdateItemQuantity(ctx context.Context, productID string, quantity int) *domain.GuestCart {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	return s.mutate(ctx, func(cart *domain.GuestCart) (*domain.GuestCart, bool) {
		if cart == nil {
			return domain.NewGuestCart(), false
		}

		i := cart.FindItemIndex(productID)
		if i == -1 {
			return cart, false
		}

		cart.Products[i].Quantity = quantity
		cart.Recalculate()
		return cart, true
	})
}

// RemoveItem drops productID from the cart. When no cart exists an empty one
// is returned and nothing is written.
func (s *Store) RemoveItem(ctx context.Context, productID string) *domain.GuestCart {
	return s.mutate(ctx, func(cart *domain.GuestCart) (*domain.GuestCart, bool) {
		if cart == nil {
			return domain.NewGuestCart(), false
		}

		kept := cart.Products[:0]
		for _, item := range cart.Products {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Products = kept

		cart.Recalculate()
		return cart, true
	})
}

// Clear deletes the record.
func (s *Store) Clear(ctx context.Context) {
	s.Write(ctx, nil)
}

// Drain passes the cart's merge items to fn and then deletes the record while
// holding the guest's lock, so no local write lands between the two. It
// returns false without calling fn when there is nothing to drain.
func (s *Store) Drain(ctx context.Context, fn func(items []domain.MergeItem)) bool {
	release, err := s.locks.acquire(ctx, s.key)
	if err != nil {
		s.fault(ctx, "lock", "error locking guest cart", err)
		return false
	}
	defer release()

	items := s.ExtractMergeableItems(ctx)
	if len(items) == 0 {
		return false
	}

	fn(items)
	s.apply(ctx, func(*domain.GuestCart) (*domain.GuestCart, bool) {
		return nil, true
	})
	return true
}

// TotalItemCount returns the summed quantity of all items, or 0 without a cart.
func (s *Store) TotalItemCount(ctx context.Context) int {
	cart := s.Read(ctx)
	if cart == nil {
		return 0
	}
	count := 0
	for _, item := range cart.Products {
		count += item.Quantity
	}
	return count
}

// ExtractMergeableItems returns the cart lines as merge items in insertion order.
func (s *Store) ExtractMergeableItems(ctx context.Context) []domain.MergeItem {
	cart := s.Read(ctx)
	if cart == nil {
		return []domain.MergeItem{}
	}
	return cart.MergeItems()
}

func (s *Store) fault(ctx context.Context, op, msg string, err error) {
	storageErrorsTotal.WithLabelValues(op).Inc()
	logger.WithContext(ctx, s.logger).WarnContext(ctx, msg,
		slog.String("key", s.key),
		slog.String("error", err.Error()),
	)
}

// mutateFunc derives the next cart from the current one, which is nil when
// absent or unreadable. It reports whether the result must be persisted and
// may be called more than once.
type mutateFunc func(current *domain.GuestCart) (next *domain.GuestCart, write bool)

// mutate runs fn under the guest's lock and persists its result.
func (s *Store) mutate(ctx context.Context, fn mutateFunc) *domain.GuestCart {
	release, err := s.locks.acquire(ctx, s.key)
	if err != nil {
		s.fault(ctx, "lock", "error locking guest cart", err)
		cart, _ := fn(s.Read(ctx))
		return cart
	}
	defer release()

	return s.apply(ctx, fn)
}

// apply must be called with the guest's lock held.
func (s *Store) apply(ctx context.Context, fn mutateFunc) *domain.GuestCart {
	if s.storage == nil {
		cart, _ := fn(nil)
		return cart
	}

	updater, ok := s.storage.(storage.Updater)
	if !ok {
		cart, write := fn(s.Read(ctx))
		if write {
			s.persist(ctx, cart)
		}
		return cart
	}

	var (
		result  *domain.GuestCart
		applied bool
	)
	err := updater.Update(ctx, s.key, func(current string, found bool) (string, storage.Mutation) {
		cart, write := fn(s.decode(ctx, current, found))
		result, applied = cart, true
		if !write {
			return "", storage.Keep
		}
		if cart == nil || cart.Products == nil {
			return "", storage.Delete
		}
		data, err := json.Marshal(cart)
		if err != nil {
			s.fault(ctx, "encode", "error encoding guest cart", err)
			return "", storage.Keep
		}
		return string(data), storage.Put
	})
	if err != nil {
		s.fault(ctx, "update", "error updating guest cart", err)
		if !applied {
			result, _ = fn(nil)
		}
	}
	return result
}

func (s *Store) persist(ctx context.Context, cart *domain.GuestCart) {
	if cart == nil || cart.Products == nil {
		if err := s.storage.Remove(ctx, s.key); err != nil {
			s.fault(ctx, "remove", "error removing guest cart", err)
		}
		return
	}

	data, err := json.Marshal(cart)
	if err != nil {
		s.fault(ctx, "encode", "error encoding guest cart", err)
		return
	}

	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.fault(ctx, "write", "error saving guest cart", err)
	}
}
