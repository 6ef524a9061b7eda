package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/guestcart"
	"github.com/utafrali/storefront/pkg/logger"
)

// DefaultHydrationConcurrency bounds concurrent catalog lookups per view.
const DefaultHydrationConcurrency = 8

// ProductLookup fetches current product display data.
type ProductLookup interface {
	GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
}

// CartReader fetches the authenticated user's cart.
type CartReader interface {
	GetCart(ctx context.Context, token string) (*domain.ServerCart, error)
}

// CartViewService builds the cart shown to a shopper.
type CartViewService struct {
	keyspace    *guestcart.Keyspace
	catalog     ProductLookup
	carts       CartReader
	concurrency int
	logger      *slog.Logger
}

// NewCartViewService creates a cart view service.
func NewCartViewService(keyspace *guestcart.Keyspace, catalog ProductLookup, carts CartReader, logger *slog.Logger) *CartViewService {
	return &CartViewService{
		keyspace:    keyspace,
		catalog:     catalog,
		carts:       carts,
		concurrency: DefaultHydrationConcurrency,
		logger:      logger,
	}
}

// GuestView returns guestID's cart with product snapshots refreshed from the
// catalog. An item whose lookup fails keeps its cached snapshot. The refreshed
// cart is for display only and is never written back.
func (s *CartViewService) GuestView(ctx context.Context, guestID string) *domain.GuestCart {
	stored := s.keyspace.For(guestID).Read(ctx)
	if stored == nil {
		return domain.NewGuestCart()
	}

	view := stored.Clone()
	if s.catalog == nil || len(view.Products) == 0 {
		return view
	}

	log := logger.WithContext(ctx, s.logger)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range view.Products {
		item := &view.Products[i]
		g.Go(func() error {
			snap, err := s.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				log.WarnContext(ctx, "product lookup failed, using cached snapshot",
					slog.String("product_id", item.ProductID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			item.Product = snap
			return nil
		})
	}
	_ = g.Wait()

	view.Recalculate()
	return view
}

// UserView returns the authenticated user's cart.
func (s *CartViewService) UserView(ctx context.Context, token string) (*domain.ServerCart, error) {
	cart, err := s.carts.GetCart(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get user cart: %w", err)
	}
	return cart, nil
}
