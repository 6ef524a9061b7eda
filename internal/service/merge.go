package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/guestcart"
	"github.com/utafrali/storefront/pkg/logger"
)

var (
	mergeItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_cart_merge_items_total",
			Help: "Guest cart items replayed against the authenticated cart, by outcome",
		},
		[]string{"outcome"},
	)

	mergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guest_cart_merge_duration_seconds",
			Help:    "Duration of guest cart merges in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// CartAdder adds a single item to the authenticated user's cart.
type CartAdder interface {
	AddItem(ctx context.Context, item domain.MergeItem) error
}

// CartAdderFunc adapts a function to CartAdder.
type CartAdderFunc func(ctx context.Context, item domain.MergeItem) error

// AddItem calls f.
func (f CartAdderFunc) AddItem(ctx context.Context, item domain.MergeItem) error {
	return f(ctx, item)
}

// MergeEventPublisher announces completed merges.
type MergeEventPublisher interface {
	PublishGuestCartMerged(ctx context.Context, cartKey string, added, failed []domain.MergeItem) error
}

// MergeFailure is an item the authenticated cart rejected.
type MergeFailure struct {
	Item domain.MergeItem
	Err  error
}

// MergeResult summarizes a merge.
type MergeResult struct {
	Attempted int
	Added     []domain.MergeItem
	Failed    []MergeFailure
}

// Merger replays a guest cart into the authenticated cart.
type Merger struct {
	events MergeEventPublisher
	logger *slog.Logger
}

// NewMerger creates a merger. events may be nil.
func NewMerger(events MergeEventPublisher, logger *slog.Logger) *Merger {
	return &Merger{
		events: events,
		logger: logger,
	}
}

// Merge adds every guest cart item to the authenticated cart, one at a time in
// insertion order. A rejected item is logged and skipped. Once every item has
// been attempted the guest cart is cleared, whatever the outcome; rejected
// items are not retained. An absent or empty guest cart is left untouched.
//
// The guest's lock is held from extraction to clearing, so an item added to
// the guest cart while the merge runs is kept for the next one.
func (m *Merger) Merge(ctx context.Context, store *guestcart.Store, adder CartAdder) MergeResult {
	log := logger.WithContext(ctx, m.logger)

	start := time.Now()
	var result MergeResult

	drained := store.Drain(ctx, func(items []domain.MergeItem) {
		result.Attempted = len(items)
		for _, item := range items {
			if err := adder.AddItem(ctx, item); err != nil {
				mergeItemsTotal.WithLabelValues("failed").Inc()
				log.WarnContext(ctx, "failed to merge guest cart item",
					slog.String("product_id", item.ProductID),
					slog.Int("quantity", item.Quantity),
					slog.String("error", err.Error()),
				)
				result.Failed = append(result.Failed, MergeFailure{Item: item, Err: err})
				continue
			}
			mergeItemsTotal.WithLabelValues("added").Inc()
			result.Added = append(result.Added, item)
		}
	})
	if !drained {
		return MergeResult{}
	}

	mergeDuration.Observe(time.Since(start).Seconds())

	log.InfoContext(ctx, "guest cart merged",
		slog.String("cart_key", store.Key()),
		slog.Int("attempted", result.Attempted),
		slog.Int("added", len(result.Added)),
		slog.Int("failed", len(result.Failed)),
	)

	if m.events != nil {
		failed := make([]domain.MergeItem, 0, len(result.Failed))
		for _, f := range result.Failed {
			failed = append(failed, f.Item)
		}
		if err := m.events.PublishGuestCartMerged(ctx, store.Key(), result.Added, failed); err != nil {
			log.ErrorContext(ctx, "failed to publish guestcart.merged event",
				slog.String("cart_key", store.Key()),
				slog.String("error", err.Error()),
			)
		}
	}

	return result
}
