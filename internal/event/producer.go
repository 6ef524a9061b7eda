package event

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topic for guest cart events.
const TopicGuestCartMerged = "storefront.guestcart.merged"

// AggregateTypeGuestCart is the aggregate type of guest cart events.
const AggregateTypeGuestCart = "guest_cart"

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// MetadataTraceID is the metadata key carrying the trace of the merge that
// produced the event.
const MetadataTraceID = "trace_id"

// GuestCartMergedData is the payload of a guestcart.merged event.
type GuestCartMergedData struct {
	CartKey string             `json:"cart_key"`
	GuestID string             `json:"guest_id,omitempty"`
	Added   []domain.MergeItem `json:"added"`
	Failed  []domain.MergeItem `json:"failed"`
}

// Producer publishes guest cart events to Kafka.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new guest cart event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishGuestCartMerged publishes a guestcart.merged event for the cart stored
// under cartKey.
func (p *Producer) PublishGuestCartMerged(ctx context.Context, cartKey string, added, failed []domain.MergeItem) error {
	if added == nil {
		added = []domain.MergeItem{}
	}
	if failed == nil {
		failed = []domain.MergeItem{}
	}

	data := GuestCartMergedData{
		CartKey: cartKey,
		GuestID: logger.GuestIDFromContext(ctx),
		Added:   added,
		Failed:  failed,
	}

	evt, err := pkgkafka.NewEvent(TopicGuestCartMerged, cartKey, AggregateTypeGuestCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create guestcart.merged event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt.WithMetadata(MetadataTraceID, sc.TraceID().String())
	}

	if err := p.publisher.Publish(ctx, TopicGuestCartMerged, evt); err != nil {
		return fmt.Errorf("publish guestcart.merged event: %w", err)
	}

	p.logger.DebugContext(ctx, "published guestcart.merged event",
		slog.String("cart_key", cartKey),
		slog.Int("added", len(added)),
		slog.Int("failed", len(failed)),
	)

	return nil
}
