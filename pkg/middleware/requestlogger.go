package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// GuestIDHeader carries the identifier of an unauthenticated shopper.
const GuestIDHeader = "X-Guest-ID"

// RequestLogger stores a request-scoped logger, enriched with correlation_id,
// guest_id, trace_id and span_id, in the request context. Mount it after
// RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logger.GuestIDFromContext(ctx) == "" {
				if guestID := r.Header.Get(GuestIDHeader); guestID != "" && len(guestID) <= maxCorrelationLen {
					ctx = logger.WithGuestID(ctx, guestID)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
