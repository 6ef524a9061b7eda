package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

type contextKey string

const guestIDKey contextKey = "guest_id"

// GuestIDFromHeader requires a UUID in the X-Guest-ID header and stores its
// canonical form in the request context. Missing or malformed ids are
// rejected with 400 before any storage key is derived from them.
func GuestIDFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(middleware.GuestIDHeader))
		if raw == "" {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:      "INVALID_INPUT",
					Message:   middleware.GuestIDHeader + " header is required",
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				},
			})
			return
		}

		id, ok := httputil.ParseUUID(w, r, middleware.GuestIDHeader, raw)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), guestIDKey, id.String())
		ctx = logger.WithGuestID(ctx, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guestIDFromContext returns the id stored by GuestIDFromHeader.
func guestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(guestIDKey).(string)
	return id, ok && id != ""
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNSUPPORTED_MEDIA_TYPE",
						Message:   "Content-Type must be application/json",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
