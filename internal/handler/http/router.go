package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig carries the cross-cutting settings of the router.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	guestCartHandler *GuestCartHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	r.Route("/api/v1/guest-cart", func(r chi.Router) {
		r.Use(middleware.CacheControl("no-store"))
		r.Use(ContentTypeJSON)
		r.Use(GuestIDFromHeader)

		r.Get("/", guestCartHandler.GetCart)
		r.Delete("/", guestCartHandler.ClearCart)
		r.Get("/count", guestCartHandler.Count)
		r.Get("/view", guestCartHandler.View)
		r.Get("/merge-items", guestCartHandler.MergeItems)

		r.Post("/items", guestCartHandler.AddItem)
		r.Put("/items/{productId}", guestCartHandler.UpdateItemQuantity)
		r.Delete("/items/{productId}", guestCartHandler.RemoveItem)

		r.With(middleware.RequireBearer).Post("/merge", guestCartHandler.Merge)
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.CacheControl("no-store"))
		r.Use(middleware.RequireBearer)

		r.Get("/", guestCartHandler.UserCart)
	})

	return r
}
