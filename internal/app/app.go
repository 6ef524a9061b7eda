package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/storefront/internal/client"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/guestcart"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	redisstore "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/internal/storage/sqlite"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// backend is a guest cart storage medium that can report its health.
type backend interface {
	storage.Storage
	storage.Pinger
}

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	closers        []io.Closer
	producer       *pkgkafka.Producer
	merges         *service.LoginCoordinator
	handler        http.Handler
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.Enabled = cfg.OTELEnabled
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	store, err := a.openStorage(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Merge events are optional; without brokers merges are only logged.
	var mergeEvents service.MergeEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		mergeEvents = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Upstream clients. Adding to the cart is not idempotent and is never retried.
	cartHTTP := httpclient.DefaultConfig()
	cartHTTP.Timeout = cfg.UpstreamTimeout
	catalogHTTP := httpclient.DefaultConfig()
	catalogHTTP.Timeout = cfg.UpstreamTimeout

	cartClient := client.NewCartClient(a.breaker("cart-api", cartHTTP), cfg.CartAPIURL, logger)
	catalogClient := client.NewCatalogClient(a.breaker("catalog-api", catalogHTTP), cfg.CatalogAPIURL, logger)

	// Build the dependency graph.
	keyspace := guestcart.NewKeyspace(store, cfg.GuestCartKeyPrefix, logger)
	merger := service.NewMerger(mergeEvents, logger)
	a.merges = service.NewLoginCoordinator(merger, keyspace, func(token string) service.CartAdder {
		return cartClient.ForUser(token)
	}, cfg.MergeDelay, logger)
	views := service.NewCartViewService(keyspace, catalogClient, cartClient, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("storage", store.Ping)
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	a.handler = handler.NewRouter(
		handler.NewGuestCartHandler(keyspace, views, a.merges, logger),
		healthHandler,
		logger,
		handler.RouterConfig{
			ServiceName:    serviceName,
			RequestTimeout: cfg.RequestTimeout,
			CORS:           corsCfg,
			PprofCIDRs:     cfg.PprofAllowedCIDRs,
		},
	)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (backend, error) {
	switch a.cfg.StorageDriver {
	case config.StorageRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = a.cfg.RedisAddr
		redisCfg.Password = a.cfg.RedisPass
		redisCfg.DB = a.cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, rdb)
		a.logger.Info("connected to Redis",
			slog.String("addr", a.cfg.RedisAddr),
			slog.Int("db", a.cfg.RedisDB),
		)
		return redisstore.New(rdb, a.cfg.CartTTL()), nil

	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		a.closers = append(a.closers, db)
		a.logger.Info("opened SQLite storage", slog.String("path", a.cfg.SQLitePath))
		return db, nil

	case config.StorageMemory:
		a.logger.Warn("using in-memory guest cart storage; carts are lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.cfg.StorageDriver)
	}
}

func (a *App) breaker(name string, cfg httpclient.Config) *httpclient.CircuitBreakerClient {
	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	cbCfg.Timeout = a.cfg.BreakerTimeout
	return httpclient.NewCircuitBreakerClient(httpclient.New(cfg), cbCfg, a.logger)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. Merges still waiting out their
// delay are abandoned; merges already running are allowed to finish.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.merges.Stop()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.closeAll()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeAll() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("close error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
