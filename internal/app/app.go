// Package app wires together all dependencies and runs the storefront service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/quickplate/storefront/internal/cartsync"
	"github.com/quickplate/storefront/internal/checkout"
	"github.com/quickplate/storefront/internal/config"
	"github.com/quickplate/storefront/internal/event"
	handler "github.com/quickplate/storefront/internal/handler/http"
	"github.com/quickplate/storefront/internal/payment"
	"github.com/quickplate/storefront/internal/payment/processor"
	"github.com/quickplate/storefront/internal/payment/processor/mock"
	"github.com/quickplate/storefront/internal/payment/processor/rest"
	"github.com/quickplate/storefront/internal/pricing"
	postgresrepo "github.com/quickplate/storefront/internal/repository/postgres"
	"github.com/quickplate/storefront/internal/repository/postgres/migrations"
	redisrepo "github.com/quickplate/storefront/internal/repository/redis"
	"github.com/quickplate/storefront/pkg/database"
	"github.com/quickplate/storefront/pkg/health"
	pkgkafka "github.com/quickplate/storefront/pkg/kafka"
	"github.com/quickplate/storefront/pkg/tracing"
)

// App holds the storefront's long-lived resources.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampler,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize Redis for device carts.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize PostgreSQL for account carts.
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Kafka producer. An empty broker list disables event publishing.
	var producer *pkgkafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("kafka brokers not configured, event publishing disabled")
	}

	// Build the dependency graph.
	cartTTL := time.Duration(cfg.CartTTL) * time.Hour
	deviceRepo := redisrepo.NewCartRepository(rdb, cartTTL, logger)
	accountRepo := postgresrepo.NewCartRepository(pool, logger)
	carts := cartsync.NewService(deviceRepo, accountRepo, cfg.CartWriteTimeout, logger)

	eventProducer := event.NewProducer(producer, logger)

	proc, err := newProcessor(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("payment processor initialized", slog.String("processor", proc.Name()))

	orchestrator := payment.NewOrchestrator(proc, logger)
	pricer := pricing.NewEngine(cfg.TaxRateDecimal(), cfg.Currency)
	checkouts := checkout.NewManager(carts, pricer, orchestrator, eventProducer, cfg.PostalFormat(), cfg.Currency, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if producer != nil {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	router := handler.NewRouter(carts, checkouts, proc, eventProducer, healthHandler, cfg.CORSAllowedOrigins, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		pool:           pool,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func newProcessor(cfg *config.Config, logger *slog.Logger) (processor.Processor, error) {
	switch cfg.PaymentProcessor {
	case "mock":
		return mock.NewProcessor(), nil
	case "rest":
		return rest.NewProcessor(rest.Config{
			BaseURL: cfg.PaymentAPIURL,
			APIKey:  cfg.PaymentAPIKey,
			Timeout: cfg.PaymentTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown payment processor %q", cfg.PaymentProcessor)
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: HTTP server first so in-flight
// requests drain, then tracer, Kafka, and the datastores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
