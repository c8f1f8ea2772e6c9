package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mstrand/vanir/internal"
	"github.com/mstrand/vanir/internal/handler"
	"github.com/mstrand/vanir/internal/memory"
	"github.com/mstrand/vanir/internal/middleware"
	"github.com/mstrand/vanir/internal/notify"
	"github.com/mstrand/vanir/internal/postgres"
	"github.com/mstrand/vanir/internal/service"
	"github.com/mstrand/vanir/internal/store"
	"github.com/mstrand/vanir/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Select storage backend
	var st store.Store
	var ping handler.Pinger
	switch cfg.StoreBackend {
	case "postgres":
		logger.Info("Connecting to database...")
		sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer sqlDB.Close()

		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		logger.Info("Running database migrations...")
		if err := internal.RunMigrations(sqlDB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		st = postgres.New(pool)
		ping = pool.Ping
	case "memory":
		logger.Info("Using in-memory store")
		st = memory.New()
	}

	// Change notification fanout: NATS events and Redis cache invalidation,
	// each optional.
	var fanout notify.Fanout
	if cfg.NATSUrl != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATSUrl, logger)
		if err != nil {
			return fmt.Errorf("NATS connection failed: %w", err)
		}
		defer pub.Close()
		fanout = append(fanout, pub)
		logger.Info("NATS publisher connected", "url", cfg.NATSUrl)
	}
	if cfg.RedisAddr != "" {
		inv := notify.NewRedisInvalidator(cfg.RedisAddr, logger)
		defer inv.Close()
		fanout = append(fanout, inv)
		logger.Info("Redis cache invalidator configured", "addr", cfg.RedisAddr)
	}
	var publisher notify.Publisher = fanout
	if len(fanout) == 0 {
		publisher = notify.Noop{}
	}

	// Metrics: HTTP metrics own the registry, business metrics join it.
	httpMetrics := middleware.NewMetrics("vanir")
	metrics := telemetry.NewMetrics("vanir", httpMetrics.Registry())

	// Initialize services
	inventoryService := service.NewInventoryService(st, logger)
	cartService := service.NewCartService(st, logger, metrics)
	orderService := service.NewOrderService(st, logger, metrics)
	checkoutService := service.NewCheckoutService(
		st, cartService, inventoryService, orderService, publisher, logger, metrics)

	router := handler.NewRouter(handler.Deps{
		Store:    st,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
		Logger:   logger,
		Metrics:  httpMetrics,
		Ping:     ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
