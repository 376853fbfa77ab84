// Package main is the entry point for the fatture API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fatture/internal/config"
	"fatture/internal/domain/client"
	"fatture/internal/domain/invoice"
	v1 "fatture/internal/infrastructure/http/v1"
	"fatture/internal/infrastructure/storage/postgres"
	"fatture/pkg/logger"
	"fatture/pkg/numerator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting server", "app", cfg.App.Name, "env", cfg.App.Env, "version", cfg.App.Version)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.ConnectionString())
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	clientRepo := postgres.NewClientRepo(txManager)
	invoiceRepo := postgres.NewInvoiceRepo(txManager)

	// --- Numbering ---
	// The allocator hands out progressive document numbers. Its counter is
	// seeded from the highest number already stored, so restarting the
	// server against an existing database never rewinds the sequence. The
	// store resolves its querier from the context so the increment joins the
	// issuance transaction and rolls back with it.
	sequenceStore := numerator.NewPgStoreWithResolver(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})
	allocator := numerator.New(sequenceStore)

	// --- Services ---
	clientService := client.NewService(clientRepo, txManager)
	invoiceService := invoice.NewService(invoiceRepo, clientRepo, invoice.NewCalculator(), allocator, txManager)

	if err := invoiceService.SeedNumbering(ctx); err != nil {
		log.Fatalw("failed to seed document numbering", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool.Pool,
		Logger:         log,
		Version:        cfg.App.Version,
		ClientService:  clientService,
		InvoiceService: invoiceService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "addr", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
