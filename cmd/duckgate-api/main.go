package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckgate/duckgate/internal/api"
	"github.com/duckgate/duckgate/internal/catalog/rest"
	"github.com/duckgate/duckgate/internal/config"
	"github.com/duckgate/duckgate/internal/observability"
	"github.com/duckgate/duckgate/internal/query"
	duckdbengine "github.com/duckgate/duckgate/internal/query/duckdb"
	s3store "github.com/duckgate/duckgate/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	session := duckdbengine.Open(duckdbengine.SessionConfig{
		ExtensionDirectory: cfg.Engine.ExtensionDirectory,
		RemoteStorage: duckdbengine.RemoteStorageConfig{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			URLStyle:        cfg.ObjectStore.URLStyle,
		},
	}, logger)
	defer func() { _ = session.Close() }()

	session.Initialize(context.Background())

	executor, err := query.NewExecutor(session, query.ExecutorOptions{
		MaxRows: cfg.Query.MaxRows,
		Convert: duckdbengine.ConvertColumn,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialize query executor", slog.Any("error", err))
		os.Exit(1)
	}

	checks := []api.ReadinessCheck{executor.Check}
	warehouse, err := s3store.New(s3store.Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		Region:          cfg.ObjectStore.Region,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		UseSSL:          cfg.ObjectStore.UseSSL,
		Warehouse:       cfg.ObjectStore.Warehouse,
	})
	if err != nil {
		logger.Warn("warehouse readiness check disabled", slog.Any("error", err))
	} else {
		checks = append(checks, warehouse.HealthCheck)
	}
	catalogClient, err := rest.NewClient(rest.Config{URI: cfg.Catalog.RESTURI, Timeout: cfg.Readiness.Timeout})
	if err != nil {
		logger.Warn("catalog readiness check disabled", slog.Any("error", err))
	} else {
		checks = append(checks, catalogClient.HealthCheck)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Executor:          executor,
		Engine:            session,
		Readiness:         api.CombineReadinessChecks(checks...),
		DependencyTimeout: cfg.Readiness.Timeout,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, server, logger); err != nil {
		logger.Error("api server failed", slog.Any("error", err))
		_ = session.Close()
		os.Exit(1)
	}
}

// serve runs server until ctx is cancelled, then shuts it down. A listener
// failure is returned as soon as it happens.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting api server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
