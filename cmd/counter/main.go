package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samims/hitcounter/internal/config"
	"github.com/samims/hitcounter/internal/handler"
	"github.com/samims/hitcounter/internal/logger"
	"github.com/samims/hitcounter/internal/metrics"
	"github.com/samims/hitcounter/internal/queue"
	"github.com/samims/hitcounter/internal/router"
	"github.com/samims/hitcounter/internal/secret"
	"github.com/samims/hitcounter/internal/service"
	"github.com/samims/hitcounter/internal/storage"
	"github.com/samims/hitcounter/pkg/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := logger.NewLogger(cfg.App.LogLevel)
	slog.SetDefault(l)

	metrics.Init()

	ctx := context.Background()
	tracerShutdown, err := tracing.Setup(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, l)
	if err != nil {
		l.Error("Failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			l.Warn("Tracer shutdown failed", slog.Any("error", err))
		}
	}()

	// Backends connect on the first request, not here.
	secrets := secret.NewStoreProvider(cfg.Secret.Store, l)
	store := storage.NewLazyStorage(storage.NewBuilder(cfg.Store, secrets, l))
	notifications := queue.NewLazyQueue(queue.NewBuilder(
		cfg.Queue,
		cfg.App.CounterKey,
		secrets,
		tracing.NewTracer(tracing.GetTracer("counter-queue")),
		l,
	))

	counterSvc := service.NewCounterService(store, notifications, cfg.App.CounterKey, l)
	healthSvc := service.NewHealthService(store, l)

	r := router.NewRouter(handler.NewCounterHandler(counterSvc, l), handler.NewHealthHandler(healthSvc, l))
	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	go func() {
		l.Info("Server started",
			slog.String("addr", server.Addr),
			slog.String("store", cfg.Store.Backend),
			slog.String("queue", cfg.Queue.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Failed to start server", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down server...")

	ctxTimeout, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxTimeout); err != nil {
		l.Error("Shutdown failed", slog.Any("error", err))
	}
	if err := notifications.Close(); err != nil {
		l.Warn("Failed to close notification queue", slog.Any("error", err))
	}
	if err := store.Close(); err != nil {
		l.Warn("Failed to close counter store", slog.Any("error", err))
	}
	l.Info("Server exited cleanly")
}
