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

	"golang.org/x/sync/errgroup"

	"github.com/samims/hitcounter/internal/config"
	"github.com/samims/hitcounter/internal/consumer"
	"github.com/samims/hitcounter/internal/handler"
	"github.com/samims/hitcounter/internal/logger"
	"github.com/samims/hitcounter/internal/metrics"
	"github.com/samims/hitcounter/internal/router"
	"github.com/samims/hitcounter/internal/secret"
	"github.com/samims/hitcounter/internal/service"
	"github.com/samims/hitcounter/pkg/tracing"
)

const serviceName = "counterlog"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := logger.NewLogger(cfg.App.LogLevel)
	slog.SetDefault(l)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := tracing.Setup(ctx, serviceName, cfg.Tracing.Endpoint, l)
	if err != nil {
		l.Error("Failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer tracerShutdown(context.Background())

	secrets := secret.NewStoreProvider(cfg.Secret.Store, l)
	url, err := secret.Resolve(ctx, secrets, cfg.Queue.URLSecret, cfg.Queue.URL)
	if err != nil {
		l.Error("Failed to resolve queue credentials", slog.Any("error", err))
		os.Exit(1)
	}

	h := consumer.NewHandler(service.NewNotificationLogger(l), l)
	c, err := consumer.New(ctx, cfg.Queue, url, h, l)
	if err != nil {
		l.Error("Failed to create consumer", slog.Any("error", err))
		os.Exit(1)
	}

	healthSvc := service.NewHealthService(c, l)
	hServer := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router.NewOpsRouter(handler.NewHealthHandler(healthSvc, l)),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := c.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		l.Info("Starting health server", slog.String("addr", hServer.Addr))
		if err := hServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return hServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		l.Error("counterlog stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	l.Info("Service shut down gracefully")
}
