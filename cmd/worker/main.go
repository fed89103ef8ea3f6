package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kirillkom/grant-tagger/internal/bootstrap"
	"github.com/kirillkom/grant-tagger/internal/config"
	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/observability/logging"
	"github.com/kirillkom/grant-tagger/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logging.Install(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid_config", "error", err)
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.NATSURL) == "" {
		slog.Error("invalid_config", "error", "NATS_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics.Registerer())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeGrantImports(ctx, func(handlerCtx context.Context, grants []domain.Grant) error {
		workerMetrics.StartImport()
		start := time.Now()
		tagged, err := app.Tagger.TagMany(handlerCtx, grants)
		workerMetrics.FinishImport(serviceName, len(tagged), time.Since(start), err)
		if err != nil {
			return err
		}
		slog.Info("import_batch_stored", "grants", len(tagged), "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
