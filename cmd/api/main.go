package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/grant-tagger/internal/adapters/http"
	"github.com/kirillkom/grant-tagger/internal/bootstrap"
	"github.com/kirillkom/grant-tagger/internal/config"
	"github.com/kirillkom/grant-tagger/internal/observability/logging"
	"github.com/kirillkom/grant-tagger/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	logging.Install(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid_config", "error", err)
		os.Exit(1)
	}
	if _, err := httpadapter.LoadOpenAPI(context.Background()); err != nil {
		slog.Error("openapi_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, httpMetrics.Registerer())
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if seeded, err := app.SeedIfEmpty(ctx); err != nil {
		slog.Warn("seed_failed", "error", err)
	} else if seeded > 0 {
		slog.Info("store_seeded", "grants", seeded)
	}

	router := httpadapter.NewRouter(cfg, app.Tagger, app.Catalog, app.Queue, app.Vocabulary, app.Exporter).Handler()
	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", httpMetrics.Middleware(serviceName, router))

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Batch tagging runs one bounded LLM call per grant.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "storage_driver", cfg.StorageDriver, "import_queue", app.Queue != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
