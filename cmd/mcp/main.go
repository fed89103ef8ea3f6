package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/grant-tagger/internal/adapters/mcp"
	"github.com/kirillkom/grant-tagger/internal/bootstrap"
	"github.com/kirillkom/grant-tagger/internal/config"
	"github.com/kirillkom/grant-tagger/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logging.Install(logging.New(os.Stderr, "mcp", cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid_config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("mcp_serving_stdio")
	if err := mcpadapter.New(app.Tagger, app.Vocabulary).ServeStdio(); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
