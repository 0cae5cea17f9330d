package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/broker-report-digest/internal/adapters/mcp"
	"github.com/kirillkom/broker-report-digest/internal/bootstrap"
	"github.com/kirillkom/broker-report-digest/internal/config"
	"github.com/kirillkom/broker-report-digest/internal/observability/logging"
)

const serviceName = "digest-mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	// stdout carries the protocol.
	slog.SetDefault(logging.New(os.Stderr, logging.Options{
		Service: serviceName,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(cfg, app.Digest, app.Catalog, app.Templates)
	slog.Info("mcp_serving_stdio")
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
