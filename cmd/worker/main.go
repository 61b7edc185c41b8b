// The worker drains the outbound message queue: it claims pending messages
// from Postgres, dispatches them to their channel, and records retry or
// terminal outcomes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/webstore4eto/messaging/internal/app"
	"github.com/webstore4eto/messaging/internal/config"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
)

func main() {
	log := logger.Init("messaging-worker")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.NewWorkerContainer(ctx, cfg)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	log.Info("worker started",
		"batch_size", cfg.BatchSize,
		"poll_interval_sec", cfg.PollIntervalSec,
		"dry_run", cfg.DryRun)

	c.Processor.Run(ctx)

	log.Info("worker stopped")
}
