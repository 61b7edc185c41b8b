// The gateway terminates client sockets: it authenticates peers against the
// session store, streams in-app events and api_call responses to them, and
// exposes the relay endpoint the worker posts deliveries to.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webstore4eto/messaging/internal/app"
	"github.com/webstore4eto/messaging/internal/config"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
)

func main() {
	log := logger.Init("messaging-gateway")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.NewGatewayContainer(ctx, cfg)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", "addr", cfg.GatewayAddr, "socket_path", cfg.SocketPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}

	log.Info("gateway stopped")
}
