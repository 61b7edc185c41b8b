// Package app wires adapters, services and transports into runnable
// containers, one per binary.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	authredis "github.com/webstore4eto/messaging/internal/adapter/auth/redis"
	cacheredis "github.com/webstore4eto/messaging/internal/adapter/cache/redis"
	natsevents "github.com/webstore4eto/messaging/internal/adapter/events/nats"
	"github.com/webstore4eto/messaging/internal/adapter/events/noop"
	smtpmailer "github.com/webstore4eto/messaging/internal/adapter/mailer/smtp"
	"github.com/webstore4eto/messaging/internal/adapter/push/webpush"
	"github.com/webstore4eto/messaging/internal/adapter/relay"
	"github.com/webstore4eto/messaging/internal/adapter/repository/postgres"
	"github.com/webstore4eto/messaging/internal/config"
	"github.com/webstore4eto/messaging/internal/pkg/backoff"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
	"github.com/webstore4eto/messaging/internal/pkg/presence"
	"github.com/webstore4eto/messaging/internal/port"
	"github.com/webstore4eto/messaging/internal/service"
	internalhttp "github.com/webstore4eto/messaging/internal/transport/http"
	"github.com/webstore4eto/messaging/internal/transport/ws"
)

// WorkerContainer holds everything the queue worker binary needs.
type WorkerContainer struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	Events port.Publisher

	Processor *service.Processor

	natsClient *natsevents.Client
}

func NewWorkerContainer(ctx context.Context, cfg *config.Config) (*WorkerContainer, error) {
	if err := cfg.ValidateWorker(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	rdb := cacheredis.NewClient(cfg.RedisAddr)

	c := &WorkerContainer{
		Config: cfg,
		Pool:   pool,
		Redis:  rdb,
	}

	// Lifecycle events are best-effort; a missing broker degrades to no-op
	// rather than keeping the worker down.
	c.Events = noop.NewPublisher()
	if cfg.NATSURL != "" {
		nc, err := natsevents.NewClient(cfg.NATSURL)
		if err != nil {
			logger.From(ctx).Warn("nats unavailable, lifecycle events disabled", "error", err)
		} else {
			c.natsClient = nc
			c.Events = nc
		}
	}

	queue := postgres.NewMessageRepository(pool)
	subs := postgres.NewSubscriptionRepository(pool)
	pres := presence.NewStore(rdb, 0)

	dispatcher := service.NewDispatcher(
		queue,
		subs,
		smtpmailer.New(cfg),
		webpush.New(cfg),
		relay.NewClient(cfg.RelayURL),
		pres,
		cfg.DryRun,
	)

	c.Processor = service.NewProcessor(queue, subs, dispatcher, c.Events, service.ProcessorOptions{
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		PollInterval: time.Duration(cfg.PollIntervalSec) * time.Second,
		LeaseTimeout: time.Duration(cfg.LeaseTimeoutMin) * time.Minute,
		Backoff: backoff.Policy{
			Initial:    time.Duration(cfg.RetryInitialMin) * time.Minute,
			Multiplier: cfg.RetryMultiplier,
			Max:        time.Duration(cfg.RetryMaxMin) * time.Minute,
		},
	})

	return c, nil
}

func (c *WorkerContainer) Close() {
	if c.natsClient != nil {
		c.natsClient.Close()
	}
	_ = c.Redis.Close()
	c.Pool.Close()
}

// GatewayContainer holds everything the socket gateway binary needs.
type GatewayContainer struct {
	Config *config.Config
	Redis  *redis.Client
	Hub    *ws.Hub
	Router http.Handler
}

func NewGatewayContainer(ctx context.Context, cfg *config.Config) (*GatewayContainer, error) {
	rdb := cacheredis.NewClient(cfg.RedisAddr)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	hub := ws.NewHub()
	pres := presence.NewStore(rdb, 0)
	sessions := authredis.NewStore(rdb)

	socket, err := ws.NewServer(hub, sessions, pres, cfg.APIBaseURL, cfg.StreamThresholdKiB*1024)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("socket server: %w", err)
	}

	return &GatewayContainer{
		Config: cfg,
		Redis:  rdb,
		Hub:    hub,
		Router: internalhttp.NewRouter(cfg.SocketPath, socket, internalhttp.NewRelayHandler(hub)),
	}, nil
}

func (c *GatewayContainer) Close() {
	c.Hub.Close()
	_ = c.Redis.Close()
}
