// Package webpush delivers browser push notifications over the Web Push
// protocol with VAPID authentication.
package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/webstore4eto/messaging/internal/config"
	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/pkg/circuitbreaker"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
	"github.com/webstore4eto/messaging/internal/port"
)

type Client struct {
	subject    string
	publicKey  string
	privateKey string
	dryRun     bool
	breaker    *circuitbreaker.Breaker
}

func New(cfg *config.Config) *Client {
	return &Client{
		subject:    cfg.VAPIDSubject,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		dryRun:     cfg.WebPushDryRun,
		// Provider outages show up as bursts of 5xx; stop hammering after
		// five in a row and probe again after a minute.
		breaker: circuitbreaker.NewBreaker(5, time.Minute, 1),
	}
}

func (c *Client) Send(ctx context.Context, sub domain.Subscription, payload port.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	if c.dryRun {
		logger.From(ctx).Info("web push dry run",
			"endpoint", sub.Endpoint, "payload", string(body))
		return nil
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}
	opts := &webpush.Options{
		Subscriber:      c.subject,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             payload.TTL,
		Urgency:         urgency(payload.Urgency),
		Topic:           payload.Topic,
	}

	err = c.breaker.Do(func() error {
		resp, err := webpush.SendNotificationWithContext(ctx, body, target, opts)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &port.ProviderStatusError{StatusCode: resp.StatusCode, Body: string(detail)}
	})
	if err == circuitbreaker.ErrOpen {
		// Surfaced as a retryable provider failure so the job backs off.
		return &port.ProviderStatusError{StatusCode: http.StatusServiceUnavailable, Body: "push provider circuit open"}
	}
	return err
}

func urgency(s string) webpush.Urgency {
	switch webpush.Urgency(s) {
	case webpush.UrgencyVeryLow, webpush.UrgencyLow, webpush.UrgencyHigh:
		return webpush.Urgency(s)
	default:
		return webpush.UrgencyNormal
	}
}

var _ port.PushSender = (*Client)(nil)
