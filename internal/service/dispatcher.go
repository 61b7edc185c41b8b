package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
	"github.com/webstore4eto/messaging/internal/pkg/presence"
	"github.com/webstore4eto/messaging/internal/port"
)

// eventMessageType is the wire type of in-app events handed to the gateway.
const eventMessageType = "event"

// DispatchResult is the shared outcome contract of every channel dispatcher.
//
// Success means the provider accepted the delivery. When Success is false and
// no error was returned, the dispatcher already wrote the message's next
// state itself: Terminal marks states the orchestrator must not retry,
// Expired marks in-app messages whose notification window elapsed. Failures
// the classifier should judge are returned as an error instead.
type DispatchResult struct {
	Success  bool
	Terminal bool
	Expired  bool
}

type inAppPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	EventType string `json:"event_type,omitempty"`
}

// Dispatcher executes per-channel delivery for claimed messages.
type Dispatcher struct {
	queue    port.MessageQueue
	subs     port.SubscriptionRepository
	mailer   port.Mailer
	push     port.PushSender
	relay    port.EventRelay
	presence *presence.Store
	dryRun   bool
	now      func() time.Time
}

func NewDispatcher(
	queue port.MessageQueue,
	subs port.SubscriptionRepository,
	mailer port.Mailer,
	push port.PushSender,
	relay port.EventRelay,
	pres *presence.Store,
	dryRun bool,
) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		subs:     subs,
		mailer:   mailer,
		push:     push,
		relay:    relay,
		presence: pres,
		dryRun:   dryRun,
		now:      time.Now,
	}
}

// Dispatch routes one claimed message to its channel. The switch is closed
// over the channel enum so adding a channel without a dispatcher is a
// compile-visible hole, not a silent map miss.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.Message) (DispatchResult, error) {
	switch msg.Type {
	case domain.MessageTypeEmail:
		return d.dispatchEmail(ctx, msg)
	case domain.MessageTypePush:
		return d.dispatchPush(ctx, msg)
	case domain.MessageTypePushBroadcast:
		return d.dispatchPushBroadcast(ctx, msg)
	case domain.MessageTypeInApp:
		return d.dispatchInApp(ctx, msg)
	default:
		return DispatchResult{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, msg domain.Message) (DispatchResult, error) {
	err := d.mailer.Send(ctx, port.EmailMessage{
		To:      msg.RecipientEmail,
		Subject: msg.Subject,
		HTML:    msg.Body,
	})
	if err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{Success: true}, nil
}

// dispatchPush fans one message out to every active subscription the
// recipient owns. A single working endpoint is enough to call the message
// sent; a dead endpoint only deactivates itself.
func (d *Dispatcher) dispatchPush(ctx context.Context, msg domain.Message) (DispatchResult, error) {
	subs, err := d.subs.ListActiveByUser(ctx, msg.RecipientID)
	if err != nil {
		return DispatchResult{}, err
	}
	if len(subs) == 0 {
		// Nothing to retry against: fail terminally without an attempt.
		if err := d.queue.MarkFailed(ctx, msg.ID); err != nil {
			return DispatchResult{}, err
		}
		logger.From(ctx).Info("push message has no active subscriptions",
			"message_id", msg.ID, "user_id", msg.RecipientID)
		return DispatchResult{Terminal: true}, nil
	}

	payload := pushPayload(msg)
	delivered := 0
	for _, sub := range subs {
		if err := d.push.Send(ctx, sub, payload); err != nil {
			class := Classify(err)
			if class.Type == ErrorTypeSubscriptionNotFound {
				if derr := d.subs.Deactivate(ctx, sub.ID); derr != nil {
					logger.From(ctx).Error("deactivate subscription",
						"subscription_id", sub.ID, "error", derr)
				}
			}
			logger.From(ctx).Warn("push delivery to subscription failed",
				"message_id", msg.ID, "subscription_id", sub.ID,
				"error_type", string(class.Type), "error", err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		if err := d.queue.MarkFailed(ctx, msg.ID); err != nil {
			return DispatchResult{}, err
		}
		return DispatchResult{Terminal: true}, nil
	}
	return DispatchResult{Success: true}, nil
}

// dispatchPushBroadcast delivers to exactly one subscription; fanning out a
// mass notification means one queued message per subscription, so the retry
// unit stays a single endpoint.
func (d *Dispatcher) dispatchPushBroadcast(ctx context.Context, msg domain.Message) (DispatchResult, error) {
	sub, err := d.subs.FindActive(ctx, msg.SubscriptionID)
	if err != nil {
		return DispatchResult{}, err
	}
	if sub == nil {
		if err := d.queue.MarkFailed(ctx, msg.ID); err != nil {
			return DispatchResult{}, err
		}
		logger.From(ctx).Info("broadcast subscription missing or inactive",
			"message_id", msg.ID, "subscription_id", msg.SubscriptionID)
		return DispatchResult{Terminal: true}, nil
	}

	if err := d.push.Send(ctx, *sub, pushPayload(msg)); err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{Success: true}, nil
}

func (d *Dispatcher) dispatchInApp(ctx context.Context, msg domain.Message) (DispatchResult, error) {
	if msg.Expired(d.now()) {
		if err := d.queue.MarkExpired(ctx, msg.ID); err != nil {
			return DispatchResult{}, err
		}
		return DispatchResult{Expired: true}, nil
	}

	if d.presence != nil {
		online, err := d.presence.Online(ctx, msg.RecipientID)
		if err == nil && !online {
			// Offline on every instance; skip the relay round trip.
			if err := d.queue.ReturnPending(ctx, msg.ID); err != nil {
				return DispatchResult{}, err
			}
			return DispatchResult{}, nil
		}
	}

	req := port.RelayRequest{
		UserID: msg.RecipientID,
		Type:   eventMessageType,
		Payload: inAppPayload{
			ID:        msg.ID,
			Title:     msg.Subject,
			Body:      msg.Body,
			EventType: msg.EventType,
		},
	}

	if d.dryRun {
		logger.From(ctx).Info("in-app dry run", "message_id", msg.ID, "request", req)
		return DispatchResult{Success: true}, nil
	}

	err := d.relay.Send(ctx, req)
	if err == nil {
		return DispatchResult{Success: true}, nil
	}

	var statusErr *port.ProviderStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 404:
			// Recipient not connected right now; retry on a later pass
			// without burning an attempt.
			if err := d.queue.ReturnPending(ctx, msg.ID); err != nil {
				return DispatchResult{}, err
			}
			return DispatchResult{}, nil
		case 400:
			if err := d.queue.MarkFailed(ctx, msg.ID); err != nil {
				return DispatchResult{}, err
			}
			return DispatchResult{Terminal: true}, nil
		}
	}
	// Gateway errors and network failures go through the classifier.
	return DispatchResult{}, err
}

func pushPayload(msg domain.Message) port.PushPayload {
	return port.PushPayload{
		ID:      msg.ID,
		Title:   msg.Subject,
		Body:    msg.Body,
		TTL:     msg.Settings.TTL,
		Urgency: msg.Settings.Urgency,
		Topic:   msg.Settings.Topic,
	}
}
