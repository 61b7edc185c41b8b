package port

import (
	"context"

	"github.com/webstore4eto/messaging/internal/domain"
)

// PushPayload is the notification body handed to the push provider.
type PushPayload struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	TTL     int    `json:"ttl,omitempty"`
	Urgency string `json:"urgency,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

// PushSender delivers one payload to one subscription endpoint. Provider
// rejections surface as *ProviderStatusError so the classifier can map them.
type PushSender interface {
	Send(ctx context.Context, sub domain.Subscription, payload PushPayload) error
}
