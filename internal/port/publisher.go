package port

import (
	"context"

	"github.com/webstore4eto/messaging/internal/domain"
)

// Publisher emits message lifecycle events for downstream consumers.
// Publishing is best-effort; delivery state lives in the queue, not here.
type Publisher interface {
	PublishMessageSent(ctx context.Context, event domain.MessageSent) error
	PublishMessageFailed(ctx context.Context, event domain.MessageFailed) error
	PublishMessageExpired(ctx context.Context, event domain.MessageExpired) error
}
