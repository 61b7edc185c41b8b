package port

import (
	"context"

	"github.com/webstore4eto/messaging/internal/domain"
)

// SubscriptionRepository stores push delivery endpoints.
type SubscriptionRepository interface {
	// ListActiveByUser returns every active subscription owned by the user.
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Subscription, error)

	// FindActive returns the active subscription with the given id, or nil
	// when it does not exist or is no longer active.
	FindActive(ctx context.Context, id string) (*domain.Subscription, error)

	// Deactivate marks a subscription inactive. Idempotent.
	Deactivate(ctx context.Context, id string) error
}
