package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/port"
)

type SubscriptionRepository struct {
	DB *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{DB: pool}
}

const subscriptionColumns = `id, user_id, endpoint, p256dh, auth, platform, status, created_at`

func (r *SubscriptionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE user_id = $1 AND status = $2`,
		userID, domain.SubscriptionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var items []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.Platform, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *SubscriptionRepository) FindActive(ctx context.Context, id string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := r.DB.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE id = $1 AND status = $2`,
		id, domain.SubscriptionStatusActive).
		Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.Platform, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE push_subscriptions SET status = $1 WHERE id = $2`,
		domain.SubscriptionStatusInactive, id)
	return err
}

var _ port.SubscriptionRepository = (*SubscriptionRepository)(nil)
