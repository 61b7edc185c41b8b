package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/port"
)

// MessageRepository implements the durable message queue on Postgres.
//
// Claiming uses FOR UPDATE SKIP LOCKED so concurrent worker processes poll
// the same table without blocking each other; the selection and the
// pending->sending flip are one statement, so a row has at most one claimer.
type MessageRepository struct {
	DB *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{DB: pool}
}

const claimBatchSQL = `
WITH cte AS (
    SELECT id
    FROM message_queue
    WHERE type = ANY($1)
      AND status = $2
      AND attempts < $3
      AND (retry_after IS NULL OR retry_after < NOW())
    ORDER BY priority DESC, created_at DESC
    LIMIT $4
    FOR UPDATE SKIP LOCKED
), claimed AS (
    UPDATE message_queue m
    SET status = $5,
        processing_started_at = NOW()
    FROM cte
    WHERE m.id = cte.id
    RETURNING m.*
)
SELECT c.id, c.type, c.status, c.recipient_id, c.recipient_email,
       c.subject, c.body, c.settings, c.event_type, c.subscription_id,
       c.notification_id, c.priority, c.attempts, c.last_attempt_at,
       c.retry_after, c.processing_started_at, c.sent_at, c.created_at,
       n.valid_to_timestamp
FROM claimed c
LEFT JOIN notifications n ON n.id = c.notification_id`

func (r *MessageRepository) Enqueue(ctx context.Context, msg domain.Message) (string, error) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	priority := msg.Priority
	if priority <= 0 {
		priority = 1
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO message_queue
		       (id, type, status, recipient_id, recipient_email, subject, body,
		        settings, event_type, subscription_id, notification_id, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, msg.Type, domain.MessageStatusPending,
		nullable(msg.RecipientID), nullable(msg.RecipientEmail),
		msg.Subject, msg.Body, msg.Settings,
		nullable(msg.EventType), nullable(msg.SubscriptionID), nullable(msg.NotificationID),
		priority)
	if err != nil {
		return "", fmt.Errorf("enqueue message: %w", err)
	}
	return id, nil
}

func (r *MessageRepository) ClaimBatch(ctx context.Context, limit int, types []domain.MessageType, maxAttempts int) ([]domain.Message, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	rows, err := r.DB.Query(ctx, claimBatchSQL,
		typeNames, domain.MessageStatusPending, maxAttempts, limit, domain.MessageStatusSending)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var items []domain.Message
	for rows.Next() {
		var m domain.Message
		var recipientID, recipientEmail, eventType, subscriptionID, notificationID *string
		if err := rows.Scan(
			&m.ID, &m.Type, &m.Status, &recipientID, &recipientEmail,
			&m.Subject, &m.Body, &m.Settings, &eventType, &subscriptionID,
			&notificationID, &m.Priority, &m.Attempts, &m.LastAttemptAt,
			&m.RetryAfter, &m.ProcessingStartedAt, &m.SentAt, &m.CreatedAt,
			&m.ValidTo,
		); err != nil {
			return nil, fmt.Errorf("scan claimed message: %w", err)
		}
		m.RecipientID = deref(recipientID)
		m.RecipientEmail = deref(recipientEmail)
		m.EventType = deref(eventType)
		m.SubscriptionID = deref(subscriptionID)
		m.NotificationID = deref(notificationID)
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *MessageRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE message_queue SET status = $1, sent_at = NOW() WHERE id = $2`,
		domain.MessageStatusSent, id)
	return err
}

func (r *MessageRepository) MarkSeen(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE message_queue SET status = $1 WHERE id = $2 AND status = $3`,
		domain.MessageStatusSeen, id, domain.MessageStatusSent)
	return err
}

func (r *MessageRepository) MarkFailed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.MessageStatusFailed)
}

func (r *MessageRepository) MarkExpired(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.MessageStatusExpired)
}

func (r *MessageRepository) ReturnPending(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.MessageStatusPending)
}

func (r *MessageRepository) setStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE message_queue SET status = $1 WHERE id = $2`, status, id)
	return err
}

func (r *MessageRepository) MarkRetryOrFail(ctx context.Context, id string, status domain.MessageStatus, retryAfter time.Duration) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE message_queue
		SET status = $1,
		    attempts = attempts + 1,
		    last_attempt_at = NOW(),
		    retry_after = NOW() + make_interval(secs => $2),
		    priority = GREATEST(priority - 1, 1)
		WHERE id = $3`,
		status, retryAfter.Seconds(), id)
	return err
}

func (r *MessageRepository) ReclaimStale(ctx context.Context, leaseTimeout, retryDelay time.Duration) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE message_queue
		SET status = $1,
		    retry_after = NOW() + make_interval(secs => $2)
		WHERE status = $3
		  AND processing_started_at < NOW() - make_interval(secs => $4)`,
		domain.MessageStatusPending, retryDelay.Seconds(),
		domain.MessageStatusSending, leaseTimeout.Seconds())
	if err != nil {
		return 0, fmt.Errorf("reclaim stale: %w", err)
	}
	return tag.RowsAffected(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time interface check.
var _ port.MessageQueue = (*MessageRepository)(nil)
