package port

import (
	"context"
	"time"

	"github.com/webstore4eto/messaging/internal/domain"
)

// MessageQueue is the durable outbound-message queue.
//
// ClaimBatch must be safe for concurrent pollers: rows locked by another
// claimer are skipped, and the pending->sending flip happens in the same
// transaction as the selection, so a message has at most one claimer.
type MessageQueue interface {
	// Enqueue stores a new pending message and returns its id. An empty
	// msg.ID gets a generated one; a zero priority defaults to 1.
	Enqueue(ctx context.Context, msg domain.Message) (string, error)

	// ClaimBatch leases up to limit due messages of the given types, ordered
	// by priority DESC, created_at DESC, and marks them sending.
	ClaimBatch(ctx context.Context, limit int, types []domain.MessageType, maxAttempts int) ([]domain.Message, error)

	// MarkSent finalizes a delivered message.
	MarkSent(ctx context.Context, id string) error

	// MarkSeen records that an in-app message was read by the recipient.
	MarkSeen(ctx context.Context, id string) error

	// MarkFailed terminally fails a message without touching its attempt
	// counter (used when there is nothing to retry against).
	MarkFailed(ctx context.Context, id string) error

	// MarkExpired expires an in-app message whose notification window elapsed.
	MarkExpired(ctx context.Context, id string) error

	// ReturnPending puts a claimed message back without counting an attempt
	// (recipient not currently connected; a reconnect may land any moment).
	ReturnPending(ctx context.Context, id string) error

	// MarkRetryOrFail records a failed attempt: attempts+1, last_attempt_at,
	// retry_after = now + retryAfter, priority decayed with floor 1, and the
	// given next status (pending to retry, failed when terminal).
	MarkRetryOrFail(ctx context.Context, id string, status domain.MessageStatus, retryAfter time.Duration) error

	// ReclaimStale returns messages stuck sending longer than leaseTimeout to
	// pending with a short retry_after delay, and reports how many it reset.
	ReclaimStale(ctx context.Context, leaseTimeout, retryDelay time.Duration) (int64, error)
}
