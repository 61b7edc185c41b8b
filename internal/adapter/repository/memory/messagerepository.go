// Package memory provides in-memory implementations of the repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/port"
)

type MessageRepositoryStub struct {
	mu   sync.Mutex
	data map[string]*domain.Message
}

func NewMessageRepositoryStub() *MessageRepositoryStub {
	return &MessageRepositoryStub{
		data: make(map[string]*domain.Message),
	}
}

// Seed stores a message as-is.
func (r *MessageRepositoryStub) Seed(msg domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := msg
	r.data[m.ID] = &m
}

// Get returns a copy of the stored message.
func (r *MessageRepositoryStub) Get(id string) (domain.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.data[id]
	if !ok {
		return domain.Message{}, false
	}
	return *m, true
}

func (r *MessageRepositoryStub) Enqueue(ctx context.Context, msg domain.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := msg
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Priority <= 0 {
		m.Priority = 1
	}
	m.Status = domain.MessageStatusPending
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.data[m.ID] = &m
	return m.ID, nil
}

func (r *MessageRepositoryStub) ClaimBatch(ctx context.Context, limit int, types []domain.MessageType, maxAttempts int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	wanted := make(map[domain.MessageType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var due []*domain.Message
	for _, m := range r.data {
		if m.Status != domain.MessageStatusPending || !wanted[m.Type] {
			continue
		}
		if m.Attempts >= maxAttempts {
			continue
		}
		if m.RetryAfter != nil && m.RetryAfter.After(now) {
			continue
		}
		due = append(due, m)
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].CreatedAt.After(due[j].CreatedAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]domain.Message, 0, len(due))
	for _, m := range due {
		m.Status = domain.MessageStatusSending
		started := now
		m.ProcessingStartedAt = &started
		claimed = append(claimed, *m)
	}
	return claimed, nil
}

func (r *MessageRepositoryStub) MarkSent(ctx context.Context, id string) error {
	return r.update(id, func(m *domain.Message) {
		m.Status = domain.MessageStatusSent
		now := time.Now()
		m.SentAt = &now
	})
}

func (r *MessageRepositoryStub) MarkSeen(ctx context.Context, id string) error {
	return r.update(id, func(m *domain.Message) {
		if m.Status == domain.MessageStatusSent {
			m.Status = domain.MessageStatusSeen
		}
	})
}

func (r *MessageRepositoryStub) MarkFailed(ctx context.Context, id string) error {
	return r.update(id, func(m *domain.Message) {
		m.Status = domain.MessageStatusFailed
	})
}

func (r *MessageRepositoryStub) MarkExpired(ctx context.Context, id string) error {
	return r.update(id, func(m *domain.Message) {
		m.Status = domain.MessageStatusExpired
	})
}

func (r *MessageRepositoryStub) ReturnPending(ctx context.Context, id string) error {
	return r.update(id, func(m *domain.Message) {
		m.Status = domain.MessageStatusPending
	})
}

func (r *MessageRepositoryStub) MarkRetryOrFail(ctx context.Context, id string, status domain.MessageStatus, retryAfter time.Duration) error {
	return r.update(id, func(m *domain.Message) {
		now := time.Now()
		m.Status = status
		m.Attempts++
		m.LastAttemptAt = &now
		after := now.Add(retryAfter)
		m.RetryAfter = &after
		if m.Priority > 1 {
			m.Priority--
		}
	})
}

func (r *MessageRepositoryStub) ReclaimStale(ctx context.Context, leaseTimeout, retryDelay time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var n int64
	for _, m := range r.data {
		if m.Status != domain.MessageStatusSending {
			continue
		}
		if m.ProcessingStartedAt == nil || m.ProcessingStartedAt.After(now.Add(-leaseTimeout)) {
			continue
		}
		m.Status = domain.MessageStatusPending
		after := now.Add(retryDelay)
		m.RetryAfter = &after
		n++
	}
	return n, nil
}

func (r *MessageRepositoryStub) update(id string, fn func(*domain.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.data[id]
	if !ok {
		return fmt.Errorf("message not found: %s", id)
	}
	fn(m)
	return nil
}

var _ port.MessageQueue = (*MessageRepositoryStub)(nil)
