package memory

import (
	"context"
	"sync"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/port"
)

type SubscriptionRepositoryStub struct {
	mu   sync.RWMutex
	data map[string]*domain.Subscription
}

func NewSubscriptionRepositoryStub() *SubscriptionRepositoryStub {
	return &SubscriptionRepositoryStub{
		data: make(map[string]*domain.Subscription),
	}
}

func (r *SubscriptionRepositoryStub) Seed(sub domain.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := sub
	r.data[s.ID] = &s
}

func (r *SubscriptionRepositoryStub) Get(id string) (domain.Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return domain.Subscription{}, false
	}
	return *s, true
}

func (r *SubscriptionRepositoryStub) ListActiveByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []domain.Subscription
	for _, s := range r.data {
		if s.UserID == userID && s.Status == domain.SubscriptionStatusActive {
			items = append(items, *s)
		}
	}
	return items, nil
}

func (r *SubscriptionRepositoryStub) FindActive(ctx context.Context, id string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok || s.Status != domain.SubscriptionStatusActive {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (r *SubscriptionRepositoryStub) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		s.Status = domain.SubscriptionStatusInactive
	}
	return nil
}

var _ port.SubscriptionRepository = (*SubscriptionRepositoryStub)(nil)
