// Package presence tracks which users currently hold a live socket somewhere
// in the deployment. The gateway updates it on connect/disconnect; the worker
// consults it to skip in-app dispatch attempts for users who are offline on
// every instance.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status represents user online/offline status.
type Status struct {
	IsOnline   bool
	LastSeenAt string
}

const presenceKeyPrefix = "presence:"

// Store records per-user presence. With a Redis client it is shared across
// instances; without one it falls back to a process-local map, which is only
// correct for single-instance deployments.
type Store struct {
	mu     sync.RWMutex
	local  map[string]Status
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Store{
		local:  map[string]Status{},
		client: client,
		ttl:    ttl,
	}
}

// Set updates the presence for a user and returns the stored status.
func (s *Store) Set(ctx context.Context, userID string, isOnline bool, at time.Time) Status {
	if s.client != nil {
		key := presenceKeyPrefix + userID
		if !isOnline {
			_ = s.client.Del(ctx, key).Err()
			return Status{IsOnline: false, LastSeenAt: ""}
		}
		ts := at.UTC().Format(time.RFC3339)
		_ = s.client.Set(ctx, key, ts, s.ttl).Err()
		return Status{IsOnline: true, LastSeenAt: ts}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !isOnline {
		delete(s.local, userID)
		return Status{IsOnline: false, LastSeenAt: ""}
	}
	status := Status{
		IsOnline:   true,
		LastSeenAt: at.UTC().Format(time.RFC3339),
	}
	s.local[userID] = status
	return status
}

// Get returns the stored status for a user.
func (s *Store) Get(ctx context.Context, userID string) (Status, bool) {
	if s.client != nil {
		val, err := s.client.Get(ctx, presenceKeyPrefix+userID).Result()
		if err != nil {
			return Status{}, false
		}
		return Status{IsOnline: true, LastSeenAt: val}, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.local[userID]
	return status, ok
}

// Online reports whether the user holds a live connection on any instance.
// A store error is returned as such so callers can fall back to trying the
// delivery anyway instead of treating "unknown" as "offline".
func (s *Store) Online(ctx context.Context, userID string) (bool, error) {
	if s.client != nil {
		_, err := s.client.Get(ctx, presenceKeyPrefix+userID).Result()
		if err == redis.Nil {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.local[userID]
	return ok && status.IsOnline, nil
}
