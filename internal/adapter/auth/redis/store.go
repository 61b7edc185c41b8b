// Package authredis resolves session tokens against the shared Redis session
// store written by the REST API's auth layer.
package authredis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/webstore4eto/messaging/internal/port"
)

const sessionPrefix = "session:"

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

type sessionRecord struct {
	UserID string `json:"user_id"`
}

// UserBySession returns the owning user id. Anonymous sessions exist (guest
// carts) and resolve to "" without an error; unknown or expired tokens return
// port.ErrSessionNotFound.
func (s *Store) UserBySession(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, sessionPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", port.ErrSessionNotFound
		}
		return "", err
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		// Legacy sessions store the bare user id.
		return val, nil
	}
	return rec.UserID, nil
}

var _ port.SessionStore = (*Store)(nil)
