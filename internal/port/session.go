package port

import (
	"context"
	"errors"
)

// ErrSessionNotFound marks a session token that is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore resolves a session token presented during the socket handshake
// to its owning user.
type SessionStore interface {
	// UserBySession returns the user id for a live session. Anonymous but
	// valid sessions resolve to "". Unknown or expired tokens return
	// ErrSessionNotFound.
	UserBySession(ctx context.Context, sessionID string) (string, error)
}
