package port

import "context"

// RelayRequest is the envelope handed to whichever gateway instance owns the
// recipient's live connections.
type RelayRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventRelay forwards an in-app event to the gateway's connection registry.
// A non-2xx relay response surfaces as *ProviderStatusError.
type EventRelay interface {
	Send(ctx context.Context, req RelayRequest) error
}
