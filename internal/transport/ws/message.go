package ws

import "encoding/json"

// Wire message types exchanged with socket peers.
const (
	MessageTypeEvent   = "event"
	MessageTypeAPICall = "api_call"
	MessageTypeSystem  = "system"
)

// Envelope is the JSON message sent to peers.
type Envelope struct {
	ID      any    `json:"id"`
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Payload any    `json:"payload"`
}

// ErrorPayload is the body of a system error envelope.
type ErrorPayload struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// InboundMessage is a structured message received from a peer.
type InboundMessage struct {
	ID      uint32          `json:"id" validate:"required"`
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// APICallPayload asks the gateway to perform an HTTP call against the
// internal API on the peer's behalf.
type APICallPayload struct {
	URL     string         `json:"url" validate:"required"`
	Options APICallOptions `json:"options"`
}

type APICallOptions struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
}

// APICallResponse precedes the streamed response body and tells the peer
// which request id the following frames belong to.
type APICallResponse struct {
	Status    int    `json:"status"`
	RequestID uint32 `json:"request_id"`
}
