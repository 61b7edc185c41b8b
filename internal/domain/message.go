package domain

import "time"

// MessageType identifies the delivery channel of a queued message.
type MessageType string

const (
	MessageTypeEmail         MessageType = "email"
	MessageTypePush          MessageType = "push"
	MessageTypePushBroadcast MessageType = "push_broadcast"
	MessageTypeInApp         MessageType = "in_app"
)

// AllMessageTypes lists every channel the worker claims from the queue.
var AllMessageTypes = []MessageType{
	MessageTypeEmail,
	MessageTypePush,
	MessageTypePushBroadcast,
	MessageTypeInApp,
}

// MessageStatus is the queue lifecycle state of a message.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSending MessageStatus = "sending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusSeen    MessageStatus = "seen"
	MessageStatusFailed  MessageStatus = "failed"
	MessageStatusExpired MessageStatus = "expired"
)

// MessageSettings carries channel-specific delivery options stored as JSON
// alongside the message row.
type MessageSettings struct {
	TTL     int    `json:"ttl,omitempty"`
	Urgency string `json:"urgency,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

// Message is one unit of outbound notification work.
//
// A message is claimed (pending -> sending) by exactly one worker at a time;
// a row still sending after the lease timeout is eligible for reclaim.
type Message struct {
	ID                  string
	Type                MessageType
	Status              MessageStatus
	RecipientID         string
	RecipientEmail      string
	Subject             string
	Body                string
	Settings            MessageSettings
	EventType           string
	SubscriptionID      string
	NotificationID      string
	Priority            int
	Attempts            int
	LastAttemptAt       *time.Time
	RetryAfter          *time.Time
	ProcessingStartedAt *time.Time
	SentAt              *time.Time
	CreatedAt           time.Time

	// ValidTo is the validity window of the referenced in-app notification,
	// joined in at claim time. Nil for other channels.
	ValidTo *time.Time
}

// Expired reports whether an in-app message's notification window has elapsed.
func (m Message) Expired(now time.Time) bool {
	return m.ValidTo != nil && m.ValidTo.Before(now)
}
