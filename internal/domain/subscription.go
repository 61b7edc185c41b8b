package domain

import "time"

// SubscriptionStatus is the lifecycle state of a push subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusBlocked  SubscriptionStatus = "blocked"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// Subscription is a registered push delivery endpoint (browser/device) owned
// by a user. Subscriptions reported gone by the provider are deactivated, not
// deleted, so delivery history stays auditable.
type Subscription struct {
	ID        string
	UserID    string
	Endpoint  string
	P256dh    string
	Auth      string
	Platform  string
	Status    SubscriptionStatus
	CreatedAt time.Time
}
