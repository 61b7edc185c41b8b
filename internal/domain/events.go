package domain

type MessageSent struct {
	MessageID string `json:"messageId"`
	Type      string `json:"type"`
	Recipient string `json:"recipient,omitempty"`
}

type MessageFailed struct {
	MessageID string `json:"messageId"`
	Type      string `json:"type"`
	ErrorType string `json:"errorType"`
	Attempts  int    `json:"attempts"`
}

type MessageExpired struct {
	MessageID      string `json:"messageId"`
	NotificationID string `json:"notificationId,omitempty"`
}
