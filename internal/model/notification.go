package model

import (
	"encoding/json"
	"time"

	"oceancare/internal/domain"
)

type Notification struct {
	ID        int64                   `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	Payload   json.RawMessage         `json:"payload,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
	Read      bool                    `json:"read"`
}

// NotificationInput is what the adapter hands to the store; the store assigns
// the id and the unread flag.
type NotificationInput struct {
	Type      domain.NotificationType
	Message   string
	Payload   json.RawMessage
	Timestamp time.Time
}
