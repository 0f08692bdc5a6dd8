package model

import (
	"time"
)

// Notification types, one per consumed event kind.
const (
	NotificationBookCreated = "BOOK_CREATED"
	NotificationBookUpdated = "BOOK_UPDATED"
	NotificationBookDeleted = "BOOK_DELETED"
)

// Notification is the human-readable artifact produced by the consumer for
// each processed event. Notifications are persisted so that dispatch can be
// audited and replayed.
type Notification struct {
	ID             int64     `json:"id"`
	EventID        string    `json:"eventId" db:"event_id"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	RecipientEmail string    `json:"recipientEmail" db:"recipient_email"`
	RecipientName  string    `json:"recipientName" db:"recipient_name"`
	ReferenceID    int64     `json:"referenceId" db:"reference_id"`
	ReferenceType  string    `json:"referenceType" db:"reference_type"`
	CorrelationID  string    `json:"correlationId" db:"correlation_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for Notification.
func (n Notification) TableName() string {
	return tablePrefix + "notification"
}

// NewNotification creates a notification tied to the event that produced it.
// Recipient and reference fields are filled in by the caller.
func NewNotification(eventID, notificationType, subject, body, correlationID string) *Notification {
	return &Notification{
		ID:            0,
		EventID:       eventID,
		Type:          notificationType,
		Subject:       subject,
		Body:          body,
		CorrelationID: correlationID,
		CreatedAt:     time.Now(),
	}
}
