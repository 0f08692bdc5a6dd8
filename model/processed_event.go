package model

import "time"

// ProcessedEvent records an event identifier the consumer has fully handled.
// The broker delivers at least once; this table turns redelivery into a
// no-op by letting the consumer skip identifiers it has already seen.
type ProcessedEvent struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"eventId" db:"event_id"`
	EventType   string    `json:"eventType" db:"event_type"`
	ProcessedAt time.Time `json:"processedAt" db:"processed_at"`
}

// TableName returns the database table name for ProcessedEvent.
func (p ProcessedEvent) TableName() string {
	return tablePrefix + "processed_event"
}

// NewProcessedEvent marks an event as handled at the current time.
func NewProcessedEvent(eventID, eventType string) *ProcessedEvent {
	return &ProcessedEvent{
		ID:          0,
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}
}
