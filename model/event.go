package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event type identifiers carried in the envelope and in transport headers.
const (
	EventTypeBookCreated = "BookCreated"
	EventTypeBookUpdated = "BookUpdated"
	EventTypeBookDeleted = "BookDeleted"
)

// Routing constants shared by every event published by this service.
const (
	// ExchangeName is the broker destination for all book events.
	ExchangeName = "book-events"

	// SourceService identifies this service in routing keys and headers.
	SourceService = "book-service"

	// AggregateType identifies the aggregate in routing keys and headers.
	AggregateType = "book"
)

// DeletionType distinguishes soft from hard deletes in BookDeleted events.
type DeletionType string

const (
	DeletionSoft DeletionType = "SOFT"
	DeletionHard DeletionType = "HARD"
)

// Event is the envelope wrapped around every domain event before publishing.
//
// EventID is assigned exactly once, when the envelope is built; retries of
// the same logical event reuse the same identifier so consumers can
// deduplicate. CorrelationID ties the event back to the request that caused
// it and is propagated unchanged through the broker.
type Event struct {
	EventID       string                 `json:"eventId"`
	EventType     string                 `json:"eventType"`
	AggregateID   int64                  `json:"aggregateId"`
	AggregateType string                 `json:"aggregateType"`
	SourceService string                 `json:"sourceService"`
	CorrelationID string                 `json:"correlationId"`
	OccurredAt    time.Time              `json:"occurredAt"`
	Version       int                    `json:"version"`
	Book          *Book                  `json:"book,omitempty"`
	Previous      map[string]interface{} `json:"previousValues,omitempty"`
	DeletionType  DeletionType           `json:"deletionType,omitempty"`
}

// NewEvent builds an envelope for the given event type and aggregate.
// A fresh EventID is generated here and never again for this event.
func NewEvent(eventType string, correlationID string, book *Book) Event {
	return Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   book.ID,
		AggregateType: AggregateType,
		SourceService: SourceService,
		CorrelationID: correlationID,
		OccurredAt:    time.Now(),
		Version:       1,
		Book:          book,
	}
}

// NewBookCreated builds the envelope for a freshly created book.
func NewBookCreated(correlationID string, book *Book) Event {
	return NewEvent(EventTypeBookCreated, correlationID, book)
}

// NewBookUpdated builds the envelope for an updated book, carrying the
// changed fields' previous values for consumers that diff state.
func NewBookUpdated(correlationID string, book *Book, previous map[string]interface{}) Event {
	e := NewEvent(EventTypeBookUpdated, correlationID, book)
	e.Previous = previous
	return e
}

// NewBookDeleted builds the envelope for a deactivated book.
func NewBookDeleted(correlationID string, book *Book, dt DeletionType) Event {
	e := NewEvent(EventTypeBookDeleted, correlationID, book)
	e.DeletionType = dt
	return e
}

// RoutingKey returns the dot-separated broker routing key for the event:
// {sourceService}.{aggregateType}.{eventType}, with the event type lowered
// to its past-tense suffix (e.g. "book-service.book.created").
func (e Event) RoutingKey() string {
	var suffix string
	switch e.EventType {
	case EventTypeBookCreated:
		suffix = "created"
	case EventTypeBookUpdated:
		suffix = "updated"
	case EventTypeBookDeleted:
		suffix = "deleted"
	default:
		suffix = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", e.SourceService, e.AggregateType, suffix)
}

// Headers returns the transport-level metadata attached to the published
// message alongside the serialized envelope.
func (e Event) Headers() Attributes {
	return Attributes{
		"event-id":       e.EventID,
		"event-type":     e.EventType,
		"correlation-id": e.CorrelationID,
		"source-service": e.SourceService,
		"routing-key":    e.RoutingKey(),
		"timestamp":      e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// Validate checks that the envelope carries everything a consumer needs.
func (e Event) Validate() error {
	switch {
	case e.EventID == "":
		return DomainError{Code: "EVENT_ID_REQUIRED", Message: "Event ID is required"}
	case e.EventType != EventTypeBookCreated && e.EventType != EventTypeBookUpdated && e.EventType != EventTypeBookDeleted:
		return DomainError{Code: "EVENT_TYPE_UNKNOWN", Message: "Unknown event type: " + e.EventType}
	case e.SourceService == "":
		return DomainError{Code: "SOURCE_SERVICE_REQUIRED", Message: "Source service is required"}
	}
	return nil
}
