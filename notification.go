package catalog

import (
	"context"
	"fmt"

	"github.com/shelfstream/catalog/model"
)

// NotificationSink defines the delivery target for notifications built by
// the event consumer.
//
// Implementations might send emails, Slack messages, SMS, or log to
// monitoring systems.
type NotificationSink interface {
	// Dispatch delivers one notification.
	// A nil return means the notification was handed off successfully.
	Dispatch(ctx context.Context, n *model.Notification) error
}

// NoOpNotificationSink is a no-op implementation of NotificationSink.
// Use this when outbound notifications are not needed.
type NoOpNotificationSink struct{}

// Dispatch does nothing.
func (s *NoOpNotificationSink) Dispatch(_ context.Context, _ *model.Notification) error {
	return nil
}

// LoggingNotificationSink is a simple implementation that logs notifications.
type LoggingNotificationSink struct {
	logger Logger
}

// NewLoggingNotificationSink creates a new LoggingNotificationSink.
func NewLoggingNotificationSink(logger Logger) *LoggingNotificationSink {
	return &LoggingNotificationSink{logger: logger}
}

// Dispatch logs the notification.
func (s *LoggingNotificationSink) Dispatch(_ context.Context, n *model.Notification) error {
	s.logger.Infof("📣 Notification: type=%s, event_id=%s, subject=%s",
		n.Type, n.EventID, n.Subject)
	return nil
}

// Default recipient for catalog notifications. Until per-user subscriptions
// exist, every notification goes to the shared catalog team inbox.
const (
	DefaultRecipientEmail = "catalog-team@shelfstream.io"
	DefaultRecipientName  = "Catalog Team"
)

// BuildNotification renders the notification for a consumed event.
// It is a pure function of the envelope: same event in, same text out.
//
// Each event type has its own template and notification type, so downstream
// channels can route created, updated, and deleted books differently.
func BuildNotification(event model.Event) (*model.Notification, error) {
	title := "unknown"
	var id int64
	if event.Book != nil {
		title = event.Book.Title
		id = event.Book.ID
	} else {
		id = event.AggregateID
	}

	var n *model.Notification
	switch event.EventType {
	case model.EventTypeBookCreated:
		n = model.NewNotification(
			event.EventID,
			model.NotificationBookCreated,
			fmt.Sprintf("New book added: %s", title),
			fmt.Sprintf("Book %q (id=%d) was added to the catalog.", title, id),
			event.CorrelationID,
		)

	case model.EventTypeBookUpdated:
		body := fmt.Sprintf("Book %q (id=%d) was updated.", title, id)
		if len(event.Previous) > 0 {
			body = fmt.Sprintf("Book %q (id=%d) was updated; %d field(s) changed.", title, id, len(event.Previous))
		}
		n = model.NewNotification(
			event.EventID,
			model.NotificationBookUpdated,
			fmt.Sprintf("Book updated: %s", title),
			body,
			event.CorrelationID,
		)

	case model.EventTypeBookDeleted:
		n = model.NewNotification(
			event.EventID,
			model.NotificationBookDeleted,
			fmt.Sprintf("Book removed: %s", title),
			fmt.Sprintf("Book %q (id=%d) was removed from the catalog (%s delete).", title, id, event.DeletionType),
			event.CorrelationID,
		)

	default:
		return nil, NewError(ErrCodeValidation, "no notification template for event type: "+event.EventType)
	}

	n.RecipientEmail = DefaultRecipientEmail
	n.RecipientName = DefaultRecipientName
	n.ReferenceID = id
	n.ReferenceType = event.AggregateType
	return n, nil
}
