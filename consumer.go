package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shelfstream/catalog/model"
)

// ProcessingState tracks how far a consumed message got through the
// consumer pipeline. States advance strictly forward; Failed is terminal.
type ProcessingState string

const (
	StateReceived          ProcessingState = "RECEIVED"
	StateDeserialized      ProcessingState = "DESERIALIZED"
	StateNotificationBuilt ProcessingState = "NOTIFICATION_BUILT"
	StateDispatched        ProcessingState = "DISPATCHED"
	StateFailed            ProcessingState = "FAILED"
)

// DeadLetterer receives payloads the consumer could not decode.
// Implementations typically forward to a dead-letter topic or log the loss.
type DeadLetterer interface {
	// DeadLetter hands off an undecodable payload with the failure cause.
	DeadLetter(ctx context.Context, payload []byte, headers model.Attributes, cause error) error
}

// LoggingDeadLetterer is a DeadLetterer that logs and drops bad payloads.
// Use this when no dead-letter topic is configured.
type LoggingDeadLetterer struct {
	logger Logger
}

// NewLoggingDeadLetterer creates a new LoggingDeadLetterer.
func NewLoggingDeadLetterer(logger Logger) *LoggingDeadLetterer {
	return &LoggingDeadLetterer{logger: logger}
}

// DeadLetter logs the dropped payload.
func (d *LoggingDeadLetterer) DeadLetter(_ context.Context, payload []byte, headers model.Attributes, cause error) error {
	d.logger.Errorf("💀 Dropping undecodable payload (%d bytes, event_id=%s): %v",
		len(payload), headers["event-id"], cause)
	return nil
}

// ProcessResult describes the outcome of one consumed message.
type ProcessResult struct {
	State   ProcessingState // Final pipeline state
	EventID string          // Event ID, once known
	Skipped bool            // True when the event was a deduplicated redelivery
}

// EventConsumer processes inbound book events: it deserializes the envelope,
// builds the matching notification, dispatches it to the sink, and records
// the event ID so redeliveries become no-ops.
//
// Pipeline per message:
//
//	Received -> Deserialized -> NotificationBuilt -> Dispatched
//
// Any failure moves the message to the terminal Failed state. Undecodable
// payloads go to the dead-letterer and are not retried; failures after
// deserialization return an error so the transport can redeliver.
type EventConsumer struct {
	notificationRepo NotificationRepository
	processedRepo    ProcessedEventRepository
	sink             NotificationSink
	deadLetterer     DeadLetterer
	logger           Logger
}

// ConsumerOption configures an EventConsumer.
type ConsumerOption func(*EventConsumer) error

// NewEventConsumer creates a new EventConsumer with the provided options.
//
// Required options:
//   - WithConsumerRepositories: notification and processed-event repositories
//   - WithConsumerLogger: logger instance
//
// Optional options:
//   - WithConsumerSink: notification sink (default: NoOpNotificationSink)
//   - WithConsumerDeadLetterer: dead-letter target (default: log and drop)
func NewEventConsumer(opts ...ConsumerOption) (*EventConsumer, error) {
	c := &EventConsumer{
		sink: &NoOpNotificationSink{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply consumer option", err)
		}
	}

	// Validate required dependencies
	if c.notificationRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "NotificationRepository is required (use WithConsumerRepositories)")
	}
	if c.processedRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "ProcessedEventRepository is required (use WithConsumerRepositories)")
	}
	if c.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithConsumerLogger)")
	}

	if c.deadLetterer == nil {
		c.deadLetterer = NewLoggingDeadLetterer(c.logger)
	}

	return c, nil
}

// WithConsumerRepositories sets the required repository dependencies.
func WithConsumerRepositories(notificationRepo NotificationRepository, processedRepo ProcessedEventRepository) ConsumerOption {
	return func(c *EventConsumer) error {
		if notificationRepo == nil {
			return fmt.Errorf("notificationRepo cannot be nil")
		}
		if processedRepo == nil {
			return fmt.Errorf("processedRepo cannot be nil")
		}
		c.notificationRepo = notificationRepo
		c.processedRepo = processedRepo
		return nil
	}
}

// WithConsumerSink sets the notification sink.
func WithConsumerSink(sink NotificationSink) ConsumerOption {
	return func(c *EventConsumer) error {
		if sink == nil {
			return fmt.Errorf("sink cannot be nil")
		}
		c.sink = sink
		return nil
	}
}

// WithConsumerDeadLetterer sets the dead-letter target for bad payloads.
func WithConsumerDeadLetterer(d DeadLetterer) ConsumerOption {
	return func(c *EventConsumer) error {
		if d == nil {
			return fmt.Errorf("deadLetterer cannot be nil")
		}
		c.deadLetterer = d
		return nil
	}
}

// WithConsumerLogger sets the logger instance.
func WithConsumerLogger(logger Logger) ConsumerOption {
	return func(c *EventConsumer) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// HandleMessage runs one payload through the consumer pipeline.
//
// Deserialization failures are dead-lettered and return a nil error so the
// transport can advance past the poison message. Failures after a
// successful decode return an error, leaving redelivery to the transport;
// the recorded event ID makes the redelivery idempotent once it succeeds.
func (c *EventConsumer) HandleMessage(ctx context.Context, payload []byte, headers model.Attributes) (ProcessResult, error) {
	result := ProcessResult{State: StateReceived}

	var event model.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		result.State = StateFailed
		c.deadLetter(ctx, payload, headers, NewErrorWithCause(ErrCodeDeserialization, "failed to decode event payload", err))
		return result, nil
	}
	if err := event.Validate(); err != nil {
		result.State = StateFailed
		c.deadLetter(ctx, payload, headers, NewErrorWithCause(ErrCodeDeserialization, "decoded payload is not a valid event", err))
		return result, nil
	}

	result.State = StateDeserialized
	result.EventID = event.EventID

	// At-least-once transport: skip identifiers already processed.
	seen, err := c.processedRepo.Exists(ctx, event.EventID)
	if err != nil {
		result.State = StateFailed
		return result, NewErrorWithCause(ErrCodeDatabase, "failed to check processed events", err)
	}
	if seen {
		result.Skipped = true
		result.State = StateDispatched
		c.logger.Debugf("Skipping already processed event %s", event.EventID)
		return result, nil
	}

	notification, err := BuildNotification(event)
	if err != nil {
		result.State = StateFailed
		c.deadLetter(ctx, payload, headers, err)
		return result, nil
	}
	result.State = StateNotificationBuilt

	if _, err := c.notificationRepo.Save(ctx, notification); err != nil {
		result.State = StateFailed
		return result, NewErrorWithCause(ErrCodeDatabase, "failed to save notification", err)
	}

	if err := c.sink.Dispatch(ctx, notification); err != nil {
		result.State = StateFailed
		return result, NewErrorWithCause(ErrCodeDelivery, "failed to dispatch notification", err)
	}
	result.State = StateDispatched

	if _, err := c.processedRepo.Save(ctx, model.NewProcessedEvent(event.EventID, event.EventType)); err != nil {
		// The notification went out; a redelivery will at worst duplicate it.
		c.logger.Warnf("Failed to record processed event %s: %v", event.EventID, err)
	}

	c.logger.Infof("Event processed: id=%s, type=%s, notification=%s",
		event.EventID, event.EventType, notification.Type)

	return result, nil
}

// RunLedgerCleanup prunes processed-event records older than retention every
// interval until ctx is canceled. Run it in its own goroutine; records only
// need to outlive the transport's redelivery window.
func (c *EventConsumer) RunLedgerCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.processedRepo.DeleteOlderThan(ctx, retention)
			if err != nil {
				c.logger.Errorf("Failed to prune processed-event ledger: %v", err)
				continue
			}
			if n > 0 {
				c.logger.Infof("🧹 Pruned %d processed-event records older than %v", n, retention)
			}
		}
	}
}

func (c *EventConsumer) deadLetter(ctx context.Context, payload []byte, headers model.Attributes, cause error) {
	if err := c.deadLetterer.DeadLetter(ctx, payload, headers, cause); err != nil {
		c.logger.Errorf("Dead-letter handoff failed: %v (original cause: %v)", err, cause)
	}
}
