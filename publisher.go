package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shelfstream/catalog/model"
	"github.com/shelfstream/catalog/retry"
)

// BrokerGateway abstracts the message broker used for outbound events.
// Implementations send a serialized payload to the given exchange with the
// given routing key and transport headers.
type BrokerGateway interface {
	// Send delivers one message to the broker.
	// A nil return means the broker acknowledged the message.
	Send(ctx context.Context, exchange, routingKey string, payload []byte, headers model.Attributes) error
}

// Publisher serializes event envelopes and delivers them to the broker.
//
// Delivery is at-least-once: the event ID is assigned when the envelope is
// built and reused across every retry attempt, so consumers can deduplicate
// redeliveries.
type Publisher struct {
	gateway  BrokerGateway
	strategy retry.Strategy
	logger   Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher) error

// NewPublisher creates a new Publisher with the provided options.
//
// Required options:
//   - WithPublisherGateway: broker gateway instance
//   - WithPublisherLogger: logger instance
//
// Example:
//
//	publisher, err := catalog.NewPublisher(
//	    catalog.WithPublisherGateway(gateway),
//	    catalog.WithPublisherLogger(logger),
//	)
func NewPublisher(opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		strategy: retry.DefaultStrategy(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply publisher option", err)
		}
	}

	// Validate required dependencies
	if p.gateway == nil {
		return nil, NewError(ErrCodeConfiguration, "BrokerGateway is required (use WithPublisherGateway)")
	}
	if p.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithPublisherLogger)")
	}

	return p, nil
}

// WithPublisherGateway sets the broker gateway dependency.
func WithPublisherGateway(gateway BrokerGateway) PublisherOption {
	return func(p *Publisher) error {
		if gateway == nil {
			return fmt.Errorf("gateway cannot be nil")
		}
		p.gateway = gateway
		return nil
	}
}

// WithPublisherLogger sets the logger instance.
func WithPublisherLogger(logger Logger) PublisherOption {
	return func(p *Publisher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// WithPublisherRetryStrategy overrides the default retry strategy used by
// PublishWithRetry.
func WithPublisherRetryStrategy(s retry.Strategy) PublisherOption {
	return func(p *Publisher) error {
		if s.MaxAttempts < 1 {
			return fmt.Errorf("retry strategy must allow at least one attempt")
		}
		p.strategy = s
		return nil
	}
}

// Publish makes a single delivery attempt for the event.
//
// The process:
//  1. Validate the envelope
//  2. Serialize it to JSON
//  3. Send it to the exchange with the event's routing key and headers
//
// A failed attempt returns a PUBLISH_ERROR wrapping the broker error.
func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	if err := event.Validate(); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "invalid event envelope", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return NewErrorWithCause(ErrCodeValidation, "failed to serialize event", err)
	}

	if err := p.gateway.Send(ctx, model.ExchangeName, event.RoutingKey(), payload, event.Headers()); err != nil {
		return NewErrorWithCause(ErrCodePublish,
			fmt.Sprintf("failed to publish event %s (%s)", event.EventID, event.EventType), err)
	}

	p.logger.Infof("Event published: id=%s, type=%s, routingKey=%s",
		event.EventID, event.EventType, event.RoutingKey())

	return nil
}

// PublishWithRetry delivers the event, retrying failed attempts on a linear
// backoff schedule (attempt number times base delay). The same envelope,
// including its event ID, is sent on every attempt.
//
// Returns nil on the first successful attempt. If the context is cancelled
// while waiting between attempts, returns RETRY_ABORTED. If every attempt
// fails, returns RETRY_EXHAUSTED wrapping the last attempt's error.
func (p *Publisher) PublishWithRetry(ctx context.Context, event model.Event) error {
	var lastErr error

	for attempt := 1; attempt <= p.strategy.MaxAttempts; attempt++ {
		lastErr = p.Publish(ctx, event)
		if lastErr == nil {
			if attempt > 1 {
				p.logger.Infof("Event %s published after %d attempts", event.EventID, attempt)
			}
			return nil
		}

		if attempt == p.strategy.MaxAttempts {
			break
		}

		delay := p.strategy.Delay(attempt)
		p.logger.Warnf("Publish attempt %d/%d failed for event %s, retrying in %v: %v",
			attempt, p.strategy.MaxAttempts, event.EventID, delay, lastErr)

		if err := sleepCtx(ctx, delay); err != nil {
			return NewErrorWithCause(ErrCodeRetryAborted,
				fmt.Sprintf("publish retry aborted for event %s after %d attempts", event.EventID, attempt), err)
		}
	}

	p.logger.Errorf("Publish retries exhausted for event %s after %d attempts: %v",
		event.EventID, p.strategy.MaxAttempts, lastErr)

	return NewErrorWithCause(ErrCodeRetryExhausted,
		fmt.Sprintf("all %d publish attempts failed for event %s", p.strategy.MaxAttempts, event.EventID), lastErr)
}

// sleepCtx waits for the given duration or until the context is done,
// whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
