package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/metrics"
	"github.com/shelfstream/catalog/model"
)

// Consumer runs a sarama consumer group and feeds every claimed message
// into a catalog.EventConsumer.
type Consumer struct {
	client  sarama.ConsumerGroup
	topics  []string
	handler *groupHandler
	logger  catalog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a consumer group subscribed to the given topics.
// metrics may be nil when instrumentation is not wanted.
func NewConsumer(cfg Config, topics []string, processor *catalog.EventConsumer, m *metrics.Metrics, logger catalog.Logger) (*Consumer, error) {
	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("consumer group is required")
	}

	saramaConfig, err := newSaramaConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Infof("Kafka consumer group created: group=%s, topics=%v", cfg.ConsumerGroup, topics)

	return &Consumer{
		client: client,
		topics: topics,
		logger: logger,
		handler: &groupHandler{
			processor: processor,
			metrics:   m,
			logger:    logger,
		},
	}, nil
}

// Start begins consuming in a background goroutine.
// Consume is re-entered after every rebalance until Stop is called.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.client.Consume(ctx, c.topics, c.handler); err != nil {
				c.logger.Errorf("Consumer group error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.logger.Infof("Kafka consumer started: topics=%v", c.topics)
}

// Stop shuts the consumer down and waits for in-flight claims to finish.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}

	c.logger.Info("Kafka consumer stopped")
	return nil
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	processor *catalog.EventConsumer
	metrics   *metrics.Metrics
	logger    catalog.Logger
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Debugf("Consumer group session started")
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Debugf("Consumer group session ended")
	return nil
}

// ConsumeClaim processes messages from one partition.
//
// Poison payloads are dead-lettered by the event consumer and their offsets
// advance. Infrastructure failures (notification save, sink dispatch) leave
// the offset unmarked so the broker redelivers the message; the idempotency
// ledger keeps the eventual retry from dispatching twice.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.processMessage(session.Context(), message); err == nil {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	headers := make(model.Attributes, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[string(header.Key)] = string(header.Value)
	}

	result, err := h.processor.HandleMessage(ctx, msg.Value, headers)
	if err != nil {
		h.logger.Errorf("Failed to process message (topic=%s, partition=%d, offset=%d): %v",
			msg.Topic, msg.Partition, msg.Offset, err)
	}

	if h.metrics != nil {
		h.metrics.EventsConsumed.WithLabelValues(headers["event-type"], string(result.State)).Inc()
		if result.Skipped {
			h.metrics.EventsSkipped.Inc()
		}
		if result.State == catalog.StateFailed && err == nil {
			// nil error with a failed state means the payload was dead-lettered
			h.metrics.EventsDeadLettered.Inc()
		}
	}

	return err
}

// DeadLetterGateway forwards undecodable payloads to a dead-letter topic
// via the producer gateway.
type DeadLetterGateway struct {
	gateway *Gateway
	topic   string
}

// NewDeadLetterGateway creates a DeadLetterer targeting the given topic.
func NewDeadLetterGateway(gateway *Gateway, topic string) *DeadLetterGateway {
	return &DeadLetterGateway{gateway: gateway, topic: topic}
}

// DeadLetter publishes the payload unchanged to the dead-letter topic,
// attaching the failure cause as an extra header.
func (d *DeadLetterGateway) DeadLetter(ctx context.Context, payload []byte, headers model.Attributes, cause error) error {
	enriched := make(model.Attributes, len(headers)+1)
	for k, v := range headers {
		enriched[k] = v
	}
	enriched["dead-letter-reason"] = cause.Error()

	return d.gateway.Send(ctx, d.topic, headers["routing-key"], payload, enriched)
}

// Ensure DeadLetterGateway implements catalog.DeadLetterer.
var _ catalog.DeadLetterer = (*DeadLetterGateway)(nil)
