package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/metrics"
	"github.com/shelfstream/catalog/model"
)

// Gateway implements catalog.BrokerGateway over a synchronous sarama
// producer. The exchange maps to the Kafka topic and the routing key to the
// message key, so events for the same book land on the same partition in
// order.
type Gateway struct {
	producer sarama.SyncProducer
	metrics  *metrics.Metrics
	logger   catalog.Logger
}

// NewGateway creates a producer gateway connected to the configured brokers.
// metrics may be nil when instrumentation is not wanted.
func NewGateway(cfg Config, m *metrics.Metrics, logger catalog.Logger) (*Gateway, error) {
	saramaConfig, err := newSaramaConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Infof("Kafka producer connected: brokers=%v", cfg.Brokers)

	return &Gateway{producer: producer, metrics: m, logger: logger}, nil
}

// Send delivers one message to the topic, keyed by routing key, with the
// event metadata as record headers.
func (g *Gateway) Send(_ context.Context, exchange, routingKey string, payload []byte, headers model.Attributes) error {
	recordHeaders := make([]sarama.RecordHeader, 0, len(headers))
	for key, value := range headers {
		recordHeaders = append(recordHeaders, sarama.RecordHeader{
			Key:   []byte(key),
			Value: []byte(value),
		})
	}

	msg := &sarama.ProducerMessage{
		Topic:   exchange,
		Key:     sarama.StringEncoder(routingKey),
		Value:   sarama.ByteEncoder(payload),
		Headers: recordHeaders,
	}

	started := time.Now()
	partition, offset, err := g.producer.SendMessage(msg)
	eventType := headers["event-type"]
	if err != nil {
		if g.metrics != nil {
			g.metrics.PublishFailures.WithLabelValues(eventType).Inc()
		}
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	if g.metrics != nil {
		g.metrics.EventsPublished.WithLabelValues(eventType).Inc()
		g.metrics.PublishDuration.WithLabelValues(eventType).Observe(time.Since(started).Seconds())
	}

	g.logger.Debugf("Message delivered: topic=%s, partition=%d, offset=%d, key=%s",
		exchange, partition, offset, routingKey)

	return nil
}

// Close closes the underlying producer.
func (g *Gateway) Close() error {
	if g.producer != nil {
		return g.producer.Close()
	}
	return nil
}

// Ensure Gateway implements catalog.BrokerGateway.
var _ catalog.BrokerGateway = (*Gateway)(nil)
