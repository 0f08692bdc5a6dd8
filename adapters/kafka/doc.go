// Package kafka provides the Kafka transport for catalog events, built on
// IBM/sarama.
//
// The Gateway implements catalog.BrokerGateway over a synchronous producer;
// the Consumer runs a consumer group that feeds claims into a
// catalog.EventConsumer. Both support PLAINTEXT, SASL_PLAINTEXT, and
// SASL_SSL with PLAIN or SCRAM authentication.
package kafka
