// Package kafka publishes order events to a Kafka topic. Messages are keyed
// by order id so each order's events land on one partition in sequence
// order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/louisbranch/ordercore/internal/messaging"
)

// ErrBrokersRequired indicates no broker addresses were configured.
var ErrBrokersRequired = errors.New("at least one kafka broker is required")

// ErrTopicRequired indicates no topic was configured.
var ErrTopicRequired = errors.New("kafka topic is required")

// Publisher writes order event envelopes to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher builds a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, ErrBrokersRequired
	}
	if topic == "" {
		return nil, ErrTopicRequired
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: writer}, nil
}

// Publish writes the envelopes in order within a single batch.
func (p *Publisher) Publish(ctx context.Context, envelopes ...messaging.Envelope) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher is not initialized")
	}
	if len(envelopes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(envelopes))
	for _, env := range envelopes {
		msg, err := buildMessage(env)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish order events: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func buildMessage(env messaging.Envelope) (kafkago.Message, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode envelope for order %s seq %d: %w", env.OrderID, env.Seq, err)
	}
	return kafkago.Message{
		Key:   []byte(env.OrderID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}, nil
}
