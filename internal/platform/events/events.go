// Package events publishes audit events for address book mutations to the
// platform bus. Publishing is fail-open: a bus outage must never fail the
// business operation, so errors are reported to the caller for logging only.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event types emitted by the record service.
const (
	TypeAddressCreated = "address_created"
	TypeAddressRenamed = "address_renamed"
	TypeAddressDeleted = "address_deleted"
)

// Event is one audit record describing an address book mutation.
type Event struct {
	Type      string    `json:"type"`
	EntryID   int64     `json:"adbkid"`
	OwnerID   int64     `json:"uid"`
	NetworkID string    `json:"netid"`
	Name      string    `json:"name,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits events to a Kafka topic, keyed by owner so one user's
// audit trail stays ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects a Kafka producer for the given brokers and topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Emit publishes one event, blocking until the broker acknowledges it or the
// context ends.
func (p *Publisher) Emit(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   fmt.Appendf(nil, "%d", ev.OwnerID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the producer.
func (p *Publisher) Close() {
	p.client.Close()
}
