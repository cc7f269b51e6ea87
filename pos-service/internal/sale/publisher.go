package sale

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const EventSaleCompleted = "sale.completed"

// Event is published after a sale's inventory change was persisted.
type Event struct {
	ReceiptID   string            `json:"receipt_id"`
	StoreID     string            `json:"store_id"`
	Employee    string            `json:"employee"`
	Items       []domain.CartItem `json:"items"`
	Total       decimal.Decimal   `json:"total_amount"`
	Currency    string            `json:"currency"`
	CompletedAt time.Time         `json:"completed_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes sale events keyed by store, so one store's sales stay
// ordered on a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := newMessage(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish sale %s: %w", e.ReceiptID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(e Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal sale event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.StoreID),
		Value: payload,
		Time:  e.CompletedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventSaleCompleted)},
			{Key: "receipt_id", Value: []byte(e.ReceiptID)},
		},
	}, nil
}
