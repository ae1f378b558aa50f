package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foodly/storefront/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Topics.
const (
	TopicOrders      = "orders"
	TopicRatings     = "ratings"
	TopicOrderStatus = "order-status"
)

// Message types carried in the "type" field.
const (
	TypeOrderPlaced   = "order_placed"
	TypeNewRating     = "new_rating"
	TypeStatusChanged = "order_status"
)

// OrderPlaced is emitted after upstream accepts an order.
type OrderPlaced struct {
	Type       string          `json:"type"`
	OrderID    model.ID        `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	StoreID    model.ID        `json:"store_id,omitempty"`
	ItemCount  int             `json:"item_count"`
	Total      decimal.Decimal `json:"total"`
	Payment    string          `json:"payment_method"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewRating is emitted for every rating upstream accepted.
type NewRating struct {
	Type      string    `json:"type"`
	FoodID    model.ID  `json:"food_id"`
	OrderID   model.ID  `json:"order_id"`
	StoreID   model.ID  `json:"store_id,omitempty"`
	Stars     int       `json:"stars"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusChanged is consumed from the order-status topic.
type StatusChanged struct {
	Type      string            `json:"type"`
	OrderID   model.ID          `json:"order_id"`
	Status    model.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes domain events to Kafka. A Publisher without a writer
// drops events with a warning, which is how the service runs without brokers.
type Publisher struct {
	w   Writer
	log zerolog.Logger
	now func() time.Time
}

func NewPublisher(w Writer, log zerolog.Logger) *Publisher {
	return &Publisher{w: w, log: log.With().Str("component", "events").Logger(), now: time.Now}
}

// NewKafkaWriter builds a writer that routes by message topic and partitions by key.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func (p *Publisher) OrderPlaced(ctx context.Context, e OrderPlaced) error {
	e.Type = TypeOrderPlaced
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now().UTC()
	}
	return p.publish(ctx, TopicOrders, e.OrderID.String(), e)
}

// NewRating publishes keyed by food id so one food's ratings stay ordered.
func (p *Publisher) NewRating(ctx context.Context, e NewRating) error {
	e.Type = TypeNewRating
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now().UTC()
	}
	return p.publish(ctx, TopicRatings, e.FoodID.String(), e)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, v any) error {
	if p.w == nil {
		p.log.Warn().Str("topic", topic).Msg("no kafka writer configured, skipping publish")
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: b}); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewStatusReader(brokers []string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   TopicOrderStatus,
		GroupID: groupID,
	})
}

// ConsumeStatus reads order status changes until ctx is cancelled. Malformed
// messages are logged and skipped.
func ConsumeStatus(ctx context.Context, r Reader, log zerolog.Logger, handle func(StatusChanged)) error {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Msg("read order-status message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		var e StatusChanged
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Warn().Err(err).Str("key", string(msg.Key)).Msg("skip malformed order-status message")
			continue
		}
		if e.OrderID.IsZero() {
			e.OrderID = model.ID(msg.Key)
		}
		if e.OrderID.IsZero() || e.Status == "" {
			log.Warn().Str("key", string(msg.Key)).Msg("skip order-status message without order or status")
			continue
		}
		e.Type = TypeStatusChanged
		handle(e)
	}
}
