package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foodly/storefront/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestNewRatingKeyedByFood(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w, zerolog.Nop())

	require.NoError(t, p.NewRating(context.Background(), NewRating{FoodID: "42", OrderID: "7", Stars: 5}))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, TopicRatings, msg.Topic)
	assert.Equal(t, "42", string(msg.Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, TypeNewRating, got["type"])
	assert.Equal(t, float64(42), got["food_id"])
	assert.NotEmpty(t, got["timestamp"])
}

func TestOrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w, zerolog.Nop())
	cust := uuid.New()

	err := p.OrderPlaced(context.Background(), OrderPlaced{
		OrderID:    "501",
		CustomerID: cust,
		ItemCount:  2,
		Total:      decimal.NewFromInt(145000),
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, TopicOrders, w.msgs[0].Topic)
	assert.Equal(t, "501", string(w.msgs[0].Key))

	var got OrderPlaced
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, TypeOrderPlaced, got.Type)
	assert.Equal(t, cust, got.CustomerID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(145000)))
}

func TestPublishError(t *testing.T) {
	p := NewPublisher(&fakeWriter{err: errors.New("broker down")}, zerolog.Nop())
	err := p.NewRating(context.Background(), NewRating{FoodID: "1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestPublisherWithoutWriter(t *testing.T) {
	p := NewPublisher(nil, zerolog.Nop())
	assert.NoError(t, p.OrderPlaced(context.Background(), OrderPlaced{OrderID: "1"}))
	assert.NoError(t, p.Close())
}

type fakeReader struct {
	msgs chan kafka.Message
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeReader) Close() error { return nil }

func TestConsumeStatus(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 4)}
	r.msgs <- kafka.Message{Value: []byte(`{"order_id": 7, "status": "Đang giao"}`)}
	r.msgs <- kafka.Message{Value: []byte(`not json`)}
	r.msgs <- kafka.Message{Key: []byte("8"), Value: []byte(`{"status": "DELIVERED"}`)}
	r.msgs <- kafka.Message{Value: []byte(`{"status": "DELIVERED"}`)}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan StatusChanged, 4)
	done := make(chan error, 1)
	go func() {
		done <- ConsumeStatus(ctx, r, zerolog.Nop(), func(e StatusChanged) { got <- e })
	}()

	first := <-got
	assert.Equal(t, model.ID("7"), first.OrderID)
	assert.Equal(t, model.OrderStatusDelivering, first.Status)
	assert.Equal(t, TypeStatusChanged, first.Type)

	second := <-got
	assert.Equal(t, model.ID("8"), second.OrderID)
	assert.Equal(t, model.OrderStatusDelivered, second.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
	assert.Empty(t, got)
}
