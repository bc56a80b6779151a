package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

type stubConsumer struct {
	deliveries []amqp091.Delivery
	results    []error
	closed     bool
}

func (c *stubConsumer) StartConsuming(ctx context.Context, handler messaging.MessageHandler) error {
	for _, d := range c.deliveries {
		c.results = append(c.results, handler(ctx, d))
	}
	return nil
}

func (c *stubConsumer) Close() error {
	c.closed = true
	return nil
}

func TestFormatEvent(t *testing.T) {
	total := int64(1250)
	paid := true
	ts := time.Date(2024, 5, 15, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name  string
		event models.OrderEvent
		want  string
	}{
		{
			name:  "created",
			event: models.OrderEvent{Type: models.EventOrderCreated, OrderID: 7, Total: &total, Timestamp: ts},
			want:  "[2024-05-15 12:00:00] Order #7 created, total 12.50",
		},
		{
			name:  "item served",
			event: models.OrderEvent{Type: models.EventItemStatusChanged, OrderID: 7, ItemID: 3, ItemStatus: models.ItemServed, Timestamp: ts},
			want:  "[2024-05-15 12:00:00] Order #7 item 3 is now SERVED",
		},
		{
			name:  "paid",
			event: models.OrderEvent{Type: models.EventPaymentToggled, OrderID: 7, PaymentDone: &paid, Timestamp: ts},
			want:  "[2024-05-15 12:00:00] Order #7 marked paid",
		},
		{
			name:  "closed without total",
			event: models.OrderEvent{Type: models.EventOrderClosed, OrderID: 7, Timestamp: ts},
			want:  "[2024-05-15 12:00:00] Order #7 closed, total n/a",
		},
		{
			name:  "cancelled",
			event: models.OrderEvent{Type: models.EventOrderCancelled, OrderID: 7, Timestamp: ts},
			want:  "[2024-05-15 12:00:00] Order #7 cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEvent(tt.event))
		})
	}
}

func TestSubscriber_Start(t *testing.T) {
	consumer := &stubConsumer{deliveries: []amqp091.Delivery{
		{Body: []byte(`{"type":"order_cancelled","order_id":4,"timestamp":"2024-05-15T12:00:00Z"}`)},
		{Body: []byte(`not json`)},
	}}
	var out bytes.Buffer
	s := NewSubscriber(consumer, logger.Discard())
	s.out = &out

	require.NoError(t, s.Start(context.Background()))

	assert.True(t, consumer.closed)
	require.Len(t, consumer.results, 2)
	assert.NoError(t, consumer.results[0])
	assert.True(t, errors.Is(consumer.results[1], messaging.ErrDiscard))
	assert.Contains(t, out.String(), "Order #4 cancelled")
}
