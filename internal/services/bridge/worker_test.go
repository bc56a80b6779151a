package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/adapter/memory"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/analytics"
	"restaurant-pos/internal/services/catalog"
	"restaurant-pos/internal/services/facade"
	"restaurant-pos/internal/services/ledger"
)

type sentReply struct {
	replyTo       string
	correlationID string
	response      facade.Response
}

type recordingReplier struct {
	replies []sentReply
	err     error
}

func (r *recordingReplier) Reply(ctx context.Context, replyTo, correlationID string, response interface{}) error {
	if r.err != nil {
		return r.err
	}
	r.replies = append(r.replies, sentReply{replyTo, correlationID, response.(facade.Response)})
	return nil
}

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

func newFacade() *facade.Facade {
	store := memory.New(models.Dish{Name: "Dish A", Category: "Mains", Price: 100})
	log := logger.Discard()
	cat := catalog.NewService(store, log)
	led := ledger.NewService(store, cat, nil, log, ledger.Options{Location: time.UTC})
	return facade.New(cat, led, analytics.NewService(store, log, time.UTC), log)
}

func TestWorker_RoundTrip(t *testing.T) {
	consumer := &stubConsumer{deliveries: []amqp091.Delivery{
		{
			ReplyTo:       "amq.rabbitmq.reply-to",
			CorrelationId: "c-1",
			Body:          []byte(`{"operation":"createOrder","payload":{"tag":"T1","items":[{"id":1,"quantity":3}]}}`),
		},
		{
			ReplyTo:       "amq.rabbitmq.reply-to",
			CorrelationId: "c-2",
			Body:          []byte(`{"request_id":"r-2","operation":"toggleOrderPayment","payload":{"order_id":99}}`),
		},
		{
			CorrelationId: "c-3",
			Body:          []byte(`{"operation":"getOrders"}`),
		},
	}}
	replier := &recordingReplier{}
	w := NewWorker(consumer, newFacade(), replier, logger.Discard())

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, consumer.closed)

	for _, err := range consumer.results {
		assert.NoError(t, err)
	}

	require.Len(t, replier.replies, 2)

	first := replier.replies[0]
	assert.Equal(t, "amq.rabbitmq.reply-to", first.replyTo)
	assert.Equal(t, "c-1", first.correlationID)
	assert.True(t, first.response.Success)
	assert.Equal(t, facade.Ack{Success: true, OrderID: 1}, first.response.Result)

	second := replier.replies[1]
	assert.Equal(t, "r-2", second.correlationID)
	assert.False(t, second.response.Success)
	assert.Equal(t, models.KindNotFound, second.response.ErrorKind)
	assert.Equal(t, facade.PaymentResult{}, second.response.Result)
}

func TestWorker_MalformedEnvelopeIsDiscarded(t *testing.T) {
	replier := &recordingReplier{}
	w := NewWorker(&stubConsumer{}, newFacade(), replier, logger.Discard())

	err := w.HandleDelivery(context.Background(), amqp091.Delivery{
		ReplyTo:       "replies",
		CorrelationId: "c-9",
		Body:          []byte(`{"operation":`),
	})

	assert.True(t, errors.Is(err, messaging.ErrDiscard))
	require.Len(t, replier.replies, 1)
	assert.Equal(t, "c-9", replier.replies[0].correlationID)
	assert.Equal(t, models.KindValidation, replier.replies[0].response.ErrorKind)
}

func TestWorker_ReplyFailureDoesNotRepeatMutation(t *testing.T) {
	f := newFacade()
	replier := &recordingReplier{err: errors.New("channel closed")}
	w := NewWorker(&stubConsumer{}, f, replier, logger.Discard())

	delivery := amqp091.Delivery{
		ReplyTo:       "replies",
		CorrelationId: "r-1",
		Body:          []byte(`{"request_id":"r-1","operation":"createOrder","payload":{"tag":"T1","items":[{"id":1,"quantity":1}]}}`),
	}

	err := w.HandleDelivery(context.Background(), delivery)
	require.Error(t, err)
	assert.True(t, errors.Is(err, messaging.ErrDiscard))

	resp := f.Handle(context.Background(), facade.Request{Operation: facade.OpGetOrders})
	require.True(t, resp.Success)
	assert.Len(t, resp.Result.([]facade.OrderView), 1)
}
