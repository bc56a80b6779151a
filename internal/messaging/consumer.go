package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
)

// ErrDiscard tells the consumer to drop a message instead of requeueing it
var ErrDiscard = errors.New("discard message")

// MessageHandler processes one delivery. Returning nil acks it, an error
// wrapping ErrDiscard rejects it and any other error requeues it.
type MessageHandler func(ctx context.Context, delivery amqp091.Delivery) error

// Consumer handles message consumption from RabbitMQ
type Consumer struct {
	conn        *Connection
	logger      *logger.Logger
	queueName   string
	consumerTag string
	prefetch    int
}

// NewConsumer creates a new message consumer
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:        conn,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// StartConsuming consumes from the queue until ctx is done
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	if c.conn.IsClosed() {
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	err := c.conn.Channel().Qos(
		c.prefetch, // prefetch count
		0,          // prefetch size
		false,      // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.conn.Channel().Consume(
		c.queueName,   // queue
		c.consumerTag, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"prefetch": c.prefetch,
		})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer_stopped", "Consumer stopped by context", "", nil)
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("consumer_channel_closed", "Message channel closed, attempting to reconnect", "", nil, nil)
				if err := c.conn.Reconnect(); err != nil {
					return fmt.Errorf("failed to reconnect after channel closed: %w", err)
				}
				return c.StartConsuming(ctx, handler)
			}

			c.processMessage(ctx, d, handler)
		}
	}
}

// processMessage handles a single message
func (c *Consumer) processMessage(ctx context.Context, delivery amqp091.Delivery, handler MessageHandler) {
	startTime := time.Now()

	c.logger.Debug("message_received",
		"Processing message",
		delivery.CorrelationId, map[string]interface{}{
			"queue":        c.queueName,
			"routing_key":  delivery.RoutingKey,
			"message_size": len(delivery.Body),
			"delivery_tag": delivery.DeliveryTag,
		})

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := handler(processingCtx, delivery)
	duration := time.Since(startTime)

	if err != nil {
		requeue := !errors.Is(err, ErrDiscard)
		c.logger.Error("message_processing_failed",
			"Failed to process message",
			delivery.CorrelationId, err, map[string]interface{}{
				"queue":        c.queueName,
				"routing_key":  delivery.RoutingKey,
				"duration_ms":  duration.Milliseconds(),
				"delivery_tag": delivery.DeliveryTag,
				"requeue":      requeue,
			})

		if nackErr := delivery.Nack(false, requeue); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", delivery.CorrelationId, nackErr, nil)
		}
		return
	}

	c.logger.Debug("message_processed",
		"Successfully processed message",
		delivery.CorrelationId, map[string]interface{}{
			"queue":        c.queueName,
			"routing_key":  delivery.RoutingKey,
			"duration_ms":  duration.Milliseconds(),
			"delivery_tag": delivery.DeliveryTag,
		})

	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("message_ack_failed", "Failed to ack message", delivery.CorrelationId, ackErr, nil)
	}
}

// Close cancels the consumer and closes its connection
func (c *Consumer) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Channel().Cancel(c.consumerTag, false); err != nil {
			c.logger.Error("consumer_cancel_failed", "Failed to cancel consumer", "", err, nil)
		}
		return c.conn.Close()
	}
	return nil
}
