package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	mu     sync.Mutex
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishOrderEvent broadcasts a ledger event on the order events exchange
func (p *Publisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.publish(ctx, OrderEventsExchange, event.RoutingKey(), amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Type:         string(event.Type),
	})
}

// Reply sends a response to the queue named by a request's ReplyTo
func (p *Publisher) Reply(ctx context.Context, replyTo, correlationID string, response interface{}) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	return p.publish(ctx, "", replyTo, amqp091.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp091.Transient,
		CorrelationId: correlationID,
	})
}

// publish sends one message. The channel is shared, so publishes are serialized.
func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	msg.Timestamp = time.Now()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := p.conn.Channel().PublishWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %q", exchange),
			msg.CorrelationId, err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %q", exchange),
		msg.CorrelationId, map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(msg.Body),
		})

	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.conn.Close()
}
