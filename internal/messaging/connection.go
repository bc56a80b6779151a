package messaging

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/logger"
)

// Topology names
const (
	// OrderEventsExchange fans ledger lifecycle events out to subscribers
	OrderEventsExchange = "order_events_fanout"
	// OrderEventsQueue is the shared queue of the notification subscriber
	OrderEventsQueue = "order_events_queue"
	// RequestQueue carries facade requests to the bridge worker
	RequestQueue = "pos_requests"
)

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New creates a new RabbitMQ connection
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := c.setupTopology(); setupErr != nil {
					c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, map[string]interface{}{"attempt": i + 1})
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// setupTopology declares the events exchange, its queue and the request queue
func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		OrderEventsExchange, // name
		"fanout",            // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", OrderEventsExchange, err)
	}

	_, err = c.channel.QueueDeclare(
		OrderEventsQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", OrderEventsQueue, err)
	}

	err = c.channel.QueueBind(
		OrderEventsQueue,    // queue name
		"",                  // routing key (ignored for fanout)
		OrderEventsExchange, // exchange
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind %s queue: %w", OrderEventsQueue, err)
	}

	_, err = c.channel.QueueDeclare(
		RequestQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		amqp091.Table{
			"x-message-ttl": 60000, // 1 minute TTL
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", RequestQueue, err)
	}

	return nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp091.Channel {
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed checks if the connection is closed
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect attempts to reconnect to RabbitMQ
func (c *Connection) Reconnect() error {
	c.close()
	return c.connect()
}
