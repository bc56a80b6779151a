package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

// Consumer delivers messages to a handler until ctx is done
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints order lifecycle events for the floor staff
type Subscriber struct {
	consumer Consumer
	logger   *logger.Logger
	out      io.Writer
}

// NewSubscriber creates a new notification subscriber writing to stdout
func NewSubscriber(consumer Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      os.Stdout,
	}
}

// Start consumes events until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.HandleDelivery)

	s.logger.Info("graceful_shutdown", "Closing notification consumer", requestID, nil)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	return err
}

// HandleDelivery parses one order event and displays it. Malformed events
// are discarded rather than requeued.
func (s *Subscriber) HandleDelivery(ctx context.Context, d amqp091.Delivery) error {
	var event models.OrderEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("failed to parse order event: %v: %w", err, messaging.ErrDiscard)
	}

	fmt.Fprintln(s.out, FormatEvent(event))

	s.logger.Info("notification_displayed", "Order event displayed", d.CorrelationId, map[string]interface{}{
		"type":     event.Type,
		"order_id": event.OrderID,
	})
	return nil
}

// FormatEvent renders an event as one human readable line
func FormatEvent(e models.OrderEvent) string {
	timestamp := e.Timestamp.Local().Format("2006-01-02 15:04:05")

	switch e.Type {
	case models.EventOrderCreated:
		return fmt.Sprintf("[%s] Order #%d created, total %s", timestamp, e.OrderID, formatAmount(e.Total))
	case models.EventItemStatusChanged:
		return fmt.Sprintf("[%s] Order #%d item %d is now %s", timestamp, e.OrderID, e.ItemID, e.ItemStatus)
	case models.EventItemDeleted:
		return fmt.Sprintf("[%s] Order #%d item %d removed", timestamp, e.OrderID, e.ItemID)
	case models.EventPaymentToggled:
		state := "unpaid"
		if e.PaymentDone != nil && *e.PaymentDone {
			state = "paid"
		}
		return fmt.Sprintf("[%s] Order #%d marked %s", timestamp, e.OrderID, state)
	case models.EventOrderClosed:
		return fmt.Sprintf("[%s] Order #%d closed, total %s", timestamp, e.OrderID, formatAmount(e.Total))
	case models.EventOrderCancelled:
		return fmt.Sprintf("[%s] Order #%d cancelled", timestamp, e.OrderID)
	default:
		return fmt.Sprintf("[%s] Order #%d: %s", timestamp, e.OrderID, e.Type)
	}
}

// formatAmount prints minor units as a decimal amount
func formatAmount(total *int64) string {
	if total == nil {
		return "n/a"
	}
	return decimal.New(*total, -2).StringFixed(2)
}
