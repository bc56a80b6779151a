package models

import "time"

// OrderEventType names a ledger lifecycle event
type OrderEventType string

const (
	EventOrderCreated      OrderEventType = "order_created"
	EventItemStatusChanged OrderEventType = "item_status_changed"
	EventItemDeleted       OrderEventType = "item_deleted"
	EventPaymentToggled    OrderEventType = "payment_toggled"
	EventOrderClosed       OrderEventType = "order_closed"
	EventOrderCancelled    OrderEventType = "order_cancelled"
)

// OrderEvent is broadcast on the notifications exchange after a ledger mutation
type OrderEvent struct {
	Type        OrderEventType `json:"type"`
	OrderID     int64          `json:"order_id"`
	ItemID      int64          `json:"item_id,omitempty"`
	ItemStatus  ItemStatus     `json:"item_status,omitempty"`
	PaymentDone *bool          `json:"payment_done,omitempty"`
	Total       *int64         `json:"total,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewOrderEvent creates an event stamped with the current UTC time
func NewOrderEvent(eventType OrderEventType, orderID int64) OrderEvent {
	return OrderEvent{
		Type:      eventType,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is used when the event travels over a topic exchange
func (e OrderEvent) RoutingKey() string {
	return "orders." + string(e.Type)
}
