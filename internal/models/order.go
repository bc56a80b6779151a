package models

import (
	"fmt"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderOpen   OrderStatus = "OPEN"
	OrderClosed OrderStatus = "CLOSED"
)

// ItemStatus represents the status of a single order line
type ItemStatus string

const (
	ItemPending   ItemStatus = "PENDING"
	ItemServed    ItemStatus = "SERVED"
	ItemCancelled ItemStatus = "CANCELLED"
)

// Toggled returns the status after a served toggle.
// CANCELLED is terminal and stays as is.
func (s ItemStatus) Toggled() ItemStatus {
	switch s {
	case ItemServed:
		return ItemPending
	case ItemPending:
		return ItemServed
	default:
		return s
	}
}

// OrderItem is one line of an order. Name and price are snapshots of the
// catalog at insert time; Category is read through the dish reference.
type OrderItem struct {
	ID       int64      `json:"id" db:"id"`
	OrderID  int64      `json:"order_id" db:"order_id"`
	DishID   int64      `json:"dish_id" db:"dish_id"`
	Quantity int        `json:"quantity" db:"quantity"`
	Name     string     `json:"name" db:"name_snapshot"`
	Price    int64      `json:"price" db:"price_snapshot"`
	Status   ItemStatus `json:"status" db:"status"`
	Category string     `json:"category,omitempty" db:"category"`
}

// LineTotal is quantity times the snapshot price
func (i OrderItem) LineTotal() int64 {
	return int64(i.Quantity) * i.Price
}

// Order represents a customer order
type Order struct {
	ID          int64       `json:"id" db:"id"`
	Tag         string      `json:"tag" db:"tag"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	Status      OrderStatus `json:"status" db:"status"`
	PaymentDone bool        `json:"payment_done" db:"payment_done"`
	Total       int64       `json:"total" db:"total"`
	Items       []OrderItem `json:"items"`
}

// ItemsTotal sums every line regardless of item status. This is the value
// stored in Order.Total; analytics revenue excludes cancelled lines instead.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}

// ActiveQuantity sums quantities of non-cancelled lines
func (o *Order) ActiveQuantity() int {
	n := 0
	for _, item := range o.Items {
		if item.Status != ItemCancelled {
			n += item.Quantity
		}
	}
	return n
}

// Settled reports whether the order counts for analytics
func (o *Order) Settled() bool {
	return o.Status == OrderClosed && o.PaymentDone
}

// OrderLine is a requested line of a new order
type OrderLine struct {
	DishID   int64 `json:"dish_id"`
	Quantity int   `json:"quantity"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	Tag   string      `json:"tag"`
	Items []OrderLine `json:"items"`
}

// Validate validates the create order request
func (req *CreateOrderRequest) Validate() error {
	if len(req.Tag) > 100 {
		return ValidationError{Field: "tag", Message: "tag must not exceed 100 characters"}
	}
	if len(req.Items) == 0 {
		return ValidationError{Field: "items", Message: "items cannot be empty"}
	}
	for i, line := range req.Items {
		if line.DishID <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].dish_id", i),
				Message: "dish id is required",
			}
		}
		if line.Quantity <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be greater than 0",
			}
		}
	}
	return nil
}
