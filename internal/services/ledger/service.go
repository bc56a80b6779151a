package ledger

import (
	"context"
	"fmt"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Repository is the order storage the ledger needs
type Repository interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetItem(ctx context.Context, orderID, itemID int64) (*models.OrderItem, error)
	ItemOrderID(ctx context.Context, itemID int64) (int64, error)
	SetItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) error
	DeleteItem(ctx context.Context, itemID int64) (int64, error)
	SetPayment(ctx context.Context, orderID int64, done bool) error
	CloseOrder(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
	RecalcTotal(ctx context.Context, orderID int64) (int64, error)
	ListActiveOrders(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

// DishLookup resolves catalog entries at order time
type DishLookup interface {
	GetDish(ctx context.Context, id int64) (*models.Dish, error)
}

// Publisher receives lifecycle events after successful mutations
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// Options tunes ledger behaviour
type Options struct {
	// Location defines day boundaries for the "today" order list.
	Location *time.Location
	// RecalcOnDelete recalculates the parent total after DeleteItem.
	// Off by default: deleting a line leaves the stored total untouched.
	RecalcOnDelete bool
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Service owns orders and their items
type Service struct {
	repo      Repository
	dishes    DishLookup
	publisher Publisher
	logger    *logger.Logger
	locks     *orderLocks
	opts      Options
}

// NewService creates a new ledger. publisher may be nil.
func NewService(repo Repository, dishes DishLookup, publisher Publisher, log *logger.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:      repo,
		dishes:    dishes,
		publisher: publisher,
		logger:    log,
		locks:     newOrderLocks(),
		opts:      opts,
	}
}

// CreateOrder snapshots the requested dishes and stores a new OPEN order.
// The total is derived from the snapshot lines and written with the order.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, requestID string) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	order := &models.Order{
		Tag:       req.Tag,
		CreatedAt: s.opts.Now().In(s.opts.Location),
		Status:    models.OrderOpen,
		Items:     make([]models.OrderItem, 0, len(req.Items)),
	}

	for _, line := range req.Items {
		dish, err := s.dishes.GetDish(ctx, line.DishID)
		if err != nil {
			return 0, fmt.Errorf("resolve dish %d: %w", line.DishID, err)
		}
		order.Items = append(order.Items, models.OrderItem{
			DishID:   dish.ID,
			Quantity: line.Quantity,
			Name:     dish.Name,
			Price:    dish.Price,
			Status:   models.ItemPending,
		})
	}
	order.Total = order.ItemsTotal()

	if err := s.repo.InsertOrder(ctx, order); err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	s.logger.Info("order_created", "Order created", requestID, map[string]interface{}{
		"order_id": order.ID,
		"tag":      order.Tag,
		"items":    len(order.Items),
		"total":    order.Total,
	})

	event := models.NewOrderEvent(models.EventOrderCreated, order.ID)
	event.Total = &order.Total
	s.publish(ctx, event, requestID)

	return order.ID, nil
}

// ToggleItemStatus flips an item between SERVED and PENDING. Cancelled items
// are left as they are and their status is returned unchanged.
func (s *Service) ToggleItemStatus(ctx context.Context, orderID, itemID int64, requestID string) (models.ItemStatus, error) {
	var next models.ItemStatus
	err := s.mutate(ctx, orderID, requestID, func() (*models.OrderEvent, error) {
		item, err := s.repo.GetItem(ctx, orderID, itemID)
		if err != nil {
			return nil, fmt.Errorf("get item: %w", err)
		}

		next = item.Status.Toggled()
		if next == item.Status {
			return nil, nil
		}

		if err := s.repo.SetItemStatus(ctx, itemID, next); err != nil {
			return nil, fmt.Errorf("set item status: %w", err)
		}
		if _, err := s.recalcLocked(ctx, orderID); err != nil {
			return nil, err
		}

		s.logger.Debug("item_status_changed", "Item status toggled", requestID, map[string]interface{}{
			"order_id":   orderID,
			"item_id":    itemID,
			"old_status": item.Status,
			"new_status": next,
		})

		event := models.NewOrderEvent(models.EventItemStatusChanged, orderID)
		event.ItemID = itemID
		event.ItemStatus = next
		return &event, nil
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// DeleteItem removes a single line. The parent total is only recalculated
// when Options.RecalcOnDelete is set.
func (s *Service) DeleteItem(ctx context.Context, itemID int64, requestID string) error {
	orderID, err := s.repo.ItemOrderID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("find item order: %w", err)
	}

	return s.mutate(ctx, orderID, requestID, func() (*models.OrderEvent, error) {
		if _, err := s.repo.DeleteItem(ctx, itemID); err != nil {
			return nil, fmt.Errorf("delete item: %w", err)
		}

		if s.opts.RecalcOnDelete {
			if _, err := s.recalcLocked(ctx, orderID); err != nil {
				return nil, err
			}
		}

		s.logger.Info("item_deleted", "Item removed from order", requestID, map[string]interface{}{
			"order_id": orderID,
			"item_id":  itemID,
			"recalc":   s.opts.RecalcOnDelete,
		})

		event := models.NewOrderEvent(models.EventItemDeleted, orderID)
		event.ItemID = itemID
		return &event, nil
	})
}

// TogglePayment flips the payment flag and returns the new value
func (s *Service) TogglePayment(ctx context.Context, orderID int64, requestID string) (bool, error) {
	var done bool
	err := s.mutate(ctx, orderID, requestID, func() (*models.OrderEvent, error) {
		order, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}

		done = !order.PaymentDone
		if err := s.repo.SetPayment(ctx, orderID, done); err != nil {
			return nil, fmt.Errorf("set payment: %w", err)
		}

		s.logger.Info("payment_toggled", "Order payment toggled", requestID, map[string]interface{}{
			"order_id":     orderID,
			"payment_done": done,
		})

		event := models.NewOrderEvent(models.EventPaymentToggled, orderID)
		paid := done
		event.PaymentDone = &paid
		return &event, nil
	})
	if err != nil {
		return false, err
	}
	return done, nil
}

// CloseOrder serves every non-cancelled item, closes the order and marks it
// paid. Closing always marks the order paid. Closing a CLOSED order is a no-op.
func (s *Service) CloseOrder(ctx context.Context, orderID int64, requestID string) error {
	return s.mutate(ctx, orderID, requestID, func() (*models.OrderEvent, error) {
		order, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}
		if order.Status == models.OrderClosed {
			return nil, nil
		}

		if err := s.repo.CloseOrder(ctx, orderID); err != nil {
			return nil, fmt.Errorf("close order: %w", err)
		}

		s.logger.Info("order_closed", "Order closed", requestID, map[string]interface{}{
			"order_id": orderID,
			"total":    order.Total,
		})

		paid := true
		event := models.NewOrderEvent(models.EventOrderClosed, orderID)
		event.PaymentDone = &paid
		event.Total = &order.Total
		return &event, nil
	})
}

// CancelOrder hard-deletes an OPEN order with all of its items
func (s *Service) CancelOrder(ctx context.Context, orderID int64, requestID string) error {
	return s.mutate(ctx, orderID, requestID, func() (*models.OrderEvent, error) {
		order, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}
		if order.Status == models.OrderClosed {
			return nil, models.ValidationError{Field: "order_id", Message: "closed orders cannot be cancelled"}
		}

		if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
			return nil, fmt.Errorf("delete order: %w", err)
		}

		s.logger.Info("order_cancelled", "Order cancelled", requestID, map[string]interface{}{
			"order_id": orderID,
			"items":    len(order.Items),
		})

		event := models.NewOrderEvent(models.EventOrderCancelled, orderID)
		return &event, nil
	})
}

// mutate runs fn under the order's lock and publishes the returned event
// once the lock is released. A nil event publishes nothing.
func (s *Service) mutate(ctx context.Context, orderID int64, requestID string, fn func() (*models.OrderEvent, error)) error {
	unlock := s.locks.lock(orderID)
	event, err := fn()
	unlock()
	if err != nil {
		return err
	}
	if event != nil {
		s.publish(ctx, *event, requestID)
	}
	return nil
}

// RecalcTotal recomputes the stored total from the order's items. Every item
// counts, cancelled ones included.
func (s *Service) RecalcTotal(ctx context.Context, orderID int64) (int64, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()

	return s.recalcLocked(ctx, orderID)
}

func (s *Service) recalcLocked(ctx context.Context, orderID int64) (int64, error) {
	total, err := s.repo.RecalcTotal(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("recalculate total: %w", err)
	}
	if total < 0 {
		return 0, models.ConsistencyError{OrderID: orderID, Message: fmt.Sprintf("negative total %d", total)}
	}
	return total, nil
}

// GetOrder returns an order with its items
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListActiveOrders returns today's orders plus every order still OPEN
func (s *Service) ListActiveOrders(ctx context.Context) ([]models.Order, error) {
	now := s.opts.Now().In(s.opts.Location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
	to := from.AddDate(0, 0, 1)

	orders, err := s.repo.ListActiveOrders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	return orders, nil
}

func (s *Service) publish(ctx context.Context, event models.OrderEvent, requestID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order event", requestID, err, map[string]interface{}{
			"order_id": event.OrderID,
			"type":     event.Type,
		})
	}
}
