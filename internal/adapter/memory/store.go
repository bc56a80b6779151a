// Package memory is an in-process repository with the same semantics as the
// Postgres one. It backs the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-pos/internal/models"
)

// Store keeps dishes, orders and items in maps guarded by one lock
type Store struct {
	mu sync.RWMutex

	dishes map[int64]models.Dish
	orders map[int64]*models.Order
	items  map[int64]*models.OrderItem

	nextDish  int64
	nextOrder int64
	nextItem  int64
}

// New creates a store seeded with the given dishes. Zero ids are assigned.
func New(dishes ...models.Dish) *Store {
	s := &Store{
		dishes: make(map[int64]models.Dish),
		orders: make(map[int64]*models.Order),
		items:  make(map[int64]*models.OrderItem),
	}
	for _, d := range dishes {
		d := d
		_ = s.InsertDish(context.Background(), &d)
	}
	return s
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) ListDishes(ctx context.Context) ([]models.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dishes := make([]models.Dish, 0, len(s.dishes))
	for _, d := range s.dishes {
		dishes = append(dishes, d)
	}
	sort.Slice(dishes, func(i, j int) bool { return dishes[i].ID < dishes[j].ID })
	return dishes, nil
}

func (s *Store) GetDish(ctx context.Context, id int64) (*models.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dishes[id]
	if !ok {
		return nil, models.NotFoundError{Entity: "dish", ID: id}
	}
	return &d, nil
}

func (s *Store) InsertDish(ctx context.Context, dish *models.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dish.ID == 0 {
		s.nextDish++
		dish.ID = s.nextDish
	} else if dish.ID > s.nextDish {
		s.nextDish = dish.ID
	}
	s.dishes[dish.ID] = *dish
	return nil
}

func (s *Store) UpdateDish(ctx context.Context, dish *models.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dishes[dish.ID]; !ok {
		return models.NotFoundError{Entity: "dish", ID: dish.ID}
	}
	s.dishes[dish.ID] = *dish
	return nil
}

// InsertOrder stores the order and its items in one step and assigns ids
func (s *Store) InsertOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range order.Items {
		if _, ok := s.dishes[item.DishID]; !ok {
			return models.NotFoundError{Entity: "dish", ID: item.DishID}
		}
	}

	s.nextOrder++
	order.ID = s.nextOrder
	stored := *order
	stored.Items = nil
	s.orders[order.ID] = &stored

	for i := range order.Items {
		s.nextItem++
		order.Items[i].ID = s.nextItem
		order.Items[i].OrderID = order.ID
		item := order.Items[i]
		s.items[item.ID] = &item
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, models.NotFoundError{Entity: "order", ID: id}
	}
	return s.withItems(o), nil
}

func (s *Store) GetItem(ctx context.Context, orderID, itemID int64) (*models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok || item.OrderID != orderID {
		return nil, models.NotFoundError{Entity: "order item", ID: itemID}
	}
	out := *item
	out.Category = s.dishes[item.DishID].Category
	return &out, nil
}

func (s *Store) SetItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return models.NotFoundError{Entity: "order item", ID: itemID}
	}
	item.Status = status
	return nil
}

// DeleteItem removes one line and returns the owning order id
func (s *Store) DeleteItem(ctx context.Context, itemID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return 0, models.NotFoundError{Entity: "order item", ID: itemID}
	}
	delete(s.items, itemID)
	return item.OrderID, nil
}

// ItemOrderID returns the order owning itemID
func (s *Store) ItemOrderID(ctx context.Context, itemID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return 0, models.NotFoundError{Entity: "order item", ID: itemID}
	}
	return item.OrderID, nil
}

func (s *Store) SetPayment(ctx context.Context, orderID int64, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return models.NotFoundError{Entity: "order", ID: orderID}
	}
	o.PaymentDone = done
	return nil
}

// CloseOrder serves every non-cancelled line, closes the order and marks it paid
func (s *Store) CloseOrder(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return models.NotFoundError{Entity: "order", ID: orderID}
	}
	for _, item := range s.items {
		if item.OrderID == orderID && item.Status != models.ItemCancelled {
			item.Status = models.ItemServed
		}
	}
	o.Status = models.OrderClosed
	o.PaymentDone = true
	return nil
}

// DeleteOrder removes the order and cascades to its items
func (s *Store) DeleteOrder(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return models.NotFoundError{Entity: "order", ID: orderID}
	}
	delete(s.orders, orderID)
	for id, item := range s.items {
		if item.OrderID == orderID {
			delete(s.items, id)
		}
	}
	return nil
}

// RecalcTotal stores the sum of quantity*price over every line of the order
func (s *Store) RecalcTotal(ctx context.Context, orderID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return 0, models.NotFoundError{Entity: "order", ID: orderID}
	}
	var total int64
	for _, item := range s.items {
		if item.OrderID != orderID {
			continue
		}
		if item.Quantity <= 0 {
			return 0, models.ConsistencyError{OrderID: orderID, Message: "item with non-positive quantity"}
		}
		total += item.LineTotal()
	}
	o.Total = total
	return total, nil
}

// ListActiveOrders returns orders created in [from, to) plus every OPEN order
func (s *Store) ListActiveOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return s.list(func(o *models.Order) bool {
		return o.Status == models.OrderOpen || inWindow(o.CreatedAt, from, to)
	}), nil
}

// ListSettledOrders returns CLOSED and paid orders created in [from, to)
func (s *Store) ListSettledOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return s.list(func(o *models.Order) bool {
		return o.Settled() && inWindow(o.CreatedAt, from, to)
	}), nil
}

func (s *Store) list(keep func(*models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, *s.withItems(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders
}

// withItems copies o and attaches its items ordered by id. Caller holds the lock.
func (s *Store) withItems(o *models.Order) *models.Order {
	out := *o
	out.Items = make([]models.OrderItem, 0)
	for _, item := range s.items {
		if item.OrderID == o.ID {
			line := *item
			line.Category = s.dishes[item.DishID].Category
			out.Items = append(out.Items, line)
		}
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ID < out.Items[j].ID })
	return &out
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
