package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/models"
)

// Repository implements the catalog, ledger and analytics stores on Postgres
type Repository struct {
	db *DB
}

// NewRepository creates a repository over an open pool
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Ping tests the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) ListDishes(ctx context.Context) ([]models.Dish, error) {
	rows, err := r.db.Query(ctx, ListDishesSQL)
	if err != nil {
		return nil, fmt.Errorf("query dishes: %w", err)
	}
	defer rows.Close()

	dishes := make([]models.Dish, 0)
	for rows.Next() {
		var d models.Dish
		if err := rows.Scan(&d.ID, &d.Name, &d.Category, &d.Price); err != nil {
			return nil, fmt.Errorf("scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

func (r *Repository) GetDish(ctx context.Context, id int64) (*models.Dish, error) {
	var d models.Dish
	err := r.db.QueryRow(ctx, GetDishSQL, id).Scan(&d.ID, &d.Name, &d.Category, &d.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFoundError{Entity: "dish", ID: id}
		}
		return nil, fmt.Errorf("query dish: %w", err)
	}
	return &d, nil
}

func (r *Repository) InsertDish(ctx context.Context, dish *models.Dish) error {
	err := r.db.QueryRow(ctx, InsertDishSQL, dish.Name, dish.Category, dish.Price).Scan(&dish.ID)
	if err != nil {
		return fmt.Errorf("insert dish: %w", err)
	}
	return nil
}

func (r *Repository) UpdateDish(ctx context.Context, dish *models.Dish) error {
	tag, err := r.db.Exec(ctx, UpdateDishSQL, dish.Name, dish.Category, dish.Price, dish.ID)
	if err != nil {
		return fmt.Errorf("update dish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError{Entity: "dish", ID: dish.ID}
	}
	return nil
}

// InsertOrder writes the order row and all its items in one transaction
func (r *Repository) InsertOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, InsertOrderSQL,
			order.Tag, order.CreatedAt, order.Status, order.PaymentDone, order.Total,
		).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.QueryRow(ctx, InsertOrderItemSQL,
				order.ID, item.DishID, item.Quantity, item.Name, item.Price, item.Status,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert order item %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	orders, err := r.queryOrders(ctx, GetOrderWithItemsSQL, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, models.NotFoundError{Entity: "order", ID: id}
	}
	return &orders[0], nil
}

func (r *Repository) GetItem(ctx context.Context, orderID, itemID int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.QueryRow(ctx, GetOrderItemSQL, orderID, itemID).Scan(
		&item.ID,
		&item.OrderID,
		&item.DishID,
		&item.Quantity,
		&item.Name,
		&item.Price,
		&item.Status,
		&item.Category,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFoundError{Entity: "order item", ID: itemID}
		}
		return nil, fmt.Errorf("query order item: %w", err)
	}
	return &item, nil
}

func (r *Repository) ItemOrderID(ctx context.Context, itemID int64) (int64, error) {
	var orderID int64
	err := r.db.QueryRow(ctx, GetItemOrderIDSQL, itemID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.NotFoundError{Entity: "order item", ID: itemID}
		}
		return 0, fmt.Errorf("query item order: %w", err)
	}
	return orderID, nil
}

func (r *Repository) SetItemStatus(ctx context.Context, itemID int64, status models.ItemStatus) error {
	tag, err := r.db.Exec(ctx, UpdateOrderItemStatusSQL, status, itemID)
	if err != nil {
		return fmt.Errorf("update item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError{Entity: "order item", ID: itemID}
	}
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, itemID int64) (int64, error) {
	var orderID int64
	err := r.db.QueryRow(ctx, DeleteOrderItemSQL, itemID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.NotFoundError{Entity: "order item", ID: itemID}
		}
		return 0, fmt.Errorf("delete order item: %w", err)
	}
	return orderID, nil
}

func (r *Repository) SetPayment(ctx context.Context, orderID int64, done bool) error {
	tag, err := r.db.Exec(ctx, UpdateOrderPaymentSQL, done, orderID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError{Entity: "order", ID: orderID}
	}
	return nil
}

// CloseOrder serves the open lines and closes the order in one transaction
func (r *Repository) CloseOrder(ctx context.Context, orderID int64) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ServeOrderItemsSQL, orderID); err != nil {
			return fmt.Errorf("serve order items: %w", err)
		}
		tag, err := tx.Exec(ctx, CloseOrderSQL, orderID)
		if err != nil {
			return fmt.Errorf("close order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.NotFoundError{Entity: "order", ID: orderID}
		}
		return nil
	})
}

// DeleteOrder removes the order; items go with it through ON DELETE CASCADE
func (r *Repository) DeleteOrder(ctx context.Context, orderID int64) error {
	tag, err := r.db.Exec(ctx, DeleteOrderSQL, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError{Entity: "order", ID: orderID}
	}
	return nil
}

func (r *Repository) RecalcTotal(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, RecalcOrderTotalSQL, orderID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.NotFoundError{Entity: "order", ID: orderID}
		}
		return 0, fmt.Errorf("recalculate total: %w", err)
	}
	return total, nil
}

func (r *Repository) ListActiveOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return r.queryOrders(ctx, ListActiveOrdersSQL, from, to)
}

func (r *Repository) ListSettledOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return r.queryOrders(ctx, ListSettledOrdersSQL, from, to)
}

// queryOrders folds joined order/item rows into orders, keeping row order
func (r *Repository) queryOrders(ctx context.Context, sql string, args ...interface{}) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	index := make(map[int64]int)

	for rows.Next() {
		var (
			o        models.Order
			itemID   *int64
			dishID   *int64
			quantity *int
			name     *string
			price    *int64
			status   *string
			category *string
		)
		err := rows.Scan(
			&o.ID, &o.Tag, &o.CreatedAt, &o.Status, &o.PaymentDone, &o.Total,
			&itemID, &dishID, &quantity, &name, &price, &status,
			&category,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		pos, seen := index[o.ID]
		if !seen {
			o.Items = make([]models.OrderItem, 0)
			orders = append(orders, o)
			pos = len(orders) - 1
			index[o.ID] = pos
		}

		if itemID == nil {
			continue
		}
		item := models.OrderItem{
			ID:       *itemID,
			OrderID:  o.ID,
			DishID:   deref(dishID),
			Quantity: deref(quantity),
			Name:     deref(name),
			Price:    deref(price),
			Status:   models.ItemStatus(deref(status)),
			Category: deref(category),
		}
		orders[pos].Items = append(orders[pos].Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
