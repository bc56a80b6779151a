package database

// Dish queries
const (
	ListDishesSQL = `
		SELECT id, name, category, price
		FROM dishes
		ORDER BY id ASC`

	GetDishSQL = `
		SELECT id, name, category, price
		FROM dishes WHERE id = $1`

	InsertDishSQL = `
		INSERT INTO dishes (name, category, price)
		VALUES ($1, $2, $3)
		RETURNING id`

	UpdateDishSQL = `
		UPDATE dishes SET name = $1, category = $2, price = $3
		WHERE id = $4`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (tag, created_at, status, payment_done, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, dish_id, quantity, name_snapshot, price_snapshot, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	UpdateOrderPaymentSQL = `
		UPDATE orders SET payment_done = $1
		WHERE id = $2`

	CloseOrderSQL = `
		UPDATE orders SET status = 'CLOSED', payment_done = TRUE
		WHERE id = $1`

	ServeOrderItemsSQL = `
		UPDATE order_items SET status = 'SERVED'
		WHERE order_id = $1 AND status <> 'CANCELLED'`

	DeleteOrderSQL = `
		DELETE FROM orders WHERE id = $1`

	RecalcOrderTotalSQL = `
		UPDATE orders SET total = (
			SELECT COALESCE(SUM(quantity * price_snapshot), 0)
			FROM order_items
			WHERE order_id = $1
		)
		WHERE id = $1
		RETURNING total`

	// orderWithItemsSelect joins orders to their items and the dish category.
	// Orders without items still produce one row with NULL item columns.
	orderWithItemsSelect = `
		SELECT o.id, o.tag, o.created_at, o.status, o.payment_done, o.total,
			   oi.id, oi.dish_id, oi.quantity, oi.name_snapshot, oi.price_snapshot, oi.status,
			   d.category
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN dishes d ON d.id = oi.dish_id`

	GetOrderWithItemsSQL = orderWithItemsSelect + `
		WHERE o.id = $1
		ORDER BY oi.id`

	ListActiveOrdersSQL = orderWithItemsSelect + `
		WHERE (o.created_at >= $1 AND o.created_at < $2)
		   OR o.status = 'OPEN'
		ORDER BY o.created_at, o.id, oi.id`

	ListSettledOrdersSQL = orderWithItemsSelect + `
		WHERE o.status = 'CLOSED'
		  AND o.payment_done = TRUE
		  AND o.created_at >= $1
		  AND o.created_at < $2
		ORDER BY o.created_at, o.id, oi.id`
)

// Order item queries
const (
	GetOrderItemSQL = `
		SELECT oi.id, oi.order_id, oi.dish_id, oi.quantity, oi.name_snapshot, oi.price_snapshot, oi.status,
			   COALESCE(d.category, '')
		FROM order_items oi
		LEFT JOIN dishes d ON d.id = oi.dish_id
		WHERE oi.order_id = $1 AND oi.id = $2`

	GetItemOrderIDSQL = `
		SELECT order_id FROM order_items WHERE id = $1`

	UpdateOrderItemStatusSQL = `
		UPDATE order_items SET status = $1
		WHERE id = $2`

	DeleteOrderItemSQL = `
		DELETE FROM order_items WHERE id = $1
		RETURNING order_id`
)
