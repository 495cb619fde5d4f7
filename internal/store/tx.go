package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"

	"github.com/jmoiron/sqlx"
)

type pgTx struct {
	tx *sqlx.Tx
}

func sortedIDs(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProductForUpdate locks a product row (FOR UPDATE)
func (t *pgTx) ProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "product %d not found", id)
	}
	return &product, nil
}

// ProductsForUpdate locks several product rows in id order
func (t *pgTx) ProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	result := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?) ORDER BY id FOR UPDATE", sortedIDs(ids))
	if err != nil {
		return nil, err
	}
	query = t.tx.Rebind(query)

	var products []models.Product
	if err := t.tx.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, apperr.Newf(apperr.CodeNotFound, "product %d not found", id)
		}
	}
	return result, nil
}

// UpdateProductStock writes quantity and reserved_quantity back. updated_at
// uses clock_timestamp so a writer that waited on the row lock stamps a
// later time than the one it waited for.
func (t *pgTx) UpdateProductStock(ctx context.Context, p *models.Product) error {
	return t.tx.QueryRowxContext(ctx,
		`UPDATE products SET quantity = $1, reserved_quantity = $2, updated_at = clock_timestamp()
		WHERE id = $3 RETURNING updated_at`,
		p.Quantity, p.ReservedQuantity, p.ID).Scan(&p.UpdatedAt)
}

// DishForUpdate locks a dish row (FOR UPDATE)
func (t *pgTx) DishForUpdate(ctx context.Context, id int64) (*models.Dish, error) {
	var dish models.Dish
	err := t.tx.GetContext(ctx, &dish, "SELECT * FROM dishes WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "dish %d not found", id)
	}
	return &dish, nil
}

// DishesForUpdate locks several dish rows in id order
func (t *pgTx) DishesForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Dish, error) {
	result := make(map[int64]*models.Dish, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT * FROM dishes WHERE id IN (?) ORDER BY id FOR UPDATE", sortedIDs(ids))
	if err != nil {
		return nil, err
	}
	query = t.tx.Rebind(query)

	var dishes []models.Dish
	if err := t.tx.SelectContext(ctx, &dishes, query, args...); err != nil {
		return nil, err
	}
	for i := range dishes {
		result[dishes[i].ID] = &dishes[i]
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, apperr.Newf(apperr.CodeNotFound, "dish %d not found", id)
		}
	}
	return result, nil
}

// UpdateDishPortions writes the portion counter back, stamped like
// UpdateProductStock
func (t *pgTx) UpdateDishPortions(ctx context.Context, d *models.Dish) error {
	return t.tx.QueryRowxContext(ctx,
		"UPDATE dishes SET portions = $1, updated_at = clock_timestamp() WHERE id = $2 RETURNING updated_at",
		d.Portions, d.ID).Scan(&d.UpdatedAt)
}

// DishIngredients reads the recipe of a dish
func (t *pgTx) DishIngredients(ctx context.Context, dishID int64) ([]models.DishIngredient, error) {
	var ingredients []models.DishIngredient
	err := t.tx.SelectContext(ctx, &ingredients,
		"SELECT * FROM dish_ingredients WHERE dish_id = $1 ORDER BY id", dishID)
	return ingredients, err
}

// CreateDishIngredient adds a recipe line
func (t *pgTx) CreateDishIngredient(ctx context.Context, ing *models.DishIngredient) error {
	query := `
		INSERT INTO dish_ingredients (dish_id, product_id, quantity, unit)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return t.tx.GetContext(ctx, &ing.ID, query, ing.DishID, ing.ProductID, ing.Quantity, ing.Unit)
}

// OrderForUpdate locks an order row (FOR UPDATE)
func (t *pgTx) OrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "order %d not found", id)
	}
	return &order, nil
}

// OpenOrderForTable returns the table's open order, or nil when there is none.
// The order row is not locked; callers hold the table row instead, and
// completion locks order before table.
func (t *pgTx) OpenOrderForTable(ctx context.Context, tableID int64) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE table_id = $1 AND NOT is_completed", tableID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder creates a new order
func (t *pgTx) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (order_type, table_id, customer_name, customer_phone, delivery_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return t.tx.QueryRowxContext(ctx, query,
		o.Type, o.TableID, o.CustomerName, o.CustomerPhone, o.DeliveryAddress).Scan(&o.ID, &o.CreatedAt)
}

// MarkOrderCompleted flips the terminal flag
func (t *pgTx) MarkOrderCompleted(ctx context.Context, o *models.Order) error {
	var completedAt time.Time
	err := t.tx.QueryRowxContext(ctx,
		"UPDATE orders SET is_completed = TRUE, completed_at = NOW() WHERE id = $1 RETURNING completed_at",
		o.ID).Scan(&completedAt)
	if err != nil {
		return err
	}
	o.IsCompleted = true
	o.CompletedAt = &completedAt
	return nil
}

// OrderItems reads the lines of an order
func (t *pgTx) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := t.tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// CreateOrderItem creates a new order item
func (t *pgTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, dish_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id`

	return t.tx.GetContext(ctx, &item.ID, query, item.OrderID, item.DishID, item.Quantity)
}

// UpdateOrderItemQuantity sets a line's quantity
func (t *pgTx) UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE order_items SET quantity = $1 WHERE id = $2", quantity, itemID)
	return err
}

// DeleteOrderItem removes a line
func (t *pgTx) DeleteOrderItem(ctx context.Context, itemID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM order_items WHERE id = $1", itemID)
	return err
}

// TableForUpdate locks a table row (FOR UPDATE)
func (t *pgTx) TableForUpdate(ctx context.Context, id int64) (*models.Table, error) {
	var table models.Table
	err := t.tx.GetContext(ctx, &table, "SELECT * FROM restaurant_tables WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "table %d not found", id)
	}
	return &table, nil
}

// SetTableOccupied updates the occupancy flag
func (t *pgTx) SetTableOccupied(ctx context.Context, id int64, occupied bool) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE restaurant_tables SET is_occupied = $1 WHERE id = $2", occupied, id)
	return err
}
