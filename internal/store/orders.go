package store

import (
	"context"

	"restaurant-ledger/internal/models"
)

// GetOrder retrieves an order by ID
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order %d not found", id)
	}
	return &order, nil
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetTable retrieves a table by ID
func (s *Store) GetTable(ctx context.Context, id int64) (*models.Table, error) {
	var table models.Table
	err := s.db.GetContext(ctx, &table, "SELECT * FROM restaurant_tables WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "table %d not found", id)
	}
	return &table, nil
}
