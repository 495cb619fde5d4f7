package store

import (
	"context"

	"restaurant-ledger/internal/models"
)

// Tx is a transaction-scoped handle. Every *ForUpdate read locks the rows it
// returns until the transaction ends, so decisions made on them hold when
// the writes land. Multi-row reads lock in ascending id order.
type Tx interface {
	ProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	ProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	UpdateProductStock(ctx context.Context, p *models.Product) error

	DishForUpdate(ctx context.Context, id int64) (*models.Dish, error)
	DishesForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Dish, error)
	UpdateDishPortions(ctx context.Context, d *models.Dish) error
	DishIngredients(ctx context.Context, dishID int64) ([]models.DishIngredient, error)
	CreateDishIngredient(ctx context.Context, ing *models.DishIngredient) error

	OrderForUpdate(ctx context.Context, id int64) (*models.Order, error)
	OpenOrderForTable(ctx context.Context, tableID int64) (*models.Order, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	MarkOrderCompleted(ctx context.Context, o *models.Order) error

	OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteOrderItem(ctx context.Context, itemID int64) error

	TableForUpdate(ctx context.Context, id int64) (*models.Table, error)
	SetTableOccupied(ctx context.Context, id int64, occupied bool) error
}

// Repository is the persistence boundary used by the services.
type Repository interface {
	// WithinTx runs fn in one transaction. A non-nil error from fn rolls
	// everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetDish(ctx context.Context, id int64) (*models.Dish, error)
	GetDishesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Dish, error)
	GetDishIngredients(ctx context.Context, dishID int64) ([]models.DishIngredient, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetTable(ctx context.Context, id int64) (*models.Table, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListDishes(ctx context.Context) ([]models.Dish, error)

	Ping(ctx context.Context) error
	Close() error
}

// IngredientProductIDs lists the distinct products a recipe references.
func IngredientProductIDs(ingredients []models.DishIngredient) []int64 {
	seen := make(map[int64]bool, len(ingredients))
	ids := make([]int64, 0, len(ingredients))
	for _, ing := range ingredients {
		if !seen[ing.ProductID] {
			seen[ing.ProductID] = true
			ids = append(ids, ing.ProductID)
		}
	}
	return ids
}

// ItemDishIDs lists the distinct dishes in a set of order lines.
func ItemDishIDs(items []models.OrderItem) []int64 {
	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if !seen[item.DishID] {
			seen[item.DishID] = true
			ids = append(ids, item.DishID)
		}
	}
	return ids
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*MemoryStore)(nil)
	_ Tx         = (*pgTx)(nil)
	_ Tx         = (*memTx)(nil)
)
