package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the Postgres-backed Repository.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn in a read-committed transaction; row locks taken through
// the handle are held until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.CodeNotFound, err, fmt.Sprintf(format, args...))
	}
	return err
}

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product %d not found", id)
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	result := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// GetDish retrieves a dish by ID
func (s *Store) GetDish(ctx context.Context, id int64) (*models.Dish, error) {
	var dish models.Dish
	err := s.db.GetContext(ctx, &dish, "SELECT * FROM dishes WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "dish %d not found", id)
	}
	return &dish, nil
}

// GetDishesByIDs retrieves multiple dishes by IDs
func (s *Store) GetDishesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Dish, error) {
	result := make(map[int64]*models.Dish, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In("SELECT * FROM dishes WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var dishes []models.Dish
	if err := s.db.SelectContext(ctx, &dishes, query, args...); err != nil {
		return nil, err
	}
	for i := range dishes {
		result[dishes[i].ID] = &dishes[i]
	}
	return result, nil
}

// GetDishIngredients retrieves the recipe of a dish
func (s *Store) GetDishIngredients(ctx context.Context, dishID int64) ([]models.DishIngredient, error) {
	var ingredients []models.DishIngredient
	err := s.db.SelectContext(ctx, &ingredients,
		"SELECT * FROM dish_ingredients WHERE dish_id = $1 ORDER BY id", dishID)
	return ingredients, err
}

// ListProducts returns every product ordered by id
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// ListDishes returns every dish ordered by id
func (s *Store) ListDishes(ctx context.Context) ([]models.Dish, error) {
	var dishes []models.Dish
	err := s.db.SelectContext(ctx, &dishes, "SELECT * FROM dishes ORDER BY id")
	return dishes, err
}

// CreateProduct inserts a product row
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, unit, quantity, reserved_quantity, purchase_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.Name, p.Unit, p.Quantity, p.ReservedQuantity, p.PurchasePrice).Scan(&p.ID, &p.UpdatedAt)
}

// CreateDish inserts a dish row
func (s *Store) CreateDish(ctx context.Context, d *models.Dish) error {
	query := `
		INSERT INTO dishes (name, description, price, image_url, portions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		d.Name, d.Description, d.Price, d.ImageURL, d.Portions).Scan(&d.ID, &d.UpdatedAt)
}

// CreateTable inserts a table row
func (s *Store) CreateTable(ctx context.Context, t *models.Table) error {
	query := `
		INSERT INTO restaurant_tables (number, seats, is_occupied)
		VALUES ($1, $2, $3)
		RETURNING id`

	return s.db.GetContext(ctx, &t.ID, query, t.Number, t.Seats, t.IsOccupied)
}
