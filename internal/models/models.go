package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is a measurement unit for stock and recipe quantities
type Unit string

const (
	UnitKilograms   Unit = "kg"
	UnitGrams       Unit = "grams"
	UnitLiters      Unit = "liters"
	UnitMilliliters Unit = "ml"
	UnitPieces      Unit = "pieces"
)

// ProductUnits are the units a warehouse product can be stocked in.
var ProductUnits = []Unit{UnitKilograms, UnitLiters, UnitPieces, UnitGrams}

// IngredientUnits are the units a recipe line may be written in.
var IngredientUnits = []Unit{UnitKilograms, UnitLiters, UnitPieces, UnitGrams, UnitMilliliters}

// Valid reports whether u is one of units.
func (u Unit) Valid(units []Unit) bool {
	for _, known := range units {
		if u == known {
			return true
		}
	}
	return false
}

// Product is a raw material tracked in the warehouse
type Product struct {
	ID               int64           `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Unit             Unit            `db:"unit" json:"unit"`
	Quantity         float64         `db:"quantity" json:"quantity"`
	ReservedQuantity float64         `db:"reserved_quantity" json:"reserved_quantity"`
	PurchasePrice    decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Dish is a menu item with a pre-produced portion counter
type Dish struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    string          `db:"image_url" json:"image_url,omitempty"`
	Portions    int             `db:"portions" json:"portions"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// DishIngredient is one recipe line. An empty Unit means Quantity is
// already expressed in the product's unit.
type DishIngredient struct {
	ID        int64   `db:"id" json:"id"`
	DishID    int64   `db:"dish_id" json:"dish_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Quantity  float64 `db:"quantity" json:"quantity"`
	Unit      Unit    `db:"unit" json:"unit,omitempty"`
}

// Table is a physical seating unit
type Table struct {
	ID         int64 `db:"id" json:"id"`
	Number     int   `db:"number" json:"number"`
	Seats      int   `db:"seats" json:"seats"`
	IsOccupied bool  `db:"is_occupied" json:"is_occupied"`
}

// OrderType is how the order reaches the customer
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

// Order represents a customer order
type Order struct {
	ID              int64      `db:"id" json:"id"`
	Type            OrderType  `db:"order_type" json:"type"`
	TableID         *int64     `db:"table_id" json:"table_id,omitempty"`
	CustomerName    string     `db:"customer_name" json:"customer_name,omitempty"`
	CustomerPhone   string     `db:"customer_phone" json:"customer_phone,omitempty"`
	DeliveryAddress string     `db:"delivery_address" json:"delivery_address,omitempty"`
	IsCompleted     bool       `db:"is_completed" json:"is_completed"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// OrderItem represents one dish line in an order
type OrderItem struct {
	ID       int64 `db:"id" json:"id"`
	OrderID  int64 `db:"order_id" json:"order_id"`
	DishID   int64 `db:"dish_id" json:"dish_id"`
	Quantity int   `db:"quantity" json:"quantity"`
}
