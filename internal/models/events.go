package models

import "time"

// Event types
const (
	EventTypeStockReserved    = "STOCK_RESERVED"
	EventTypeStockReleased    = "STOCK_RELEASED"
	EventTypeStockCommitted   = "STOCK_COMMITTED"
	EventTypePortionsProduced = "PORTIONS_PRODUCED"
	EventTypeOrderCompleted   = "ORDER_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductSnapshot is a product's stock right after a committed mutation.
// UpdatedAt is the row's write time and orders snapshots of one product.
type ProductSnapshot struct {
	ProductID        int64     `json:"product_id"`
	Name             string    `json:"name"`
	Unit             Unit      `json:"unit"`
	Quantity         float64   `json:"quantity"`
	ReservedQuantity float64   `json:"reserved_quantity"`
	Available        float64   `json:"available"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DishSnapshot is a dish's portion counter right after a committed mutation
type DishSnapshot struct {
	DishID    int64     `json:"dish_id"`
	Name      string    `json:"name"`
	Portions  int       `json:"portions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockChangedEvent published for reserve, release and commit
type StockChangedEvent struct {
	BaseEvent
	Amount  float64         `json:"amount"`
	Product ProductSnapshot `json:"product"`
}

// PortionsProducedEvent published when raw stock is turned into portions
type PortionsProducedEvent struct {
	BaseEvent
	Count    int               `json:"count"`
	Dish     DishSnapshot      `json:"dish"`
	Consumed []StockMovement   `json:"consumed"`
	Products []ProductSnapshot `json:"products"`
}

// StockMovement is the amount taken from one product, in product units
type StockMovement struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit"`
}

// OrderCompletedEvent published when an order consumed its portions
type OrderCompletedEvent struct {
	BaseEvent
	OrderID    int64          `json:"order_id"`
	TableID    *int64         `json:"table_id,omitempty"`
	TotalPrice string         `json:"total_price"`
	Items      []OrderItem    `json:"items"`
	Dishes     []DishSnapshot `json:"dishes"`
}
