package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/broker"
	"restaurant-ledger/internal/ledger"
	"restaurant-ledger/internal/models"
	"restaurant-ledger/internal/store"
	"restaurant-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	base
}

// NewOrderService creates a new order service
func NewOrderService(deps Deps) *OrderService {
	return &OrderService{base: newBase(deps)}
}

// OpenOrderRequest represents a request to open an order
type OpenOrderRequest struct {
	Type            models.OrderType `json:"type" binding:"required"`
	TableID         *int64           `json:"table_id,omitempty"`
	CustomerName    string           `json:"customer_name,omitempty"`
	CustomerPhone   string           `json:"customer_phone,omitempty"`
	DeliveryAddress string           `json:"delivery_address,omitempty"`
}

func (r *OpenOrderRequest) validate() error {
	if !r.Type.Valid() {
		return apperr.Newf(apperr.CodeValidation, "unknown order type %q", r.Type)
	}
	switch r.Type {
	case models.OrderTypeDineIn:
		if r.TableID == nil {
			return apperr.New(apperr.CodeValidation, "dine-in orders need a table")
		}
	default:
		if r.TableID != nil {
			return apperr.Newf(apperr.CodeValidation, "%s orders cannot take a table", r.Type)
		}
	}
	if r.Type == models.OrderTypeDelivery && strings.TrimSpace(r.DeliveryAddress) == "" {
		return apperr.New(apperr.CodeValidation, "delivery orders need an address")
	}
	return nil
}

// OrderView is an order with its lines
type OrderView struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

// OpenOrder starts an order. A dine-in request for a table that already
// has an open order returns that order with created set to false.
func (s *OrderService) OpenOrder(ctx context.Context, req *OpenOrderRequest) (view *OrderView, created bool, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.OpenOrder", attribute.String("type", string(req.Type)))
	defer func() { util.EndSpan(span, err) }()

	if err := req.validate(); err != nil {
		return nil, false, err
	}

	err = s.Store.WithinTx(ctx, func(tx store.Tx) error {
		if req.TableID != nil {
			if _, err := tx.TableForUpdate(ctx, *req.TableID); err != nil {
				return err
			}
			open, err := tx.OpenOrderForTable(ctx, *req.TableID)
			if err != nil {
				return fmt.Errorf("failed to look up open order: %w", err)
			}
			if open != nil {
				items, err := tx.OrderItems(ctx, open.ID)
				if err != nil {
					return err
				}
				if items == nil {
					items = []models.OrderItem{}
				}
				view = &OrderView{Order: *open, Items: items}
				return nil
			}
		}

		order := &models.Order{
			Type:            req.Type,
			TableID:         req.TableID,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			DeliveryAddress: req.DeliveryAddress,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if order.TableID != nil {
			if err := tx.SetTableOccupied(ctx, *order.TableID, true); err != nil {
				return err
			}
		}
		view = &OrderView{Order: *order, Items: []models.OrderItem{}}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("Order opened",
			zap.Int64("order_id", view.ID),
			zap.String("type", string(view.Type)))
	}
	return view, created, nil
}

// GetOrder retrieves an order with its lines
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.Int64("order_id", orderID))
	defer span.End()

	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.Store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if items == nil {
		items = []models.OrderItem{}
	}
	return &OrderView{Order: *order, Items: items}, nil
}

// GetTable retrieves a table with its occupancy flag
func (s *OrderService) GetTable(ctx context.Context, tableID int64) (*models.Table, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetTable", attribute.Int64("table_id", tableID))
	defer span.End()

	return s.Store.GetTable(ctx, tableID)
}

// AddItem adds quantity portions of a dish to an order, merging with the
// dish's existing line.
func (s *OrderService) AddItem(ctx context.Context, orderID, dishID int64, quantity int) (*OrderView, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must be positive")
	}
	return s.changeItem(ctx, "AddItem", orderID, dishID, func(current int) int {
		return current + quantity
	})
}

// UpdateItem sets the quantity of a dish's line. Zero removes the line.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, dishID int64, quantity int) (*OrderView, error) {
	if quantity < 0 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must not be negative")
	}
	return s.changeItem(ctx, "UpdateItem", orderID, dishID, func(int) int {
		return quantity
	})
}

// RemoveItem drops a dish's line from an order
func (s *OrderService) RemoveItem(ctx context.Context, orderID, dishID int64) (*OrderView, error) {
	return s.UpdateItem(ctx, orderID, dishID, 0)
}

// changeItem rewrites one dish's line. next gets the current quantity,
// zero when the dish has no line yet.
func (s *OrderService) changeItem(ctx context.Context, op string, orderID, dishID int64, next func(current int) int) (view *OrderView, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService."+op,
		attribute.Int64("order_id", orderID),
		attribute.Int64("dish_id", dishID))
	defer func() { util.EndSpan(span, err) }()

	err = s.Store.WithinTx(ctx, func(tx store.Tx) error {
		order, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsCompleted {
			return apperr.Newf(apperr.CodeStateConflict, "order %d is already completed", orderID)
		}

		items, err := tx.OrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		var line *models.OrderItem
		for i := range items {
			if items[i].DishID == dishID {
				line = &items[i]
				break
			}
		}

		current := 0
		if line != nil {
			current = line.Quantity
		}
		quantity := next(current)

		switch {
		case line == nil && quantity == 0:
			return apperr.Newf(apperr.CodeNotFound, "order %d has no line for dish %d", orderID, dishID)
		case line == nil:
			if _, err := tx.DishForUpdate(ctx, dishID); err != nil {
				return err
			}
			if err := tx.CreateOrderItem(ctx, &models.OrderItem{OrderID: orderID, DishID: dishID, Quantity: quantity}); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		case quantity == 0:
			if err := tx.DeleteOrderItem(ctx, line.ID); err != nil {
				return fmt.Errorf("failed to delete order item: %w", err)
			}
		default:
			if err := tx.UpdateOrderItemQuantity(ctx, line.ID, quantity); err != nil {
				return fmt.Errorf("failed to update order item: %w", err)
			}
		}

		items, err = tx.OrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		if items == nil {
			items = []models.OrderItem{}
		}
		view = &OrderView{Order: *order, Items: items}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CompletionResult describes a completed order
type CompletionResult struct {
	OrderID     int64                 `json:"order_id"`
	TotalPrice  decimal.Decimal       `json:"total_price"`
	CompletedAt time.Time             `json:"completed_at"`
	Dishes      []models.DishSnapshot `json:"dishes"`
}

// CompleteOrder consumes the order's portions and closes it. When any dish
// cannot cover its lines the call fails with INSUFFICIENT_STOCK listing
// every short dish, and nothing changes. Completed orders stay completed;
// completing one again is a STATE_CONFLICT.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64, idempotencyKey string) (result *CompletionResult, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CompleteOrder", attribute.Int64("order_id", orderID))
	defer func() { util.EndSpan(span, err) }()
	defer observe("complete_order")()

	defer func() {
		if err != nil {
			util.OrdersRejectedTotal.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		}
	}()

	done, err := s.claimRequest(ctx, fmt.Sprintf("complete_order:order:%d", orderID), idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() { done(err != nil) }()

	var (
		order *models.Order
		items []models.OrderItem
	)
	err = s.Store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsCompleted {
			return apperr.Newf(apperr.CodeStateConflict, "order %d is already completed", orderID)
		}

		items, err = tx.OrderItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
		dishIDs := store.ItemDishIDs(items)
		dishes, err := tx.DishesForUpdate(ctx, dishIDs)
		if err != nil {
			return err
		}

		if err := ledger.CheckFulfillment(items, dishes); err != nil {
			return err
		}
		ledger.ApplyFulfillment(items, dishes)

		snaps := make([]models.DishSnapshot, 0, len(dishIDs))
		for _, id := range dishIDs {
			if err := tx.UpdateDishPortions(ctx, dishes[id]); err != nil {
				return fmt.Errorf("failed to update dish %d: %w", id, err)
			}
			snaps = append(snaps, dishSnapshot(dishes[id]))
		}

		if err := tx.MarkOrderCompleted(ctx, order); err != nil {
			return fmt.Errorf("failed to complete order: %w", err)
		}
		if order.TableID != nil {
			if err := tx.SetTableOccupied(ctx, *order.TableID, false); err != nil {
				return err
			}
		}

		result = &CompletionResult{
			OrderID:    order.ID,
			TotalPrice: orderTotal(items, dishes),
			Dishes:     snaps,
		}
		if order.CompletedAt != nil {
			result.CompletedAt = *order.CompletedAt
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Order completion refused",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	util.OrdersCompletedTotal.Inc()
	s.logger.Info("Order completed",
		zap.Int64("order_id", orderID),
		zap.String("total_price", result.TotalPrice.StringFixed(2)))

	s.recordDishes(ctx, result.Dishes)

	if s.Publisher != nil {
		event := &models.OrderCompletedEvent{
			BaseEvent:  broker.NewBaseEvent(models.EventTypeOrderCompleted),
			OrderID:    orderID,
			TableID:    order.TableID,
			TotalPrice: result.TotalPrice.StringFixed(2),
			Items:      items,
			Dishes:     result.Dishes,
		}
		if err := s.Publisher.PublishOrderCompleted(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCompleted event",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}
	return result, nil
}

// TotalPrice sums current dish price times quantity over an order's lines
func (s *OrderService) TotalPrice(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.TotalPrice", attribute.Int64("order_id", orderID))
	defer span.End()

	if _, err := s.Store.GetOrder(ctx, orderID); err != nil {
		return decimal.Zero, err
	}
	items, err := s.Store.GetOrderItems(ctx, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load order items: %w", err)
	}
	dishes, err := s.Store.GetDishesByIDs(ctx, store.ItemDishIDs(items))
	if err != nil {
		return decimal.Zero, err
	}
	return orderTotal(items, dishes), nil
}

// orderTotal skips lines whose dish is missing from dishes
func orderTotal(items []models.OrderItem, dishes map[int64]*models.Dish) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		dish, ok := dishes[item.DishID]
		if !ok {
			continue
		}
		total = total.Add(dish.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
