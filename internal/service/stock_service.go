package service

import (
	"context"
	"fmt"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/broker"
	"restaurant-ledger/internal/ledger"
	"restaurant-ledger/internal/models"
	"restaurant-ledger/internal/store"
	"restaurant-ledger/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StockService handles product reservations
type StockService struct {
	base
}

// NewStockService creates a new stock service
func NewStockService(deps Deps) *StockService {
	return &StockService{base: newBase(deps)}
}

// StockResult is the outcome of a reserve, release or commit call
type StockResult struct {
	OK      bool                   `json:"ok"`
	Product models.ProductSnapshot `json:"product"`
}

// Reserve places a soft hold of amount on a product. OK is false when not
// enough stock is available; nothing changes in that case.
func (s *StockService) Reserve(ctx context.Context, productID int64, amount float64) (*StockResult, error) {
	return s.mutate(ctx, "reserve", models.EventTypeStockReserved, productID, amount, func(p *models.Product) bool {
		return ledger.Reserve(p, amount)
	})
}

// Release drops up to amount from a product's hold
func (s *StockService) Release(ctx context.Context, productID int64, amount float64) (*StockResult, error) {
	if amount < 0 {
		return nil, apperr.New(apperr.CodeValidation, "release amount must not be negative")
	}
	return s.mutate(ctx, "release", models.EventTypeStockReleased, productID, amount, func(p *models.Product) bool {
		ledger.Release(p, amount)
		return true
	})
}

// Commit turns amount of a hold into consumed stock. OK is false when the
// hold is smaller than amount.
func (s *StockService) Commit(ctx context.Context, productID int64, amount float64) (*StockResult, error) {
	if amount < 0 {
		return nil, apperr.New(apperr.CodeValidation, "commit amount must not be negative")
	}
	return s.mutate(ctx, "commit", models.EventTypeStockCommitted, productID, amount, func(p *models.Product) bool {
		return ledger.Commit(p, amount)
	})
}

func (s *StockService) mutate(
	ctx context.Context,
	op, eventType string,
	productID int64,
	amount float64,
	apply func(p *models.Product) bool,
) (result *StockResult, err error) {
	ctx, span := util.StartSpan(ctx, "StockService."+op,
		attribute.Int64("product_id", productID),
		attribute.Float64("amount", amount))
	defer func() { util.EndSpan(span, err) }()
	defer observe(op)()

	if err := validAmount(amount); err != nil {
		return nil, err
	}

	result = &StockResult{}
	var changed bool
	err = s.Store.WithinTx(ctx, func(tx store.Tx) error {
		product, err := tx.ProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		before := *product
		result.OK = apply(product)
		result.Product = ledger.Snapshot(product)
		if !result.OK || *product == before {
			return nil
		}

		if err := tx.UpdateProductStock(ctx, product); err != nil {
			return err
		}
		result.Product = ledger.Snapshot(product)
		changed = true
		return nil
	})
	if err != nil {
		util.ReservationsTotal.WithLabelValues(op, "error").Inc()
		return nil, err
	}

	if !result.OK {
		util.ReservationsTotal.WithLabelValues(op, "insufficient").Inc()
		s.logger.Info("Stock operation refused",
			zap.String("op", op),
			zap.Int64("product_id", productID),
			zap.Float64("amount", amount),
			zap.Float64("available", result.Product.Available),
			zap.Float64("reserved", result.Product.ReservedQuantity))
		return result, nil
	}

	util.ReservationsTotal.WithLabelValues(op, "ok").Inc()
	if !changed {
		return result, nil
	}

	s.recordProducts(ctx, []models.ProductSnapshot{result.Product})
	s.publish(ctx, &models.StockChangedEvent{
		BaseEvent: broker.NewBaseEvent(eventType),
		Amount:    amount,
		Product:   result.Product,
	})
	return result, nil
}

func (s *StockService) publish(ctx context.Context, event *models.StockChangedEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishStockChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish stock event",
			zap.String("type", event.EventType),
			zap.Int64("product_id", event.Product.ProductID),
			zap.Error(err))
	}
}

// AvailableQuantity returns quantity minus reserved for a product, served
// from the cache when a snapshot is present.
func (s *StockService) AvailableQuantity(ctx context.Context, productID int64) (float64, error) {
	ctx, span := util.StartSpan(ctx, "StockService.AvailableQuantity", attribute.Int64("product_id", productID))
	defer span.End()

	if s.Cache != nil {
		available, ok, err := s.Cache.GetAvailable(ctx, productID)
		if err != nil {
			s.logger.Warn("Cache read failed, falling back to store",
				zap.Int64("product_id", productID),
				zap.Error(err))
		} else if ok {
			return available, nil
		}
	}

	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return ledger.Available(product), nil
}

// Product returns a product's current stock figures from the store
func (s *StockService) Product(ctx context.Context, productID int64) (models.ProductSnapshot, error) {
	product, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		return models.ProductSnapshot{}, err
	}
	return ledger.Snapshot(product), nil
}

// Products lists every product's stock figures, ordered by id
func (s *StockService) Products(ctx context.Context) ([]models.ProductSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "StockService.Products")
	defer span.End()

	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	snaps := make([]models.ProductSnapshot, 0, len(products))
	for i := range products {
		snaps = append(snaps, ledger.Snapshot(&products[i]))
	}
	return snaps, nil
}
