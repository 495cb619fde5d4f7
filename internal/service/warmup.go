package service

import (
	"context"
	"fmt"

	"restaurant-ledger/internal/ledger"
	"restaurant-ledger/internal/models"

	"go.uber.org/zap"
)

// WarmCache loads every product and dish counter into the cache. Snapshots
// are versioned by the rows' updated_at, so a mutation committed while
// warming is never overwritten by the older copy read here.
func (s *StockService) WarmCache(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	s.logger.Info("Starting stock cache warm-up")

	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}
	snaps := make([]models.ProductSnapshot, 0, len(products))
	for i := range products {
		snaps = append(snaps, ledger.Snapshot(&products[i]))
	}
	s.recordProducts(ctx, snaps)

	dishes, err := s.Store.ListDishes(ctx)
	if err != nil {
		return fmt.Errorf("failed to get dishes: %w", err)
	}
	dishSnaps := make([]models.DishSnapshot, 0, len(dishes))
	for i := range dishes {
		dishSnaps = append(dishSnaps, dishSnapshot(&dishes[i]))
	}
	s.recordDishes(ctx, dishSnaps)

	s.logger.Info("Stock cache warm-up completed",
		zap.Int("products", len(products)),
		zap.Int("dishes", len(dishes)))
	return nil
}
