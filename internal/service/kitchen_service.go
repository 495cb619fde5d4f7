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

// KitchenService manages recipes and turns raw stock into dish portions
type KitchenService struct {
	base
}

// NewKitchenService creates a new kitchen service
func NewKitchenService(deps Deps) *KitchenService {
	return &KitchenService{base: newBase(deps)}
}

// AddIngredientRequest is one recipe line to attach to a dish
type AddIngredientRequest struct {
	ProductID int64       `json:"product_id" binding:"required"`
	Quantity  float64     `json:"quantity" binding:"required,gt=0"`
	Unit      models.Unit `json:"unit,omitempty"`
}

// AddIngredient attaches a recipe line to a dish
func (s *KitchenService) AddIngredient(ctx context.Context, dishID int64, req *AddIngredientRequest) (ing *models.DishIngredient, err error) {
	ctx, span := util.StartSpan(ctx, "KitchenService.AddIngredient",
		attribute.Int64("dish_id", dishID),
		attribute.Int64("product_id", req.ProductID))
	defer func() { util.EndSpan(span, err) }()

	if err := validAmount(req.Quantity); err != nil {
		return nil, err
	}
	if err := ledger.ValidateIngredient(req.Quantity, req.Unit); err != nil {
		return nil, err
	}

	ing = &models.DishIngredient{
		DishID:    dishID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
	}
	err = s.Store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.DishForUpdate(ctx, dishID); err != nil {
			return err
		}
		if _, err := tx.ProductForUpdate(ctx, req.ProductID); err != nil {
			return err
		}
		return tx.CreateDishIngredient(ctx, ing)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ingredient added",
		zap.Int64("dish_id", dishID),
		zap.Int64("product_id", req.ProductID),
		zap.Float64("quantity", req.Quantity),
		zap.String("unit", string(req.Unit)))
	return ing, nil
}

// RequirementLine is one product's share of a production preview
type RequirementLine struct {
	ProductID  int64       `json:"product_id"`
	Name       string      `json:"name"`
	Unit       models.Unit `json:"unit"`
	PerPortion float64     `json:"per_portion"`
	Required   float64     `json:"required"`
	Available  float64     `json:"available"`
	Sufficient bool        `json:"sufficient"`
}

// RequirementsView previews what producing Count portions would consume
type RequirementsView struct {
	DishID     int64             `json:"dish_id"`
	Count      int               `json:"count"`
	CanProduce bool              `json:"can_produce"`
	Lines      []RequirementLine `json:"lines"`
}

// Requirements reports the stock count portions of a dish need, in each
// product's own unit, next to what is available now. Nothing is locked.
func (s *KitchenService) Requirements(ctx context.Context, dishID int64, count int) (view *RequirementsView, err error) {
	ctx, span := util.StartSpan(ctx, "KitchenService.Requirements", attribute.Int64("dish_id", dishID))
	defer func() { util.EndSpan(span, err) }()

	if count <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "portion count must be positive")
	}
	if _, err := s.Store.GetDish(ctx, dishID); err != nil {
		return nil, err
	}
	ingredients, err := s.Store.GetDishIngredients(ctx, dishID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	products, err := s.Store.GetProductsByIDs(ctx, store.IngredientProductIDs(ingredients))
	if err != nil {
		return nil, err
	}

	reqs, err := ledger.Requirements(ingredients, products, count, s.StrictUnits)
	if err != nil {
		return nil, err
	}

	view = &RequirementsView{DishID: dishID, Count: count, CanProduce: true, Lines: make([]RequirementLine, 0, len(reqs))}
	for _, req := range reqs {
		available := ledger.Available(req.Product)
		line := RequirementLine{
			ProductID:  req.Product.ID,
			Name:       req.Product.Name,
			Unit:       req.Product.Unit,
			PerPortion: req.PerPortion,
			Required:   req.Total,
			Available:  available,
			Sufficient: ledger.Covers(available, req.Total),
		}
		view.CanProduce = view.CanProduce && line.Sufficient
		view.Lines = append(view.Lines, line)
	}
	return view, nil
}

// ProductionResult describes a successful AddPortions call
type ProductionResult struct {
	Dish     models.DishSnapshot      `json:"dish"`
	Count    int                      `json:"count"`
	Consumed []models.StockMovement   `json:"consumed"`
	Products []models.ProductSnapshot `json:"products"`
}

// AddPortions produces count portions of a dish from raw stock. Every
// ingredient is checked before anything changes; when one product falls
// short the call fails with INSUFFICIENT_STOCK naming it and no stock or
// portion counter moves. A non-empty idempotencyKey makes retries of the
// same request fail with CONFLICT instead of producing twice.
func (s *KitchenService) AddPortions(ctx context.Context, dishID int64, count int, idempotencyKey string) (result *ProductionResult, err error) {
	ctx, span := util.StartSpan(ctx, "KitchenService.AddPortions",
		attribute.Int64("dish_id", dishID),
		attribute.Int("count", count))
	defer func() { util.EndSpan(span, err) }()
	defer observe("add_portions")()

	defer func() {
		if err != nil {
			util.ProductionRejectedTotal.WithLabelValues(string(apperr.CodeOf(err))).Inc()
		}
	}()

	if count <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "portion count must be positive")
	}

	done, err := s.claimRequest(ctx, fmt.Sprintf("add_portions:dish:%d", dishID), idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() { done(err != nil) }()

	err = s.Store.WithinTx(ctx, func(tx store.Tx) error {
		dish, err := tx.DishForUpdate(ctx, dishID)
		if err != nil {
			return err
		}
		ingredients, err := tx.DishIngredients(ctx, dishID)
		if err != nil {
			return fmt.Errorf("failed to load recipe: %w", err)
		}
		products, err := tx.ProductsForUpdate(ctx, store.IngredientProductIDs(ingredients))
		if err != nil {
			return err
		}

		plan, err := ledger.PlanProduction(ingredients, products, count, s.StrictUnits)
		if err != nil {
			return err
		}

		consumed := ledger.ApplyProduction(dish, plan, count)
		snaps := make([]models.ProductSnapshot, 0, len(plan))
		for _, req := range plan {
			if err := tx.UpdateProductStock(ctx, req.Product); err != nil {
				return fmt.Errorf("failed to update product %d: %w", req.Product.ID, err)
			}
			snaps = append(snaps, ledger.Snapshot(req.Product))
		}
		if err := tx.UpdateDishPortions(ctx, dish); err != nil {
			return fmt.Errorf("failed to update dish %d: %w", dish.ID, err)
		}

		result = &ProductionResult{
			Dish:     dishSnapshot(dish),
			Count:    count,
			Consumed: consumed,
			Products: snaps,
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Production refused",
			zap.Int64("dish_id", dishID),
			zap.Int("count", count),
			zap.Error(err))
		return nil, err
	}

	util.PortionsProducedTotal.Add(float64(count))
	s.logger.Info("Portions produced",
		zap.Int64("dish_id", dishID),
		zap.Int("count", count),
		zap.Int("portions", result.Dish.Portions))

	s.recordProducts(ctx, result.Products)
	s.recordDishes(ctx, []models.DishSnapshot{result.Dish})

	if s.Publisher != nil {
		event := &models.PortionsProducedEvent{
			BaseEvent: broker.NewBaseEvent(models.EventTypePortionsProduced),
			Count:     count,
			Dish:      result.Dish,
			Consumed:  result.Consumed,
			Products:  result.Products,
		}
		if err := s.Publisher.PublishPortionsProduced(ctx, event); err != nil {
			s.logger.Error("Failed to publish PortionsProduced event",
				zap.Int64("dish_id", dishID),
				zap.Error(err))
		}
	}
	return result, nil
}

// Portions returns a dish's ready portion counter, served from the cache
// when a snapshot is present.
func (s *KitchenService) Portions(ctx context.Context, dishID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "KitchenService.Portions", attribute.Int64("dish_id", dishID))
	defer span.End()

	if s.Cache != nil {
		portions, ok, err := s.Cache.GetPortions(ctx, dishID)
		if err != nil {
			s.logger.Warn("Cache read failed, falling back to store",
				zap.Int64("dish_id", dishID),
				zap.Error(err))
		} else if ok {
			return portions, nil
		}
	}

	dish, err := s.Store.GetDish(ctx, dishID)
	if err != nil {
		return 0, err
	}
	return dish.Portions, nil
}

// Dishes lists the menu with current portion counters, ordered by id
func (s *KitchenService) Dishes(ctx context.Context) ([]models.Dish, error) {
	ctx, span := util.StartSpan(ctx, "KitchenService.Dishes")
	defer span.End()

	dishes, err := s.Store.ListDishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	if dishes == nil {
		dishes = []models.Dish{}
	}
	return dishes, nil
}
