package service

import (
	"context"
	"math"
	"strconv"
	"time"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"
	"restaurant-ledger/internal/store"
	"restaurant-ledger/internal/util"

	"go.uber.org/zap"
)

// EventPublisher is the outbound side of the ledger event stream
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) error
	PublishPortionsProduced(ctx context.Context, event *models.PortionsProducedEvent) error
	PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error
}

// StockCache holds read-through snapshots of product and dish counters
type StockCache interface {
	SetProductSnapshot(ctx context.Context, snap models.ProductSnapshot, version time.Time) error
	GetAvailable(ctx context.Context, productID int64) (float64, bool, error)
	SetPortions(ctx context.Context, dishID int64, portions int, version time.Time) error
	GetPortions(ctx context.Context, dishID int64) (int, bool, error)
	InvalidateProduct(ctx context.Context, productID int64) error
	InvalidateDish(ctx context.Context, dishID int64) error
}

// RequestClaimer records idempotency keys of requests already accepted
type RequestClaimer interface {
	ClaimRequest(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ForgetRequest(ctx context.Context, key string) error
}

// Deps bundles what the ledger services share. Publisher, Cache and
// Requests are optional and may be left nil.
type Deps struct {
	Store          store.Repository
	Publisher      EventPublisher
	Cache          StockCache
	Requests       RequestClaimer
	StrictUnits    bool
	IdempotencyTTL time.Duration
}

type base struct {
	Deps
	logger *zap.Logger
}

func newBase(deps Deps) base {
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = 24 * time.Hour
	}
	return base{Deps: deps, logger: util.GetLogger()}
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return apperr.New(apperr.CodeValidation, "amount must be a finite number")
	}
	return nil
}

// observe times a ledger operation
func observe(op string) func() {
	start := time.Now()
	return func() {
		util.LedgerOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// recordProducts pushes committed product figures to the cache and gauge.
// Each snapshot is versioned by its row's updated_at. A failed write drops
// the cached entry so reads fall back to the store.
func (b *base) recordProducts(ctx context.Context, snaps []models.ProductSnapshot) {
	for _, snap := range snaps {
		util.ProductAvailable.WithLabelValues(strconv.FormatInt(snap.ProductID, 10)).Set(snap.Available)
		if b.Cache == nil {
			continue
		}
		err := b.Cache.SetProductSnapshot(ctx, snap, snap.UpdatedAt)
		if err == nil {
			continue
		}
		b.logger.Warn("Failed to cache product snapshot",
			zap.Int64("product_id", snap.ProductID),
			zap.Error(err))
		if err := b.Cache.InvalidateProduct(context.WithoutCancel(ctx), snap.ProductID); err != nil {
			b.logger.Error("Failed to invalidate cached product, reads may be stale",
				zap.Int64("product_id", snap.ProductID),
				zap.Error(err))
		}
	}
}

// recordDishes pushes committed portion counters to the cache, with the
// same versioning and fallback as recordProducts.
func (b *base) recordDishes(ctx context.Context, snaps []models.DishSnapshot) {
	if b.Cache == nil {
		return
	}
	for _, snap := range snaps {
		err := b.Cache.SetPortions(ctx, snap.DishID, snap.Portions, snap.UpdatedAt)
		if err == nil {
			continue
		}
		b.logger.Warn("Failed to cache dish portions",
			zap.Int64("dish_id", snap.DishID),
			zap.Error(err))
		if err := b.Cache.InvalidateDish(context.WithoutCancel(ctx), snap.DishID); err != nil {
			b.logger.Error("Failed to invalidate cached dish, reads may be stale",
				zap.Int64("dish_id", snap.DishID),
				zap.Error(err))
		}
	}
}

// claimRequest takes key for the duration of one operation. Keys live under
// scope, which names the operation and the resource it targets, so one
// client key can be reused across different requests. The returned func
// must be called with the operation's outcome; a failed operation gives the
// key back so the client can retry.
func (b *base) claimRequest(ctx context.Context, scope, key string) (func(failed bool), error) {
	noop := func(bool) {}
	if key == "" || b.Requests == nil {
		return noop, nil
	}

	scoped := scope + ":" + key
	claimed, err := b.Requests.ClaimRequest(ctx, scoped, b.IdempotencyTTL)
	if err != nil {
		return noop, apperr.Wrap(apperr.CodeDependency, err, "idempotency store unavailable")
	}
	if !claimed {
		return noop, apperr.Newf(apperr.CodeConflict, "request %q was already processed", key)
	}

	return func(failed bool) {
		if !failed {
			return
		}
		if err := b.Requests.ForgetRequest(context.WithoutCancel(ctx), scoped); err != nil {
			b.logger.Warn("Failed to release idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(err))
		}
	}, nil
}

func dishSnapshot(d *models.Dish) models.DishSnapshot {
	return models.DishSnapshot{DishID: d.ID, Name: d.Name, Portions: d.Portions, UpdatedAt: d.UpdatedAt}
}
