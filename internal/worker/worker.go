package worker

import (
	"context"
	"strconv"

	"restaurant-ledger/internal/broker"
	"restaurant-ledger/internal/models"
	"restaurant-ledger/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker watches the ledger event stream and raises an alert for
// every product whose available stock drops under the threshold.
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	threshold    float64
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, threshold float64) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		threshold:    threshold,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnStockChanged(w.HandleStockChanged)
	w.eventHandler.OnPortionsProduced(w.HandlePortionsProduced)

	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker", zap.Float64("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

// HandleStockChanged checks the product touched by a reserve, release or commit
func (w *StockAlertWorker) HandleStockChanged(_ context.Context, event *models.StockChangedEvent) error {
	w.check(event.EventType, event.Product)
	return nil
}

// HandlePortionsProduced checks every product a production run consumed
func (w *StockAlertWorker) HandlePortionsProduced(_ context.Context, event *models.PortionsProducedEvent) error {
	for _, snap := range event.Products {
		w.check(event.EventType, snap)
	}
	return nil
}

// check sets the gauge and alerts when snap is low. Replays only repeat the
// gauge value and an advisory alert.
func (w *StockAlertWorker) check(eventType string, snap models.ProductSnapshot) bool {
	id := strconv.FormatInt(snap.ProductID, 10)
	util.ProductAvailable.WithLabelValues(id).Set(snap.Available)

	if snap.Available >= w.threshold {
		return false
	}

	util.LowStockAlertsTotal.WithLabelValues(id).Inc()
	w.logger.Warn("Low stock",
		zap.String("event_type", eventType),
		zap.Int64("product_id", snap.ProductID),
		zap.String("product", snap.Name),
		zap.Float64("available", snap.Available),
		zap.String("unit", string(snap.Unit)),
		zap.Float64("threshold", w.threshold))
	return true
}
