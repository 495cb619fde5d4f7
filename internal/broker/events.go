package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restaurant-ledger/internal/models"
	"restaurant-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing ledger events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// NewBaseEvent stamps a fresh id and time on an event of the given type
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// PublishStockChanged publishes STOCK_RESERVED, STOCK_RELEASED or STOCK_COMMITTED
func (ep *EventPublisher) PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) error {
	key := fmt.Sprintf("product-%d", event.Product.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPortionsProduced publishes PORTIONS_PRODUCED
func (ep *EventPublisher) PublishPortionsProduced(ctx context.Context, event *models.PortionsProducedEvent) error {
	key := fmt.Sprintf("dish-%d", event.Dish.DishID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderCompleted publishes ORDER_COMPLETED
func (ep *EventPublisher) PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming ledger events
type EventHandler struct {
	onStockChanged     func(context.Context, *models.StockChangedEvent) error
	onPortionsProduced func(context.Context, *models.PortionsProducedEvent) error
	onOrderCompleted   func(context.Context, *models.OrderCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockChanged registers a handler for all three stock events
func (eh *EventHandler) OnStockChanged(handler func(context.Context, *models.StockChangedEvent) error) {
	eh.onStockChanged = handler
}

// OnPortionsProduced registers a handler for PORTIONS_PRODUCED events
func (eh *EventHandler) OnPortionsProduced(handler func(context.Context, *models.PortionsProducedEvent) error) {
	eh.onPortionsProduced = handler
}

// OnOrderCompleted registers a handler for ORDER_COMPLETED events
func (eh *EventHandler) OnOrderCompleted(handler func(context.Context, *models.OrderCompletedEvent) error) {
	eh.onOrderCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return eh.Handle(ctx, msg.Value)
}

// Handle decodes one event payload and dispatches it
func (eh *EventHandler) Handle(ctx context.Context, payload []byte) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(payload, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeStockReserved, models.EventTypeStockReleased, models.EventTypeStockCommitted:
		if eh.onStockChanged != nil {
			var event models.StockChangedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onStockChanged(ctx, &event)
		}

	case models.EventTypePortionsProduced:
		if eh.onPortionsProduced != nil {
			var event models.PortionsProducedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PortionsProduced event: %w", err)
			}
			return eh.onPortionsProduced(ctx, &event)
		}

	case models.EventTypeOrderCompleted:
		if eh.onOrderCompleted != nil {
			var event models.OrderCompletedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCompleted event: %w", err)
			}
			return eh.onOrderCompleted(ctx, &event)
		}

	default:
		logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
