package broker

import (
	"context"
	"encoding/json"
	"testing"

	"restaurant-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRoutesStockEvents(t *testing.T) {
	handler := NewEventHandler()

	var got []string
	handler.OnStockChanged(func(_ context.Context, e *models.StockChangedEvent) error {
		got = append(got, e.EventType)
		assert.Equal(t, int64(7), e.Product.ProductID)
		return nil
	})

	for _, eventType := range []string{
		models.EventTypeStockReserved,
		models.EventTypeStockReleased,
		models.EventTypeStockCommitted,
	} {
		payload, err := json.Marshal(models.StockChangedEvent{
			BaseEvent: NewBaseEvent(eventType),
			Amount:    1.5,
			Product:   models.ProductSnapshot{ProductID: 7, Available: 2},
		})
		require.NoError(t, err)
		require.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	}

	assert.Equal(t, []string{
		models.EventTypeStockReserved,
		models.EventTypeStockReleased,
		models.EventTypeStockCommitted,
	}, got)
}

func TestHandlerRoutesPortionsProduced(t *testing.T) {
	handler := NewEventHandler()

	var got *models.PortionsProducedEvent
	handler.OnPortionsProduced(func(_ context.Context, e *models.PortionsProducedEvent) error {
		got = e
		return nil
	})

	payload, err := json.Marshal(models.PortionsProducedEvent{
		BaseEvent: NewBaseEvent(models.EventTypePortionsProduced),
		Count:     2,
		Dish:      models.DishSnapshot{DishID: 3, Name: "Soup", Portions: 2},
		Products:  []models.ProductSnapshot{{ProductID: 1, Available: 0.5}},
	})
	require.NoError(t, err)
	require.NoError(t, handler.Handle(context.Background(), payload))

	require.NotNil(t, got)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Products, 1)
	assert.Equal(t, 0.5, got.Products[0].Available)
}

func TestHandlerIgnoresUnregisteredAndUnknown(t *testing.T) {
	handler := NewEventHandler()

	payload, err := json.Marshal(models.OrderCompletedEvent{
		BaseEvent: NewBaseEvent(models.EventTypeOrderCompleted),
		OrderID:   9,
	})
	require.NoError(t, err)
	assert.NoError(t, handler.Handle(context.Background(), payload))

	assert.NoError(t, handler.Handle(context.Background(), []byte(`{"event_type":"SOMETHING_ELSE"}`)))
	assert.Error(t, handler.Handle(context.Background(), []byte(`not json`)))
}

func TestNewBaseEvent(t *testing.T) {
	a := NewBaseEvent(models.EventTypeOrderCompleted)
	b := NewBaseEvent(models.EventTypeOrderCompleted)

	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, models.EventTypeOrderCompleted, a.EventType)
	assert.False(t, a.Timestamp.IsZero())
}
