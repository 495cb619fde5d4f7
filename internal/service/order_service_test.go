package service

import (
	"context"
	"testing"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/ledger"
	"restaurant-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDineIn(t *testing.T, f *fixture) *OrderView {
	t.Helper()
	view, created, err := f.orders.OpenOrder(context.Background(), &OpenOrderRequest{
		Type:    models.OrderTypeDineIn,
		TableID: &f.table.ID,
	})
	require.NoError(t, err)
	require.True(t, created)
	return view
}

func tableOccupied(t *testing.T, f *fixture) bool {
	t.Helper()
	table, err := f.store.GetTable(context.Background(), f.table.ID)
	require.NoError(t, err)
	return table.IsOccupied
}

func TestSoupOrderScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPortions(t, f.soup.ID, 10)

	order := openDineIn(t, f)
	assert.True(t, tableOccupied(t, f))
	_, err := f.orders.AddItem(ctx, order.ID, f.soup.ID, 3)
	require.NoError(t, err)

	res, err := f.orders.CompleteOrder(ctx, order.ID, "")
	require.NoError(t, err)
	assert.True(t, res.TotalPrice.Equal(decimal.RequireFromString("13.50")))
	assert.False(t, res.CompletedAt.IsZero())

	assert.Equal(t, 7, f.dish(t, f.soup.ID).Portions)
	got, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.False(t, tableOccupied(t, f))

	_, err = f.orders.CompleteOrder(ctx, order.ID, "")
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict))
	assert.Equal(t, 7, f.dish(t, f.soup.ID).Portions)
}

func TestCompleteOrderIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPortions(t, f.soup.ID, 5)
	f.setPortions(t, f.salad.ID, 1)

	order := openDineIn(t, f)
	_, err := f.orders.AddItem(ctx, order.ID, f.soup.ID, 2)
	require.NoError(t, err)
	_, err = f.orders.AddItem(ctx, order.ID, f.salad.ID, 3)
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, order.ID, "")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficient))
	assert.Contains(t, err.Error(), "Salad (requested 3, available 1)")
	assert.NotContains(t, err.Error(), "Soup")

	shortages, ok := apperr.As(err).Details().([]ledger.DishShortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, f.salad.ID, shortages[0].DishID)

	assert.Equal(t, 5, f.dish(t, f.soup.ID).Portions)
	assert.Equal(t, 1, f.dish(t, f.salad.ID).Portions)
	got, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
	assert.True(t, tableOccupied(t, f))
	assert.Empty(t, f.publisher.orders)
}

func TestCompleteOrderListsEveryShortDish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPortions(t, f.soup.ID, 1)

	order := openDineIn(t, f)
	_, err := f.orders.AddItem(ctx, order.ID, f.soup.ID, 3)
	require.NoError(t, err)
	_, err = f.orders.AddItem(ctx, order.ID, f.salad.ID, 2)
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, order.ID, "")
	require.Error(t, err)
	assert.Equal(t,
		"not enough portions: Soup (requested 3, available 1); Salad (requested 2, available 0)",
		apperr.As(err).Message())
}

func TestCompleteOrderPublishesAndCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPortions(t, f.salad.ID, 4)

	view, created, err := f.orders.OpenOrder(ctx, &OpenOrderRequest{
		Type:         models.OrderTypeTakeaway,
		CustomerName: "Ann",
	})
	require.NoError(t, err)
	require.True(t, created)
	_, err = f.orders.AddItem(ctx, view.ID, f.salad.ID, 2)
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, view.ID, "")
	require.NoError(t, err)

	require.Len(t, f.publisher.orders, 1)
	event := f.publisher.orders[0]
	assert.Equal(t, "6.50", event.TotalPrice)
	assert.Nil(t, event.TableID)
	require.Len(t, event.Dishes, 1)
	assert.Equal(t, 2, event.Dishes[0].Portions)
	assert.Equal(t, 2, f.cache.portions[f.salad.ID])
}

func TestCompleteOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPortions(t, f.soup.ID, 1)

	order := openDineIn(t, f)
	_, err := f.orders.AddItem(ctx, order.ID, f.soup.ID, 2)
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, order.ID, "checkout-1")
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficient))

	_, err = f.kitchen.AddPortions(ctx, f.soup.ID, 1, "")
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, order.ID, "checkout-1")
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, order.ID, "checkout-1")
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

func TestIdempotencyKeyScopedToOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.kitchen.AddPortions(ctx, f.soup.ID, 1, "shift-7")
	require.NoError(t, err)

	order := openDineIn(t, f)
	_, err = f.orders.AddItem(ctx, order.ID, f.soup.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.CompleteOrder(ctx, order.ID, "shift-7")
	require.NoError(t, err)
	assert.Equal(t, 0, f.dish(t, f.soup.ID).Portions)
}

func TestOpenOrderReusesTableOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := openDineIn(t, f)
	again, created, err := f.orders.OpenOrder(ctx, &OpenOrderRequest{
		Type:    models.OrderTypeDineIn,
		TableID: &f.table.ID,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	f.setPortions(t, f.soup.ID, 1)
	_, err = f.orders.AddItem(ctx, first.ID, f.soup.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.CompleteOrder(ctx, first.ID, "")
	require.NoError(t, err)

	next := openDineIn(t, f)
	assert.NotEqual(t, first.ID, next.ID)
	assert.True(t, tableOccupied(t, f))
}

func TestOpenOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := int64(999)

	tests := []struct {
		name string
		req  OpenOrderRequest
		code apperr.Code
	}{
		{"unknown type", OpenOrderRequest{Type: "drive_through"}, apperr.CodeValidation},
		{"dine in without table", OpenOrderRequest{Type: models.OrderTypeDineIn}, apperr.CodeValidation},
		{"takeaway with table", OpenOrderRequest{Type: models.OrderTypeTakeaway, TableID: &f.table.ID}, apperr.CodeValidation},
		{"delivery without address", OpenOrderRequest{Type: models.OrderTypeDelivery, DeliveryAddress: "  "}, apperr.CodeValidation},
		{"missing table", OpenOrderRequest{Type: models.OrderTypeDineIn, TableID: &missing}, apperr.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.orders.OpenOrder(ctx, &tt.req)
			assert.True(t, apperr.IsCode(err, tt.code), "got %v", err)
		})
	}

	view, created, err := f.orders.OpenOrder(ctx, &OpenOrderRequest{
		Type:            models.OrderTypeDelivery,
		CustomerPhone:   "555-0100",
		DeliveryAddress: "1 Main St",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "1 Main St", view.DeliveryAddress)
}

func TestOrderItemLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := openDineIn(t, f)

	view, err := f.orders.AddItem(ctx, order.ID, f.soup.ID, 2)
	require.NoError(t, err)
	view, err = f.orders.AddItem(ctx, order.ID, f.soup.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)

	view, err = f.orders.UpdateItem(ctx, order.ID, f.soup.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Items[0].Quantity)

	total, err := f.orders.TotalPrice(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("22.50")))

	view, err = f.orders.UpdateItem(ctx, order.ID, f.soup.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.orders.RemoveItem(ctx, order.ID, f.soup.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	_, err = f.orders.AddItem(ctx, order.ID, f.salad.ID, 0)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
	_, err = f.orders.UpdateItem(ctx, order.ID, f.salad.ID, -1)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
	_, err = f.orders.AddItem(ctx, order.ID, 999, 1)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	_, err = f.orders.AddItem(ctx, 999, f.soup.ID, 1)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestCompletedOrderRejectsItemChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPortions(t, f.soup.ID, 2)

	order := openDineIn(t, f)
	_, err := f.orders.AddItem(ctx, order.ID, f.soup.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.CompleteOrder(ctx, order.ID, "")
	require.NoError(t, err)

	_, err = f.orders.AddItem(ctx, order.ID, f.soup.ID, 1)
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict))
	_, err = f.orders.UpdateItem(ctx, order.ID, f.soup.ID, 0)
	assert.True(t, apperr.IsCode(err, apperr.CodeStateConflict))
}

func TestTotalPriceUsesDecimal(t *testing.T) {
	dishes := map[int64]*models.Dish{
		1: {ID: 1, Price: decimal.RequireFromString("0.10")},
		2: {ID: 2, Price: decimal.RequireFromString("0.20")},
	}
	items := []models.OrderItem{
		{DishID: 1, Quantity: 3},
		{DishID: 2, Quantity: 1},
		{DishID: 9, Quantity: 4},
	}

	total := orderTotal(items, dishes)
	assert.Equal(t, "0.5", total.String())
}
