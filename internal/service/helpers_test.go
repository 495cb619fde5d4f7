package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"restaurant-ledger/internal/models"
	"restaurant-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	stock    []*models.StockChangedEvent
	produced []*models.PortionsProducedEvent
	orders   []*models.OrderCompletedEvent
	err      error
}

func (f *fakePublisher) PublishStockChanged(_ context.Context, e *models.StockChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock = append(f.stock, e)
	return f.err
}

func (f *fakePublisher) PublishPortionsProduced(_ context.Context, e *models.PortionsProducedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.produced = append(f.produced, e)
	return f.err
}

func (f *fakePublisher) PublishOrderCompleted(_ context.Context, e *models.OrderCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, e)
	return f.err
}

// fakeCache keeps the newest version per entry, like the snapshot script.
// setErr fails writes and invalidateErr fails invalidations.
type fakeCache struct {
	mu            sync.Mutex
	available     map[int64]float64
	portions      map[int64]int
	versions      map[string]time.Time
	err           error
	setErr        error
	invalidateErr error
	invalidated   []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		available: map[int64]float64{},
		portions:  map[int64]int{},
		versions:  map[string]time.Time{},
	}
}

// accept reports whether a write at version may replace key's entry
func (c *fakeCache) accept(key string, version time.Time) bool {
	if version.Before(c.versions[key]) {
		return false
	}
	c.versions[key] = version
	return true
}

func (c *fakeCache) SetProductSnapshot(_ context.Context, snap models.ProductSnapshot, version time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.accept(fmt.Sprintf("product:%d", snap.ProductID), version) {
		c.available[snap.ProductID] = snap.Available
	}
	return nil
}

func (c *fakeCache) GetAvailable(_ context.Context, productID int64) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	v, ok := c.available[productID]
	return v, ok, nil
}

func (c *fakeCache) SetPortions(_ context.Context, dishID int64, portions int, version time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.accept(fmt.Sprintf("dish:%d", dishID), version) {
		c.portions[dishID] = portions
	}
	return nil
}

func (c *fakeCache) GetPortions(_ context.Context, dishID int64) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	v, ok := c.portions[dishID]
	return v, ok, nil
}

func (c *fakeCache) InvalidateProduct(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	key := fmt.Sprintf("product:%d", productID)
	c.invalidated = append(c.invalidated, key)
	delete(c.available, productID)
	delete(c.versions, key)
	return nil
}

func (c *fakeCache) InvalidateDish(_ context.Context, dishID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	key := fmt.Sprintf("dish:%d", dishID)
	c.invalidated = append(c.invalidated, key)
	delete(c.portions, dishID)
	delete(c.versions, key)
	return nil
}

type fakeClaimer struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{keys: map[string]bool{}}
}

func (c *fakeClaimer) ClaimRequest(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func (c *fakeClaimer) ForgetRequest(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

var errBroker = errors.New("broker down")

// fixture is a kitchen with one soup recipe and a table
type fixture struct {
	store     *store.MemoryStore
	publisher *fakePublisher
	cache     *fakeCache
	claimer   *fakeClaimer

	stock   *StockService
	kitchen *KitchenService
	orders  *OrderService

	flour *models.Product
	water *models.Product
	soup  *models.Dish
	salad *models.Dish
	table *models.Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     store.NewMemoryStore(),
		publisher: &fakePublisher{},
		cache:     newFakeCache(),
		claimer:   newFakeClaimer(),
	}
	deps := Deps{
		Store:     f.store,
		Publisher: f.publisher,
		Cache:     f.cache,
		Requests:  f.claimer,
	}
	f.stock = NewStockService(deps)
	f.kitchen = NewKitchenService(deps)
	f.orders = NewOrderService(deps)

	f.flour = &models.Product{Name: "Flour", Unit: models.UnitKilograms, Quantity: 6}
	f.water = &models.Product{Name: "Water", Unit: models.UnitLiters, Quantity: 100}
	f.store.PutProduct(f.flour)
	f.store.PutProduct(f.water)

	f.soup = &models.Dish{Name: "Soup", Price: decimal.RequireFromString("4.50")}
	f.salad = &models.Dish{Name: "Salad", Price: decimal.RequireFromString("3.25")}
	f.store.PutDish(f.soup)
	f.store.PutDish(f.salad)

	f.table = &models.Table{Number: 1, Seats: 4}
	f.store.PutTable(f.table)

	ctx := context.Background()
	_, err := f.kitchen.AddIngredient(ctx, f.soup.ID, &AddIngredientRequest{
		ProductID: f.flour.ID, Quantity: 500, Unit: models.UnitGrams,
	})
	require.NoError(t, err)
	_, err = f.kitchen.AddIngredient(ctx, f.soup.ID, &AddIngredientRequest{
		ProductID: f.water.ID, Quantity: 300, Unit: models.UnitMilliliters,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) product(t *testing.T, id int64) *models.Product {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) dish(t *testing.T, id int64) *models.Dish {
	t.Helper()
	d, err := f.store.GetDish(context.Background(), id)
	require.NoError(t, err)
	return d
}

func (f *fixture) setPortions(t *testing.T, dishID int64, portions int) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(tx store.Tx) error {
		d, err := tx.DishForUpdate(context.Background(), dishID)
		if err != nil {
			return err
		}
		d.Portions = portions
		return tx.UpdateDishPortions(context.Background(), d)
	})
	require.NoError(t, err)
}
