package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/models"
)

// MemoryStore is a Repository kept in process memory, used for local runs
// without Postgres. Transactions are serialized behind one mutex and undone
// from a snapshot when fn fails.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	seq         int64
	products    map[int64]models.Product
	dishes      map[int64]models.Dish
	ingredients map[int64]models.DishIngredient
	tables      map[int64]models.Table
	orders      map[int64]models.Order
	items       map[int64]models.OrderItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		products:    map[int64]models.Product{},
		dishes:      map[int64]models.Dish{},
		ingredients: map[int64]models.DishIngredient{},
		tables:      map[int64]models.Table{},
		orders:      map[int64]models.Order{},
		items:       map[int64]models.OrderItem{},
	}}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s memState) clone() memState {
	return memState{
		seq:         s.seq,
		products:    cloneMap(s.products),
		dishes:      cloneMap(s.dishes),
		ingredients: cloneMap(s.ingredients),
		tables:      cloneMap(s.tables),
		orders:      cloneMap(s.orders),
		items:       cloneMap(s.items),
	}
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	backup := m.state.clone()
	if err := fn(&memTx{s: &m.state}); err != nil {
		m.state = backup
		return err
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }

// PutProduct inserts or replaces a product; a zero ID gets the next one.
func (m *MemoryStore) PutProduct(p *models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.state.nextID()
	}
	p.UpdatedAt = time.Now()
	m.state.products[p.ID] = *p
}

// PutDish inserts or replaces a dish; a zero ID gets the next one.
func (m *MemoryStore) PutDish(d *models.Dish) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == 0 {
		d.ID = m.state.nextID()
	}
	d.UpdatedAt = time.Now()
	m.state.dishes[d.ID] = *d
}

// PutTable inserts or replaces a table; a zero ID gets the next one.
func (m *MemoryStore) PutTable(t *models.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.state.nextID()
	}
	m.state.tables[t.ID] = *t
}

// GetTable returns a copy of a table.
func (m *MemoryStore) GetTable(_ context.Context, id int64) (*models.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.tables[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "table %d not found", id)
	}
	return &t, nil
}

func (m *MemoryStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{s: &m.state}).product(id)
}

func (m *MemoryStore) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.state.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (m *MemoryStore) GetDish(_ context.Context, id int64) (*models.Dish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{s: &m.state}).dish(id)
}

func (m *MemoryStore) GetDishesByIDs(_ context.Context, ids []int64) (map[int64]*models.Dish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*models.Dish, len(ids))
	for _, id := range ids {
		if d, ok := m.state.dishes[id]; ok {
			out[id] = &d
		}
	}
	return out, nil
}

func (m *MemoryStore) GetDishIngredients(ctx context.Context, dishID int64) ([]models.DishIngredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{s: &m.state}).DishIngredients(ctx, dishID)
}

func (m *MemoryStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{s: &m.state}).OrderForUpdate(ctx, id)
}

func (m *MemoryStore) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{s: &m.state}).OrderItems(ctx, orderID)
}

func (m *MemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.state.products))
	for _, p := range m.state.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListDishes(_ context.Context) ([]models.Dish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Dish, 0, len(m.state.dishes))
	for _, d := range m.state.dishes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memTx works on the live state; the caller holds the store mutex.
type memTx struct {
	s *memState
}

func (t *memTx) product(id int64) (*models.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "product %d not found", id)
	}
	return &p, nil
}

func (t *memTx) dish(id int64) (*models.Dish, error) {
	d, ok := t.s.dishes[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "dish %d not found", id)
	}
	return &d, nil
}

func (t *memTx) ProductForUpdate(_ context.Context, id int64) (*models.Product, error) {
	return t.product(id)
}

func (t *memTx) ProductsForUpdate(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		p, err := t.product(id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func (t *memTx) UpdateProductStock(_ context.Context, p *models.Product) error {
	cur, ok := t.s.products[p.ID]
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "product %d not found", p.ID)
	}
	cur.Quantity = p.Quantity
	cur.ReservedQuantity = p.ReservedQuantity
	cur.UpdatedAt = time.Now()
	p.UpdatedAt = cur.UpdatedAt
	t.s.products[p.ID] = cur
	return nil
}

func (t *memTx) DishForUpdate(_ context.Context, id int64) (*models.Dish, error) {
	return t.dish(id)
}

func (t *memTx) DishesForUpdate(_ context.Context, ids []int64) (map[int64]*models.Dish, error) {
	out := make(map[int64]*models.Dish, len(ids))
	for _, id := range ids {
		d, err := t.dish(id)
		if err != nil {
			return nil, err
		}
		out[id] = d
	}
	return out, nil
}

func (t *memTx) UpdateDishPortions(_ context.Context, d *models.Dish) error {
	cur, ok := t.s.dishes[d.ID]
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "dish %d not found", d.ID)
	}
	cur.Portions = d.Portions
	cur.UpdatedAt = time.Now()
	d.UpdatedAt = cur.UpdatedAt
	t.s.dishes[d.ID] = cur
	return nil
}

func (t *memTx) DishIngredients(_ context.Context, dishID int64) ([]models.DishIngredient, error) {
	var out []models.DishIngredient
	for _, ing := range t.s.ingredients {
		if ing.DishID == dishID {
			out = append(out, ing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreateDishIngredient(_ context.Context, ing *models.DishIngredient) error {
	if _, ok := t.s.dishes[ing.DishID]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "dish %d not found", ing.DishID)
	}
	if _, ok := t.s.products[ing.ProductID]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "product %d not found", ing.ProductID)
	}
	ing.ID = t.s.nextID()
	t.s.ingredients[ing.ID] = *ing
	return nil
}

func (t *memTx) OrderForUpdate(_ context.Context, id int64) (*models.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "order %d not found", id)
	}
	return &o, nil
}

func (t *memTx) OpenOrderForTable(_ context.Context, tableID int64) (*models.Order, error) {
	for _, o := range t.s.orders {
		if o.TableID != nil && *o.TableID == tableID && !o.IsCompleted {
			return &o, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateOrder(_ context.Context, o *models.Order) error {
	o.ID = t.s.nextID()
	o.CreatedAt = time.Now()
	t.s.orders[o.ID] = *o
	return nil
}

func (t *memTx) MarkOrderCompleted(_ context.Context, o *models.Order) error {
	cur, ok := t.s.orders[o.ID]
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "order %d not found", o.ID)
	}
	now := time.Now()
	cur.IsCompleted = true
	cur.CompletedAt = &now
	t.s.orders[o.ID] = cur
	o.IsCompleted = true
	o.CompletedAt = &now
	return nil
}

func (t *memTx) OrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range t.s.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreateOrderItem(_ context.Context, item *models.OrderItem) error {
	if _, ok := t.s.dishes[item.DishID]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "dish %d not found", item.DishID)
	}
	item.ID = t.s.nextID()
	t.s.items[item.ID] = *item
	return nil
}

func (t *memTx) UpdateOrderItemQuantity(_ context.Context, itemID int64, quantity int) error {
	item, ok := t.s.items[itemID]
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "order item %d not found", itemID)
	}
	item.Quantity = quantity
	t.s.items[itemID] = item
	return nil
}

func (t *memTx) DeleteOrderItem(_ context.Context, itemID int64) error {
	delete(t.s.items, itemID)
	return nil
}

func (t *memTx) TableForUpdate(_ context.Context, id int64) (*models.Table, error) {
	tbl, ok := t.s.tables[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "table %d not found", id)
	}
	return &tbl, nil
}

func (t *memTx) SetTableOccupied(_ context.Context, id int64, occupied bool) error {
	tbl, ok := t.s.tables[id]
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "table %d not found", id)
	}
	tbl.IsOccupied = occupied
	t.s.tables[id] = tbl
	return nil
}
