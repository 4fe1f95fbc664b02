package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

const (
	shirtID = "5b0c7d64-0f8e-4c5a-9d1e-7f2b3a4c5d01"
	mugID   = "5b0c7d64-0f8e-4c5a-9d1e-7f2b3a4c5d02"
	capID   = "5b0c7d64-0f8e-4c5a-9d1e-7f2b3a4c5d03"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeStore stands in for every repository the checkout touches. Place applies its
// decrements all-or-nothing under one lock, like the database transaction does.
type fakeStore struct {
	mu           sync.Mutex
	variants     map[string]domain.Variant
	levels       map[string]domain.InventoryLevel
	discounts    map[string]domain.Discount
	placed       []orderrepo.PlaceInput
	orders       map[string]domain.Order
	orderErr     error
	placeErr     error
	decrementErr error
	variantsErr  error
	placeCtxErr  error
	decrements   []domain.StockDemand
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		variants: map[string]domain.Variant{
			shirtID: {ID: shirtID, ProductID: "p1", ProductName: "Demo Shirt", SKU: "SHIRT-M", Price: money("25.00")},
			mugID:   {ID: mugID, ProductID: "p2", ProductName: "Demo Mug", SKU: "MUG", Price: money("12.50")},
			capID:   {ID: capID, ProductID: "p3", ProductName: "Demo Cap", SKU: "CAP", Price: money("5.00")},
		},
		levels: map[string]domain.InventoryLevel{
			shirtID: {VariantID: shirtID, OnHand: 10},
			mugID:   {VariantID: mugID, OnHand: 10, Committed: 2},
		},
		discounts: map[string]domain.Discount{},
		orders:    map[string]domain.Order{},
	}
}

func (f *fakeStore) addDiscount(d domain.Discount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discounts[d.ID] = d
}

func (f *fakeStore) level(id string) domain.InventoryLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[id]
}

func (f *fakeStore) GetVariants(_ context.Context, ids []string) (map[string]domain.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.variantsErr != nil {
		return nil, f.variantsErr
	}
	out := map[string]domain.Variant{}
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeStore) GetLevels(_ context.Context, ids []string) (map[string]domain.InventoryLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]domain.InventoryLevel{}
	for _, id := range ids {
		if l, ok := f.levels[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (f *fakeStore) Decrement(_ context.Context, d domain.StockDemand) (*domain.InventoryLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements = append(f.decrements, d)
	if f.decrementErr != nil {
		return nil, f.decrementErr
	}
	l := f.levels[d.VariantID]
	if l.Available() < d.Quantity {
		return nil, &domain.InsufficientStockError{VariantID: d.VariantID, Requested: d.Quantity, Available: l.Available()}
	}
	l.OnHand -= d.Quantity
	f.levels[d.VariantID] = l
	return &l, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.discounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (*domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.discounts {
		if d.Code == domain.NormalizeCode(code) {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) Place(ctx context.Context, in orderrepo.PlaceInput) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeCtxErr = ctx.Err()
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	for _, d := range in.Decrements {
		if l := f.levels[d.VariantID]; l.Available() < d.Quantity {
			return nil, &domain.InsufficientStockError{
				VariantID: d.VariantID, ProductName: d.ProductName, SKU: d.SKU,
				Requested: d.Quantity, Available: l.Available(),
			}
		}
	}
	for _, d := range in.Decrements {
		l := f.levels[d.VariantID]
		l.OnHand -= d.Quantity
		f.levels[d.VariantID] = l
	}
	f.placed = append(f.placed, in)
	order := domain.Order{
		ID:          fmt.Sprintf("order-%d", len(f.placed)),
		Subtotal:    in.Subtotal,
		TotalAmount: in.TotalAmount,
		Status:      in.Status,
		Items:       in.Items,
	}
	f.orders[order.ID] = order
	return &order, nil
}

// fakeOrders exposes the order lookup, whose name clashes with the discount lookup on fakeStore.
type fakeOrders struct {
	*fakeStore
}

func (o fakeOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.orderErr != nil {
		return nil, o.orderErr
	}
	order, ok := o.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &order, nil
}

func (f *fakeStore) placedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

type memoryIdempotency struct {
	mu      sync.Mutex
	locks   map[string]bool
	results map[string]string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{locks: map[string]bool{}, results: map[string]string{}}
}

func (m *memoryIdempotency) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memoryIdempotency) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memoryIdempotency) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[scope+key] = value
	return nil
}

func (m *memoryIdempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.results[scope+key]
	return v, ok, nil
}
