package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
)

type memOrders struct {
	mu      sync.Mutex
	store   map[string]model.Order
	listErr error
}

func newMemOrders() *memOrders { return &memOrders{store: make(map[string]model.Order)} }

func (m *memOrders) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *memOrders) Create(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[o.OrderID] = *o
	return nil
}

func (m *memOrders) Find(_ context.Context, orderID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memOrders) FindByGatewayOrderID(_ context.Context, ref string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.store {
		if o.Payment.GatewayOrderID == ref {
			return &o, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (m *memOrders) Update(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store[o.OrderID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if existing.Version != o.Version-1 {
		return model.ErrOptimisticLock
	}
	m.store[o.OrderID] = *o
	return nil
}

func (m *memOrders) List(context.Context) ([]model.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(func(model.Order) bool { return true }), nil
}

func (m *memOrders) ListByCustomer(_ context.Context, id uuid.UUID) ([]model.Order, error) {
	return m.filter(func(o model.Order) bool { return o.CustomerID == id }), nil
}

func (m *memOrders) filter(keep func(model.Order) bool) []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.store {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

type memCoupons struct {
	mu    sync.Mutex
	store map[string]model.Coupon
}

func newMemCoupons(coupons ...model.Coupon) *memCoupons {
	m := &memCoupons{store: make(map[string]model.Coupon)}
	for _, c := range coupons {
		m.store[c.Code] = c
	}
	return m
}

func (m *memCoupons) FindActive(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := m.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, model.ErrCouponNotFound
	}
	return c, nil
}

func (m *memCoupons) Find(_ context.Context, code string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok {
		return nil, model.ErrCouponNotFound
	}
	return &c, nil
}

func (m *memCoupons) List(context.Context) ([]model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Coupon, 0, len(m.store))
	for _, c := range m.store {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCoupons) ListActive(ctx context.Context) ([]model.Coupon, error) {
	all, _ := m.List(ctx)
	var out []model.Coupon
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCoupons) Create(_ context.Context, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.Code]; ok {
		return model.ErrCouponExists
	}
	m.store[c.Code] = *c
	return nil
}

func (m *memCoupons) Update(_ context.Context, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.Code]; !ok {
		return model.ErrCouponNotFound
	}
	m.store[c.Code] = *c
	return nil
}

func (m *memCoupons) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[code]; !ok {
		return model.ErrCouponNotFound
	}
	delete(m.store, code)
	return nil
}

type memProducts map[string]model.Product

func (m memProducts) FindByIDs(_ context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product)
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memCustomers map[uuid.UUID]model.Customer

func (m memCustomers) Find(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := m[id]
	if !ok {
		return nil, model.ErrCustomerNotFound
	}
	return &c, nil
}

func (m memCustomers) SaveAddress(_ context.Context, id uuid.UUID, _ model.DeliveryAddress) error {
	if _, ok := m[id]; !ok {
		return model.ErrCustomerNotFound
	}
	return nil
}

var errDatabaseDown = errors.New("connection refused")
