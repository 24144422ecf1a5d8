package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func timePtr(t time.Time) *time.Time { return &t }

// --- Orders ---

type mockOrderRepository struct {
	mu    sync.Mutex
	store map[string]*model.Order
	// beforeUpdate runs inside Update before the version check.
	beforeUpdate func(order *model.Order)
	updates      int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{store: make(map[string]*model.Order)}
}

func (m *mockOrderRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockOrderRepository) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[order.OrderID]; exists {
		return errors.New("order already exists")
	}
	m.store[order.OrderID] = cloneOrder(order)
	return nil
}

func (m *mockOrderRepository) Find(_ context.Context, orderID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *mockOrderRepository) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.store {
		if o.Payment.GatewayOrderID == gatewayOrderID {
			return cloneOrder(o), nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (m *mockOrderRepository) Update(_ context.Context, order *model.Order) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store[order.OrderID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if existing.Version != order.Version-1 {
		return model.ErrOptimisticLock
	}
	m.store[order.OrderID] = cloneOrder(order)
	m.updates++
	return nil
}

func (m *mockOrderRepository) List(_ context.Context) ([]model.Order, error) {
	return m.filter(func(*model.Order) bool { return true }), nil
}

func (m *mockOrderRepository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.CustomerID == customerID }), nil
}

func (m *mockOrderRepository) filter(keep func(*model.Order) bool) []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Order, 0, len(m.store))
	for _, o := range m.store {
		if keep(o) {
			result = append(result, *cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

// put stores an order directly, bypassing the service.
func (m *mockOrderRepository) put(o *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[o.OrderID] = cloneOrder(o)
}

func (m *mockOrderRepository) get(orderID string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneOrder(m.store[orderID])
}

func cloneOrder(o *model.Order) *model.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = append([]model.OrderLine(nil), o.Lines...)
	if o.ReturnRequest != nil {
		r := *o.ReturnRequest
		c.ReturnRequest = &r
	}
	if o.ReplacementRequest != nil {
		r := *o.ReplacementRequest
		c.ReplacementRequest = &r
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}

// --- Coupons ---

type mockCouponRepository struct {
	store map[string]*model.Coupon
}

func newMockCouponRepository(coupons ...model.Coupon) *mockCouponRepository {
	m := &mockCouponRepository{store: make(map[string]*model.Coupon)}
	for i := range coupons {
		c := coupons[i]
		m.store[c.Code] = &c
	}
	return m
}

func (m *mockCouponRepository) FindActive(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := m.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, model.ErrCouponNotFound
	}
	return c, nil
}

func (m *mockCouponRepository) Find(_ context.Context, code string) (*model.Coupon, error) {
	c, ok := m.store[code]
	if !ok {
		return nil, model.ErrCouponNotFound
	}
	val := *c
	return &val, nil
}

func (m *mockCouponRepository) List(_ context.Context) ([]model.Coupon, error) {
	result := make([]model.Coupon, 0, len(m.store))
	for _, c := range m.store {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockCouponRepository) ListActive(ctx context.Context) ([]model.Coupon, error) {
	all, _ := m.List(ctx)
	result := make([]model.Coupon, 0, len(all))
	for _, c := range all {
		if c.Active {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCouponRepository) Create(_ context.Context, c *model.Coupon) error {
	if _, exists := m.store[c.Code]; exists {
		return model.ErrCouponExists
	}
	val := *c
	m.store[c.Code] = &val
	return nil
}

func (m *mockCouponRepository) Update(_ context.Context, c *model.Coupon) error {
	if _, exists := m.store[c.Code]; !exists {
		return model.ErrCouponNotFound
	}
	val := *c
	m.store[c.Code] = &val
	return nil
}

func (m *mockCouponRepository) Delete(_ context.Context, code string) error {
	if _, exists := m.store[code]; !exists {
		return model.ErrCouponNotFound
	}
	delete(m.store, code)
	return nil
}

// --- Catalog ---

type mockProductRepository struct {
	products map[string]model.Product
	err      error
}

func newMockProductRepository(products ...model.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[string]model.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) FindByIDs(_ context.Context, ids []string) (map[string]model.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make(map[string]model.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

type mockCustomerRepository struct {
	customers map[uuid.UUID]*model.Customer
	addresses map[uuid.UUID][]model.DeliveryAddress
}

func newMockCustomerRepository(customers ...model.Customer) *mockCustomerRepository {
	m := &mockCustomerRepository{
		customers: make(map[uuid.UUID]*model.Customer),
		addresses: make(map[uuid.UUID][]model.DeliveryAddress),
	}
	for i := range customers {
		c := customers[i]
		m.customers[c.ID] = &c
	}
	return m
}

func (m *mockCustomerRepository) Find(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, model.ErrCustomerNotFound
	}
	val := *c
	return &val, nil
}

func (m *mockCustomerRepository) SaveAddress(_ context.Context, id uuid.UUID, address model.DeliveryAddress) error {
	c, ok := m.customers[id]
	if !ok {
		return model.ErrCustomerNotFound
	}
	c.Phone = address.Phone
	for _, a := range m.addresses[id] {
		if a == address {
			return nil
		}
	}
	m.addresses[id] = append(m.addresses[id], address)
	return nil
}

// --- Events ---

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) last() service.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

// --- Gateway ---

type mockGateway struct {
	mu       sync.Mutex
	requests []service.ChargeRequest
	err      error
	nextID   string
}

func (m *mockGateway) CreateCharge(_ context.Context, req service.ChargeRequest) (*service.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	id := m.nextID
	if id == "" {
		id = "order_gw_1"
	}
	return &service.Charge{ID: id, AmountMinorUnits: req.AmountMinorUnits, Currency: req.Currency}, nil
}

func (m *mockGateway) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
