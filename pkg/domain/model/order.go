package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID         uuid.UUID
	OrderID    string
	CustomerID uuid.UUID // uuid.Nil for guest orders
	Customer   CustomerSnapshot
	Lines      []OrderLine

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	CouponCode     string
	Currency       string

	Delivery DeliveryAddress
	Distance Distance
	Payment  Payment

	OrderStatus    OrderStatus
	PaymentStatus  PaymentStatus
	DeliveryStatus DeliveryStatus

	ReturnRequest      *SubRequest
	ReplacementRequest *SubRequest
	DeliveredAt        *time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderLine struct {
	ProductID string
	Quantity  int
}

// CustomerSnapshot is the contact info captured when the order was placed. It is never refreshed.
type CustomerSnapshot struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type DeliveryAddress struct {
	FullName    string
	Phone       string
	AddressLine string
	City        string
	PostalCode  string
}

// Complete reports whether every shipping field is filled in.
func (a DeliveryAddress) Complete() bool {
	return a.FullName != "" && a.Phone != "" && a.AddressLine != "" && a.City != "" && a.PostalCode != ""
}

type Distance struct {
	Kilometers float64
	IsLocal    bool
}

type Payment struct {
	Method           PaymentMethod
	Gateway          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// SubRequest is a return or replacement request with its operator decision.
type SubRequest struct {
	Reason          string
	Description     string
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason string
}

// EffectivelyDelivered is true once either the order or the delivery tracking says delivered.
func (o *Order) EffectivelyDelivered() bool {
	return o.OrderStatus == OrderDelivered || o.DeliveryStatus == DeliveryDelivered
}

// DeliveryTime is the moment the return window starts counting from.
func (o *Order) DeliveryTime() time.Time {
	if o.DeliveredAt != nil {
		return *o.DeliveredAt
	}
	return o.UpdatedAt
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, order *Order) error
	Find(ctx context.Context, orderID string) (*Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	// Update stores order only if the persisted version equals order.Version-1.
	Update(ctx context.Context, order *Order) error
	List(ctx context.Context) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
}
