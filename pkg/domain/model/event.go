package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names on the wire keep the status vocabulary (OrderCreated,
// OrderCancelled, PaymentFailed) even where the Go type name differs.

type OrderPlaced struct {
	OrderID    string
	CustomerID uuid.UUID
	Total      decimal.Decimal
	Currency   string
	CouponCode string
}

func (e OrderPlaced) Type() string { return "OrderCreated" }

type OrderWasCancelled struct {
	OrderID  string
	Refunded bool
}

func (e OrderWasCancelled) Type() string { return "OrderCancelled" }

type ReturnRequested struct {
	OrderID string
	Reason  string
}

func (e ReturnRequested) Type() string { return "ReturnRequested" }

type ReturnApproved struct {
	OrderID string
}

func (e ReturnApproved) Type() string { return "ReturnApproved" }

type ReturnRejected struct {
	OrderID string
	Reason  string
}

func (e ReturnRejected) Type() string { return "ReturnRejected" }

type ReplacementRequested struct {
	OrderID string
	Reason  string
}

func (e ReplacementRequested) Type() string { return "ReplacementRequested" }

type ReplacementApproved struct {
	OrderID string
}

func (e ReplacementApproved) Type() string { return "ReplacementApproved" }

type ReplacementRejected struct {
	OrderID string
	Reason  string
}

func (e ReplacementRejected) Type() string { return "ReplacementRejected" }

type OrderStatusesOverridden struct {
	OrderID        string
	OrderStatus    OrderStatus
	PaymentStatus  PaymentStatus
	DeliveryStatus DeliveryStatus
}

func (e OrderStatusesOverridden) Type() string { return "OrderStatusesOverridden" }

type PaymentIntentCreated struct {
	OrderID          string
	GatewayOrderID   string
	AmountMinorUnits int64
	Currency         string
}

func (e PaymentIntentCreated) Type() string { return "PaymentIntentCreated" }

type PaymentVerified struct {
	OrderID          string
	GatewayPaymentID string
}

func (e PaymentVerified) Type() string { return "PaymentVerified" }

type PaymentRejected struct {
	OrderID          string
	GatewayPaymentID string
	Reason           string
}

func (e PaymentRejected) Type() string { return "PaymentFailed" }
