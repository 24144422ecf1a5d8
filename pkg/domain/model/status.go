package model

type OrderStatus string

const (
	OrderCreated              OrderStatus = "created"
	OrderConfirmed            OrderStatus = "confirmed"
	OrderShipped              OrderStatus = "shipped"
	OrderDelivered            OrderStatus = "delivered"
	OrderCancelled            OrderStatus = "cancelled"
	OrderReturnRequested      OrderStatus = "return_requested"
	OrderReturnApproved       OrderStatus = "return_approved"
	OrderReturnRejected       OrderStatus = "return_rejected"
	OrderReturned             OrderStatus = "returned"
	OrderReplacementRequested OrderStatus = "replacement_requested"
	OrderReplacementApproved  OrderStatus = "replacement_approved"
	OrderReplacementRejected  OrderStatus = "replacement_rejected"
	OrderReplaced             OrderStatus = "replaced"
)

var orderStatuses = map[OrderStatus]Phase{
	OrderCreated:              PhaseActive,
	OrderConfirmed:            PhaseActive,
	OrderShipped:              PhaseActive,
	OrderDelivered:            PhaseActive,
	OrderCancelled:            PhaseCancelled,
	OrderReturnRequested:      PhaseReturning,
	OrderReturnApproved:       PhaseReturning,
	OrderReturnRejected:       PhaseReturning,
	OrderReturned:             PhaseReturned,
	OrderReplacementRequested: PhaseReplacing,
	OrderReplacementApproved:  PhaseReplacing,
	OrderReplacementRejected:  PhaseReplacing,
	OrderReplaced:             PhaseReplaced,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatuses[s]
	return ok
}

// Phase flattens the order status into the lifecycle variant it belongs to.
func (s OrderStatus) Phase() Phase {
	return orderStatuses[s]
}

// Terminal reports whether no guarded transition leaves this status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderCancelled, OrderReturned, OrderReplaced, OrderReturnRejected, OrderReplacementRejected:
		return true
	}
	return false
}

// Cancellable reports whether a customer may still cancel.
func (s OrderStatus) Cancellable() bool {
	return s == OrderCreated || s == OrderConfirmed
}

// Phase is the tagged lifecycle state: Active | Cancelled | Returning | Replacing | Returned | Replaced.
// Returning and Replacing carry a sub-state (requested, approved, rejected) in the OrderStatus itself.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseActive
	PhaseCancelled
	PhaseReturning
	PhaseReplacing
	PhaseReturned
	PhaseReplaced
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseCancelled:
		return "cancelled"
	case PhaseReturning:
		return "returning"
	case PhaseReplacing:
		return "replacing"
	case PhaseReturned:
		return "returned"
	case PhaseReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "pending"
	DeliveryProcessing     DeliveryStatus = "processing"
	DeliveryPacked         DeliveryStatus = "packed"
	DeliveryShipped        DeliveryStatus = "shipped"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryFailed         DeliveryStatus = "failed"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryProcessing, DeliveryPacked, DeliveryShipped,
		DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "cod"
	PaymentMethodUPI      PaymentMethod = "upi"
	PaymentMethodRazorpay PaymentMethod = "razorpay"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodUPI, PaymentMethodRazorpay:
		return true
	}
	return false
}

// SettlesOnCreate reports whether the method is paid at the moment the order is placed.
func (m PaymentMethod) SettlesOnCreate() bool {
	return m == PaymentMethodUPI
}

// RequiresGateway reports whether checkout must create an external payment intent.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentMethodRazorpay
}
