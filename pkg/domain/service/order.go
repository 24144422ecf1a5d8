package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

const DefaultReturnWindow = 72 * time.Hour

var (
	ErrIncompleteDelivery   = newValidationError("delivery.fullName, delivery.phone, delivery.addressLine, delivery.city, delivery.pincode are required")
	ErrInvalidPaymentMethod = newValidationError("payment method must be one of cod, upi, razorpay")
	ErrReasonRequired       = newValidationError("reason is required")
	ErrRejectionRequired    = newValidationError("rejectionReason is required")
	ErrCustomerRequired     = newValidationError("customer id is required")
	ErrUnknownAction        = newValidationError("unknown order action")
	ErrInvalidOrderStatus   = newValidationError("unknown order status")
	ErrInvalidPayStatus     = newValidationError("unknown payment status")
	ErrInvalidDelivStatus   = newValidationError("unknown delivery status")

	ErrOrderNotCancellable         = newPreconditionError("order can only be cancelled while created or confirmed")
	ErrOrderNotDelivered           = newPreconditionError("order has not been delivered yet")
	ErrOrderCancelled              = newPreconditionError("order is cancelled")
	ErrReturnWindowClosed          = newPreconditionError("return and replacement are only possible within the window after delivery")
	ErrReturnAlreadyRequested      = newPreconditionError("a return has already been requested for this order")
	ErrReplacementAlreadyRequested = newPreconditionError("a replacement has already been requested for this order")
	ErrNoReturnRequest             = newPreconditionError("No return request found for this order")
	ErrNoReplacementRequest        = newPreconditionError("No replacement request found for this order")
)

type Action string

const (
	ActionCancel             Action = "cancel"
	ActionRequestReturn      Action = "requestReturn"
	ActionRequestReplacement Action = "requestReplacement"
	ActionApproveReturn      Action = "approveReturn"
	ActionRejectReturn       Action = "rejectReturn"
	ActionApproveReplacement Action = "approveReplacement"
	ActionRejectReplacement  Action = "rejectReplacement"
	ActionSetStatuses        Action = "setStatuses"
)

type CreateOrderInput struct {
	Lines         []LineInput
	Delivery      model.DeliveryAddress
	PaymentMethod model.PaymentMethod
	CouponCode    string
	CustomerID    uuid.UUID
	GuestEmail    string
}

// StatusOverride is the operator escape hatch. Nil fields are left as they are.
type StatusOverride struct {
	OrderStatus    *model.OrderStatus
	PaymentStatus  *model.PaymentStatus
	DeliveryStatus *model.DeliveryStatus
}

type TransitionInput struct {
	Action Action
	// CustomerID scopes customer actions to the owner's orders. uuid.Nil skips the check.
	CustomerID      uuid.UUID
	Reason          string
	Description     string
	RejectionReason string
	Statuses        StatusOverride
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error)
	FindOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]model.Order, error)

	Transition(ctx context.Context, orderID string, in TransitionInput) (*model.Order, error)
	Cancel(ctx context.Context, orderID string, customerID uuid.UUID) (*model.Order, error)
	RequestReturn(ctx context.Context, orderID string, customerID uuid.UUID, reason, description string) (*model.Order, error)
	RequestReplacement(ctx context.Context, orderID string, customerID uuid.UUID, reason, description string) (*model.Order, error)
	ApproveReturn(ctx context.Context, orderID string) (*model.Order, error)
	RejectReturn(ctx context.Context, orderID, rejectionReason string) (*model.Order, error)
	ApproveReplacement(ctx context.Context, orderID string) (*model.Order, error)
	RejectReplacement(ctx context.Context, orderID, rejectionReason string) (*model.Order, error)
	OverrideStatuses(ctx context.Context, orderID string, override StatusOverride) (*model.Order, error)
}

type OrderServiceDeps struct {
	Orders     model.OrderRepository
	Customers  model.CustomerRepository
	Pricing    PricingCalculator
	Distance   DistanceEstimator
	Dispatcher EventDispatcher
	Clock      Clock
	Logger     log.FieldLogger
	// ReturnWindow bounds return and replacement requests after delivery.
	ReturnWindow time.Duration
}

func NewOrderService(deps OrderServiceDeps) OrderService {
	if deps.Clock == nil {
		deps.Clock = systemClock
	}
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = nopDispatcher{}
	}
	if deps.ReturnWindow <= 0 {
		deps.ReturnWindow = DefaultReturnWindow
	}
	return &orderService{
		orderWriter: orderWriter{
			repo:       deps.Orders,
			dispatcher: deps.Dispatcher,
			clock:      deps.Clock,
			logger:     deps.Logger,
		},
		customers:    deps.Customers,
		pricing:      deps.Pricing,
		distance:     deps.Distance,
		returnWindow: deps.ReturnWindow,
	}
}

type orderService struct {
	orderWriter
	customers    model.CustomerRepository
	pricing      PricingCalculator
	distance     DistanceEstimator
	returnWindow time.Duration
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	delivery := trimDelivery(in.Delivery)
	if !delivery.Complete() {
		return nil, ErrIncompleteDelivery
	}
	method := in.PaymentMethod
	if method == "" {
		method = model.PaymentMethodCOD
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	quote, err := s.pricing.Price(ctx, in.Lines, in.CouponCode)
	if err != nil {
		return nil, err
	}

	snapshot := model.CustomerSnapshot{
		Name:  delivery.FullName,
		Email: strings.TrimSpace(in.GuestEmail),
		Phone: delivery.Phone,
	}
	if in.CustomerID != uuid.Nil {
		customer, err := s.customers.Find(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		snapshot = model.CustomerSnapshot{
			ID:    customer.ID.String(),
			Name:  customer.Name,
			Email: customer.Email,
			Phone: delivery.Phone,
		}
	}

	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	orderID, err := newOrderID()
	if err != nil {
		return nil, err
	}

	paymentStatus := model.PaymentPending
	if method.SettlesOnCreate() {
		paymentStatus = model.PaymentPaid
	}
	payment := model.Payment{Method: method}
	if method.RequiresGateway() {
		payment.Gateway = string(method)
	}

	now := s.clock()
	order := &model.Order{
		ID:             id,
		OrderID:        orderID,
		CustomerID:     in.CustomerID,
		Customer:       snapshot,
		Lines:          quote.Lines,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.DiscountAmount,
		Total:          quote.Total,
		CouponCode:     quote.CouponCode,
		Currency:       quote.Currency,
		Delivery:       delivery,
		Distance:       s.distance.Estimate(delivery),
		Payment:        payment,
		OrderStatus:    model.OrderCreated,
		PaymentStatus:  paymentStatus,
		DeliveryStatus: model.DeliveryPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if in.CustomerID != uuid.Nil {
		if err := s.customers.SaveAddress(ctx, in.CustomerID, delivery); err != nil {
			return nil, errors.Wrap(err, "save customer address")
		}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.dispatch(model.OrderPlaced{
		OrderID:    order.OrderID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
		Currency:   order.Currency,
		CouponCode: order.CouponCode,
	})
	return order, nil
}

func (s *orderService) FindOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.Find(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.List(ctx)
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	if customerID == uuid.Nil {
		return nil, ErrCustomerRequired
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *orderService) Transition(ctx context.Context, orderID string, in TransitionInput) (*model.Order, error) {
	switch in.Action {
	case ActionCancel:
		return s.Cancel(ctx, orderID, in.CustomerID)
	case ActionRequestReturn:
		return s.RequestReturn(ctx, orderID, in.CustomerID, in.Reason, in.Description)
	case ActionRequestReplacement:
		return s.RequestReplacement(ctx, orderID, in.CustomerID, in.Reason, in.Description)
	case ActionApproveReturn:
		return s.ApproveReturn(ctx, orderID)
	case ActionRejectReturn:
		return s.RejectReturn(ctx, orderID, in.RejectionReason)
	case ActionApproveReplacement:
		return s.ApproveReplacement(ctx, orderID)
	case ActionRejectReplacement:
		return s.RejectReplacement(ctx, orderID, in.RejectionReason)
	case ActionSetStatuses:
		return s.OverrideStatuses(ctx, orderID, in.Statuses)
	default:
		return nil, errors.WithMessagef(ErrUnknownAction, "action %q", in.Action)
	}
}

func (s *orderService) Cancel(ctx context.Context, orderID string, customerID uuid.UUID) (*model.Order, error) {
	return s.mutate(ctx, orderID, customerID, func(o *model.Order, _ time.Time) (Event, error) {
		if !o.OrderStatus.Cancellable() {
			return nil, ErrOrderNotCancellable
		}
		o.OrderStatus = model.OrderCancelled
		refunded := o.PaymentStatus == model.PaymentPaid
		if refunded {
			o.PaymentStatus = model.PaymentRefunded
		}
		return model.OrderWasCancelled{OrderID: o.OrderID, Refunded: refunded}, nil
	})
}

func (s *orderService) RequestReturn(ctx context.Context, orderID string, customerID uuid.UUID, reason, description string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.mutate(ctx, orderID, customerID, func(o *model.Order, now time.Time) (Event, error) {
		if err := s.checkSubFlowEligible(o, now); err != nil {
			return nil, err
		}
		o.OrderStatus = model.OrderReturnRequested
		o.ReturnRequest = &model.SubRequest{
			Reason:      reason,
			Description: strings.TrimSpace(description),
			RequestedAt: now,
		}
		return model.ReturnRequested{OrderID: o.OrderID, Reason: reason}, nil
	})
}

func (s *orderService) RequestReplacement(ctx context.Context, orderID string, customerID uuid.UUID, reason, description string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.mutate(ctx, orderID, customerID, func(o *model.Order, now time.Time) (Event, error) {
		if err := s.checkSubFlowEligible(o, now); err != nil {
			return nil, err
		}
		o.OrderStatus = model.OrderReplacementRequested
		o.ReplacementRequest = &model.SubRequest{
			Reason:      reason,
			Description: strings.TrimSpace(description),
			RequestedAt: now,
		}
		return model.ReplacementRequested{OrderID: o.OrderID, Reason: reason}, nil
	})
}

// checkSubFlowEligible guards both return and replacement: only one sub-flow per order,
// only after delivery, only inside the window.
func (s *orderService) checkSubFlowEligible(o *model.Order, now time.Time) error {
	switch o.OrderStatus.Phase() {
	case model.PhaseReturning, model.PhaseReturned:
		return ErrReturnAlreadyRequested
	case model.PhaseReplacing, model.PhaseReplaced:
		return ErrReplacementAlreadyRequested
	case model.PhaseCancelled:
		return ErrOrderCancelled
	}
	if !o.EffectivelyDelivered() {
		return ErrOrderNotDelivered
	}
	if now.Sub(o.DeliveryTime()) > s.returnWindow {
		return ErrReturnWindowClosed
	}
	return nil
}

func (s *orderService) ApproveReturn(ctx context.Context, orderID string) (*model.Order, error) {
	return s.mutate(ctx, orderID, uuid.Nil, func(o *model.Order, now time.Time) (Event, error) {
		if o.OrderStatus != model.OrderReturnRequested {
			return nil, ErrNoReturnRequest
		}
		o.ReturnRequest = decide(o.ReturnRequest, now, "")
		o.OrderStatus = model.OrderReturnApproved
		return model.ReturnApproved{OrderID: o.OrderID}, nil
	})
}

func (s *orderService) RejectReturn(ctx context.Context, orderID, rejectionReason string) (*model.Order, error) {
	if strings.TrimSpace(rejectionReason) == "" {
		return nil, ErrRejectionRequired
	}
	return s.mutate(ctx, orderID, uuid.Nil, func(o *model.Order, now time.Time) (Event, error) {
		if o.OrderStatus != model.OrderReturnRequested {
			return nil, ErrNoReturnRequest
		}
		o.ReturnRequest = decide(o.ReturnRequest, now, rejectionReason)
		o.OrderStatus = model.OrderReturnRejected
		return model.ReturnRejected{OrderID: o.OrderID, Reason: rejectionReason}, nil
	})
}

func (s *orderService) ApproveReplacement(ctx context.Context, orderID string) (*model.Order, error) {
	return s.mutate(ctx, orderID, uuid.Nil, func(o *model.Order, now time.Time) (Event, error) {
		if o.OrderStatus != model.OrderReplacementRequested {
			return nil, ErrNoReplacementRequest
		}
		o.ReplacementRequest = decide(o.ReplacementRequest, now, "")
		o.OrderStatus = model.OrderReplacementApproved
		return model.ReplacementApproved{OrderID: o.OrderID}, nil
	})
}

func (s *orderService) RejectReplacement(ctx context.Context, orderID, rejectionReason string) (*model.Order, error) {
	if strings.TrimSpace(rejectionReason) == "" {
		return nil, ErrRejectionRequired
	}
	return s.mutate(ctx, orderID, uuid.Nil, func(o *model.Order, now time.Time) (Event, error) {
		if o.OrderStatus != model.OrderReplacementRequested {
			return nil, ErrNoReplacementRequest
		}
		o.ReplacementRequest = decide(o.ReplacementRequest, now, rejectionReason)
		o.OrderStatus = model.OrderReplacementRejected
		return model.ReplacementRejected{OrderID: o.OrderID, Reason: rejectionReason}, nil
	})
}

// decide stamps an operator decision; an empty rejection reason means approval.
func decide(req *model.SubRequest, now time.Time, rejectionReason string) *model.SubRequest {
	decided := model.SubRequest{}
	if req != nil {
		decided = *req
	}
	at := now
	if rejectionReason == "" {
		decided.ApprovedAt = &at
	} else {
		decided.RejectedAt = &at
		decided.RejectionReason = rejectionReason
	}
	return &decided
}

func (s *orderService) OverrideStatuses(ctx context.Context, orderID string, override StatusOverride) (*model.Order, error) {
	if override.OrderStatus != nil && !override.OrderStatus.Valid() {
		return nil, errors.WithMessagef(ErrInvalidOrderStatus, "%q", *override.OrderStatus)
	}
	if override.PaymentStatus != nil && !override.PaymentStatus.Valid() {
		return nil, errors.WithMessagef(ErrInvalidPayStatus, "%q", *override.PaymentStatus)
	}
	if override.DeliveryStatus != nil && !override.DeliveryStatus.Valid() {
		return nil, errors.WithMessagef(ErrInvalidDelivStatus, "%q", *override.DeliveryStatus)
	}

	return s.mutate(ctx, orderID, uuid.Nil, func(o *model.Order, now time.Time) (Event, error) {
		wasDelivered := o.EffectivelyDelivered()
		if override.OrderStatus != nil {
			o.OrderStatus = *override.OrderStatus
		}
		if override.PaymentStatus != nil {
			o.PaymentStatus = *override.PaymentStatus
		}
		if override.DeliveryStatus != nil {
			o.DeliveryStatus = *override.DeliveryStatus
		}
		// The return window runs from the latest move into delivered.
		if o.EffectivelyDelivered() && (!wasDelivered || o.DeliveredAt == nil) {
			at := now
			o.DeliveredAt = &at
		}
		return model.OrderStatusesOverridden{
			OrderID:        o.OrderID,
			OrderStatus:    o.OrderStatus,
			PaymentStatus:  o.PaymentStatus,
			DeliveryStatus: o.DeliveryStatus,
		}, nil
	})
}

func trimDelivery(a model.DeliveryAddress) model.DeliveryAddress {
	return model.DeliveryAddress{
		FullName:    strings.TrimSpace(a.FullName),
		Phone:       strings.TrimSpace(a.Phone),
		AddressLine: strings.TrimSpace(a.AddressLine),
		City:        strings.TrimSpace(a.City),
		PostalCode:  strings.TrimSpace(a.PostalCode),
	}
}

func newOrderID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate order id")
	}
	return "ord_" + hex.EncodeToString(b), nil
}
