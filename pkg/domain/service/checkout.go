package service

import (
	"context"

	"storefront/pkg/domain/model"
)

type CheckoutResult struct {
	Order *model.Order
	// Intent is set only for payment methods that go through the gateway.
	Intent *PaymentIntent
}

// CheckoutService places an order and, when the payment method needs it, opens the gateway charge.
type CheckoutService interface {
	// Checkout returns the stored order even when the intent step fails, so the caller can
	// retry CreatePaymentIntent for that order instead of placing a new one.
	Checkout(ctx context.Context, in CreateOrderInput) (*CheckoutResult, error)
}

func NewCheckoutService(orders OrderService, payments PaymentService) CheckoutService {
	return &checkoutService{orders: orders, payments: payments}
}

type checkoutService struct {
	orders   OrderService
	payments PaymentService
}

func (s *checkoutService) Checkout(ctx context.Context, in CreateOrderInput) (*CheckoutResult, error) {
	order, err := s.orders.CreateOrder(ctx, in)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: order}
	if !order.Payment.Method.RequiresGateway() {
		return result, nil
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, order.OrderID)
	if err != nil {
		return result, err
	}
	result.Intent = intent
	return result, nil
}
