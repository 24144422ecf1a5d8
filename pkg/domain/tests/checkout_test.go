package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func setupCheckout(t *testing.T) (service.CheckoutService, *orderFixture, *mockGateway) {
	t.Helper()
	f := setupOrders(t)
	gateway := &mockGateway{nextID: "order_gw_checkout"}
	payments := service.NewPaymentService(f.orders, gateway, service.PaymentConfig{KeyID: "key", Secret: testSecret}, f.dispatcher, f.clock.Now, nil)
	return service.NewCheckoutService(f.service, payments), f, gateway
}

func TestCheckout_CashOnDeliverySkipsGateway(t *testing.T) {
	checkout, _, gateway := setupCheckout(t)

	result, err := checkout.Checkout(context.Background(), service.CreateOrderInput{
		Lines: []service.LineInput{{ProductID: "A", Quantity: 1}}, Delivery: testAddress,
	})

	require.NoError(t, err)
	assert.NotNil(t, result.Order)
	assert.Nil(t, result.Intent)
	assert.Equal(t, 0, gateway.calls())
}

func TestCheckout_GatewayPaymentOpensIntent(t *testing.T) {
	checkout, f, _ := setupCheckout(t)

	result, err := checkout.Checkout(context.Background(), service.CreateOrderInput{
		Lines: []service.LineInput{{ProductID: "A", Quantity: 2}}, Delivery: testAddress,
		PaymentMethod: model.PaymentMethodRazorpay, CouponCode: "SAVE10",
	})

	require.NoError(t, err)
	require.NotNil(t, result.Intent)
	assert.Equal(t, result.Order.OrderID, result.Intent.OrderID)
	assert.Equal(t, "order_gw_checkout", result.Intent.GatewayOrderID)
	assert.Equal(t, int64(180000), result.Intent.AmountMinorUnits)
	assert.Equal(t, "order_gw_checkout", f.orders.get(result.Order.OrderID).Payment.GatewayOrderID)
}

func TestCheckout_IntentFailureKeepsOrder(t *testing.T) {
	checkout, f, gateway := setupCheckout(t)
	gateway.err = errors.New("gateway timeout")

	result, err := checkout.Checkout(context.Background(), service.CreateOrderInput{
		Lines: []service.LineInput{{ProductID: "A", Quantity: 1}}, Delivery: testAddress, PaymentMethod: model.PaymentMethodRazorpay,
	})

	assert.ErrorIs(t, err, model.ErrExternal)
	require.NotNil(t, result)
	require.NotNil(t, result.Order)
	assert.Nil(t, result.Intent)
	assert.NotNil(t, f.orders.get(result.Order.OrderID))
}

func TestCheckout_InvalidOrderCreatesNothing(t *testing.T) {
	checkout, f, gateway := setupCheckout(t)

	result, err := checkout.Checkout(context.Background(), service.CreateOrderInput{Delivery: testAddress, PaymentMethod: model.PaymentMethodRazorpay})

	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Nil(t, result)
	assert.Empty(t, f.orders.store)
	assert.Equal(t, 0, gateway.calls())
}
