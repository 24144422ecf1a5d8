package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func setupDiscount(t *testing.T, coupons ...model.Coupon) (service.DiscountResolver, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return service.NewDiscountResolver(newMockCouponRepository(coupons...), clock.Now), clock
}

func TestResolve_Percentage(t *testing.T) {
	resolver, _ := setupDiscount(t, model.Coupon{Code: "SAVE10", Type: model.DiscountPercentage, Value: dec("10"), Active: true})

	d, err := resolver.Resolve(context.Background(), " save10 ", dec("2000"))

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", d.CouponCode)
	assert.True(t, dec("200").Equal(d.Amount), d.Amount.String())
}

func TestResolve_Flat(t *testing.T) {
	resolver, _ := setupDiscount(t, model.Coupon{Code: "FLAT150", Type: model.DiscountFlat, Value: dec("150"), Active: true})

	d, err := resolver.Resolve(context.Background(), "FLAT150", dec("999.50"))

	require.NoError(t, err)
	assert.Equal(t, "FLAT150", d.CouponCode)
	assert.True(t, dec("150").Equal(d.Amount))
}

func TestResolve_CapNeverExceeded(t *testing.T) {
	resolver, _ := setupDiscount(t,
		model.Coupon{Code: "HALF", Type: model.DiscountPercentage, Value: dec("50"), Active: true, MaxDiscount: decPtr("300")},
		model.Coupon{Code: "BIGFLAT", Type: model.DiscountFlat, Value: dec("1000"), Active: true, MaxDiscount: decPtr("250")},
	)

	for _, code := range []string{"HALF", "BIGFLAT"} {
		d, err := resolver.Resolve(context.Background(), code, dec("5000"))
		require.NoError(t, err)
		assert.True(t, d.Amount.LessThanOrEqual(dec("300")), "code %s gave %s", code, d.Amount)
	}

	d, _ := resolver.Resolve(context.Background(), "HALF", dec("5000"))
	assert.True(t, dec("300").Equal(d.Amount))
	d, _ = resolver.Resolve(context.Background(), "BIGFLAT", dec("5000"))
	assert.True(t, dec("250").Equal(d.Amount))
}

func TestResolve_ClampedToSubtotal(t *testing.T) {
	resolver, _ := setupDiscount(t, model.Coupon{Code: "FLAT500", Type: model.DiscountFlat, Value: dec("500"), Active: true})

	d, err := resolver.Resolve(context.Background(), "FLAT500", dec("120"))

	require.NoError(t, err)
	assert.True(t, dec("120").Equal(d.Amount))
}

func TestResolve_IneligibleCouponsGiveNothing(t *testing.T) {
	resolver, _ := setupDiscount(t,
		model.Coupon{Code: "EXPIRED", Type: model.DiscountPercentage, Value: dec("10"), Active: true, EndsAt: timePtr(baseTime.Add(-time.Hour))},
		model.Coupon{Code: "FUTURE", Type: model.DiscountPercentage, Value: dec("10"), Active: true, StartsAt: timePtr(baseTime.Add(time.Hour))},
		model.Coupon{Code: "MIN5K", Type: model.DiscountPercentage, Value: dec("10"), Active: true, MinSubtotal: decPtr("5000")},
		model.Coupon{Code: "OFF", Type: model.DiscountPercentage, Value: dec("10"), Active: false},
	)

	for _, code := range []string{"EXPIRED", "FUTURE", "MIN5K", "OFF", "UNKNOWN", ""} {
		t.Run(code, func(t *testing.T) {
			d, err := resolver.Resolve(context.Background(), code, dec("2000"))
			require.NoError(t, err)
			assert.Empty(t, d.CouponCode)
			assert.True(t, d.Amount.IsZero())
		})
	}
}

func TestResolve_WindowBoundsAreInclusive(t *testing.T) {
	resolver, clock := setupDiscount(t, model.Coupon{
		Code: "WINDOW", Type: model.DiscountFlat, Value: dec("10"), Active: true,
		StartsAt: timePtr(baseTime), EndsAt: timePtr(baseTime.Add(time.Hour)),
	})

	d, _ := resolver.Resolve(context.Background(), "WINDOW", dec("100"))
	assert.Equal(t, "WINDOW", d.CouponCode)

	clock.Advance(time.Hour)
	d, _ = resolver.Resolve(context.Background(), "WINDOW", dec("100"))
	assert.Equal(t, "WINDOW", d.CouponCode)

	clock.Advance(time.Second)
	d, _ = resolver.Resolve(context.Background(), "WINDOW", dec("100"))
	assert.Empty(t, d.CouponCode)
}

func TestValidate_Reasons(t *testing.T) {
	resolver, _ := setupDiscount(t,
		model.Coupon{Code: "EXPIRED", Type: model.DiscountPercentage, Value: dec("10"), Active: true, EndsAt: timePtr(baseTime.Add(-time.Minute))},
		model.Coupon{Code: "FUTURE", Type: model.DiscountPercentage, Value: dec("10"), Active: true, StartsAt: timePtr(baseTime.Add(time.Minute))},
		model.Coupon{Code: "MIN5K", Type: model.DiscountPercentage, Value: dec("10"), Active: true, MinSubtotal: decPtr("5000")},
		model.Coupon{Code: "OFF", Type: model.DiscountFlat, Value: dec("10"), Active: false},
	)

	tests := []struct {
		code    string
		reason  service.InvalidReason
		message string
	}{
		{"UNKNOWN", service.ReasonNotFound, "Invalid coupon"},
		{"OFF", service.ReasonNotFound, "Invalid coupon"},
		{"FUTURE", service.ReasonNotYetActive, "Coupon not active yet"},
		{"EXPIRED", service.ReasonExpired, "Coupon expired"},
		{"MIN5K", service.ReasonBelowMinimum, "Minimum subtotal is 5000"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			v, err := resolver.Validate(context.Background(), tt.code, dec("2000"))
			require.NoError(t, err)
			assert.False(t, v.Valid)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.message, v.Message)
			assert.True(t, v.DiscountAmount.IsZero())
		})
	}
}

func TestValidate_Success(t *testing.T) {
	resolver, _ := setupDiscount(t, model.Coupon{Code: "SAVE10", Label: "Ten off", Type: model.DiscountPercentage, Value: dec("10"), Active: true})

	v, err := resolver.Validate(context.Background(), "save10", dec("2000"))

	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "SAVE10", v.Code)
	assert.Equal(t, "Ten off", v.Label)
	assert.True(t, dec("200").Equal(v.DiscountAmount))
}

func TestValidate_InputErrors(t *testing.T) {
	resolver, _ := setupDiscount(t)

	_, err := resolver.Validate(context.Background(), "   ", dec("10"))
	assert.ErrorIs(t, err, service.ErrCouponCodeRequired)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = resolver.Validate(context.Background(), "X", dec("-1"))
	assert.ErrorIs(t, err, service.ErrNegativeSubtotal)
}
