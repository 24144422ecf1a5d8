package tests

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func setupCoupons(t *testing.T, coupons ...model.Coupon) (service.CouponService, *mockCouponRepository, *fakeClock) {
	t.Helper()
	repo := newMockCouponRepository(coupons...)
	clock := newFakeClock()
	return service.NewCouponService(repo, clock.Now), repo, clock
}

func TestCreateCoupon_NormalizesAndDefaults(t *testing.T) {
	svc, repo, _ := setupCoupons(t)

	c, err := svc.CreateCoupon(context.Background(), service.CreateCouponInput{
		Code:  "  diwali25 ",
		Label: " Diwali ",
		Type:  model.DiscountPercentage,
		Value: decPtr("25"),
	})

	require.NoError(t, err)
	assert.Equal(t, "DIWALI25", c.Code)
	assert.Equal(t, "Diwali", c.Label)
	assert.True(t, c.Active)
	assert.Equal(t, baseTime, c.CreatedAt)
	_, ok := repo.store["DIWALI25"]
	assert.True(t, ok)
}

func TestCreateCoupon_Validation(t *testing.T) {
	svc, _, _ := setupCoupons(t, model.Coupon{Code: "TAKEN", Type: model.DiscountFlat, Value: dec("1"), Active: true})
	inactive := false

	tests := []struct {
		name string
		in   service.CreateCouponInput
		want error
	}{
		{"missing code", service.CreateCouponInput{Type: model.DiscountFlat, Value: decPtr("5")}, service.ErrCouponFieldsRequired},
		{"missing value", service.CreateCouponInput{Code: "X", Type: model.DiscountFlat}, service.ErrCouponFieldsRequired},
		{"bad type", service.CreateCouponInput{Code: "X", Type: "bogo", Value: decPtr("5")}, service.ErrInvalidDiscountType},
		{"negative value", service.CreateCouponInput{Code: "X", Type: model.DiscountFlat, Value: decPtr("-5")}, service.ErrNegativeCouponValue},
		{"over 100 percent", service.CreateCouponInput{Code: "X", Type: model.DiscountPercentage, Value: decPtr("101")}, service.ErrPercentageTooLarge},
		{"negative cap", service.CreateCouponInput{Code: "X", Type: model.DiscountFlat, Value: decPtr("5"), MaxDiscount: decPtr("-1")}, service.ErrNegativeCouponLimit},
		{"inverted window", service.CreateCouponInput{
			Code: "X", Type: model.DiscountFlat, Value: decPtr("5"), Active: &inactive,
			StartsAt: timePtr(baseTime.Add(time.Hour)), EndsAt: timePtr(baseTime),
		}, service.ErrInvalidCouponWindow},
		{"duplicate", service.CreateCouponInput{Code: "taken", Type: model.DiscountFlat, Value: decPtr("5")}, model.ErrCouponExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCoupon(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateCoupon_SetAndClear(t *testing.T) {
	svc, repo, clock := setupCoupons(t, model.Coupon{
		Code: "SAVE10", Label: "Ten", Type: model.DiscountPercentage, Value: dec("10"), Active: true,
		MinSubtotal: decPtr("500"), MaxDiscount: decPtr("100"),
	})
	clock.Advance(time.Hour)

	c, err := svc.UpdateCoupon(context.Background(), "save10", service.CouponPatch{
		Value:       service.Set(dec("15")),
		MinSubtotal: service.Clear[decimal.Decimal](),
		EndsAt:      service.Set(baseTime.Add(24 * time.Hour)),
	})

	require.NoError(t, err)
	assert.True(t, dec("15").Equal(c.Value))
	assert.Nil(t, c.MinSubtotal)
	require.NotNil(t, c.MaxDiscount)
	assert.True(t, dec("100").Equal(*c.MaxDiscount))
	assert.Equal(t, "Ten", c.Label)
	assert.Equal(t, baseTime.Add(24*time.Hour), *c.EndsAt)
	assert.Equal(t, baseTime.Add(time.Hour), c.UpdatedAt)
	assert.Nil(t, repo.store["SAVE10"].MinSubtotal)
}

func TestUpdateCoupon_RevalidatesAndRejectsUnknown(t *testing.T) {
	svc, repo, _ := setupCoupons(t, model.Coupon{Code: "FLAT900", Type: model.DiscountFlat, Value: dec("900"), Active: true})

	_, err := svc.UpdateCoupon(context.Background(), "FLAT900", service.CouponPatch{Type: service.Set(model.DiscountPercentage)})
	assert.ErrorIs(t, err, service.ErrPercentageTooLarge)
	assert.Equal(t, model.DiscountFlat, repo.store["FLAT900"].Type)

	_, err = svc.UpdateCoupon(context.Background(), "MISSING", service.CouponPatch{})
	assert.ErrorIs(t, err, model.ErrCouponNotFound)
}

func TestDisableAndDeleteCoupon(t *testing.T) {
	svc, repo, _ := setupCoupons(t, model.Coupon{Code: "SAVE10", Type: model.DiscountPercentage, Value: dec("10"), Active: true})
	ctx := context.Background()

	require.NoError(t, svc.DisableCoupon(ctx, "save10"))
	assert.False(t, repo.store["SAVE10"].Active)

	resolver := service.NewDiscountResolver(repo, newFakeClock().Now)
	d, err := resolver.Resolve(ctx, "SAVE10", dec("1000"))
	require.NoError(t, err)
	assert.True(t, d.Amount.IsZero())

	require.NoError(t, svc.DeleteCoupon(ctx, " Save10"))
	assert.Empty(t, repo.store)
	assert.ErrorIs(t, svc.DeleteCoupon(ctx, "SAVE10"), model.ErrNotFound)
}

func TestListUsableCoupons(t *testing.T) {
	svc, _, _ := setupCoupons(t,
		model.Coupon{Code: "A_NOW", Type: model.DiscountFlat, Value: dec("1"), Active: true},
		model.Coupon{Code: "B_OFF", Type: model.DiscountFlat, Value: dec("1"), Active: false},
		model.Coupon{Code: "C_LATER", Type: model.DiscountFlat, Value: dec("1"), Active: true, StartsAt: timePtr(baseTime.Add(time.Hour))},
		model.Coupon{Code: "D_GONE", Type: model.DiscountFlat, Value: dec("1"), Active: true, EndsAt: timePtr(baseTime.Add(-time.Hour))},
		model.Coupon{Code: "E_WINDOW", Type: model.DiscountFlat, Value: dec("1"), Active: true, StartsAt: timePtr(baseTime.Add(-time.Hour)), EndsAt: timePtr(baseTime.Add(time.Hour))},
	)

	usable, err := svc.ListUsableCoupons(context.Background())
	require.NoError(t, err)
	codes := make([]string, 0, len(usable))
	for _, c := range usable {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"A_NOW", "E_WINDOW"}, codes)

	all, err := svc.ListCoupons(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
