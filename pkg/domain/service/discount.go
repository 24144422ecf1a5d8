package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
)

var (
	ErrCouponCodeRequired = newValidationError("coupon code is required")
	ErrNegativeSubtotal   = newValidationError("subtotal cannot be negative")
)

var hundred = decimal.NewFromInt(100)

type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

type InvalidReason string

const (
	ReasonNotFound     InvalidReason = "not_found"
	ReasonNotYetActive InvalidReason = "not_yet_active"
	ReasonExpired      InvalidReason = "expired"
	ReasonBelowMinimum InvalidReason = "below_minimum"
)

// Discount is what a checkout gets out of a coupon. CouponCode stays empty when nothing applied.
type Discount struct {
	CouponCode string
	Amount     decimal.Decimal
}

type CouponValidation struct {
	Valid          bool
	Code           string
	Label          string
	DiscountAmount decimal.Decimal
	Reason         InvalidReason
	Message        string
}

type DiscountResolver interface {
	// Resolve never fails because a coupon is unusable; it only fails when the lookup itself fails.
	Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (Discount, error)
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (CouponValidation, error)
}

func NewDiscountResolver(coupons model.CouponRepository, clock Clock) DiscountResolver {
	if clock == nil {
		clock = systemClock
	}
	return &discountResolver{coupons: coupons, clock: clock}
}

type discountResolver struct {
	coupons model.CouponRepository
	clock   Clock
}

func (r *discountResolver) Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (Discount, error) {
	normalized := model.NormalizeCouponCode(code)
	if normalized == "" || subtotal.IsNegative() {
		return Discount{Amount: decimal.Zero}, nil
	}

	coupon, err := r.coupons.FindActive(ctx, normalized)
	if errors.Is(err, model.ErrCouponNotFound) {
		return Discount{Amount: decimal.Zero}, nil
	}
	if err != nil {
		return Discount{}, errors.Wrap(err, "lookup coupon")
	}

	amount, reason := evaluateCoupon(coupon, subtotal, r.clock())
	if reason != "" {
		return Discount{Amount: decimal.Zero}, nil
	}
	return Discount{CouponCode: coupon.Code, Amount: amount}, nil
}

func (r *discountResolver) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (CouponValidation, error) {
	normalized := model.NormalizeCouponCode(code)
	if normalized == "" {
		return CouponValidation{}, ErrCouponCodeRequired
	}
	if subtotal.IsNegative() {
		return CouponValidation{}, ErrNegativeSubtotal
	}

	coupon, err := r.coupons.FindActive(ctx, normalized)
	if errors.Is(err, model.ErrCouponNotFound) {
		return invalid(ReasonNotFound, "Invalid coupon"), nil
	}
	if err != nil {
		return CouponValidation{}, errors.Wrap(err, "lookup coupon")
	}

	amount, reason := evaluateCoupon(coupon, subtotal, r.clock())
	switch reason {
	case ReasonNotYetActive:
		return invalid(reason, "Coupon not active yet"), nil
	case ReasonExpired:
		return invalid(reason, "Coupon expired"), nil
	case ReasonBelowMinimum:
		return invalid(reason, fmt.Sprintf("Minimum subtotal is %s", coupon.MinSubtotal.String())), nil
	}

	label := coupon.Label
	if label == "" {
		label = coupon.Code
	}
	return CouponValidation{
		Valid:          true,
		Code:           coupon.Code,
		Label:          label,
		DiscountAmount: amount,
	}, nil
}

func invalid(reason InvalidReason, msg string) CouponValidation {
	return CouponValidation{Reason: reason, Message: msg, DiscountAmount: decimal.Zero}
}

// evaluateCoupon applies the activation window and minimum subtotal checks.
// An empty reason means the returned amount applies.
func evaluateCoupon(c *model.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, InvalidReason) {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return decimal.Zero, ReasonNotYetActive
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return decimal.Zero, ReasonExpired
	}
	if c.MinSubtotal != nil && subtotal.LessThan(*c.MinSubtotal) {
		return decimal.Zero, ReasonBelowMinimum
	}
	return discountAmount(c, subtotal), ""
}

func discountAmount(c *model.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	if c.Type == model.DiscountPercentage {
		amount = subtotal.Mul(c.Value).Div(hundred)
	} else {
		amount = c.Value
	}

	// A zero cap means uncapped.
	if c.MaxDiscount != nil && c.MaxDiscount.IsPositive() && amount.GreaterThan(*c.MaxDiscount) {
		amount = *c.MaxDiscount
	}
	amount = amount.Round(2)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	return amount
}
