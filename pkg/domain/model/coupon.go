package model

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFlat
}

type Coupon struct {
	Code        string
	Label       string
	Description string
	Type        DiscountType
	Value       decimal.Decimal
	Active      bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	MinSubtotal *decimal.Decimal
	MaxDiscount *decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeCouponCode folds a user-typed code into its stored form.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether now is inside the optional activation window.
func (c *Coupon) InWindow(now time.Time) bool {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}

type CouponRepository interface {
	// FindActive returns ErrCouponNotFound for unknown and for inactive coupons.
	FindActive(ctx context.Context, code string) (*Coupon, error)
	Find(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, coupon *Coupon) error
	Update(ctx context.Context, coupon *Coupon) error
	Delete(ctx context.Context, code string) error
}
