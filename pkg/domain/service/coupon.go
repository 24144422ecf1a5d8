package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
)

var (
	ErrCouponFieldsRequired = newValidationError("code, type, value are required")
	ErrInvalidDiscountType  = newValidationError("type must be percentage or flat")
	ErrNegativeCouponValue  = newValidationError("coupon value cannot be negative")
	ErrPercentageTooLarge   = newValidationError("percentage value cannot exceed 100")
	ErrNegativeCouponLimit  = newValidationError("minSubtotal and maxDiscount cannot be negative")
	ErrInvalidCouponWindow  = newValidationError("startsAt must not be after endsAt")
)

// Optional separates "leave unchanged" (Set == false) from "set", where a nil Value clears the field.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Set[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Clear[T any]() Optional[T] { return Optional[T]{Set: true} }

type CreateCouponInput struct {
	Code        string
	Label       string
	Description string
	Type        model.DiscountType
	Value       *decimal.Decimal
	Active      *bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	MinSubtotal *decimal.Decimal
	MaxDiscount *decimal.Decimal
}

type CouponPatch struct {
	Label       Optional[string]
	Description Optional[string]
	Type        Optional[model.DiscountType]
	Value       Optional[decimal.Decimal]
	Active      Optional[bool]
	StartsAt    Optional[time.Time]
	EndsAt      Optional[time.Time]
	MinSubtotal Optional[decimal.Decimal]
	MaxDiscount Optional[decimal.Decimal]
}

type CouponService interface {
	CreateCoupon(ctx context.Context, in CreateCouponInput) (*model.Coupon, error)
	UpdateCoupon(ctx context.Context, code string, patch CouponPatch) (*model.Coupon, error)
	DisableCoupon(ctx context.Context, code string) error
	DeleteCoupon(ctx context.Context, code string) error
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	// ListUsableCoupons returns active coupons whose window contains now.
	ListUsableCoupons(ctx context.Context) ([]model.Coupon, error)
}

func NewCouponService(repo model.CouponRepository, clock Clock) CouponService {
	if clock == nil {
		clock = systemClock
	}
	return &couponService{repo: repo, clock: clock}
}

type couponService struct {
	repo  model.CouponRepository
	clock Clock
}

func (s *couponService) CreateCoupon(ctx context.Context, in CreateCouponInput) (*model.Coupon, error) {
	code := model.NormalizeCouponCode(in.Code)
	if code == "" || in.Type == "" || in.Value == nil {
		return nil, ErrCouponFieldsRequired
	}

	now := s.clock()
	coupon := &model.Coupon{
		Code:        code,
		Label:       strings.TrimSpace(in.Label),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Value:       *in.Value,
		Active:      true,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		MinSubtotal: in.MinSubtotal,
		MaxDiscount: in.MaxDiscount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Active != nil {
		coupon.Active = *in.Active
	}
	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) UpdateCoupon(ctx context.Context, code string, patch CouponPatch) (*model.Coupon, error) {
	coupon, err := s.repo.Find(ctx, model.NormalizeCouponCode(code))
	if err != nil {
		return nil, err
	}

	if patch.Label.Set {
		coupon.Label = valueOr(patch.Label.Value, "")
	}
	if patch.Description.Set {
		coupon.Description = valueOr(patch.Description.Value, "")
	}
	if patch.Type.Set {
		coupon.Type = valueOr(patch.Type.Value, "")
	}
	if patch.Value.Set {
		coupon.Value = valueOr(patch.Value.Value, decimal.Zero)
	}
	if patch.Active.Set {
		coupon.Active = valueOr(patch.Active.Value, false)
	}
	if patch.StartsAt.Set {
		coupon.StartsAt = patch.StartsAt.Value
	}
	if patch.EndsAt.Set {
		coupon.EndsAt = patch.EndsAt.Value
	}
	if patch.MinSubtotal.Set {
		coupon.MinSubtotal = patch.MinSubtotal.Value
	}
	if patch.MaxDiscount.Set {
		coupon.MaxDiscount = patch.MaxDiscount.Value
	}
	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}

	coupon.UpdatedAt = s.clock()
	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *couponService) DisableCoupon(ctx context.Context, code string) error {
	_, err := s.UpdateCoupon(ctx, code, CouponPatch{Active: Set(false)})
	return err
}

func (s *couponService) DeleteCoupon(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, model.NormalizeCouponCode(code))
}

func (s *couponService) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	return s.repo.List(ctx)
}

func (s *couponService) ListUsableCoupons(ctx context.Context) ([]model.Coupon, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	usable := make([]model.Coupon, 0, len(active))
	for _, c := range active {
		if c.InWindow(now) {
			usable = append(usable, c)
		}
	}
	return usable, nil
}

func validateCoupon(c *model.Coupon) error {
	if !c.Type.Valid() {
		return ErrInvalidDiscountType
	}
	if c.Value.IsNegative() {
		return ErrNegativeCouponValue
	}
	if c.Type == model.DiscountPercentage && c.Value.GreaterThan(hundred) {
		return ErrPercentageTooLarge
	}
	if (c.MinSubtotal != nil && c.MinSubtotal.IsNegative()) || (c.MaxDiscount != nil && c.MaxDiscount.IsNegative()) {
		return ErrNegativeCouponLimit
	}
	if c.StartsAt != nil && c.EndsAt != nil && c.StartsAt.After(*c.EndsAt) {
		return ErrInvalidCouponWindow
	}
	return nil
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
