package model

import "errors"

// Error categories. Every sentinel below unwraps to exactly one of them.
var (
	ErrValidation   = errors.New("validation error")
	ErrPrecondition = errors.New("precondition failed")
	ErrNotFound     = errors.New("not found")
	ErrExternal     = errors.New("external dependency error")
	ErrIntegrity    = errors.New("integrity check failed")
	ErrConflict     = errors.New("concurrent modification")
)

type categorizedError struct {
	category error
	msg      string
}

func (e *categorizedError) Error() string { return e.msg }
func (e *categorizedError) Unwrap() error { return e.category }

func newError(category error, msg string) error {
	return &categorizedError{category: category, msg: msg}
}

var (
	ErrOrderNotFound    = newError(ErrNotFound, "order not found")
	ErrCouponNotFound   = newError(ErrNotFound, "coupon not found")
	ErrCustomerNotFound = newError(ErrNotFound, "customer not found")
	ErrOptimisticLock   = newError(ErrConflict, "order has been modified by another transaction")
	ErrCouponExists     = newError(ErrPrecondition, "coupon with this code already exists")
)

// Category returns the taxonomy bucket of err, or nil for uncategorized errors.
func Category(err error) error {
	for _, c := range []error{ErrValidation, ErrPrecondition, ErrNotFound, ErrExternal, ErrIntegrity, ErrConflict} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}

// CategoryName is the short label used in logs and tests.
func CategoryName(err error) string {
	switch Category(err) {
	case ErrValidation:
		return "validation"
	case ErrPrecondition:
		return "precondition"
	case ErrNotFound:
		return "not_found"
	case ErrExternal:
		return "external"
	case ErrIntegrity:
		return "integrity"
	case ErrConflict:
		return "conflict"
	default:
		return "internal"
	}
}
