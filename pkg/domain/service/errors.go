package service

import (
	"storefront/pkg/domain/model"
)

type serviceError struct {
	category error
	msg      string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.category }

func newValidationError(msg string) error {
	return &serviceError{category: model.ErrValidation, msg: msg}
}

func newPreconditionError(msg string) error {
	return &serviceError{category: model.ErrPrecondition, msg: msg}
}

func newExternalError(msg string) error {
	return &serviceError{category: model.ErrExternal, msg: msg}
}

func newIntegrityError(msg string) error {
	return &serviceError{category: model.ErrIntegrity, msg: msg}
}
