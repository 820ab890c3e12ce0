package service

import (
	"errors"

	"github.com/nurpe/snowops-agreements/internal/model"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrExternalService  = errors.New("external service failure")
	ErrNoDraft          = errors.New("no pending submission")
)

// ValidationError carries per-field messages. Nothing is persisted when it is returned.
type ValidationError struct {
	Fields model.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func fieldError(field, message string) error {
	errs := model.FieldErrors{}
	errs.Add(field, message)
	return &ValidationError{Fields: errs}
}
