// Package errs holds the error kinds every component reports.
// Callers wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
package errs

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("below minimum")
	ErrTooSoon             = errors.New("too soon")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidArgument     = errors.New("invalid argument")
)
