package services

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTooManyFiles = errors.New("too many files in batch")
	// ErrUnavailable wraps failures of backing resources such as the series store.
	ErrUnavailable = errors.New("service temporarily unavailable")
)
