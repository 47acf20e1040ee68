package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before it reaches the ledger.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown user or notification.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks a retryable store failure (timeout, connection).
	ErrTransient = errors.New("transient store error")
)

// Validationf builds an ErrValidation with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrNotFound with a message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Transient wraps err as ErrTransient unless it already carries a taxonomy
// error.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
