// Package errors provides custom error types for ledger-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInputValidation = errors.New("input validation failed")
	ErrImportFailed    = errors.New("import failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotFound        = errors.New("not found")
	ErrConfigInvalid   = errors.New("invalid configuration")
)

// ValidationError represents a proposed trade violating a field constraint.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Is makes errors.Is(err, ErrInputValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ImportError represents a settlement document that could not be turned into a trade.
type ImportError struct {
	OrderID string
	Reason  string
	Err     error
}

func (e *ImportError) Error() string {
	prefix := "import error"
	if e.OrderID != "" {
		prefix = fmt.Sprintf("import error [order %s]", e.OrderID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func (e *ImportError) Is(target error) bool {
	return target == ErrImportFailed
}

// NewImportError creates a new ImportError.
func NewImportError(orderID, reason string, err error) *ImportError {
	return &ImportError{
		OrderID: orderID,
		Reason:  reason,
		Err:     err,
	}
}

// PersistenceError represents a failed read or write against durable storage.
// It is non-fatal: the in-memory ledger stays usable for the session.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence error [%s %s]: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("persistence error [%s %s]", e.Op, e.Key)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, key string, err error) *PersistenceError {
	return &PersistenceError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInputValidation)
}

// IsImport reports whether err carries an ImportError.
func IsImport(err error) bool {
	return errors.Is(err, ErrImportFailed)
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
