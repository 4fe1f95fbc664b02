package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrInvalidDiscount indicates a discount id or code that does not resolve to a discount.
	ErrInvalidDiscount = errors.New("invalid discount")
)

// ValidationError reports a malformed request. Nothing is persisted when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a variant whose requested quantity exceeds available stock.
type InsufficientStockError struct {
	VariantID   string
	ProductName string
	SKU         string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s - %s. Only %d available.", e.ProductName, e.SKU, e.Available)
}

// DiscountInactiveReason says which activity rule a discount failed.
type DiscountInactiveReason string

const (
	DiscountInactive     DiscountInactiveReason = "inactive"
	DiscountNotYetActive DiscountInactiveReason = "not_yet_active"
	DiscountExpired      DiscountInactiveReason = "expired"
)

// DiscountNotActiveError reports a discount that exists but cannot be applied right now.
type DiscountNotActiveError struct {
	Code   string
	Reason DiscountInactiveReason
}

func (e *DiscountNotActiveError) Error() string {
	switch e.Reason {
	case DiscountNotYetActive:
		return "This discount code is not yet active."
	case DiscountExpired:
		return "This discount code has expired."
	default:
		return "This discount code is inactive."
	}
}

// TransientError wraps a timeout or transport failure. Callers may retry the operation.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed write transaction. No partial state is left behind.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsBusinessError reports whether err is a user-correctable checkout rejection.
func IsBusinessError(err error) bool {
	var (
		stock    *InsufficientStockError
		inactive *DiscountNotActiveError
		invalid  *ValidationError
	)
	return errors.As(err, &stock) ||
		errors.As(err, &inactive) ||
		errors.As(err, &invalid) ||
		errors.Is(err, ErrInvalidDiscount)
}
