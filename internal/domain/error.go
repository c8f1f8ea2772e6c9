package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Application error codes.
// These map to HTTP status codes and are the stable `kind` strings surfaced
// to API clients.
const (
	ECONFLICT = "conflict"           // 409 - Precondition violated (bad status transition, etc.)
	EINTERNAL = "internal"           // 500 - Internal server error (hide details)
	EINVALID  = "invalid"            // 400 - Validation error (bad input)
	ENOTFOUND = "not_found"          // 404 - Resource not found
	ESTOCK    = "insufficient_stock" // 409 - Requested quantity exceeds available stock
	EUNAUTH   = "unauthorized"       // 401 - Missing or invalid caller identity
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Message is a human-readable error message safe to show to users.
	Message string

	// Op is the operation where the error occurred (e.g., "checkout.commit").
	// Used for debugging and logging, not shown to users.
	Op string

	// Err is the underlying error, if any. Used for error wrapping.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// StockShortfall describes one product whose available stock cannot cover the
// requested quantity.
type StockShortfall struct {
	ProductID string `json:"productId"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

// InsufficientStockError reports every line whose requested quantity exceeds
// available stock. It is an expected business condition, not a fault, and
// bubbles unchanged through the coordinator to the caller.
type InsufficientStockError struct {
	Items []StockShortfall
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = fmt.Sprintf("%s (available %d, requested %d)", it.ProductID, it.Available, it.Requested)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for nil or non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return ESTOCK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// For internal errors, returns a generic message to avoid leaking details.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return "One or more items exceed the available stock"
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}

	// Unknown error type - hide details
	return "An internal error occurred. Please try again later."
}

// Errorf creates a new domain error with formatted message.
// Example: domain.Errorf(domain.EINVALID, "cart.add", "invalid quantity: %d", qty)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsCode returns true if err has the given error code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("order.get", "order", orderID)
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Invalid creates a validation error for a single issue.
// Example: domain.Invalid("cart.add", "quantity must be positive")
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
// Example: domain.Conflict("order.update_status", "cannot ship a cancelled order")
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
// The message shown to users will be generic; the underlying error is for logging.
// Example: domain.Internal(err, "checkout.commit", "failed to persist order")
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
