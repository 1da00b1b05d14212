package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Input failed validation
	EINVALIDLINK  = "invalid_link" // Confirmation link does not match a pending subscription
	EUNAUTHORIZED = "unauthorized" // Missing or wrong credentials
	EFORBIDDEN    = "forbidden"    // Request rejected (e.g. CSRF mismatch)
	ENOTFOUND     = "not_found"    // Resource not found
	ERATELIMIT    = "rate_limit"   // Rate limit exceeded
	EDELIVERY     = "delivery"     // Outbound email could not be handed to the provider
	EINTERNAL     = "internal"     // Storage or other server-side failure
)

// Messages shown to end users. Internal details never leave the service.
const (
	MsgInternal    = "An internal error occurred. Please try again later."
	MsgInvalidLink = "This confirmation link is invalid or has expired."
	MsgDelivery    = "We could not send the confirmation email. Please try again later."
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "SubscriptionService.Subscribe")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the first *Error in the chain, or EINTERNAL.
// A *ValidationError reports EINVALID.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return MsgInternal
		}
		return e.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.FirstMessage()
	}
	return MsgInternal
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// InvalidLink creates the error returned for any confirmation link that does
// not resolve to a pending subscription. The message is identical for every
// cause so callers cannot tell which of token, email or course was wrong.
func InvalidLink(op string) *Error {
	return &Error{
		Code:    EINVALIDLINK,
		Op:      op,
		Message: MsgInvalidLink,
	}
}

// Delivery wraps a notifier failure.
func Delivery(err error, op string) *Error {
	return &Error{
		Code:    EDELIVERY,
		Op:      op,
		Message: MsgDelivery,
		Err:     err,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents field-level validation errors.
// Order records the fields in the order they failed so the first violated
// rule can be surfaced on its own.
type ValidationError struct {
	Op     string
	Fields map[string]string
	Order  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// FirstMessage returns the message of the first field that failed.
func (e *ValidationError) FirstMessage() string {
	if len(e.Order) == 0 {
		return "Validation failed"
	}
	return e.Fields[e.Order[0]]
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
		Order: []string{field},
	}
}
