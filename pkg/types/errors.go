package types

// ErrorCode classifies a command failure. The set is extensible by category;
// EXECUTION_ERROR is the catch-all for unexpected failures caught at the
// dispatcher boundary.
type ErrorCode string

// Failure codes.
const (
	ErrMissingProduct     ErrorCode = "MISSING_PRODUCT"
	ErrProductNotFound    ErrorCode = "PRODUCT_NOT_FOUND"
	ErrProductUnavailable ErrorCode = "PRODUCT_UNAVAILABLE"
	ErrProductNotInCart   ErrorCode = "PRODUCT_NOT_IN_CART"
	ErrCartEmpty          ErrorCode = "CART_EMPTY"
	ErrBusinessHours      ErrorCode = "BUSINESS_HOURS"
	ErrMinimumOrder       ErrorCode = "MINIMUM_ORDER"
	ErrInvalidTarget      ErrorCode = "INVALID_TARGET"
	ErrNoPreviousCommand  ErrorCode = "NO_PREVIOUS_COMMAND"
	ErrNoPendingOrder     ErrorCode = "NO_PENDING_ORDER"
	ErrCallbackTimeout    ErrorCode = "CALLBACK_TIMEOUT"
	ErrCallbackOpen       ErrorCode = "CALLBACK_UNAVAILABLE"
	ErrExecution          ErrorCode = "EXECUTION_ERROR"
)

// Retryable reports whether failures with this code are transient. Timeouts
// and temporarily unavailable callbacks may be retried within the command's
// priority budget; validation failures never are.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrCallbackTimeout, ErrCallbackOpen:
		return true
	default:
		return false
	}
}
