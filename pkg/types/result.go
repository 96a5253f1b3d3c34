package types

import "time"

// Result is the outcome of executing a command. Validation failures are
// expressed through Error/Code rather than Go errors: handlers return a
// failed Result, they never panic or leak errors past the dispatcher.
type Result struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`

	// Data carries action-specific payload (cart item, transaction, menu...).
	Data map[string]interface{} `json:"data,omitempty"`

	// Error and Code are set only when Success is false.
	Error     string    `json:"error,omitempty"`
	Code      ErrorCode `json:"code,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`

	// FromCache marks results served from the dispatcher cache without
	// invoking a handler.
	FromCache bool `json:"from_cache,omitempty"`

	// Queued marks acknowledgements for commands accepted by the queued or
	// batch strategies; QueuePosition is the 1-based position in the buffer.
	Queued        bool `json:"queued,omitempty"`
	QueuePosition int  `json:"queue_position,omitempty"`

	// Suggestions prompts the user to restate or choose among alternatives
	// when classification confidence is below the execution threshold.
	Suggestions []string `json:"suggestions,omitempty"`

	ExecutionTime time.Duration `json:"execution_time"`
}

// Fail builds a failed Result for the given code, deriving the retryable
// flag from the code.
func Fail(action string, code ErrorCode, message string) *Result {
	return &Result{
		Success:   false,
		Action:    action,
		Error:     message,
		Code:      code,
		Retryable: code.Retryable(),
	}
}

// OK builds a successful Result with the given action and message.
func OK(action, message string) *Result {
	return &Result{Success: true, Action: action, Message: message}
}
