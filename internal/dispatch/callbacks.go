package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ordervox/ordervox/pkg/types"
)

// ErrCallbackOpen is returned when the callback circuit is open and calls are
// rejected without reaching the host application.
var ErrCallbackOpen = errors.New("callback circuit is open")

// CallbackRunner invokes host callbacks through a circuit breaker with a
// per-call timeout taken from the command's priority. Callbacks are the only
// suspension points of command execution; everything else in a handler is
// synchronous in-memory work.
type CallbackRunner struct {
	breaker *gobreaker.CircuitBreaker
}

// NewCallbackRunner creates a runner whose circuit trips after three
// consecutive callback failures and probes again after 30 seconds.
func NewCallbackRunner() *CallbackRunner {
	settings := gobreaker.Settings{
		Name:        "HostCallbacks",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &CallbackRunner{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Invoke runs fn through the breaker, bounded by the given timeout. A nil fn
// means the host did not supply that callback and the call is a no-op
// success. The returned error is ErrCallbackOpen when the circuit rejects
// the call, context.DeadlineExceeded when fn outlives the timeout, or fn's
// own error.
func (r *CallbackRunner) Invoke(ctx context.Context, timeout time.Duration, fn func() error) error {
	if fn == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (interface{}, error) {
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("callback panic: %v", r)
				}
			}()
			done <- fn()
		}()
		select {
		case <-callCtx.Done():
			return nil, callCtx.Err()
		case err := <-done:
			return nil, err
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCallbackOpen
	}
	return err
}

// State returns the breaker state as a lowercase string.
func (r *CallbackRunner) State() string {
	switch r.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// failureResult maps a callback error to the matching failed Result.
func failureResult(action string, err error) *types.Result {
	switch {
	case errors.Is(err, ErrCallbackOpen):
		return types.Fail(action, types.ErrCallbackOpen, "host callback temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return types.Fail(action, types.ErrCallbackTimeout, "host callback timed out")
	default:
		return types.Fail(action, types.ErrExecution, fmt.Sprintf("callback failed: %v", err))
	}
}
