package modloader

import (
	"context"
	"errors"
	"fmt"
)

// Callable is a resolved phase entry point supplied by the host.
//
// Invoke runs the callback once. Returning nil means the phase succeeded,
// returning an error that wraps ErrCanceledByAuthor means the mod chose
// not to proceed, and any other error (or a panic) is a failure.
type Callable interface {
	Invoke(ctx context.Context) error
}

// CallableFunc adapts an ordinary function to the Callable interface.
type CallableFunc func(ctx context.Context) error

// Invoke calls f(ctx).
func (f CallableFunc) Invoke(ctx context.Context) error {
	return f(ctx)
}

// Outcome classifies a single callback invocation.
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeCanceled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// CallbackPanicError records a panic raised by a phase callback.
type CallbackPanicError struct {
	Value any
}

func (e *CallbackPanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCallbackPanicked, e.Value)
}

// Unwrap returns ErrCallbackPanicked so callers can use errors.Is.
func (e *CallbackPanicError) Unwrap() error { return ErrCallbackPanicked }

// invokeCallable runs c and converts whatever happens into an Outcome.
// Panics never escape.
func invokeCallable(ctx context.Context, c Callable) (outcome Outcome, err error) {
	if c == nil {
		return OutcomeFailed, ErrCallableNil
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = &CallbackPanicError{Value: r}
		}
	}()

	err = c.Invoke(ctx)
	switch {
	case err == nil:
		return OutcomeOk, nil
	case errors.Is(err, ErrCanceledByAuthor):
		return OutcomeCanceled, err
	default:
		return OutcomeFailed, err
	}
}
