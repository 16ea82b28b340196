package kernel

import (
	"fmt"
	"runtime/debug"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// PanicError is returned when a guarded operation panics.
type PanicError struct {
	Operation string
	Value     any
	Stack     string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.Value)
}

func recovered(logger logging.Logger, event, operation string, r any) *PanicError {
	pe := &PanicError{Operation: operation, Value: r, Stack: string(debug.Stack())}
	logging.OrNop(logger).Error(event,
		"operation", operation,
		"panic", fmt.Sprint(r),
		"stack", pe.Stack,
	)
	return pe
}

// SafeExecute runs fn and converts a panic into a *PanicError.
func SafeExecute(logger logging.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(logger, "panic_recovered", operation, r)
		}
	}()
	return fn()
}

// SafeExecuteWithResult is SafeExecute for functions that also return a value.
// On panic the zero value of T is returned.
func SafeExecuteWithResult[T any](logger logging.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = recovered(logger, "panic_recovered", operation, r)
		}
	}()
	return fn()
}

// SafeGo runs fn in a goroutine. A panic is logged and passed to onPanic.
func SafeGo(logger logging.Logger, operation string, fn func(), onPanic func(recovered any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				recovered(logger, "goroutine_panic_recovered", operation, r)
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
