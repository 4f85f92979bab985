package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a structured error with code, message, and metadata
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// WithMeta adds metadata to the error
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// WithReason tags the error with a machine readable reason
func (e *Error) WithReason(r Reason) *Error {
	return e.WithMeta(MetaReason, string(r))
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with a formatted message
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error, preserving its code and metadata if it's an Error
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Code:    existingErr.Code,
			Message: message,
			Cause:   err,
			Meta:    copyMeta(existingErr.Meta),
		}
	}

	return &Error{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...any) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific code
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	var meta map[string]any
	if errors.As(err, &existingErr) {
		meta = copyMeta(existingErr.Meta)
	}

	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
		Meta:    meta,
	}
}

func copyMeta(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// NotFound creates a not found error
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a not found error with formatted message
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// InvalidArgumentf creates an invalid argument error with formatted message
func InvalidArgumentf(format string, args ...any) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// AlreadyExistsf creates an already exists error with formatted message
func AlreadyExistsf(format string, args ...any) *Error {
	return Newf(CodeAlreadyExists, format, args...)
}

// Abortedf creates an aborted error, used when an optimistic transaction
// keeps losing its race
func Abortedf(format string, args ...any) *Error {
	return Newf(CodeAborted, format, args...)
}

// Internal creates an internal error
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates an internal error with formatted message
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Canceled creates a canceled error
func Canceled(message string) *Error {
	return New(CodeCanceled, message)
}

// StateConflict reports an action that is not valid in the current state,
// such as attacking in a finished room.
func StateConflict(message string) *Error {
	return New(CodeFailedPrecondition, message).WithReason(ReasonStateConflict)
}

// StateConflictf creates a state conflict error with formatted message
func StateConflictf(format string, args ...any) *Error {
	return StateConflict(fmt.Sprintf(format, args...))
}

// OutOfAttempts reports a challenge with no arena attempts remaining.
func OutOfAttempts(playerID string, nextRefill time.Time) *Error {
	err := Newf(CodeFailedPrecondition, "player %s has no arena attempts remaining", playerID).
		WithReason(ReasonOutOfAttempts).
		WithMeta("player_id", playerID)
	if !nextRefill.IsZero() {
		err.WithMeta("next_refill_at", nextRefill.UTC().Format(time.RFC3339))
	}
	return err
}

// ResourceExhausted creates a resource exhausted error
func ResourceExhausted(reason Reason, message string) *Error {
	return New(CodeResourceExhausted, message).WithReason(reason)
}

// ResourceExhaustedf creates a resource exhausted error with formatted message
func ResourceExhaustedf(reason Reason, format string, args ...any) *Error {
	return ResourceExhausted(reason, fmt.Sprintf(format, args...))
}

// InternalFault marks a panic or invariant break inside a tick or a
// simulation. Arena callers may retry these once.
func InternalFault(cause error, message string) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: message,
		Cause:   cause,
		Meta:    map[string]any{MetaReason: string(ReasonInternalFault)},
	}
}

// FromPanic converts a recovered panic value into an InternalFault
func FromPanic(recovered any, message string) *Error {
	if err, ok := recovered.(error); ok {
		return InternalFault(err, message)
	}
	return InternalFault(fmt.Errorf("panic: %v", recovered), message)
}
