package engine

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
)

// Application error types carried across the Temporal boundary.
const (
	ErrTypeValidation = "ValidationError"
	ErrTypeTransient  = "ActivityTransientError"
	ErrTypeFatal      = "ActivityFatalError"
)

// ValidationError reports malformed workflow input. It is never retried and
// is raised before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation returns a ValidationError for field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransientError is a retryable activity failure (network, 5xx, rate limit,
// attempt timeout).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure of op.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// FatalError is a non-retryable activity failure (4xx, malformed response).
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a non-retryable failure of op.
func Fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

// DuplicateInvocationError signals that a workflow id already reached a
// terminal state. Callers receive the stored result instead of a new run.
type DuplicateInvocationError struct {
	WorkflowID string
	Status     string
}

func (e *DuplicateInvocationError) Error() string {
	return fmt.Sprintf("workflow %s already %s", e.WorkflowID, e.Status)
}

// GatewayTimeoutError is returned when a synchronous wait hits the caller's
// deadline. The invocation keeps running.
type GatewayTimeoutError struct {
	WorkflowID string
	Waited     time.Duration
}

func (e *GatewayTimeoutError) Error() string {
	return fmt.Sprintf("workflow %s still running after %s", e.WorkflowID, e.Waited)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// TemporalError converts a classified error into a Temporal application
// error. Unclassified errors are treated as transient.
func TemporalError(err error) error {
	if err == nil {
		return nil
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return temporal.NewNonRetryableApplicationError(v.Error(), ErrTypeValidation, err)
	}
	var f *FatalError
	if errors.As(err, &f) {
		return temporal.NewNonRetryableApplicationError(f.Error(), ErrTypeFatal, err)
	}
	return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeTransient, err)
}

// Classify maps an error observed by a workflow or by Execute to an attempt
// outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case ErrTypeFatal, ErrTypeValidation:
			return OutcomeFatal
		}
		if appErr.NonRetryable() {
			return OutcomeFatal
		}
		return OutcomeTransient
	}
	if IsFatal(err) || IsValidation(err) {
		return OutcomeFatal
	}
	return OutcomeTransient
}

// ErrorMessage returns the most specific message carried by err, stripping
// the activity envelope Temporal adds around application errors.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "activity timed out: " + timeoutErr.Error()
	}
	return err.Error()
}
