package apperrors

import (
	"errors"
	"fmt"
)

// InvalidRangeError reports a caller-supplied stats query that cannot be served,
// e.g. a start date after the end date.
type InvalidRangeError struct {
	Reason string
}

// Error implements the error interface
func (e *InvalidRangeError) Error() string {
	return "invalid range: " + e.Reason
}

// NewInvalidRangeError creates a new InvalidRangeError
func NewInvalidRangeError(format string, args ...interface{}) *InvalidRangeError {
	return &InvalidRangeError{Reason: fmt.Sprintf(format, args...)}
}

// NotConfiguredError reports an operation that needs state which does not exist yet,
// such as a filter settings link for a sender without an active filter.
type NotConfiguredError struct {
	Entity string // "sender", "thread", ...
	ID     string
	Reason string
}

// Error implements the error interface
func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s %s not configured: %s", e.Entity, e.ID, e.Reason)
}

// NewNotConfiguredError creates a new NotConfiguredError
func NewNotConfiguredError(entity, id, reason string) *NotConfiguredError {
	return &NotConfiguredError{Entity: entity, ID: id, Reason: reason}
}

// ConflictError reports that another operation is already in flight for the same entity.
type ConflictError struct {
	Entity  string
	ID      string
	Pending string // kind of the operation currently in flight
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already has a pending %s operation", e.Entity, e.ID, e.Pending)
}

// NewConflictError creates a new ConflictError
func NewConflictError(entity, id, pending string) *ConflictError {
	return &ConflictError{Entity: entity, ID: id, Pending: pending}
}

// RemoteRuleError reports a filter create/delete/verify that failed at the mailbox provider.
// Sender state is untouched when this error is returned.
type RemoteRuleError struct {
	Op     string // "create", "delete", "verify"
	Sender string
	Err    error
}

// Error implements the error interface
func (e *RemoteRuleError) Error() string {
	return fmt.Sprintf("failed to %s auto archive filter for %s: %v", e.Op, e.Sender, e.Err)
}

// Unwrap returns the provider error
func (e *RemoteRuleError) Unwrap() error {
	return e.Err
}

// RemoteMutationError reports a thread mutation that failed at the mailbox provider.
// The optimistic change has already been rolled back when this error is returned.
type RemoteMutationError struct {
	Kind     string // "mark_read", "mark_unread", "trash"
	ThreadID string
	Err      error
}

// Error implements the error interface
func (e *RemoteMutationError) Error() string {
	return fmt.Sprintf("failed to %s thread %s: %v", e.Kind, e.ThreadID, e.Err)
}

// Unwrap returns the provider error
func (e *RemoteMutationError) Unwrap() error {
	return e.Err
}

// AggregationUnavailableError reports that the analytics backend could not be reached.
type AggregationUnavailableError struct {
	Sender string
	Err    error
}

// Error implements the error interface
func (e *AggregationUnavailableError) Error() string {
	return fmt.Sprintf("analytics unavailable for %s: %v", e.Sender, e.Err)
}

// Unwrap returns the backend error
func (e *AggregationUnavailableError) Unwrap() error {
	return e.Err
}

// IsInvalidRange reports whether err is or wraps an InvalidRangeError.
func IsInvalidRange(err error) bool {
	var target *InvalidRangeError
	return errors.As(err, &target)
}

// IsNotConfigured reports whether err is or wraps a NotConfiguredError.
func IsNotConfigured(err error) bool {
	var target *NotConfiguredError
	return errors.As(err, &target)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsRemoteRule reports whether err is or wraps a RemoteRuleError.
func IsRemoteRule(err error) bool {
	var target *RemoteRuleError
	return errors.As(err, &target)
}

// IsRemoteMutation reports whether err is or wraps a RemoteMutationError.
func IsRemoteMutation(err error) bool {
	var target *RemoteMutationError
	return errors.As(err, &target)
}

// IsAggregationUnavailable reports whether err is or wraps an AggregationUnavailableError.
func IsAggregationUnavailable(err error) bool {
	var target *AggregationUnavailableError
	return errors.As(err, &target)
}

// ProviderMessage returns the innermost error message, which is the text the
// provider returned. It is what users see in failure notifications.
func ProviderMessage(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
