// Package errors provides the standardized error taxonomy for the meal
// notification dispatcher.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Pipeline errors.
	ErrCodeEmptyTriggerPayload    ErrorCode = "EMPTY_TRIGGER_PAYLOAD"
	ErrCodeInvalidMealEvent       ErrorCode = "INVALID_MEAL_EVENT"
	ErrCodeMembershipLookupFailed ErrorCode = "MEMBERSHIP_LOOKUP_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Infrastructure errors.
	ErrCodeFeedDecodeFailed         ErrorCode = "FEED_DECODE_FAILED"
	ErrCodeSchemaValidationFailed   ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeAuditIndexFailed         ErrorCode = "AUDIT_INDEX_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is makes StandardError comparable by code via errors.Is.
func (e *StandardError) Is(target error) bool {
	var se *StandardError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsRetryable reports whether err is a StandardError marked retryable.
// Unknown errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// NewEmptyTriggerPayloadError marks a change-feed entry that carried no
// record. Recovered locally: the entry is acknowledged without dispatch.
func NewEmptyTriggerPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyTriggerPayload,
		Message:   "Trigger event carried no record",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidMealEventError marks a meal record with missing or empty required
// fields. Non-retryable: the record will never become valid.
func NewInvalidMealEventError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidMealEvent,
		Message:   "Meal record is missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMembershipLookupFailedError marks a failed family-members query. The
// whole invocation fails (nothing was sent yet), and the entry is retryable.
func NewMembershipLookupFailedError(familyID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMembershipLookupFailed,
		Message:   "Family membership lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"familyId": familyID},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError marks one recipient's failed delivery. It is
// recorded in the dispatch results and never aborts sibling sends.
func NewNotificationSendFailedError(recipientID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Push notification delivery failed",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"recipientId": recipientID},
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedDecodeFailedError marks a change-feed payload that is not valid JSON.
func NewFeedDecodeFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedDecodeFailed,
		Message:   "Change-feed record could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaValidationFailedError marks a record that decoded but violates the
// collection schema.
func NewSchemaValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaValidationFailed,
		Message:   "Record failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditIndexFailedError marks a failed audit-sink write. Best-effort
// telemetry: logged, never propagated into the dispatch outcome.
func NewAuditIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditIndexFailed,
		Message:   "Dispatch report could not be indexed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
