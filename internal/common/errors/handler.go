// internal/common/errors/handler.go
package errors

import (
	"context"
	"fmt"
)

// Logger is the logging surface the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// AlertSender raises an operator alert for whole-invocation failures.
type AlertSender interface {
	SendAlert(ctx context.Context, subject, body string) error
}

// Handler centralizes error handling for change-feed record processing. It
// normalizes errors into StandardError, logs them, decides whether the feed
// entry should be acknowledged or left for redelivery, and alerts operators
// when an invocation failed outright.
type Handler struct {
	logger  Logger
	alerter AlertSender // optional
}

func NewHandler(logger Logger, alerter AlertSender) *Handler {
	return &Handler{logger: logger, alerter: alerter}
}

// HandleRecordError processes an error raised while handling one feed entry.
// It returns true when the entry should be acknowledged (the error is final)
// and false when it should stay pending for redelivery.
func (h *Handler) HandleRecordError(ctx context.Context, collection, key string, err error) bool {
	stdErr := h.normalize(err)

	fields := map[string]interface{}{
		"collection": collection,
		"key":        key,
		"errorCode":  string(stdErr.Code),
		"message":    stdErr.Message,
		"details":    stdErr.Details,
		"retryable":  stdErr.Retryable,
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}

	if stdErr.Retryable {
		h.logger.Warn("record processing failed, leaving entry for redelivery", fields)
		h.alert(ctx, collection, key, stdErr)
		return false
	}

	h.logger.Error("record processing failed", fields)
	if stdErr.Code == ErrCodeMembershipLookupFailed || stdErr.Code == ErrCodeInternal {
		h.alert(ctx, collection, key, stdErr)
	}
	return true
}

func (h *Handler) normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *Handler) alert(ctx context.Context, collection, key string, stdErr *StandardError) {
	if h.alerter == nil {
		return
	}
	subject := fmt.Sprintf("[mealbell] dispatch failed: %s", stdErr.Code)
	body := fmt.Sprintf(
		"Processing of %s/%s failed.\n\ncode: %s\nmessage: %s\ndetails: %s\nretryable: %t\n",
		collection, key, stdErr.Code, stdErr.Message, stdErr.Details, stdErr.Retryable,
	)
	if err := h.alerter.SendAlert(ctx, subject, body); err != nil {
		h.logger.Warn("operator alert failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
