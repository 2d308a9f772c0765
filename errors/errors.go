package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for fallback and retry decisions.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindNotFound              Kind = "not_found"
	KindQuotaExceeded         Kind = "quota_exceeded"
	KindUnsupportedCapability Kind = "unsupported_capability"
	KindTranscriptUnavailable Kind = "transcript_unavailable"
	KindAllModelsExhausted    Kind = "all_models_exhausted"
	KindQueueRetryExhausted   Kind = "queue_retry_exhausted"
	KindInternal              Kind = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindInvalidInput,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func QuotaExceeded(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusTooManyRequests,
		Kind:    KindQuotaExceeded,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func UnsupportedCapability(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindUnsupportedCapability,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func TranscriptUnavailable(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindTranscriptUnavailable,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func AllModelsExhausted(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusServiceUnavailable,
		Kind:    KindAllModelsExhausted,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func QueueRetryExhausted(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindQueueRetryExhausted,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// KindOf returns the classification of err, or KindInternal for
// anything that is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
