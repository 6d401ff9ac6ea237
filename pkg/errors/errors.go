package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the coarse error taxonomy. It decides how callers react: validation,
// state and authorization errors are surfaced immediately; conflicts may be
// retried a bounded number of times when caused by a transaction race;
// transient errors are always safe to retry with backoff.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindState         Kind = "state"
	KindAuthorization Kind = "authorization"
	KindTransient     Kind = "transient"
	KindNotFound      Kind = "not_found"
	KindInvalidInput  Kind = "invalid_input"
	KindInternal      Kind = "internal"
)

// Codes name the specific reason an operation was refused.
const (
	CodeUserInactive           = "USER_INACTIVE"
	CodeUserUnverified         = "USER_UNVERIFIED"
	CodeDogUnavailable         = "DOG_UNAVAILABLE"
	CodeExperienceInsufficient = "EXPERIENCE_LEVEL_INSUFFICIENT"
	CodeDateOutOfWindow        = "DATE_OUT_OF_WINDOW"
	CodeDateBlocked            = "DATE_BLOCKED"
	CodeSlotAlreadyBooked      = "SLOT_ALREADY_BOOKED"
	CodeUserAlreadyBookedDay   = "USER_ALREADY_BOOKED_THAT_DAY"
	CodeCancellationTooLate    = "CANCELLATION_TOO_LATE"
	CodeBookingNotCancellable  = "BOOKING_NOT_CANCELLABLE"
	CodeBookingNotCompletable  = "BOOKING_NOT_COMPLETABLE"
	CodeDuplicatePendingReq    = "DUPLICATE_PENDING_REQUEST"
	CodeInvalidLevelRequested  = "INVALID_LEVEL_REQUESTED"
	CodeRequestAlreadyResolved = "REQUEST_ALREADY_RESOLVED"
	CodeUserStillActive        = "USER_STILL_ACTIVE"

	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeTransient    = "TRANSIENT"
)

type AppError struct {
	Kind       Kind           `json:"kind"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`

	// retryable marks conflicts caused by a detected transaction race rather
	// than a committed row; the ledger may retry those.
	retryable bool
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// AsRetryable marks the error as caused by a transient race.
func (e *AppError) AsRetryable() *AppError {
	e.retryable = true
	return e
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

type ErrorResponse struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func Validation(code, message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func Conflict(code, message string) *AppError {
	return &AppError{
		Kind:       KindConflict,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func State(code, message string) *AppError {
	return &AppError{
		Kind:       KindState,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Kind:       KindAuthorization,
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Transient wraps a storage timeout or contention failure the caller may
// retry with backoff.
func Transient(message string, err error) *AppError {
	return &AppError{
		Kind:       KindTransient,
		Code:       CodeTransient,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
		retryable:  true,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// IsCode reports whether err is an AppError carrying the given reason code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Retryable reports whether err may be retried: transient failures always,
// conflicts only when they were caused by a detected transaction race.
func Retryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == KindTransient || appErr.retryable
}
