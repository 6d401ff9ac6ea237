package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConflict(t *testing.T) {
	err := Conflict(CodeSlotAlreadyBooked, "slot already booked")

	if err.Kind != KindConflict {
		t.Errorf("expected kind %s, got %s", KindConflict, err.Kind)
	}
	if err.Code != CodeSlotAlreadyBooked {
		t.Errorf("expected code %s, got %s", CodeSlotAlreadyBooked, err.Code)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, err.HTTPStatus)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   Validation(CodeDateOutOfWindow, "date outside the booking window"),
			expected: "DATE_OUT_OF_WINDOW: date outside the booking window",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("internal error", errors.New("connection reset")),
			expected: "INTERNAL_ERROR: internal error (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", Transient("storage timeout", errors.New("deadline exceeded")), true},
		{"conflict from committed row", Conflict(CodeSlotAlreadyBooked, "taken"), false},
		{"conflict from transaction race", Conflict(CodeSlotAlreadyBooked, "taken").AsRetryable(), true},
		{"validation", Validation(CodeDateBlocked, "blocked"), false},
		{"plain error", errors.New("boom"), false},
		{"wrapped transient", fmt.Errorf("op: %w", Transient("timeout", nil)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsKindAndIsCode(t *testing.T) {
	err := fmt.Errorf("create: %w", State(CodeUserInactive, "account is deactivated"))

	if !IsKind(err, KindState) {
		t.Error("expected IsKind to see through wrapping")
	}
	if !IsCode(err, CodeUserInactive) {
		t.Error("expected IsCode to see through wrapping")
	}
	if IsKind(err, KindConflict) {
		t.Error("did not expect a conflict kind")
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)

	if appErr.Kind != KindInternal {
		t.Errorf("expected internal kind for plain error, got %s", appErr.Kind)
	}
	if !errors.Is(appErr, plain) {
		t.Error("expected original error to be wrapped")
	}

	forbidden := Forbidden("admins only")
	if AsAppError(forbidden) != forbidden {
		t.Error("expected existing AppError to pass through unchanged")
	}
}
