package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if errors.Unwrap(wrapped) != originalErr {
		t.Errorf("Unwrap() should return original error")
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
			appErr:   NotFound("Booking"),
			expected: "NOT_FOUND: Booking not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("internal error", errors.New("database connection failed")),
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructorsStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", Validation("bad", nil), CodeValidation, http.StatusBadRequest},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"not found", NotFoundWithID("Booking", "b1"), CodeNotFound, http.StatusNotFound},
		{"conflict", Conflict("stale"), CodeConflict, http.StatusConflict},
		{"slot full", SlotFull("s1"), CodeSlotFull, http.StatusConflict},
		{"invalid transition", InvalidTransition("draft", "confirmed"), CodeInvalidTransition, http.StatusConflict},
		{"dependency", Dependency("catalog", errors.New("boom")), CodeDependency, http.StatusBadGateway},
		{"dependency timeout", Dependency("catalog", fmt.Errorf("get: %w", context.DeadlineExceeded)), CodeDependency, http.StatusServiceUnavailable},
		{"internal", Internal("oops", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Mongo"), CodeUnavailable, http.StatusServiceUnavailable},
		{"rate limited", TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestInvalidTransitionDetails(t *testing.T) {
	err := InvalidTransition("draft", "confirmed")
	if err.Details["from"] != "draft" || err.Details["to"] != "confirmed" {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestStatusCodeDefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "CUSTOM"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", err.StatusCode())
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Slot")
	regularErr := errors.New("regular error")

	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}
	if AsAppError(fmt.Errorf("layer: %w", appErr)) != appErr {
		t.Errorf("AsAppError() should unwrap wrapped AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("reserve: %w", SlotFull("s1"))
	if !HasCode(err, CodeSlotFull) {
		t.Errorf("HasCode() should find SLOT_FULL through wrapping")
	}
	if HasCode(err, CodeConflict) {
		t.Errorf("HasCode() should not match a different code")
	}
	if HasCode(errors.New("plain"), CodeSlotFull) {
		t.Errorf("HasCode() should be false for non AppError")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	jsonStr := string(NotFoundWithID("Booking", "12345").ToJSON())

	if !strings.Contains(jsonStr, "NOT_FOUND") {
		t.Errorf("ToJSON() should contain error code")
	}
	if !strings.Contains(jsonStr, "12345") {
		t.Errorf("ToJSON() should contain details")
	}
}
