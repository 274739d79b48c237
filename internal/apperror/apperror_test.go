package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var sentinels = []error{
	ErrNotFound, ErrValidation, ErrConflict, ErrForbidden,
	ErrUnauthorized, ErrUnavailable, ErrTimeout,
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		message  string
	}{
		{"not found", NotFound("problem", "hello-world"), ErrNotFound, "problem not found with id hello-world"},
		{"validation", ValidationFailed("stdin", "stdin is too long"), ErrValidation, "stdin is too long"},
		{"conflict", Conflict("snippet", "c9a1"), ErrConflict, "snippet conflict with id c9a1"},
		{"forbidden", Forbidden("admin login is not configured"), ErrForbidden, "admin login is not configured"},
		{"unauthorized", Unauthorized("wrong password"), ErrUnauthorized, "wrong password"},
		{"unavailable", Unavailable("compiler not ready"), ErrUnavailable, "compiler not ready"},
		{"timeout", Timeout("run 7", 1500*time.Millisecond), ErrTimeout, "run 7 timed out after 1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.message {
				t.Errorf("Error() = %q, want %q", got, tt.message)
			}
			if tt.err.Unwrap() != tt.sentinel {
				t.Errorf("Unwrap() = %v, want %v", tt.err.Unwrap(), tt.sentinel)
			}

			for _, s := range sentinels {
				if want := s == tt.sentinel; errors.Is(tt.err, s) != want {
					t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, s, !want, want)
				}
			}
		})
	}
}

func TestWrappedStillClassifies(t *testing.T) {
	err := fmt.Errorf("bridge: run 3: %w", Timeout("run 3", time.Second))

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("errors.Is(%v, ErrTimeout) = false", err)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("errors.As(%v, *AppError) = false", err)
	}
	if appErr.Message != "run 3 timed out after 1s" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestValidationFailedField(t *testing.T) {
	if got := ValidationFailed("code", "code is required").Field; got != "code" {
		t.Errorf("Field = %q, want %q", got, "code")
	}
	if got := NotFound("snippet", "x").Field; got != "" {
		t.Errorf("NotFound Field = %q, want empty", got)
	}
}
