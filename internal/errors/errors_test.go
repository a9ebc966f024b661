package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New(ErrCategoryNotFound, CodeEventNotFound, "event 7 not found")
	expected := "[NOT_FOUND:EVENT_NOT_FOUND] event 7 not found"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCategoryStorage, CodeBackend, "put failed", cause)
	expected := "[STORAGE:BACKEND] put failed: disk full"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewStorageError(CodeSerialization, "encode", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestError_Is(t *testing.T) {
	err1 := NewValidationError(CodeEmptyField, "first")
	err2 := NewValidationError(CodeEmptyField, "second")
	err3 := NewValidationError(CodeInvalidCount, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
	wrapped := fmt.Errorf("context: %w", err1)
	if !errors.Is(wrapped, err2) {
		t.Error("Is should see through fmt wrapping")
	}
}

func TestCategoryPredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
		want bool
	}{
		{NewNotFoundError(CodeUserNotFound, "x"), IsNotFound, true},
		{NewValidationError(CodeEmptyField, "x"), IsNotFound, false},
		{NewValidationError(CodeInvalidDate, "x"), IsValidation, true},
		{NewUnauthorizedError(CodeIncorrectPassword, "x"), IsUnauthorized, true},
		{NewConflictError(CodeUsernameTaken, "x"), IsConflict, true},
		{NewInventoryError("x"), IsInsufficientInventory, true},
		{NewConsistencyError("x"), IsInsufficientInventory, false},
		{NewConsistencyError("x"), IsConsistency, true},
		{NewInternalError("x", nil), IsConsistency, false},
		{NewStorageError(CodeSerialization, "x", nil), IsSerialization, true},
		{fmt.Errorf("plain"), IsNotFound, false},
	}

	for i, tt := range tests {
		if got := tt.pred(tt.err); got != tt.want {
			t.Errorf("case %d: got %v, want %v (%v)", i, got, tt.want, tt.err)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInventoryError("sold out"))
	if GetCategory(err) != ErrCategoryInventory {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryInventory)
	}
	if GetCode(err) != CodeInsufficientInventory {
		t.Errorf("got %q, want %q", GetCode(err), CodeInsufficientInventory)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-Error should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-Error should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewInventoryError("not enough")
	detailed := err.WithDetails(map[string]interface{}{"available": 1})

	if detailed.Details["available"] != 1 {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCategoryNotFound, CodeTicketNotFound, "ticket %d not found", 42)
	if err.Message != "ticket 42 not found" {
		t.Errorf("got %q", err.Message)
	}
}
