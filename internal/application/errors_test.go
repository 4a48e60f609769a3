package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/class-timetable/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	populated := &ValidationError{}
	populated.add(scheduler.ViolationRequired, "room", "room is required")
	populated.add(scheduler.ViolationTimeOrder, "endAt", "end must be after start")
	want := "validation failed: room is required; end must be after start"
	if got := populated.Error(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	var nilErr *ValidationError
	if nilErr.HasErrors() {
		t.Fatalf("expected HasErrors to report false for nil error")
	}

	if !invalidInput("date", scheduler.ErrInvalidDate).HasErrors() {
		t.Fatalf("expected HasErrors to report true when violations are present")
	}
}

func TestValidationError_Merge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add(scheduler.ViolationRequired, "subject", "subject is required")
	base.merge(invalidInput("offsetHours", scheduler.ErrInvalidOffset))
	base.merge(nil)

	if len(base.Violations) != 2 {
		t.Fatalf("expected two violations, got %v", base.Violations)
	}
	if base.Violations[1].Code != ViolationInvalidInput || base.Violations[1].Field != "offsetHours" {
		t.Fatalf("unexpected merged violation %+v", base.Violations[1])
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                        nil,
		"not_found":               fmt.Errorf("entry x: %w", ErrNotFound),
		"persistence_unavailable": fmt.Errorf("%w: timeout", ErrPersistenceUnavailable),
		"data_corruption":         ErrDataCorruption,
		"notification_failed":     ErrNotificationFailed,
		"validation":              fmt.Errorf("wrapped: %w", &ValidationError{}),
		"unexpected":              errors.New("boom"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
