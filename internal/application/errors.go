package application

import (
	"errors"
	"strings"

	"github.com/example/class-timetable/internal/scheduler"
)

var (
	// ErrNotFound is returned when the targeted entry no longer exists; callers should reload the class.
	ErrNotFound = errors.New("application: not found")
	// ErrPersistenceUnavailable is returned when the persistence gateway fails or times out.
	// The operation had no effect and may be retried with backoff.
	ErrPersistenceUnavailable = errors.New("application: persistence unavailable")
	// ErrDataCorruption is returned when stored entries break schedule invariants on load.
	ErrDataCorruption = errors.New("application: stored schedule data is corrupt")
	// ErrNotificationFailed marks dispatcher failures. It is logged, never returned to mutation callers.
	ErrNotificationFailed = errors.New("application: notification failed")
)

// ValidationError carries every violation found for a rejected mutation.
type ValidationError struct {
	Violations []scheduler.Violation
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.Violations) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(v.Messages(), "; ")
}

// HasErrors reports whether any violation was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Violations) > 0
}

// Messages returns the human readable violation texts in order.
func (v *ValidationError) Messages() []string {
	if v == nil {
		return nil
	}
	messages := make([]string, 0, len(v.Violations))
	for _, violation := range v.Violations {
		messages = append(messages, violation.String())
	}
	return messages
}

// add records a violation against field.
func (v *ValidationError) add(code scheduler.ViolationCode, field, message string) {
	v.Violations = append(v.Violations, scheduler.Violation{Code: code, Field: field, Message: message})
}

// merge appends violations from another validation error.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.Violations) == 0 {
		return
	}
	v.Violations = append(v.Violations, other.Violations...)
}

// ViolationInvalidInput marks input that could not be normalized into instants.
const ViolationInvalidInput scheduler.ViolationCode = "invalid_input"

func invalidInput(field string, err error) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(ViolationInvalidInput, field, err.Error())
	return vErr
}
