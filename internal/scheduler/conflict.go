package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ViolationCode classifies why a candidate entry was rejected.
type ViolationCode string

const (
	// ViolationRequired indicates a mandatory field is blank.
	ViolationRequired ViolationCode = "required"
	// ViolationTimeOrder indicates the end is not after the start.
	ViolationTimeOrder ViolationCode = "time_order"
	// ViolationDuration indicates the session exceeds MaxDuration.
	ViolationDuration ViolationCode = "duration"
	// ViolationOverlap indicates the session collides with another entry of the class.
	ViolationOverlap ViolationCode = "overlap"
)

// Violation details a single reason a candidate entry cannot be committed.
type Violation struct {
	Code        ViolationCode
	Field       string
	Message     string
	WithEntryID string
}

func (v Violation) String() string {
	return v.Message
}

// Validate checks the candidate against structural rules and the existing entries of
// its class. Every rule is evaluated so callers can surface all problems at once.
// Entries whose id equals excludingID are ignored by the overlap check, which lets an
// edit validate against all other entries.
func Validate(candidate Entry, existing []Entry, excludingID string) (bool, []Violation) {
	violations := make([]Violation, 0)

	required := []struct {
		field string
		blank bool
	}{
		{"subject", strings.TrimSpace(candidate.Subject) == ""},
		{"className", strings.TrimSpace(candidate.ClassName) == ""},
		{"room", strings.TrimSpace(candidate.Room) == ""},
		{"startAt", candidate.StartAt.IsZero()},
		{"endAt", candidate.EndAt.IsZero()},
	}
	for _, r := range required {
		if r.blank {
			violations = append(violations, Violation{
				Code:    ViolationRequired,
				Field:   r.field,
				Message: r.field + " is required",
			})
		}
	}

	if candidate.StartAt.IsZero() || candidate.EndAt.IsZero() {
		return len(violations) == 0, violations
	}

	ordered := candidate.EndAt.After(candidate.StartAt)
	if !ordered {
		violations = append(violations, Violation{
			Code:    ViolationTimeOrder,
			Field:   "endAt",
			Message: "end must be after start",
		})
	}

	if candidate.Duration() > MaxDuration {
		violations = append(violations, Violation{
			Code:    ViolationDuration,
			Field:   "endAt",
			Message: fmt.Sprintf("session must not be longer than %s", MaxDuration),
		})
	}

	if ordered {
		for _, other := range existing {
			if excludingID != "" && other.ID == excludingID {
				continue
			}
			if !candidate.Overlaps(other) {
				continue
			}
			violations = append(violations, Violation{
				Code:        ViolationOverlap,
				Field:       "startAt",
				Message:     fmt.Sprintf("overlaps %q (%s - %s)", other.Subject, other.StartAt.Format("2006-01-02 15:04"), other.EndAt.Format("15:04 MST")),
				WithEntryID: other.ID,
			})
		}
	}

	return len(violations) == 0, violations
}

// ErrCorruptEntry is returned by CheckStored when persisted data breaks entry invariants.
var ErrCorruptEntry = errors.New("scheduler: stored entry violates invariants")

// CheckStored verifies the structural invariants of an entry read back from storage.
func CheckStored(entry Entry, className string) error {
	switch {
	case entry.ID == "":
		return fmt.Errorf("%w: missing id", ErrCorruptEntry)
	case entry.ClassName != className:
		return fmt.Errorf("%w: entry %s belongs to %q, not %q", ErrCorruptEntry, entry.ID, entry.ClassName, className)
	case entry.StartAt.IsZero() || entry.EndAt.IsZero():
		return fmt.Errorf("%w: entry %s has no time range", ErrCorruptEntry, entry.ID)
	case !entry.EndAt.After(entry.StartAt):
		return fmt.Errorf("%w: entry %s ends before it starts", ErrCorruptEntry, entry.ID)
	case entry.Duration() > MaxDuration:
		return fmt.Errorf("%w: entry %s is longer than %s", ErrCorruptEntry, entry.ID, MaxDuration)
	}
	return nil
}
