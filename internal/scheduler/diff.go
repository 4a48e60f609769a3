package scheduler

import (
	"strings"
	"time"
)

// Field names a mutable attribute of an entry tracked for change notifications.
type Field string

const (
	FieldStartAt Field = "startAt"
	FieldEndAt   Field = "endAt"
	FieldRoom    Field = "room"
	FieldZoomID  Field = "zoomId"
)

// FieldChange records the old and new rendering of a changed field.
type FieldChange struct {
	Field Field
	Old   string
	New   string
}

const displayLayout = "Mon 02 Jan 2006 15:04 MST"

// Diff lists the fields that differ between old and updated, with times rendered in UTC.
func Diff(old, updated Entry) []FieldChange {
	return DiffIn(old, updated, time.UTC)
}

// DiffIn lists the fields that differ between old and updated, rendering times in loc.
// The order is fixed: startAt, endAt, room, zoomId.
func DiffIn(old, updated Entry, loc *time.Location) []FieldChange {
	if loc == nil {
		loc = time.UTC
	}
	changes := make([]FieldChange, 0, 4)
	if !old.StartAt.Equal(updated.StartAt) {
		changes = append(changes, FieldChange{Field: FieldStartAt, Old: formatInstant(old.StartAt, loc), New: formatInstant(updated.StartAt, loc)})
	}
	if !old.EndAt.Equal(updated.EndAt) {
		changes = append(changes, FieldChange{Field: FieldEndAt, Old: formatInstant(old.EndAt, loc), New: formatInstant(updated.EndAt, loc)})
	}
	if old.Room != updated.Room {
		changes = append(changes, FieldChange{Field: FieldRoom, Old: old.Room, New: updated.Room})
	}
	if old.ZoomID != updated.ZoomID {
		changes = append(changes, FieldChange{Field: FieldZoomID, Old: old.ZoomID, New: updated.ZoomID})
	}
	return changes
}

// Summarize joins changes into a single human readable line.
func Summarize(changes []FieldChange) string {
	if len(changes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(changes))
	for _, change := range changes {
		parts = append(parts, change.Field.label()+": "+orNone(change.Old)+" -> "+orNone(change.New))
	}
	return strings.Join(parts, "; ")
}

func (f Field) label() string {
	switch f {
	case FieldStartAt:
		return "start"
	case FieldEndAt:
		return "end"
	case FieldRoom:
		return "room"
	case FieldZoomID:
		return "zoom"
	default:
		return string(f)
	}
}

func formatInstant(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(displayLayout)
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
