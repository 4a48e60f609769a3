package application

import (
	"time"

	"github.com/example/class-timetable/internal/recurrence"
	"github.com/example/class-timetable/internal/scheduler"
)

// CreateEntryInput captures caller provided fields for a new session.
// Date and the times of day are civil values in the class zone unless OffsetHours is set.
type CreateEntryInput struct {
	ClassName   string
	Subject     string
	Room        string
	ZoomID      string
	CourseID    string
	Date        scheduler.Date
	Start       scheduler.TimeOfDay
	End         scheduler.TimeOfDay
	OffsetHours *int
}

// CreateSeriesInput describes a recurring session. Entry.Date is ignored; the rule
// supplies every occurrence date.
type CreateSeriesInput struct {
	Entry CreateEntryInput
	Rule  recurrence.Rule
}

// EntryPatch lists the editable fields of an entry. Nil fields keep their prior value.
//
// Civil edits (Date, Start, End) fill missing parts from the prior entry as seen in the
// class zone. Raw instants (StartAt, EndAt) take precedence over civil edits. MoveTo
// anchors the start and keeps the stored duration, and excludes every other time field.
type EntryPatch struct {
	Date        *scheduler.Date
	Start       *scheduler.TimeOfDay
	End         *scheduler.TimeOfDay
	OffsetHours *int
	StartAt     *time.Time
	EndAt       *time.Time
	MoveTo      *time.Time
	Room        *string
	ZoomID      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Date == nil && p.Start == nil && p.End == nil &&
		p.StartAt == nil && p.EndAt == nil && p.MoveTo == nil && p.Room == nil && p.ZoomID == nil
}

func (p EntryPatch) civil() bool {
	return p.Date != nil || p.Start != nil || p.End != nil
}

// MutationKind identifies the committed change carried by a MutationEvent.
type MutationKind int

const (
	// MutationCreated marks a newly inserted entry.
	MutationCreated MutationKind = iota + 1
	// MutationUpdated marks an edited or relocated entry.
	MutationUpdated
	// MutationDeleted marks a removed entry.
	MutationDeleted
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreated:
		return "created"
	case MutationUpdated:
		return "updated"
	case MutationDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MutationEvent is published after a mutation commits. Old is nil for creations and
// New is nil for deletions.
type MutationEvent struct {
	Kind      MutationKind
	ClassName string
	Old       *scheduler.Entry
	New       *scheduler.Entry
}

// Entry returns the entry the event is about, preferring the new state.
func (e MutationEvent) Entry() scheduler.Entry {
	if e.New != nil {
		return *e.New
	}
	if e.Old != nil {
		return *e.Old
	}
	return scheduler.Entry{}
}

// TimeLocationUpdate carries the fields forwarded to the gateway on edit. Nil fields
// are left unchanged in storage.
type TimeLocationUpdate struct {
	StartAt *time.Time
	EndAt   *time.Time
	Room    *string
	ZoomID  *string
}
