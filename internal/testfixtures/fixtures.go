package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

var entryCounter uint64

// referenceTime is a Monday morning so weekday based fixtures line up with it.
var referenceTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the civil date of ReferenceTime.
func ReferenceDate() scheduler.Date {
	return scheduler.DateOf(referenceTime)
}

// At returns the instant hour:minute UTC on the reference date.
func At(hour, minute int) time.Time {
	return time.Date(referenceTime.Year(), referenceTime.Month(), referenceTime.Day(), hour, minute, 0, 0, time.UTC)
}

// EntryOption configures a generated entry.
type EntryOption func(*scheduler.Entry)

// NewEntry returns a deterministic lecture of class 10A with optional overrides. By
// default it runs 09:00-10:30 on the reference date in room 101.
func NewEntry(opts ...EntryOption) scheduler.Entry {
	idx := atomic.AddUint64(&entryCounter, 1)
	entry := scheduler.Entry{
		ID:        fmt.Sprintf("entry-%03d", idx),
		ClassName: "10A",
		Subject:   "Math",
		Room:      "101",
		CourseID:  "MATH-10",
		StartAt:   referenceTime,
		EndAt:     referenceTime.Add(90 * time.Minute),
		Type:      scheduler.EntryTypeLecture,
	}
	for _, opt := range opts {
		opt(&entry)
	}
	return entry
}

// WithEntryID overrides the entry identifier.
func WithEntryID(id string) EntryOption {
	return func(e *scheduler.Entry) {
		e.ID = id
	}
}

// WithClassName overrides the owning class.
func WithClassName(className string) EntryOption {
	return func(e *scheduler.Entry) {
		e.ClassName = className
	}
}

// WithSubject overrides the subject.
func WithSubject(subject string) EntryOption {
	return func(e *scheduler.Entry) {
		e.Subject = subject
	}
}

// WithRoom overrides the room.
func WithRoom(room string) EntryOption {
	return func(e *scheduler.Entry) {
		e.Room = room
	}
}

// WithZoomID sets the remote meeting id.
func WithZoomID(zoomID string) EntryOption {
	return func(e *scheduler.Entry) {
		e.ZoomID = zoomID
	}
}

// WithSpan sets the start and end instants.
func WithSpan(start, end time.Time) EntryOption {
	return func(e *scheduler.Entry) {
		e.StartAt = start.UTC()
		e.EndAt = end.UTC()
	}
}
