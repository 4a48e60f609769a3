package scheduler

import (
	"sort"
	"time"
)

// MaxDuration bounds the length of a single timetable entry.
const MaxDuration = 8 * time.Hour

// EntryType categorises timetable entries. Only lectures are produced today.
type EntryType int

const (
	// EntryTypeLecture is a regular taught session.
	EntryTypeLecture EntryType = iota
)

// Entry is one scheduled class session.
type Entry struct {
	ID        string
	ClassName string
	Subject   string
	Room      string
	ZoomID    string
	CourseID  string
	StartAt   time.Time
	EndAt     time.Time
	Type      EntryType
}

// Duration returns the length of the session.
func (e Entry) Duration() time.Duration {
	return e.EndAt.Sub(e.StartAt)
}

// Overlaps reports whether the half-open intervals [StartAt, EndAt) intersect.
// Touching endpoints do not overlap.
func (e Entry) Overlaps(other Entry) bool {
	return e.StartAt.Before(other.EndAt) && other.StartAt.Before(e.EndAt)
}

// MoveTo returns a copy of the entry anchored at start with its duration preserved.
func (e Entry) MoveTo(start time.Time) Entry {
	duration := e.Duration()
	moved := e
	moved.StartAt = start.UTC()
	moved.EndAt = moved.StartAt.Add(duration)
	return moved
}

// Aggregate is the ordered set of entries belonging to one class.
type Aggregate struct {
	ClassName string
	Entries   []Entry
}

// NewAggregate builds an aggregate ordered by start time.
func NewAggregate(className string, entries []Entry) Aggregate {
	cloned := make([]Entry, len(entries))
	copy(cloned, entries)
	sortEntries(cloned)
	return Aggregate{ClassName: className, Entries: cloned}
}

// Len returns the number of entries.
func (a Aggregate) Len() int {
	return len(a.Entries)
}

// Find returns the entry with the given id.
func (a Aggregate) Find(id string) (Entry, bool) {
	for _, entry := range a.Entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// Clone returns a deep copy safe to hand to callers.
func (a Aggregate) Clone() Aggregate {
	return NewAggregate(a.ClassName, a.Entries)
}

// With returns a copy containing entry, replacing any entry with the same id.
func (a Aggregate) With(entry Entry) Aggregate {
	next := make([]Entry, 0, len(a.Entries)+1)
	for _, existing := range a.Entries {
		if existing.ID == entry.ID {
			continue
		}
		next = append(next, existing)
	}
	next = append(next, entry)
	sortEntries(next)
	return Aggregate{ClassName: a.ClassName, Entries: next}
}

// Without returns a copy with the entry removed. The second result reports whether it was present.
func (a Aggregate) Without(id string) (Aggregate, bool) {
	next := make([]Entry, 0, len(a.Entries))
	removed := false
	for _, existing := range a.Entries {
		if existing.ID == id {
			removed = true
			continue
		}
		next = append(next, existing)
	}
	return Aggregate{ClassName: a.ClassName, Entries: next}, removed
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].StartAt.Equal(entries[j].StartAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].StartAt.Before(entries[j].StartAt)
	})
}
