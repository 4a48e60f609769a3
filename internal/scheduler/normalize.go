package scheduler

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDate is returned when a civil date cannot be parsed or does not exist.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidTimeOfDay is returned when a wall-clock value is outside 00:00-23:59.
	ErrInvalidTimeOfDay = errors.New("scheduler: invalid time of day")
	// ErrInvalidTimeRange is returned when the end of a session is not after its start.
	ErrInvalidTimeRange = errors.New("scheduler: end must be after start")
	// ErrInvalidOffset is returned for UTC offsets outside -12..+14 hours.
	ErrInvalidOffset = errors.New("scheduler: utc offset must be between -12 and +14 hours")
)

const (
	minOffsetHours = -12
	maxOffsetHours = 14
)

// Date is a civil calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// DateOf returns the civil date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.midnight().Before(other.midnight())
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) valid() bool {
	if d.IsZero() {
		return false
	}
	return DateOf(d.midnight()) == d
}

// TimeOfDay is a civil wall-clock value.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses HH:MM (24 hour clock).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Valid reports whether the value lies within a day.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Normalizer converts civil date and wall-clock input into UTC instants.
//
// One rule applies to every path (create, edit, relocate): civil values are
// interpreted in the class location unless the caller declares an explicit
// UTC offset, in which case that fixed offset is used instead. No further
// shift is ever applied.
type Normalizer struct {
	location *time.Location
}

// NewNormalizer returns a normalizer for the class location. A nil location means UTC.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{location: loc}
}

// Location returns the class location used when no explicit offset is given.
func (n *Normalizer) Location() *time.Location {
	if n == nil || n.location == nil {
		return time.UTC
	}
	return n.location
}

// Normalize combines date with the start and end wall-clock values and returns the UTC pair.
func (n *Normalizer) Normalize(date Date, start, end TimeOfDay, offsetHours *int) (time.Time, time.Time, error) {
	startAt, err := n.At(date, start, offsetHours)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endAt, err := n.At(date, end, offsetHours)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !endAt.After(startAt) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s-%s on %s", ErrInvalidTimeRange, start, end, date)
	}
	return startAt, endAt, nil
}

// At anchors a single wall-clock value on date and returns it in UTC.
func (n *Normalizer) At(date Date, tod TimeOfDay, offsetHours *int) (time.Time, error) {
	if !date.valid() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}
	if !tod.Valid() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, tod)
	}
	loc, err := n.resolve(offsetHours)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year, date.Month, date.Day, tod.Hour, tod.Minute, 0, 0, loc).UTC(), nil
}

// Civil renders an instant back into the date and wall-clock value seen in the class location.
func (n *Normalizer) Civil(t time.Time) (Date, TimeOfDay) {
	local := t.In(n.Location())
	return DateOf(local), TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
}

func (n *Normalizer) resolve(offsetHours *int) (*time.Location, error) {
	if offsetHours == nil {
		return n.Location(), nil
	}
	return FixedOffset(*offsetHours)
}

// FixedOffset returns a zone with the given whole-hour offset from UTC.
func FixedOffset(hours int) (*time.Location, error) {
	if hours < minOffsetHours || hours > maxOffsetHours {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffset, hours)
	}
	if hours == 0 {
		return time.UTC, nil
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", hours), hours*60*60), nil
}
