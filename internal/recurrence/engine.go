package recurrence

import (
	"errors"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

// MaxOccurrences caps how many dates a single rule may expand to.
const MaxOccurrences = 366

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily repeats every day, optionally filtered by weekdays.
	FrequencyDaily
	// FrequencyWeekly repeats on the selected weekdays.
	FrequencyWeekly
)

// ParseFrequency maps "daily" and "weekly" to a Frequency.
func ParseFrequency(value string) Frequency {
	switch value {
	case "daily":
		return FrequencyDaily
	case "weekly":
		return FrequencyWeekly
	default:
		return FrequencyUnspecified
	}
}

// Rule describes how a session repeats across civil dates of the class calendar.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  scheduler.Date
	EndsOn    scheduler.Date
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidWindow indicates the rule has no usable date window.
	ErrInvalidWindow = errors.New("recurrence: rule requires a start and an end date on or after it")
	// ErrNoWeekdays indicates a weekly rule without weekday selections.
	ErrNoWeekdays = errors.New("recurrence: weekly rules require at least one weekday")
	// ErrTooManyOccurrences indicates the rule expands beyond MaxOccurrences.
	ErrTooManyOccurrences = errors.New("recurrence: rule expands to too many occurrences")
)

// Dates expands the rule into the civil dates it covers, in chronological order.
// Both StartsOn and EndsOn are inclusive.
func (r Rule) Dates() ([]scheduler.Date, error) {
	if r.StartsOn.IsZero() || r.EndsOn.IsZero() || r.EndsOn.Before(r.StartsOn) {
		return nil, ErrInvalidWindow
	}
	if r.Frequency == FrequencyWeekly && len(r.Weekdays) == 0 {
		return nil, ErrNoWeekdays
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(r.Weekdays))
	for _, day := range r.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	dates := make([]scheduler.Date, 0)
	for current := r.StartsOn; !r.EndsOn.Before(current); current = current.AddDays(1) {
		include, err := shouldInclude(r.Frequency, weekdaySet, current.Weekday())
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}
		if len(dates) == MaxOccurrences {
			return nil, ErrTooManyOccurrences
		}
		dates = append(dates, current)
	}
	return dates, nil
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyWeekly:
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}
