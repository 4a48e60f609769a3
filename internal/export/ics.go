// Package export renders class timetables as iCalendar and CSV documents.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/example/class-timetable/internal/scheduler"
)

// ProductID identifies the generator in exported calendars.
const ProductID = "-//class-timetable//timetable export//EN"

// ICS writes agg as a VCALENDAR with one VEVENT per entry. stamp becomes DTSTAMP of
// every event so repeated exports of an unchanged timetable are byte-identical.
func ICS(w io.Writer, agg scheduler.Aggregate, stamp time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)

	for _, entry := range agg.Entries {
		event := cal.AddEvent(entry.ID)
		event.SetDtStampTime(stamp.UTC())
		event.SetStartAt(entry.StartAt)
		event.SetEndAt(entry.EndAt)
		event.SetSummary(entry.Subject)
		if entry.Room != "" {
			event.SetLocation(entry.Room)
		}
		if description := describe(entry); description != "" {
			event.SetDescription(description)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("export: write calendar: %w", err)
	}
	return nil
}

func describe(entry scheduler.Entry) string {
	var parts []string
	if entry.CourseID != "" {
		parts = append(parts, "Course "+entry.CourseID)
	}
	if entry.ZoomID != "" {
		parts = append(parts, "Zoom "+entry.ZoomID)
	}
	return strings.Join(parts, " / ")
}
