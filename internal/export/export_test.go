package export_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/class-timetable/internal/export"
	"github.com/example/class-timetable/internal/scheduler"
	"github.com/example/class-timetable/internal/testfixtures"
)

func sampleAggregate() scheduler.Aggregate {
	return scheduler.NewAggregate("10A", []scheduler.Entry{
		testfixtures.NewEntry(testfixtures.WithEntryID("e-2"),
			testfixtures.WithSubject("Physics"),
			testfixtures.WithRoom("Lab 3"),
			testfixtures.WithZoomID("987"),
			testfixtures.WithSpan(testfixtures.At(11, 0), testfixtures.At(12, 0))),
		testfixtures.NewEntry(testfixtures.WithEntryID("e-1")),
	})
}

func TestICS(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stamp := testfixtures.ReferenceTime().Add(-time.Hour)
	if err := export.ICS(&buf, sampleAggregate(), stamp); err != nil {
		t.Fatalf("ICS failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + export.ProductID,
		"UID:e-1",
		"UID:e-2",
		"DTSTART:20240304T090000Z",
		"DTEND:20240304T103000Z",
		"DTSTAMP:20240304T080000Z",
		"SUMMARY:Physics",
		"LOCATION:Lab 3",
		"DESCRIPTION:Course MATH-10 / Zoom 987",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("calendar missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Fatalf("expected two events:\n%s", out)
	}
	if strings.Index(out, "UID:e-1") > strings.Index(out, "UID:e-2") {
		t.Fatalf("expected events in start order:\n%s", out)
	}

	var again bytes.Buffer
	if err := export.ICS(&again, sampleAggregate(), stamp); err != nil {
		t.Fatalf("ICS failed: %v", err)
	}
	if again.String() != out {
		t.Fatal("expected identical output for an unchanged timetable")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	agg := sampleAggregate()
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, agg); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "id,class,subject,room,zoom_id,course_id,start_at,end_at\n") {
		t.Fatalf("unexpected header:\n%s", buf.String())
	}

	entries, err := export.ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(entries) != len(agg.Entries) {
		t.Fatalf("expected %d entries, got %d", len(agg.Entries), len(entries))
	}
	for i, entry := range entries {
		want := agg.Entries[i]
		if entry.ID != want.ID || entry.ClassName != want.ClassName || entry.Subject != want.Subject ||
			entry.Room != want.Room || entry.ZoomID != want.ZoomID || entry.CourseID != want.CourseID ||
			!entry.StartAt.Equal(want.StartAt) || !entry.EndAt.Equal(want.EndAt) {
			t.Fatalf("entry %d mismatch:\n got %#v\nwant %#v", i, entry, want)
		}
	}
}

func TestReadCSVRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":        "",
		"wrong header": "a,b,c,d,e,f,g,h\n",
		"short row":    "id,class,subject,room,zoom_id,course_id,start_at,end_at\ne-1,10A\n",
		"bad time":     "id,class,subject,room,zoom_id,course_id,start_at,end_at\ne-1,10A,Math,101,,MATH-10,monday,2024-03-04T10:30:00Z\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := export.ReadCSV(strings.NewReader(input)); !errors.Is(err, export.ErrMalformedCSV) {
				t.Fatalf("expected ErrMalformedCSV, got %v", err)
			}
		})
	}

	_, err := export.ReadCSV(strings.NewReader(cases["bad time"]))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}
