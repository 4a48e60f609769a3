package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/scheduler"
	"github.com/example/class-timetable/internal/testfixtures"
)

func TestRelocationEngine_Relocate(t *testing.T) {
	t.Parallel()

	monday := testfixtures.ReferenceDate()
	tuesday := monday.AddDays(1)

	seed := func(deps testfixtures.TimetableDeps) *testfixtures.Timetable {
		deps.Seed = []scheduler.Entry{
			testfixtures.NewEntry(
				testfixtures.WithEntryID("math"),
				testfixtures.WithSpan(testfixtures.At(9, 0), testfixtures.At(10, 30)),
			),
			testfixtures.NewEntry(
				testfixtures.WithEntryID("physics"),
				testfixtures.WithSubject("Physics"),
				testfixtures.WithSpan(testfixtures.At(10, 30), testfixtures.At(12, 0)),
			),
		}
		return newTimetable(deps)
	}

	t.Run("moving to another day keeps the duration", func(t *testing.T) {
		t.Parallel()

		tt := seed(testfixtures.TimetableDeps{})
		moved, err := tt.Relocation.Relocate(context.Background(), "10A", "math", tuesday, 9)
		if err != nil {
			t.Fatalf("Relocate returned error: %v", err)
		}
		if moved.Duration() != 90*time.Minute {
			t.Fatalf("expected 90 minutes, got %s", moved.Duration())
		}
		if !moved.StartAt.Equal(testfixtures.At(9, 0).AddDate(0, 0, 1)) {
			t.Fatalf("unexpected start %s", moved.StartAt)
		}

		messages := tt.Dispatcher.Messages()
		if len(messages) != 1 || messages[0].Title != "Session changed" {
			t.Fatalf("expected one update notification, got %+v", messages)
		}
	})

	t.Run("overlap check only considers the target day", func(t *testing.T) {
		t.Parallel()

		tt := seed(testfixtures.TimetableDeps{})
		ctx := context.Background()
		if _, err := tt.Relocation.Relocate(ctx, "10A", "math", tuesday, 9); err != nil {
			t.Fatalf("Relocate returned error: %v", err)
		}

		_, err := tt.Relocation.Relocate(ctx, "10A", "physics", tuesday, 10)
		vErr := requireViolation(t, err, scheduler.ViolationOverlap)
		if vErr.Violations[0].WithEntryID != "math" {
			t.Fatalf("expected collision with math, got %+v", vErr.Violations)
		}

		for _, stored := range tt.Gateway.Entries("10A") {
			if stored.ID == "physics" && !stored.StartAt.Equal(testfixtures.At(10, 30)) {
				t.Fatalf("expected rejected move to leave physics untouched, got %s", stored.StartAt)
			}
		}

		if _, err := tt.Relocation.Relocate(ctx, "10A", "physics", monday, 9); err != nil {
			t.Fatalf("expected vacated monday slot to accept physics, got %v", err)
		}
	})

	t.Run("duration is preserved for every target hour", func(t *testing.T) {
		t.Parallel()

		tt := seed(testfixtures.TimetableDeps{})
		for hour := 0; hour < 24; hour++ {
			moved, err := tt.Relocation.Relocate(context.Background(), "10A", "math", monday.AddDays(7), hour)
			if err != nil {
				t.Fatalf("hour %d: %v", hour, err)
			}
			if moved.Duration() != 90*time.Minute {
				t.Fatalf("hour %d: duration changed to %s", hour, moved.Duration())
			}
		}
	})

	t.Run("target hour is interpreted in the class zone", func(t *testing.T) {
		t.Parallel()

		tt := seed(testfixtures.TimetableDeps{Location: time.FixedZone("ICT", 7*60*60)})
		moved, err := tt.Relocation.Relocate(context.Background(), "10A", "math", tuesday, 9)
		if err != nil {
			t.Fatalf("Relocate returned error: %v", err)
		}
		if !moved.StartAt.Equal(testfixtures.At(2, 0).AddDate(0, 0, 1)) {
			t.Fatalf("expected 02:00 UTC, got %s", moved.StartAt)
		}
	})

	t.Run("same slot is a silent no-op", func(t *testing.T) {
		t.Parallel()

		tt := seed(testfixtures.TimetableDeps{})
		if _, err := tt.Relocation.Relocate(context.Background(), "10A", "math", monday, 9); err != nil {
			t.Fatalf("Relocate returned error: %v", err)
		}
		if tt.Gateway.Calls(testfixtures.OpUpdate) != 0 || len(tt.Dispatcher.Messages()) != 0 {
			t.Fatalf("expected no gateway update and no notification")
		}
	})

	t.Run("invalid hour and unknown entry", func(t *testing.T) {
		t.Parallel()

		tt := seed(testfixtures.TimetableDeps{})
		_, err := tt.Relocation.Relocate(context.Background(), "10A", "math", tuesday, 24)
		requireViolation(t, err, application.ViolationInvalidInput)

		_, err = tt.Relocation.Relocate(context.Background(), "10A", "missing", tuesday, 9)
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
