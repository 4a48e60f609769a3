package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/scheduler"
)

func TestServiceFactoryNewTimetable(t *testing.T) {
	t.Parallel()

	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("e")))
	tt := factory.NewTimetable(TimetableDeps{})

	entry, err := tt.Store.Create(context.Background(), application.CreateEntryInput{
		ClassName: "10A",
		Subject:   "Math",
		Room:      "101",
		Date:      ReferenceDate(),
		Start:     scheduler.TimeOfDay{Hour: 9},
		End:       scheduler.TimeOfDay{Hour: 10, Minute: 30},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if entry.ID != "e-1" {
		t.Fatalf("expected generated ID e-1, got %q", entry.ID)
	}

	messages := tt.Dispatcher.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(messages))
	}
	if len(messages[0].Audience) != 2 || messages[0].Category != application.DefaultNotificationCategory {
		t.Fatalf("unexpected notification %+v", messages[0])
	}
}

func TestMemoryGatewayFailureInjection(t *testing.T) {
	t.Parallel()

	gateway := NewMemoryGateway(nil, NewEntry(WithEntryID("seeded")))
	boom := errors.New("boom")
	gateway.Fail(OpDelete, boom)

	if err := gateway.Delete(context.Background(), "seeded"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	gateway.Recover(OpDelete)
	if err := gateway.Delete(context.Background(), "seeded"); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	if err := gateway.Delete(context.Background(), "seeded"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if gateway.Calls(OpDelete) != 3 {
		t.Fatalf("expected three delete calls, got %d", gateway.Calls(OpDelete))
	}
}
