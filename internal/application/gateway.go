package application

import (
	"context"

	"github.com/example/class-timetable/internal/scheduler"
)

// EntryGateway persists timetable entries. Implementations signal a missing entry by
// returning an error that wraps ErrNotFound; every other error is treated as a
// transient persistence failure.
type EntryGateway interface {
	GetByClass(ctx context.Context, className string) ([]scheduler.Entry, error)
	Create(ctx context.Context, entry scheduler.Entry) (scheduler.Entry, error)
	UpdateTimeAndLocation(ctx context.Context, id string, update TimeLocationUpdate) (scheduler.Entry, error)
	Delete(ctx context.Context, id string) error
}

// MutationListener observes committed mutations. It runs after the class lock is
// released and cannot fail the mutation.
type MutationListener interface {
	OnMutation(ctx context.Context, event MutationEvent)
}

// MutationListenerFunc adapts a function to MutationListener.
type MutationListenerFunc func(ctx context.Context, event MutationEvent)

// OnMutation calls f.
func (f MutationListenerFunc) OnMutation(ctx context.Context, event MutationEvent) {
	f(ctx, event)
}

// Dispatcher delivers a notification to an audience.
type Dispatcher interface {
	Send(ctx context.Context, title, body string, audience []string, category string) error
}

// AudienceDirectory resolves the recipients of notifications for a class.
type AudienceDirectory interface {
	Audience(ctx context.Context, className string) ([]string, error)
}
