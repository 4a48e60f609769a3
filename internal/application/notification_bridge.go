package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

// DefaultNotificationCategory tags messages produced by the timetable.
const DefaultNotificationCategory = "timeTable"

const (
	titleCreated = "New session added"
	titleUpdated = "Session changed"
	titleDeleted = "Session cancelled"
)

// BridgeOptions configures a NotificationBridge.
type BridgeOptions struct {
	Category string
	// Location renders times in notification bodies. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// NotificationBridge turns committed mutations into notifications. Delivery is best
// effort: failures are logged as ErrNotificationFailed and never reach the mutation
// caller.
type NotificationBridge struct {
	dispatcher Dispatcher
	audience   AudienceDirectory
	category   string
	location   *time.Location
	logger     *slog.Logger
}

// NewNotificationBridge constructs a bridge delivering through dispatcher.
func NewNotificationBridge(dispatcher Dispatcher, audience AudienceDirectory, opts BridgeOptions) *NotificationBridge {
	if dispatcher == nil {
		panic("application: notification bridge requires a dispatcher")
	}
	category := strings.TrimSpace(opts.Category)
	if category == "" {
		category = DefaultNotificationCategory
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationBridge{
		dispatcher: dispatcher,
		audience:   audience,
		category:   category,
		location:   loc,
		logger:     defaultLogger(opts.Logger),
	}
}

// Notify renders the template selected by kind and hands it to the dispatcher. An
// update with an empty diff sends nothing.
func (b *NotificationBridge) Notify(ctx context.Context, kind MutationKind, diff []scheduler.FieldChange, entry scheduler.Entry, audience []string) error {
	var title, body string
	switch kind {
	case MutationCreated:
		title, body = titleCreated, b.describe(entry)
	case MutationUpdated:
		if len(diff) == 0 {
			return nil
		}
		title = titleUpdated
		body = fmt.Sprintf("%s: %s", entry.Subject, scheduler.Summarize(diff))
	case MutationDeleted:
		title, body = titleDeleted, b.describe(entry)
	default:
		return fmt.Errorf("%w: unknown mutation kind %d", ErrNotificationFailed, int(kind))
	}

	if err := b.dispatcher.Send(ctx, title, body, audience, b.category); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

// OnMutation resolves the class audience and notifies it about event.
func (b *NotificationBridge) OnMutation(ctx context.Context, event MutationEvent) {
	entry := event.Entry()
	logger := serviceLogger(ctx, b.logger, "NotificationBridge", "OnMutation",
		"class", event.ClassName, "entry_id", entry.ID, "kind", event.Kind.String())

	var diff []scheduler.FieldChange
	if event.Kind == MutationUpdated && event.Old != nil && event.New != nil {
		diff = scheduler.DiffIn(*event.Old, *event.New, b.location)
		if len(diff) == 0 {
			logger.DebugContext(ctx, "no visible change, notification skipped")
			return
		}
	}

	var audience []string
	if b.audience != nil {
		resolved, err := b.audience.Audience(ctx, event.ClassName)
		if err != nil {
			err = fmt.Errorf("%w: resolve audience: %v", ErrNotificationFailed, err)
			logger.WarnContext(ctx, "notification dropped", "error", err, "error_kind", ErrorKind(err))
			return
		}
		audience = resolved
	}

	if err := b.Notify(ctx, event.Kind, diff, entry, audience); err != nil {
		logger.WarnContext(ctx, "notification dropped", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.InfoContext(ctx, "notification sent", "audience_count", len(audience))
}

func (b *NotificationBridge) describe(entry scheduler.Entry) string {
	start := entry.StartAt.In(b.location)
	end := entry.EndAt.In(b.location)
	return fmt.Sprintf("%s on %s %s-%s, room %s",
		entry.Subject, start.Format("Mon 02 Jan 2006"), start.Format("15:04"), end.Format("15:04 MST"), entry.Room)
}
