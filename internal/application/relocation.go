package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/class-timetable/internal/scheduler"
)

// RelocationEngine moves an entry to a new day and hour while keeping its duration.
// A rejected move leaves the stored schedule untouched; callers discard any
// speculative rendering when Relocate returns an error.
type RelocationEngine struct {
	store  *ScheduleStore
	logger *slog.Logger
}

// NewRelocationEngine constructs a relocation engine on top of store.
func NewRelocationEngine(store *ScheduleStore, logger *slog.Logger) *RelocationEngine {
	if store == nil {
		panic("application: relocation engine requires a schedule store")
	}
	return &RelocationEngine{store: store, logger: defaultLogger(logger)}
}

// Relocate anchors entry id at targetHour:00 on targetDay in the class zone and
// commits the move through the store.
func (r *RelocationEngine) Relocate(ctx context.Context, className, id string, targetDay scheduler.Date, targetHour int) (entry scheduler.Entry, err error) {
	className = strings.TrimSpace(className)
	logger := serviceLogger(ctx, r.logger, "RelocationEngine", "Relocate",
		"class", className, "entry_id", id, "target_day", targetDay.String(), "target_hour", targetHour)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "relocation rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "entry relocated")
	}()

	if targetHour < 0 || targetHour > 23 {
		vErr := &ValidationError{}
		vErr.add(ViolationInvalidInput, "targetHour", fmt.Sprintf("target hour %d is outside 0-23", targetHour))
		return scheduler.Entry{}, vErr
	}

	start, err := r.store.Normalizer().At(targetDay, scheduler.TimeOfDay{Hour: targetHour}, nil)
	if err != nil {
		return scheduler.Entry{}, invalidInput(timeField(err), err)
	}

	return r.store.Update(ctx, className, id, EntryPatch{MoveTo: &start})
}
