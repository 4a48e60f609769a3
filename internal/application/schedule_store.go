package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

var (
	errEmptySeries   = errors.New("recurrence rule yields no dates")
	errMoveWithTimes = errors.New("a move cannot be combined with explicit times")
)

// DefaultGatewayTimeout bounds a single gateway call when StoreOptions leaves it unset.
const DefaultGatewayTimeout = 5 * time.Second

// StoreOptions configures a ScheduleStore.
type StoreOptions struct {
	// Normalizer converts civil input into instants. Defaults to UTC.
	Normalizer *scheduler.Normalizer
	// Listener receives committed mutations. Optional.
	Listener MutationListener
	// GatewayTimeout bounds each gateway call. Zero selects DefaultGatewayTimeout and a
	// negative value disables the bound.
	GatewayTimeout time.Duration
	// CacheTTL forces a wholesale reload of aggregates older than the ttl. Zero keeps
	// aggregates until they are reloaded explicitly.
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

// ScheduleStore owns the per-class aggregates. It is the only component that mutates
// them and the only caller of the EntryGateway.
type ScheduleStore struct {
	gateway    EntryGateway
	normalizer *scheduler.Normalizer
	listener   MutationListener
	timeout    time.Duration
	cache      *aggregateCache
	locks      *classLocks
	logger     *slog.Logger
}

// NewScheduleStore constructs a store backed by gateway.
func NewScheduleStore(gateway EntryGateway, opts StoreOptions) *ScheduleStore {
	if gateway == nil {
		panic("application: schedule store requires an entry gateway")
	}
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = scheduler.NewNormalizer(time.UTC)
	}
	timeout := opts.GatewayTimeout
	if timeout == 0 {
		timeout = DefaultGatewayTimeout
	}
	return &ScheduleStore{
		gateway:    gateway,
		normalizer: normalizer,
		listener:   opts.Listener,
		timeout:    timeout,
		cache:      newAggregateCache(opts.CacheTTL, 0, opts.Now),
		locks:      newClassLocks(),
		logger:     defaultLogger(opts.Logger),
	}
}

// Normalizer exposes the zone rule shared by every mutation path.
func (s *ScheduleStore) Normalizer() *scheduler.Normalizer {
	return s.normalizer
}

func (s *ScheduleStore) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleStore", operation, attrs...)
}

// Load fetches every entry of the class and replaces the cached aggregate wholesale.
func (s *ScheduleStore) Load(ctx context.Context, className string) (agg scheduler.Aggregate, err error) {
	className = strings.TrimSpace(className)
	logger := s.loggerWith(ctx, "Load", "class", className)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_count", agg.Len()).InfoContext(ctx, "schedule loaded")
	}()

	if className == "" {
		return scheduler.Aggregate{}, classNameRequired()
	}

	unlock := s.locks.lock(className)
	defer unlock()

	return s.loadLocked(ctx, logger, className)
}

// Snapshot returns the cached aggregate of the class, loading it on first use or after
// the cache ttl elapsed.
func (s *ScheduleStore) Snapshot(ctx context.Context, className string) (scheduler.Aggregate, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return scheduler.Aggregate{}, classNameRequired()
	}

	unlock := s.locks.lock(className)
	defer unlock()

	return s.ensureLoadedLocked(ctx, className)
}

// Create normalizes and validates the input against the class aggregate, persists it
// and inserts the stored entry.
func (s *ScheduleStore) Create(ctx context.Context, input CreateEntryInput) (entry scheduler.Entry, err error) {
	className := strings.TrimSpace(input.ClassName)
	logger := s.loggerWith(ctx, "Create", "class", className)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_id", entry.ID).InfoContext(ctx, "entry created")
	}()

	candidate, vErr := s.buildCandidate(input, input.Date)
	if vErr != nil {
		return scheduler.Entry{}, vErr
	}

	var created scheduler.Entry
	err = s.mutate(ctx, className, func(agg scheduler.Aggregate) (*scheduler.Aggregate, *MutationEvent, error) {
		if ok, violations := scheduler.Validate(candidate, agg.Entries, ""); !ok {
			return nil, nil, &ValidationError{Violations: violations}
		}

		stored, err := s.createInGateway(ctx, candidate)
		if err != nil {
			return nil, nil, err
		}
		created = stored
		next := agg.With(stored)
		return &next, &MutationEvent{Kind: MutationCreated, ClassName: className, New: &stored}, nil
	})
	if err != nil {
		return scheduler.Entry{}, err
	}
	return created, nil
}

// CreateSeries creates one entry per date produced by the input rule. Every occurrence
// is validated against the aggregate and the rest of the series before any entry is
// persisted. Occurrences are then persisted in order; if the gateway fails midway the
// entries already stored are kept and returned together with the error.
func (s *ScheduleStore) CreateSeries(ctx context.Context, input CreateSeriesInput) (entries []scheduler.Entry, err error) {
	className := strings.TrimSpace(input.Entry.ClassName)
	logger := s.loggerWith(ctx, "CreateSeries", "class", className)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create series", "error", err, "error_kind", ErrorKind(err), "created_count", len(entries))
			return
		}
		logger.With("created_count", len(entries)).InfoContext(ctx, "series created")
	}()

	dates, err := input.Rule.Dates()
	if err != nil {
		return nil, invalidInput("recurrence", err)
	}
	if len(dates) == 0 {
		return nil, invalidInput("recurrence", errEmptySeries)
	}

	vErr := &ValidationError{}
	candidates := make([]scheduler.Entry, 0, len(dates))
	for _, date := range dates {
		candidate, cErr := s.buildCandidate(input.Entry, date)
		if cErr.HasErrors() {
			vErr.merge(prefixed(date.String(), cErr.Violations))
			continue
		}
		candidates = append(candidates, candidate)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	var created []scheduler.Entry
	err = s.mutate(ctx, className, func(agg scheduler.Aggregate) (*scheduler.Aggregate, *MutationEvent, error) {
		vErr := &ValidationError{}
		accepted := make([]scheduler.Entry, 0, len(candidates)+agg.Len())
		accepted = append(accepted, agg.Entries...)
		for _, candidate := range candidates {
			if ok, violations := scheduler.Validate(candidate, accepted, ""); !ok {
				vErr.merge(prefixed(scheduler.DateOf(candidate.StartAt.In(s.normalizer.Location())).String(), violations))
			}
			accepted = append(accepted, candidate)
		}
		if vErr.HasErrors() {
			return nil, nil, vErr
		}

		next := agg
		for _, candidate := range candidates {
			stored, err := s.createInGateway(ctx, candidate)
			if err != nil {
				return &next, nil, err
			}
			created = append(created, stored)
			next = next.With(stored)
		}
		return &next, nil, nil
	})

	for i := range created {
		stored := created[i]
		s.emit(ctx, MutationEvent{Kind: MutationCreated, ClassName: className, New: &stored})
	}
	return created, err
}

// Update merges the patch into the entry id of the class, validates the result against
// every other entry and persists it. A patch that changes nothing returns the prior
// entry without touching the gateway.
func (s *ScheduleStore) Update(ctx context.Context, className, id string, patch EntryPatch) (entry scheduler.Entry, err error) {
	className = strings.TrimSpace(className)
	logger := s.loggerWith(ctx, "Update", "class", className, "entry_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "entry updated")
	}()

	if className == "" {
		return scheduler.Entry{}, classNameRequired()
	}

	var updated scheduler.Entry
	err = s.mutate(ctx, className, func(agg scheduler.Aggregate) (*scheduler.Aggregate, *MutationEvent, error) {
		prior, ok := agg.Find(id)
		if !ok {
			return nil, nil, fmt.Errorf("entry %s of class %s: %w", id, className, ErrNotFound)
		}

		merged, vErr := s.applyPatch(prior, patch)
		if vErr.HasErrors() {
			return nil, nil, vErr
		}
		if sameTimeAndLocation(prior, merged) {
			updated = prior
			return nil, nil, nil
		}
		if ok, violations := scheduler.Validate(merged, agg.Entries, id); !ok {
			return nil, nil, &ValidationError{Violations: violations}
		}

		stored, err := s.updateInGateway(ctx, id, changedFields(prior, merged))
		if errors.Is(err, ErrNotFound) {
			next, _ := agg.Without(id)
			return &next, nil, err
		}
		if err != nil {
			return nil, nil, err
		}
		updated = stored
		next := agg.With(stored)
		return &next, &MutationEvent{Kind: MutationUpdated, ClassName: className, Old: &prior, New: &stored}, nil
	})
	if err != nil {
		return scheduler.Entry{}, err
	}
	return updated, nil
}

// Delete removes the entry id from the class. An id the class aggregate does not hold
// succeeds without gateway I/O or an event, so entries of other classes are never
// touched.
func (s *ScheduleStore) Delete(ctx context.Context, className, id string) (err error) {
	className = strings.TrimSpace(className)
	logger := s.loggerWith(ctx, "Delete", "class", className, "entry_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "entry deleted")
	}()

	if className == "" {
		return classNameRequired()
	}

	return s.mutate(ctx, className, func(agg scheduler.Aggregate) (*scheduler.Aggregate, *MutationEvent, error) {
		prior, present := agg.Find(id)
		if !present {
			return nil, nil, nil
		}

		next, _ := agg.Without(id)
		if err := s.deleteInGateway(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return &next, nil, nil
			}
			return nil, nil, err
		}
		return &next, &MutationEvent{Kind: MutationDeleted, ClassName: className, Old: &prior}, nil
	})
}

// mutate runs fn under the class lock with the current aggregate. A non-nil aggregate
// returned by fn replaces the cached one even when fn fails. The event, if any, is
// emitted after the lock is released.
func (s *ScheduleStore) mutate(ctx context.Context, className string, fn func(scheduler.Aggregate) (*scheduler.Aggregate, *MutationEvent, error)) error {
	unlock := s.locks.lock(className)

	agg, err := s.ensureLoadedLocked(ctx, className)
	if err != nil {
		unlock()
		return err
	}

	next, event, err := fn(agg)
	if next != nil {
		s.cache.Update(*next)
	}
	unlock()

	if err != nil {
		return err
	}
	if event != nil {
		s.emit(ctx, *event)
	}
	return nil
}

func (s *ScheduleStore) ensureLoadedLocked(ctx context.Context, className string) (scheduler.Aggregate, error) {
	if agg, ok := s.cache.Get(className); ok {
		return agg, nil
	}
	return s.loadLocked(ctx, s.loggerWith(ctx, "Load", "class", className), className)
}

func (s *ScheduleStore) loadLocked(ctx context.Context, logger *slog.Logger, className string) (scheduler.Aggregate, error) {
	callCtx, cancel := s.gatewayContext(ctx)
	entries, err := s.gateway.GetByClass(callCtx, className)
	cancel()
	if err != nil {
		return scheduler.Aggregate{}, gatewayError("load", err)
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := scheduler.CheckStored(entry, className); err != nil {
			s.cache.Invalidate(className)
			return scheduler.Aggregate{}, fmt.Errorf("%w: %v", ErrDataCorruption, err)
		}
		if _, dup := seen[entry.ID]; dup {
			s.cache.Invalidate(className)
			return scheduler.Aggregate{}, fmt.Errorf("%w: duplicate entry id %s in class %s", ErrDataCorruption, entry.ID, className)
		}
		seen[entry.ID] = struct{}{}
	}

	agg := scheduler.NewAggregate(className, entries)
	for i := 1; i < len(agg.Entries); i++ {
		if agg.Entries[i-1].Overlaps(agg.Entries[i]) {
			logger.WarnContext(ctx, "stored entries overlap",
				"entry_id", agg.Entries[i-1].ID, "other_entry_id", agg.Entries[i].ID)
		}
	}

	s.cache.Store(agg)
	return agg.Clone(), nil
}

func (s *ScheduleStore) buildCandidate(input CreateEntryInput, date scheduler.Date) (scheduler.Entry, *ValidationError) {
	candidate := scheduler.Entry{
		ClassName: strings.TrimSpace(input.ClassName),
		Subject:   strings.TrimSpace(input.Subject),
		Room:      strings.TrimSpace(input.Room),
		ZoomID:    strings.TrimSpace(input.ZoomID),
		CourseID:  strings.TrimSpace(input.CourseID),
		Type:      scheduler.EntryTypeLecture,
	}

	vErr := &ValidationError{}
	startAt, endAt, err := s.normalizer.Normalize(date, input.Start, input.End, input.OffsetHours)
	if err != nil {
		vErr.merge(invalidInput(timeField(err), err))
	} else {
		candidate.StartAt, candidate.EndAt = startAt, endAt
	}

	// Overlaps are checked later, under the class lock.
	if _, violations := scheduler.Validate(candidate, nil, ""); len(violations) > 0 {
		for _, violation := range violations {
			if err != nil && violation.Code == scheduler.ViolationRequired &&
				(violation.Field == "startAt" || violation.Field == "endAt") {
				continue
			}
			vErr.Violations = append(vErr.Violations, violation)
		}
	}
	if !vErr.HasErrors() {
		return candidate, nil
	}
	return candidate, vErr
}

func (s *ScheduleStore) applyPatch(prior scheduler.Entry, patch EntryPatch) (scheduler.Entry, *ValidationError) {
	merged := prior

	if patch.MoveTo != nil {
		if patch.civil() || patch.StartAt != nil || patch.EndAt != nil {
			return prior, invalidInput("moveTo", errMoveWithTimes)
		}
		merged = merged.MoveTo(*patch.MoveTo)
	}

	if patch.civil() {
		loc := s.normalizer.Location()
		if patch.OffsetHours != nil {
			fixed, err := scheduler.FixedOffset(*patch.OffsetHours)
			if err != nil {
				return prior, invalidInput("offsetHours", err)
			}
			loc = fixed
		}
		date, start := civil(prior.StartAt, loc)
		_, end := civil(prior.EndAt, loc)
		if patch.Date != nil {
			date = *patch.Date
		}
		if patch.Start != nil {
			start = *patch.Start
		}
		if patch.End != nil {
			end = *patch.End
		}
		startAt, endAt, err := s.normalizer.Normalize(date, start, end, patch.OffsetHours)
		if err != nil {
			return prior, invalidInput(timeField(err), err)
		}
		merged.StartAt, merged.EndAt = startAt, endAt
	}

	if patch.StartAt != nil {
		merged.StartAt = patch.StartAt.UTC()
	}
	if patch.EndAt != nil {
		merged.EndAt = patch.EndAt.UTC()
	}
	if patch.Room != nil {
		merged.Room = strings.TrimSpace(*patch.Room)
	}
	if patch.ZoomID != nil {
		merged.ZoomID = strings.TrimSpace(*patch.ZoomID)
	}
	return merged, nil
}

func (s *ScheduleStore) createInGateway(ctx context.Context, candidate scheduler.Entry) (scheduler.Entry, error) {
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	stored, err := s.gateway.Create(callCtx, candidate)
	if err != nil {
		return scheduler.Entry{}, gatewayError("create", err)
	}
	if stored.ID == "" {
		return scheduler.Entry{}, fmt.Errorf("%w: gateway returned an entry without id", ErrPersistenceUnavailable)
	}
	return stored, nil
}

func (s *ScheduleStore) updateInGateway(ctx context.Context, id string, update TimeLocationUpdate) (scheduler.Entry, error) {
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	stored, err := s.gateway.UpdateTimeAndLocation(callCtx, id, update)
	if err != nil {
		return scheduler.Entry{}, gatewayError("update", err)
	}
	return stored, nil
}

func (s *ScheduleStore) deleteInGateway(ctx context.Context, id string) error {
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()

	if err := s.gateway.Delete(callCtx, id); err != nil {
		return gatewayError("delete", err)
	}
	return nil
}

func (s *ScheduleStore) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ScheduleStore) emit(ctx context.Context, event MutationEvent) {
	if s.listener == nil {
		return
	}
	s.listener.OnMutation(context.WithoutCancel(ctx), event)
}

func gatewayError(operation string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("gateway %s: %w", operation, err)
	}
	return fmt.Errorf("%w: gateway %s: %v", ErrPersistenceUnavailable, operation, err)
}

func classNameRequired() *ValidationError {
	vErr := &ValidationError{}
	vErr.add(scheduler.ViolationRequired, "className", "className is required")
	return vErr
}

func timeField(err error) string {
	switch {
	case errors.Is(err, scheduler.ErrInvalidDate):
		return "date"
	case errors.Is(err, scheduler.ErrInvalidOffset):
		return "offsetHours"
	case errors.Is(err, scheduler.ErrInvalidTimeRange):
		return "endAt"
	default:
		return "startAt"
	}
}

func prefixed(label string, violations []scheduler.Violation) *ValidationError {
	out := &ValidationError{Violations: make([]scheduler.Violation, 0, len(violations))}
	for _, violation := range violations {
		violation.Message = label + ": " + violation.Message
		out.Violations = append(out.Violations, violation)
	}
	return out
}

func civil(t time.Time, loc *time.Location) (scheduler.Date, scheduler.TimeOfDay) {
	local := t.In(loc)
	return scheduler.DateOf(local), scheduler.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
}

func sameTimeAndLocation(a, b scheduler.Entry) bool {
	return a.StartAt.Equal(b.StartAt) && a.EndAt.Equal(b.EndAt) && a.Room == b.Room && a.ZoomID == b.ZoomID
}

func changedFields(prior, merged scheduler.Entry) TimeLocationUpdate {
	var update TimeLocationUpdate
	if !prior.StartAt.Equal(merged.StartAt) {
		startAt := merged.StartAt
		update.StartAt = &startAt
	}
	if !prior.EndAt.Equal(merged.EndAt) {
		endAt := merged.EndAt
		update.EndAt = &endAt
	}
	if prior.Room != merged.Room {
		room := merged.Room
		update.Room = &room
	}
	if prior.ZoomID != merged.ZoomID {
		zoomID := merged.ZoomID
		update.ZoomID = &zoomID
	}
	return update
}
