// Package adapter exposes the SQLite repositories through the application ports.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/persistence"
	"github.com/example/class-timetable/internal/scheduler"
)

// EntryGateway implements application.EntryGateway on an EntryRepository.
type EntryGateway struct {
	repo persistence.EntryRepository
}

var (
	_ application.EntryGateway      = (*EntryGateway)(nil)
	_ application.AudienceDirectory = (*AudienceDirectory)(nil)
)

// NewEntryGateway wraps repo.
func NewEntryGateway(repo persistence.EntryRepository) *EntryGateway {
	return &EntryGateway{repo: repo}
}

// GetByClass loads every stored entry of className.
func (g *EntryGateway) GetByClass(ctx context.Context, className string) ([]scheduler.Entry, error) {
	records, err := g.repo.ListEntriesByClass(ctx, className)
	if err != nil {
		return nil, translate(err)
	}
	entries := make([]scheduler.Entry, 0, len(records))
	for _, record := range records {
		entries = append(entries, ToScheduler(record))
	}
	return entries, nil
}

// Create stores entry and returns it with its assigned id.
func (g *EntryGateway) Create(ctx context.Context, entry scheduler.Entry) (scheduler.Entry, error) {
	created, err := g.repo.CreateEntry(ctx, FromScheduler(entry))
	if err != nil {
		return scheduler.Entry{}, translate(err)
	}
	return ToScheduler(created), nil
}

// UpdateTimeAndLocation persists the changed time and location fields of id.
func (g *EntryGateway) UpdateTimeAndLocation(ctx context.Context, id string, update application.TimeLocationUpdate) (scheduler.Entry, error) {
	updated, err := g.repo.UpdateEntry(ctx, id, persistence.EntryPatch{
		StartAt: update.StartAt,
		EndAt:   update.EndAt,
		Room:    update.Room,
		ZoomID:  update.ZoomID,
	})
	if err != nil {
		return scheduler.Entry{}, translate(err)
	}
	return ToScheduler(updated), nil
}

// Delete removes id.
func (g *EntryGateway) Delete(ctx context.Context, id string) error {
	return translate(g.repo.DeleteEntry(ctx, id))
}

// AudienceDirectory resolves class audiences from the participant table.
type AudienceDirectory struct {
	repo persistence.ParticipantRepository
}

// NewAudienceDirectory wraps repo.
func NewAudienceDirectory(repo persistence.ParticipantRepository) *AudienceDirectory {
	return &AudienceDirectory{repo: repo}
}

// Audience returns the participant ids registered for className.
func (d *AudienceDirectory) Audience(ctx context.Context, className string) ([]string, error) {
	participants, err := d.repo.ListParticipants(ctx, className)
	if err != nil {
		return nil, err
	}
	audience := make([]string, 0, len(participants))
	for _, participant := range participants {
		audience = append(audience, participant.ParticipantID)
	}
	return audience, nil
}

// ToScheduler converts a stored row into a domain entry.
func ToScheduler(record persistence.Entry) scheduler.Entry {
	entry := scheduler.Entry{
		ID:        record.ID,
		ClassName: record.ClassName,
		Subject:   record.Subject,
		Room:      record.Room,
		CourseID:  record.CourseID,
		StartAt:   record.StartAt.UTC(),
		EndAt:     record.EndAt.UTC(),
		Type:      scheduler.EntryType(record.Type),
	}
	if record.ZoomID != nil {
		entry.ZoomID = *record.ZoomID
	}
	return entry
}

// FromScheduler converts a domain entry into a row. An empty zoom id is stored as NULL.
func FromScheduler(entry scheduler.Entry) persistence.Entry {
	record := persistence.Entry{
		ID:        entry.ID,
		ClassName: entry.ClassName,
		Subject:   entry.Subject,
		Room:      entry.Room,
		CourseID:  entry.CourseID,
		Type:      int(entry.Type),
		StartAt:   entry.StartAt,
		EndAt:     entry.EndAt,
	}
	if entry.ZoomID != "" {
		zoom := entry.ZoomID
		record.ZoomID = &zoom
	}
	return record
}

// translate keeps not-found distinguishable for the store and leaves everything else
// to be reported as a persistence failure.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %v", application.ErrNotFound, err)
	}
	return err
}
